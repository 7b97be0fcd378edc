// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package iboot

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"testing"
)

// encrypt builds archive ciphertext the way the vendor does: AES-128-CBC
// with the fixed key doubling as IV, PKCS#7 padded.
func encrypt(t *testing.T, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(archiveKey)
	if err != nil {
		t.Fatal(err)
	}
	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append(append([]byte(nil), plaintext...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, archiveKey).CryptBlocks(out, padded)
	return out
}

func TestDecrypt_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
	}{
		{name: "short line", plaintext: []byte("iBoot 1.0\n")},
		{name: "exactly one block", plaintext: []byte("0123456789ABCDEF")},
		{name: "empty", plaintext: nil},
		{name: "binaryish", plaintext: bytes.Repeat([]byte{0x00, 0xFF, ':'}, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decrypt(encrypt(t, tt.plaintext))
			if err != nil {
				t.Fatalf("decrypt failed: %v", err)
			}
			if !bytes.Equal(got, tt.plaintext) {
				t.Errorf("round trip mismatch: %q != %q", got, tt.plaintext)
			}
		})
	}
}

// encryptRaw encrypts without adding padding, for forging bad pad bytes.
func encryptRaw(t *testing.T, padded []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(archiveKey)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, archiveKey).CryptBlocks(out, padded)
	return out
}

func TestDecrypt_Rejects(t *testing.T) {
	zeroPad := make([]byte, 16) // final byte 0x00: impossible pad length
	overPad := bytes.Repeat([]byte{17}, 16)
	unevenPad := append(bytes.Repeat([]byte{'x'}, 13), 1, 3, 3) // run does not match count

	tests := []struct {
		name       string
		ciphertext []byte
	}{
		{name: "empty", ciphertext: nil},
		{name: "partial block", ciphertext: make([]byte, 15)},
		{name: "zero pad length", ciphertext: encryptRaw(t, zeroPad)},
		{name: "pad longer than block", ciphertext: encryptRaw(t, overPad)},
		{name: "inconsistent pad run", ciphertext: encryptRaw(t, unevenPad)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt(tt.ciphertext)
			var cipherErr *CipherError
			if !errors.As(err, &cipherErr) {
				t.Errorf("expected CipherError, got %v", err)
			}
		})
	}
}

func TestDecryptFile_MissingFile(t *testing.T) {
	_, err := DecryptFile("does-not-exist.iboot")
	var ioErr *IoError
	if !errors.As(err, &ioErr) {
		t.Errorf("expected IoError, got %v", err)
	}
}
