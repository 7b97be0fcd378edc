// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package iboot

import (
	"crypto/aes"
	"crypto/cipher"
	"io"
	"os"
)

// archiveKey is the AES-128 key of every vendor .iboot archive. The same
// sixteen bytes serve as the CBC IV; this is a compatibility constraint of
// the vendor's format, not a security property, and must not change.
var archiveKey = []byte("gbUst8Ce8Cp4bkPw")

// Decrypt recovers the plaintext of an .iboot archive: AES-128-CBC with the
// fixed key/IV, then PKCS#7 padding removal.
func Decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(archiveKey)
	if err != nil {
		return nil, &CipherError{Reason: err.Error()}
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, &CipherError{Reason: "ciphertext is not a whole number of AES blocks"}
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, archiveKey).CryptBlocks(plaintext, ciphertext)

	return stripPadding(plaintext)
}

// DecryptReader reads the whole stream and decrypts it.
func DecryptReader(r io.Reader) ([]byte, error) {
	ciphertext, err := io.ReadAll(r)
	if err != nil {
		return nil, &IoError{Path: "(stream)", Err: err}
	}
	return Decrypt(ciphertext)
}

// DecryptFile reads and decrypts an archive file.
func DecryptFile(path string) ([]byte, error) {
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, &IoError{Path: path, Err: err}
	}
	return Decrypt(ciphertext)
}

// stripPadding validates and removes PKCS#7 padding.
func stripPadding(p []byte) ([]byte, error) {
	n := int(p[len(p)-1])
	if n == 0 || n > aes.BlockSize || n > len(p) {
		return nil, &CipherError{Reason: "invalid padding length"}
	}
	for _, b := range p[len(p)-n:] {
		if int(b) != n {
			return nil, &CipherError{Reason: "inconsistent padding bytes"}
		}
	}
	return p[:len(p)-n], nil
}
