// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package pe653

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/sigurn/crc16"
)

// crc16Table is the CRC-16/XMODEM table: polynomial 0x1021, initial value 0,
// no reflection, no final XOR. This is the per-packet CRC the device checks.
var crc16Table = crc16.MakeTable(crc16.CRC16_XMODEM)

// Crc16 computes the XMODEM CRC-16 of p.
func Crc16(p []byte) uint16 {
	return crc16.Checksum(p, crc16Table)
}

// Crc16Update folds p into a running XMODEM CRC-16. Chunking does not
// affect the result: Crc16Update(Crc16(a), b) == Crc16(append(a, b...)).
func Crc16Update(crc uint16, p []byte) uint16 {
	return crc16.Update(crc, p, crc16Table)
}

// firmwareCrcTable drives the bit-reversed CRC-32 of the controller's
// hardware CRC unit. The index is taken from the high byte of the register
// and the register shifts left, which is equivalent to running a standard
// reflected CRC-32 over bit-reversed input and bit-reversing the result.
// Each entry is T[rev8(i)] = rev32(stdTable[i]).
var firmwareCrcTable [256]uint32

func init() {
	std := crc32.MakeTable(crc32.IEEE)
	for i := 0; i < 256; i++ {
		firmwareCrcTable[reverseBits8(byte(i))] = reverseBits32(std[i])
	}
}

// FirmwareCrc32 computes the controller's whole-image CRC-32 over p.
func FirmwareCrc32(p []byte) uint32 {
	r := uint32(0xFFFFFFFF)
	for _, b := range p {
		r = firmwareCrcTable[b^byte(r>>24)] ^ (r << 8)
	}
	return r
}

// VerifyBlobCrc computes the firmware CRC over blob[:len-4] and compares it
// with the trailing four bytes interpreted as a big-endian CRC.
//
// The comparison is known not to hold for this device family: the image is
// 116 KiB while the flash slot is 128 KiB, and the coverage of the on-device
// CRC over the padding is unresolved. Callers report the result but must
// not reject an image on mismatch.
func VerifyBlobCrc(blob []byte) (stored, computed uint32, ok bool) {
	if len(blob) < 4 {
		return 0, 0, false
	}
	stored = binary.BigEndian.Uint32(blob[len(blob)-4:])
	computed = FirmwareCrc32(blob[:len(blob)-4])
	return stored, computed, stored == computed
}

func reverseBits8(b byte) byte {
	b = b>>4 | b<<4
	b = b>>2&0x33 | b<<2&0xCC
	b = b>>1&0x55 | b<<1&0xAA
	return b
}

func reverseBits32(v uint32) uint32 {
	v = v>>16 | v<<16
	v = v>>8&0x00FF00FF | v<<8&0xFF00FF00
	v = v>>4&0x0F0F0F0F | v<<4&0xF0F0F0F0
	v = v>>2&0x33333333 | v<<2&0xCCCCCCCC
	v = v>>1&0x55555555 | v<<1&0xAAAAAAAA
	return v
}
