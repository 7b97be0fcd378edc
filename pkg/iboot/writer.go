// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package iboot

import (
	"bytes"
	"fmt"
	"os"
)

// EncodeIntelHex re-emits an assembled image as Intel-HEX text: sixteen
// data bytes per line, an extended segment address record at each 64 KiB
// boundary, and a terminating EOF record.
func EncodeIntelHex(blob []byte) []byte {
	var out bytes.Buffer
	for base := 0; base < len(blob); base += 0x10000 {
		if base > 0 {
			esa := uint16(base >> 4)
			writeRecord(&out, 0, recordExtendedSegment, []byte{byte(esa >> 8), byte(esa)})
		}
		end := base + 0x10000
		if end > len(blob) {
			end = len(blob)
		}
		for addr := base; addr < end; addr += 16 {
			stop := addr + 16
			if stop > end {
				stop = end
			}
			writeRecord(&out, uint16(addr-base), recordData, blob[addr:stop])
		}
	}
	writeRecord(&out, 0, recordEOF, nil)
	return out.Bytes()
}

func writeRecord(out *bytes.Buffer, offset uint16, recordType byte, data []byte) {
	sum := byte(len(data)) + byte(offset>>8) + byte(offset) + recordType
	fmt.Fprintf(out, ":%02X%04X%02X", len(data), offset, recordType)
	for _, b := range data {
		fmt.Fprintf(out, "%02X", b)
		sum += b
	}
	fmt.Fprintf(out, "%02X\n", byte(0)-sum)
}

// WriteIhex writes the product's image as Intel-HEX next to the given path.
func (p *Product) WriteIhex(base string) (string, error) {
	path := fmt.Sprintf("%s-%s.ihex", base, p.ID)
	return path, os.WriteFile(path, EncodeIntelHex(p.Blob), 0o644)
}

// WriteBin writes the product's raw image next to the given path.
func (p *Product) WriteBin(base string) (string, error) {
	path := fmt.Sprintf("%s-%s.bin", base, p.ID)
	return path, os.WriteFile(path, p.Blob, 0o644)
}
