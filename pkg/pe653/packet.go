// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package pe653

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// StartPacket builds the packet that arms the device for a transfer.
func StartPacket() []byte {
	return []byte{CommandFirmwareTransfer, PacketStart}
}

// DataPacket builds a DATA packet carrying one window of the image.
// The trailing CRC-16 covers every preceding byte of the packet.
func DataPacket(seq uint16, chunk []byte) []byte {
	if len(chunk) == 0 || len(chunk) > PayloadSize {
		panic(fmt.Sprintf("pe653: data window must be 1..%d bytes, got %d", PayloadSize, len(chunk)))
	}
	p := make([]byte, 0, 4+len(chunk)+2)
	p = append(p, CommandFirmwareTransfer, PacketData)
	p = binary.LittleEndian.AppendUint16(p, seq)
	p = append(p, chunk...)
	p = binary.LittleEndian.AppendUint16(p, Crc16(p))
	return p
}

// DonePacket builds the packet that closes a transfer.
func DonePacket(seq uint16) []byte {
	p := make([]byte, 0, 4)
	p = append(p, CommandFirmwareTransfer, PacketDone)
	return binary.LittleEndian.AppendUint16(p, seq)
}

// packetSeq extracts the little-endian sequence number from a packet.
// Valid only for packets of at least four bytes.
func packetSeq(p []byte) uint16 {
	return binary.LittleEndian.Uint16(p[2:4])
}

// verifyDataPacket reports whether a DATA packet's trailing CRC-16 matches
// the bytes it covers.
func verifyDataPacket(p []byte) bool {
	if len(p) < 6 {
		return false
	}
	return Crc16(p[:len(p)-2]) == binary.LittleEndian.Uint16(p[len(p)-2:])
}

// FormatPacket renders a packet for debug logging.
func FormatPacket(p []byte) string {
	if len(p) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	if len(p) >= 2 && p[0] == CommandFirmwareTransfer {
		fmt.Fprintf(&b, "%s", PacketTypeName(p[1]))
		if len(p) >= 4 {
			fmt.Fprintf(&b, " seq=%d", packetSeq(p))
		}
		fmt.Fprintf(&b, " len=%d", len(p))
		return b.String()
	}
	fmt.Fprintf(&b, "raw % X", p)
	return b.String()
}
