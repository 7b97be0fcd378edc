// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package pe653

import (
	"context"
	"encoding/binary"
	"time"
)

type fakeState int

const (
	fakeWait fakeState = iota
	fakeTransfer
	fakeError
	fakeDone
)

// FakeTransport is an in-process simulation of the receiver's bootloader,
// faithful to its observed quirks: corrupted packets are dropped without a
// reply so the host retransmits, and once the transfer is closed the device
// goes silent, so the host never sees the final DONE unless ConfirmDone is
// set.
type FakeTransport struct {
	// Delay is applied before every reply to mimic radio latency.
	Delay time.Duration

	// ConfirmDone makes the simulator acknowledge the DONE packet instead
	// of going silent like the real device.
	ConfirmDone bool

	state   fakeState
	nextSeq uint16
	buf     [KnownFirmwareSize]byte

	dropRemaining int
	errorAtSeq    int
}

// NewFakeTransport returns a simulator in the waiting state.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{Delay: 5 * time.Millisecond, errorAtSeq: -1}
}

// DropNext makes the simulator lose the next n exchanges entirely, as if
// the radio dropped the frames. The host observes timeouts.
func (f *FakeTransport) DropNext(n int) {
	f.dropRemaining = n
}

// FailAtSeq makes the simulator report a CRC error when the data packet
// with the given sequence number arrives.
func (f *FakeTransport) FailAtSeq(seq uint16) {
	f.errorAtSeq = int(seq)
}

// Received returns the bytes written so far, up to the given length.
func (f *FakeTransport) Received(n int) []byte {
	return f.buf[:n]
}

func (f *FakeTransport) SendAndReceive(ctx context.Context, packet []byte) ([]byte, error) {
	if f.dropRemaining > 0 {
		f.dropRemaining--
		return nil, nil
	}
	reply := f.handle(packet)
	if reply == nil {
		return nil, nil
	}
	select {
	case <-time.After(f.Delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return reply, nil
}

// handle processes one incoming packet and produces the device's reply.
// Malformed, out-of-state, and unrecognized packets yield no reply.
func (f *FakeTransport) handle(packet []byte) []byte {
	if len(packet) < 2 || packet[0] != CommandFirmwareTransfer {
		return nil
	}

	if f.state == fakeError {
		return f.reply(PacketCrcError)
	}

	switch packet[1] {
	case PacketStart:
		if f.state != fakeWait {
			return nil
		}
		f.state = fakeTransfer
		f.nextSeq = 0
		return f.reply(PacketDataRequest)

	case PacketData:
		if f.state != fakeTransfer || len(packet) < 6 || packetSeq(packet) != f.nextSeq {
			return nil
		}
		if !verifyDataPacket(packet) {
			// Corrupt frame: stay silent and let the host retransmit.
			return nil
		}
		if f.errorAtSeq >= 0 && int(f.nextSeq) == f.errorAtSeq {
			f.state = fakeError
			return f.reply(PacketCrcError)
		}
		data := packet[4 : len(packet)-2]
		offset := int(f.nextSeq) * PayloadSize
		if offset+len(data) > len(f.buf) {
			f.state = fakeError
			return f.reply(PacketCrcError)
		}
		copy(f.buf[offset:], data)
		f.nextSeq++
		return f.reply(PacketDataRequest)

	case PacketDone:
		if f.state != fakeTransfer || len(packet) < 4 || packetSeq(packet) != f.nextSeq {
			return nil
		}
		// The real device checks the whole-image CRC here; the check is a
		// pass-through until the flash padding layout is understood.
		f.state = fakeDone
		if f.ConfirmDone {
			return f.reply(PacketDone)
		}
		return nil

	default:
		return nil
	}
}

func (f *FakeTransport) reply(packetType byte) []byte {
	p := make([]byte, 0, 4)
	p = append(p, CommandFirmwareTransfer, packetType)
	return binary.LittleEndian.AppendUint16(p, f.nextSeq)
}
