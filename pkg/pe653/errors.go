// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package pe653

import (
	"errors"
	"fmt"
)

// ErrNoConfirmation is returned when the device stopped answering after the
// DONE packet was sent. Every observed transfer ends this way: the device
// applies the image and resets without acknowledging. Callers should treat
// the transfer as probably successful but surface the ambiguity.
var ErrNoConfirmation = errors.New("no final confirmation from device; firmware assumed uploaded")

// SizeMismatchError indicates the image length does not match the only
// length the device accepts. Nothing is transmitted in this case.
type SizeMismatchError struct {
	Got  int
	Want int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("firmware image is %d bytes, device requires exactly %d", e.Got, e.Want)
}

// TimeoutError indicates the retransmission budget was exhausted before the
// device answered.
type TimeoutError struct {
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("device did not respond after %d attempts", e.Attempts)
}

// CrcReportedError indicates the device rejected a data packet. The engine
// does not attempt recovery: the device resets autonomously after its own
// inactivity timeout and the transfer must be restarted from scratch.
type CrcReportedError struct {
	Seq uint16
}

func (e *CrcReportedError) Error() string {
	return fmt.Sprintf("device reported CRC error at sequence %d", e.Seq)
}
