// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package pe653

import (
	"context"

	"github.com/sirupsen/logrus"
)

// progressInterval is how often the engine logs transfer progress, in bytes.
const progressInterval = 1024

// ProgressFunc receives the number of image bytes handed to the transport so
// far, counting the data window about to be sent.
type ProgressFunc func(sent, total int)

// Uploader drives the device-led transfer state machine against a Transport
// to deliver one firmware image.
type Uploader struct {
	transport Transport
	config    uploaderConfig
}

type uploaderConfig struct {
	Logger   *logrus.Logger
	Progress ProgressFunc
}

// Option configures an Uploader.
type Option func(*uploaderConfig)

// WithLogger sets the logger for transfer diagnostics.
func WithLogger(log *logrus.Logger) Option {
	return func(c *uploaderConfig) {
		c.Logger = log
	}
}

// WithProgress sets a callback invoked each time a new data window is framed
// for sending, before the exchange that carries it.
func WithProgress(fn ProgressFunc) Option {
	return func(c *uploaderConfig) {
		c.Progress = fn
	}
}

// NewUploader creates an upload engine bound to a transport.
func NewUploader(t Transport, opts ...Option) *Uploader {
	cfg := uploaderConfig{Logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Uploader{transport: t, config: cfg}
}

// Upload delivers blob to the device.
//
// The device drives advancement: after START it requests each 32-byte
// window by sequence number and the engine answers in order. Timeouts are
// absorbed by resending the outstanding packet, up to MaxTimeouts attempts.
// A timeout after DONE was sent returns ErrNoConfirmation, which is how
// every observed transfer against real hardware ends.
func (u *Uploader) Upload(ctx context.Context, blob []byte) error {
	if len(blob) != KnownFirmwareSize {
		return &SizeMismatchError{Got: len(blob), Want: KnownFirmwareSize}
	}
	if stored, computed, ok := VerifyBlobCrc(blob); !ok {
		// Known not to match: the trailer's coverage of the 128 KiB flash
		// slot is unresolved, so the result is informational only.
		u.config.Logger.WithFields(logrus.Fields{
			"stored":   stored,
			"computed": computed,
		}).Debug("image CRC trailer mismatch (expected for this device family)")
	}

	current := StartPacket()
	expectedNextSeq := uint16(0)
	timeouts := 0
	doneSent := false

	for {
		reply, err := u.transport.SendAndReceive(ctx, current)
		if err != nil {
			return err
		}

		if reply == nil {
			timeouts++
			if timeouts < MaxTimeouts {
				u.config.Logger.Infof("timeout %d/%d, resending %s", timeouts, MaxTimeouts, PacketTypeName(current[1]))
				continue
			}
			if doneSent {
				return ErrNoConfirmation
			}
			return &TimeoutError{Attempts: timeouts}
		}

		if len(reply) < 4 || reply[0] != CommandFirmwareTransfer {
			u.config.Logger.WithField("packet", FormatPacket(reply)).Debug("ignoring malformed reply")
			continue
		}
		timeouts = 0
		seq := packetSeq(reply)

		switch reply[1] {
		case PacketDataRequest:
			if seq != expectedNextSeq {
				u.config.Logger.WithFields(logrus.Fields{
					"got":  seq,
					"want": expectedNextSeq,
				}).Debug("ignoring out-of-order data request")
				continue
			}
			offset := int(seq) * PayloadSize
			if offset < len(blob) {
				end := offset + PayloadSize
				if end > len(blob) {
					end = len(blob)
				}
				current = DataPacket(seq, blob[offset:end])
				expectedNextSeq = seq + 1
				if offset%progressInterval == 0 {
					u.config.Logger.Debugf("progress %d/%d", offset, len(blob))
				}
				if u.config.Progress != nil {
					u.config.Progress(end, len(blob))
				}
			} else {
				current = DonePacket(seq)
				doneSent = true
				u.config.Logger.Debug("image exhausted, sending DONE")
			}

		case PacketDone:
			return nil

		case PacketCrcError:
			return &CrcReportedError{Seq: seq}

		default:
			// Unknown but well-formed packet type: keep the outstanding
			// packet and let the next exchange carry it again.
			u.config.Logger.WithField("packet", FormatPacket(reply)).Debug("ignoring unrecognized packet type")
		}
	}
}
