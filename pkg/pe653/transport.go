// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package pe653

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Transport carries one packet to the device and waits for the next packet
// it sends back.
//
// A call returns exactly one of: a reply packet, a timeout (nil packet and
// nil error), or a transport failure. The exchange window is owned by the
// implementation; the gateway transport uses roughly ten seconds, matching
// the device's own retry cadence.
type Transport interface {
	SendAndReceive(ctx context.Context, packet []byte) ([]byte, error)
}

// LoggingTransport wraps another Transport and traces each exchange.
type LoggingTransport struct {
	Inner Transport
	Log   *logrus.Logger
}

func (t *LoggingTransport) SendAndReceive(ctx context.Context, packet []byte) ([]byte, error) {
	t.Log.WithField("packet", FormatPacket(packet)).Debug("send")
	reply, err := t.Inner.SendAndReceive(ctx, packet)
	switch {
	case err != nil:
		t.Log.WithError(err).Debug("exchange failed")
	case reply == nil:
		t.Log.Debug("recv timeout")
	default:
		t.Log.WithField("packet", FormatPacket(reply)).Debug("recv")
	}
	return reply, err
}
