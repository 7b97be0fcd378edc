// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package pe653

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

// recordingTransport wraps another transport and keeps every outbound packet.
type recordingTransport struct {
	inner Transport
	sent  [][]byte
}

func (r *recordingTransport) SendAndReceive(ctx context.Context, packet []byte) ([]byte, error) {
	r.sent = append(r.sent, append([]byte(nil), packet...))
	return r.inner.SendAndReceive(ctx, packet)
}

// silentTransport times out on every exchange.
type silentTransport struct {
	calls int
}

func (s *silentTransport) SendAndReceive(ctx context.Context, packet []byte) ([]byte, error) {
	s.calls++
	return nil, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testBlob(t *testing.T) []byte {
	t.Helper()
	blob := make([]byte, KnownFirmwareSize)
	for i := range blob {
		blob[i] = byte(i * 7)
	}
	return blob
}

func testFake() *FakeTransport {
	fake := NewFakeTransport()
	fake.Delay = 0
	return fake
}

// dataSeqs extracts the sequence numbers of the DATA packets among sent.
func dataSeqs(sent [][]byte) []uint16 {
	var seqs []uint16
	for _, p := range sent {
		if len(p) >= 4 && p[0] == CommandFirmwareTransfer && p[1] == PacketData {
			seqs = append(seqs, binary.LittleEndian.Uint16(p[2:4]))
		}
	}
	return seqs
}

func TestUpload_HappyPath(t *testing.T) {
	blob := testBlob(t)
	fake := testFake()
	fake.ConfirmDone = true
	recorder := &recordingTransport{inner: fake}

	var lastSent, total int
	uploader := NewUploader(recorder,
		WithLogger(quietLogger()),
		WithProgress(func(sent, tot int) { lastSent, total = sent, tot }))

	if err := uploader.Upload(context.Background(), blob); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if !bytes.Equal(fake.Received(len(blob)), blob) {
		t.Error("simulator did not receive the exact image")
	}

	seqs := dataSeqs(recorder.sent)
	if len(seqs) != KnownFirmwareSize/PayloadSize {
		t.Fatalf("expected %d data packets, got %d", KnownFirmwareSize/PayloadSize, len(seqs))
	}
	for i, seq := range seqs {
		if seq != uint16(i) {
			t.Fatalf("data packet %d carries seq %d; sequence must be gapless", i, seq)
		}
	}

	if lastSent != len(blob) || total != len(blob) {
		t.Errorf("final progress %d/%d, expected %d/%d", lastSent, total, len(blob), len(blob))
	}
}

func TestUpload_NoConfirmation(t *testing.T) {
	// The real device never acknowledges DONE; the simulator's default
	// models that, and the engine reports the ambiguity.
	fake := testFake()
	uploader := NewUploader(fake, WithLogger(quietLogger()))

	err := uploader.Upload(context.Background(), testBlob(t))
	if !errors.Is(err, ErrNoConfirmation) {
		t.Fatalf("expected ErrNoConfirmation, got %v", err)
	}
}

func TestUpload_SizeMismatch(t *testing.T) {
	transport := &silentTransport{}
	uploader := NewUploader(transport, WithLogger(quietLogger()))

	err := uploader.Upload(context.Background(), make([]byte, 117000))
	var mismatch *SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SizeMismatchError, got %v", err)
	}
	if mismatch.Got != 117000 || mismatch.Want != KnownFirmwareSize {
		t.Errorf("unexpected sizes in error: %+v", mismatch)
	}
	if transport.calls != 0 {
		t.Errorf("engine transmitted %d packets before the size check", transport.calls)
	}
}

func TestUpload_RetransmitsOnTimeout(t *testing.T) {
	blob := testBlob(t)
	fake := testFake()
	fake.ConfirmDone = true
	fake.DropNext(4)
	recorder := &recordingTransport{inner: fake}
	uploader := NewUploader(recorder, WithLogger(quietLogger()))

	if err := uploader.Upload(context.Background(), blob); err != nil {
		t.Fatalf("upload failed despite retransmission budget: %v", err)
	}

	// The four lost exchanges plus the one that got through must carry
	// identical bytes: retransmission may not mutate the packet.
	if len(recorder.sent) < 5 {
		t.Fatalf("expected at least 5 exchanges, got %d", len(recorder.sent))
	}
	for i := 1; i < 5; i++ {
		if !bytes.Equal(recorder.sent[i], recorder.sent[0]) {
			t.Fatalf("retry %d sent different bytes than the original", i)
		}
	}

	seqs := dataSeqs(recorder.sent)
	for i, seq := range seqs {
		if seq != uint16(i) {
			t.Fatalf("data packet %d carries seq %d after recovery", i, seq)
		}
	}
}

func TestUpload_TimeoutBudgetExhausted(t *testing.T) {
	transport := &silentTransport{}
	uploader := NewUploader(transport, WithLogger(quietLogger()))

	err := uploader.Upload(context.Background(), testBlob(t))
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if timeout.Attempts != MaxTimeouts {
		t.Errorf("expected %d attempts, got %d", MaxTimeouts, timeout.Attempts)
	}
	if transport.calls != MaxTimeouts {
		t.Errorf("expected %d exchanges, got %d", MaxTimeouts, transport.calls)
	}
}

func TestUpload_DeviceReportsCrcError(t *testing.T) {
	fake := testFake()
	fake.FailAtSeq(10)
	recorder := &recordingTransport{inner: fake}
	uploader := NewUploader(recorder, WithLogger(quietLogger()))

	err := uploader.Upload(context.Background(), testBlob(t))
	var crcErr *CrcReportedError
	if !errors.As(err, &crcErr) {
		t.Fatalf("expected CrcReportedError, got %v", err)
	}
	if crcErr.Seq != 10 {
		t.Errorf("expected failure at seq 10, got %d", crcErr.Seq)
	}

	// The engine must abort without resending the rejected packet.
	seqs := dataSeqs(recorder.sent)
	if len(seqs) != 11 || seqs[len(seqs)-1] != 10 {
		t.Errorf("expected data packets 0..10 and no retry, got %d packets", len(seqs))
	}
}

func TestFakeTransport_DropsCorruptData(t *testing.T) {
	fake := testFake()

	reply, err := fake.SendAndReceive(context.Background(), StartPacket())
	if err != nil || reply == nil || reply[1] != PacketDataRequest {
		t.Fatalf("START not answered with DATA_REQUEST: % X (%v)", reply, err)
	}

	p := DataPacket(0, bytes.Repeat([]byte{0x11}, PayloadSize))
	p[4] ^= 0xFF // corrupt payload, CRC now wrong
	reply, err = fake.SendAndReceive(context.Background(), p)
	if err != nil || reply != nil {
		t.Fatalf("corrupt packet should be dropped silently, got % X (%v)", reply, err)
	}

	// The intact retransmission must still be accepted at the same seq.
	reply, err = fake.SendAndReceive(context.Background(), DataPacket(0, bytes.Repeat([]byte{0x11}, PayloadSize)))
	if err != nil || reply == nil || reply[1] != PacketDataRequest || packetSeq(reply) != 1 {
		t.Fatalf("retransmission not accepted: % X (%v)", reply, err)
	}
}

func TestFakeTransport_IgnoresOutOfState(t *testing.T) {
	fake := testFake()

	// DATA before START.
	reply, _ := fake.SendAndReceive(context.Background(), DataPacket(0, []byte{1}))
	if reply != nil {
		t.Errorf("DATA in wait state answered: % X", reply)
	}

	// Second START mid-transfer.
	if reply, _ = fake.SendAndReceive(context.Background(), StartPacket()); reply == nil {
		t.Fatal("first START unanswered")
	}
	if reply, _ = fake.SendAndReceive(context.Background(), StartPacket()); reply != nil {
		t.Errorf("second START answered: % X", reply)
	}

	// Foreign command byte.
	if reply, _ = fake.SendAndReceive(context.Background(), []byte{0x99, PacketStart}); reply != nil {
		t.Errorf("foreign command answered: % X", reply)
	}
}
