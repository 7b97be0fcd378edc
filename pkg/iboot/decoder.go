// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

package iboot

import (
	"io"
	"strings"
)

const (
	// maxBlobLength is the flash slot size: assembly buffers are this big
	// and no record may write past it.
	maxBlobLength = 128 * 1024

	// headerFields is the field count of a product metadata line,
	// id=name=version=message.
	headerFields = 4
)

// blobBuffer assembles one product's image while its records stream in.
type blobBuffer struct {
	buf        []byte
	esa        uint16 // extended segment address, shifted left 4 on use
	maxAddress int    // highest written byte + 1
}

func newBlobBuffer() *blobBuffer {
	b := &blobBuffer{buf: make([]byte, maxBlobLength)}
	for i := range b.buf {
		b.buf[i] = 0xFF
	}
	return b
}

type decoder struct {
	archive *Archive
	current *Product
	buf     *blobBuffer
	line    int
}

// Decode parses a decrypted archive.
//
// Lines are split on LF with a trailing CR stripped, so both LF and CRLF
// archives decode. The whole stream is consumed; the first error aborts.
func Decode(plaintext []byte) (*Archive, error) {
	d := &decoder{
		archive: &Archive{
			FormatVersion: "unknown",
			Products:      make(map[string]*Product),
		},
	}
	for _, line := range strings.Split(string(plaintext), "\n") {
		d.line++
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		if err := d.handleLine(line); err != nil {
			return nil, err
		}
	}
	return d.archive, nil
}

// DecodeReader reads the whole plaintext stream and decodes it.
func DecodeReader(r io.Reader) (*Archive, error) {
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, &IoError{Path: "(stream)", Err: err}
	}
	return Decode(plaintext)
}

// DecodeFile decrypts and decodes an archive file in one step.
func DecodeFile(path string) (*Archive, error) {
	plaintext, err := DecryptFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(plaintext)
}

func (d *decoder) handleLine(line string) error {
	if line[0] == ':' {
		return d.handleRecord(line)
	}
	return d.handleMetadata(line)
}

// handleMetadata processes a non-record line: a product header when it has
// exactly four '='-delimited fields, otherwise the archive version string
// the first time around, otherwise noise.
func (d *decoder) handleMetadata(line string) error {
	if d.buf != nil {
		return &SemanticsError{Line: d.line, Reason: "metadata interleaved with firmware records"}
	}

	fields := strings.Split(line, "=")
	if len(fields) != headerFields {
		if d.archive.FormatVersion == "unknown" {
			d.archive.FormatVersion = line
		}
		return nil
	}

	id := fields[0]
	if _, exists := d.archive.Products[id]; exists {
		return &SemanticsError{Line: d.line, Reason: "duplicate product header " + id}
	}
	p := &Product{ID: id, Name: fields[1], Version: fields[2], Message: fields[3]}
	d.archive.Products[id] = p
	d.current = p
	return nil
}

func (d *decoder) handleRecord(line string) error {
	r, err := parseRecord(line)
	if err != nil {
		return &SyntaxError{Line: d.line, Reason: err.Error()}
	}
	if d.current == nil {
		return &SemanticsError{Line: d.line, Reason: "firmware record before any product header"}
	}

	switch r.Type {
	case recordData:
		return d.handleData(r)
	case recordEOF:
		return d.handleEOF(r)
	case recordExtendedSegment:
		return d.handleExtendedSegment(r)
	}
	return nil
}

func (d *decoder) handleData(r *record) error {
	if r.Length != 16 {
		return &SyntaxError{Line: d.line, Reason: "data record must carry 16 bytes"}
	}
	d.ensureBuffer()

	address := int(d.buf.esa)<<4 + int(r.Offset)
	if address+int(r.Length) > maxBlobLength {
		return &SemanticsError{Line: d.line, Reason: "data record past end of flash slot"}
	}
	copy(d.buf.buf[address:], r.Data)
	if end := address + int(r.Length); end > d.buf.maxAddress {
		d.buf.maxAddress = end
	}
	return nil
}

func (d *decoder) handleEOF(r *record) error {
	if r.Length != 0 || r.Offset != 0 {
		return &SyntaxError{Line: d.line, Reason: "EOF record must have zero length and offset"}
	}
	if d.current.Loaded() {
		return &SemanticsError{Line: d.line, Reason: "second firmware image for product " + d.current.ID}
	}
	d.ensureBuffer()
	d.current.attachBlob(d.buf.buf[:d.buf.maxAddress])
	d.buf = nil
	return nil
}

func (d *decoder) handleExtendedSegment(r *record) error {
	if r.Length != 2 || r.Offset != 0 {
		return &SyntaxError{Line: d.line, Reason: "extended segment record must carry two bytes at offset zero"}
	}
	d.ensureBuffer()
	d.buf.esa = uint16(r.Data[0])<<8 | uint16(r.Data[1])
	return nil
}

// ensureBuffer opens a fresh 0xFF-filled assembly buffer if none is open.
func (d *decoder) ensureBuffer() {
	if d.buf == nil {
		d.buf = newBlobBuffer()
	}
}
