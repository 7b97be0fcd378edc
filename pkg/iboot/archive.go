// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 j9brown

// Package iboot decodes the vendor's encrypted .iboot firmware archives.
//
// An archive is an AES-encrypted text file holding product metadata lines
// and interleaved Intel-HEX records. Decoding yields one contiguous
// firmware image per product, assembled into a 0xFF-filled buffer exactly
// as the factory programmer would lay it out in flash.
package iboot

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Archive is the decoded contents of one .iboot file.
type Archive struct {
	// FormatVersion is the first non-record line of the archive that is
	// not a product header, taken verbatim. "unknown" if absent.
	FormatVersion string

	// Products maps product codes such as "PE0653" to their records.
	Products map[string]*Product
}

// ProductCodes returns the archive's product codes in sorted order.
func (a *Archive) ProductCodes() []string {
	codes := make([]string, 0, len(a.Products))
	for code := range a.Products {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Product is one product entry of an archive. It starts metadata-only and
// becomes fully loaded when the decoder reaches the product's EOF record.
type Product struct {
	ID      string
	Name    string
	Version string
	Message string

	// Blob is the assembled firmware image, nil until the EOF record.
	Blob []byte

	// BlobHash is the SHA-256 of Blob in hex, "" until the EOF record.
	BlobHash string
}

// Loaded reports whether the product carries an assembled image.
func (p *Product) Loaded() bool {
	return p.Blob != nil
}

// BlobLength returns the image length in bytes, 0 when metadata-only.
func (p *Product) BlobLength() int {
	return len(p.Blob)
}

// attachBlob finalizes the product with its assembled image.
func (p *Product) attachBlob(blob []byte) {
	sum := sha256.Sum256(blob)
	p.Blob = blob
	p.BlobHash = hex.EncodeToString(sum[:])
}
