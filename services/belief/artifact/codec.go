// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package artifact

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"hash/crc32"

	"github.com/AleutianAI/beliefgraph/services/belief/graph"
)

// FormatVersion is the blob format version written by this package.
const FormatVersion uint16 = 1

// Blob framing constants.
const (
	blobMagic      = "BLFG"
	blobHeaderSize = len(blobMagic) + 2 + 4
)

// Encode serializes a snapshot into an artifact blob.
func Encode(snap *graph.Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot must not be nil")
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(snap); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}

	blob := make([]byte, blobHeaderSize, blobHeaderSize+payload.Len())
	copy(blob, blobMagic)
	binary.BigEndian.PutUint16(blob[4:6], FormatVersion)
	binary.BigEndian.PutUint32(blob[6:10], crc32.ChecksumIEEE(payload.Bytes()))
	return append(blob, payload.Bytes()...), nil
}

// Decode parses an artifact blob into a snapshot.
//
// Errors:
//
//	ErrArtifactCorrupted for bad framing, CRC or payload, ErrVersionMismatch
//	for an unsupported format version.
func Decode(blob []byte) (*graph.Snapshot, error) {
	if len(blob) < blobHeaderSize || string(blob[:4]) != blobMagic {
		return nil, fmt.Errorf("%w: bad header", ErrArtifactCorrupted)
	}
	if v := binary.BigEndian.Uint16(blob[4:6]); v != FormatVersion {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrVersionMismatch, FormatVersion, v)
	}

	payload := blob[blobHeaderSize:]
	if stored, computed := binary.BigEndian.Uint32(blob[6:10]), crc32.ChecksumIEEE(payload); stored != computed {
		return nil, fmt.Errorf("%w: CRC mismatch (stored=%x, computed=%x)", ErrArtifactCorrupted, stored, computed)
	}

	var snap graph.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: gob decode: %v", ErrArtifactCorrupted, err)
	}
	return &snap, nil
}

// EncodeGraph snapshots and encodes a frozen graph.
func EncodeGraph(g *graph.Graph) ([]byte, error) {
	snap, err := g.Snapshot()
	if err != nil {
		return nil, err
	}
	return Encode(snap)
}
