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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/beliefgraph/services/belief/graph"
)

// Manifest describes a stored artifact.
type Manifest struct {
	// FormatVersion is the blob format version.
	FormatVersion uint16 `json:"format_version"`

	// Name is the artifact name.
	Name string `json:"name"`

	// Checksum is the hex SHA256 of the blob.
	Checksum string `json:"checksum"`

	// SizeBytes is the blob size.
	SizeBytes int64 `json:"size_bytes"`

	// Sources lists the source files the graph was built from, in order.
	Sources []string `json:"sources,omitempty"`

	// Stats summarizes the stored graph.
	Stats graph.Stats `json:"stats"`

	// WrittenAtMilli is when the artifact was written.
	WrittenAtMilli int64 `json:"written_at_milli"`

	// Generation pins the blob object generation in stores that version
	// objects. Zero elsewhere.
	Generation int64 `json:"generation,omitempty"`
}

// NewManifest describes blob, the encoded form of g.
func NewManifest(name string, blob []byte, g *graph.Graph, sources []string) *Manifest {
	return &Manifest{
		FormatVersion:  FormatVersion,
		Name:           name,
		Checksum:       checksum(blob),
		SizeBytes:      int64(len(blob)),
		Sources:        sources,
		Stats:          g.Stats(),
		WrittenAtMilli: time.Now().UnixMilli(),
	}
}

// Verify checks the manifest's version and that blob matches it.
func (m *Manifest) Verify(blob []byte) error {
	if m.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: manifest version %d, expected %d", ErrVersionMismatch, m.FormatVersion, FormatVersion)
	}
	if int64(len(blob)) != m.SizeBytes {
		return fmt.Errorf("%w: size %d, manifest says %d", ErrChecksumMismatch, len(blob), m.SizeBytes)
	}
	if sum := checksum(blob); sum != m.Checksum {
		return fmt.Errorf("%w: sha256 %s, manifest says %s", ErrChecksumMismatch, sum, m.Checksum)
	}
	return nil
}

func checksum(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

func marshalManifest(m *Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, &StorageError{Op: "marshal_manifest", Err: err}
	}
	return data, nil
}

func unmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest: %v", ErrArtifactCorrupted, err)
	}
	return &m, nil
}

// validateName rejects names that could escape a store's namespace.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
