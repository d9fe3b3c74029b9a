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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/beliefgraph/services/belief/graph"
)

func TestCodec_RoundTrip(t *testing.T) {
	blob, g := testBlob(t)
	assert.Equal(t, blobMagic, string(blob[:4]))
	assert.Equal(t, FormatVersion, binary.BigEndian.Uint16(blob[4:6]))

	snap, err := Decode(blob)
	require.NoError(t, err)

	restored, err := graph.FromSnapshot(snap, nil)
	require.NoError(t, err)
	assert.Equal(t, g.Stats(), restored.Stats())
	assert.True(t, restored.IsAmbiguous("apple"))
	assert.Equal(t, []string{"brand", "fruit"}, restored.ConnectedSlots("apple"))
}

func TestCodec_Decode_Errors(t *testing.T) {
	blob, _ := testBlob(t)

	corrupt := func(mutate func(b []byte) []byte) []byte {
		b := append([]byte(nil), blob...)
		return mutate(b)
	}

	tests := []struct {
		name    string
		blob    []byte
		wantErr error
	}{
		{"empty", nil, ErrArtifactCorrupted},
		{"short", blob[:5], ErrArtifactCorrupted},
		{"bad magic", corrupt(func(b []byte) []byte { b[0] = 'X'; return b }), ErrArtifactCorrupted},
		{"future version", corrupt(func(b []byte) []byte {
			binary.BigEndian.PutUint16(b[4:6], FormatVersion+1)
			return b
		}), ErrVersionMismatch},
		{"flipped payload byte", corrupt(func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }), ErrArtifactCorrupted},
		{"truncated payload", corrupt(func(b []byte) []byte { return b[:len(b)-10] }), ErrArtifactCorrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.blob)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEncode_Nil(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestManifest_Verify(t *testing.T) {
	blob, g := testBlob(t)
	m := NewManifest("catalog", blob, g, []string{"a.tbl"})

	assert.Equal(t, FormatVersion, m.FormatVersion)
	assert.Equal(t, int64(len(blob)), m.SizeBytes)
	assert.Equal(t, g.Stats(), m.Stats)
	require.NoError(t, m.Verify(blob))

	tampered := append([]byte(nil), blob...)
	tampered[len(tampered)-1] ^= 0x01
	assert.ErrorIs(t, m.Verify(tampered), ErrChecksumMismatch)
	assert.ErrorIs(t, m.Verify(blob[:len(blob)-1]), ErrChecksumMismatch)

	old := *m
	old.FormatVersion = FormatVersion + 1
	assert.ErrorIs(t, old.Verify(blob), ErrVersionMismatch)
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"catalog", "retail-v2", "a_b.c"} {
		assert.NoError(t, validateName(name), name)
	}
	for _, name := range []string{"", ".", "..", ".hidden", "a/b", `a\b`, "../x"} {
		assert.ErrorIs(t, validateName(name), ErrInvalidName, name)
	}
}
