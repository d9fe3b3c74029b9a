// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ParseLine(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name    string
		line    string
		want    Record
		skip    bool
		wantErr error
	}{
		{
			name: "declare normalizes whitespace and case",
			line: " - | TV Set | Category | Category | TV ",
			want: Record{Kind: KindDeclare, Source: "src", Line: 1, Label: "tvset", Slot: "category", Type: "category", Payload: "tv"},
		},
		{
			name: "declare with inline weights",
			line: "-|tv|category|category|tv/n1|hot:0.5",
			want: Record{Kind: KindDeclare, Source: "src", Line: 1, Label: "tv", Slot: "category", Type: "category", Payload: "tv/n1", Weights: "hot:0.5"},
		},
		{
			name: "annotate",
			line: "*|||| popular:0.9, cheap:0.1",
			want: Record{Kind: KindAnnotate, Source: "src", Line: 1, Payload: "popular:0.9,cheap:0.1"},
		},
		{
			name: "attach with explicit parent",
			line: "+|Size|size|KEY|55inch,65inch|tv/n1",
			want: Record{Kind: KindAttach, Source: "src", Line: 1, Label: "size", Slot: "size", Type: "key", Payload: "55inch,65inch", Parent: "tv/n1"},
		},
		{name: "blank line", line: "   \t ", skip: true},
		{name: "comment line", line: "# taxonomy for tvs", skip: true},
		{name: "too few fields", line: "-|a|b|c", wantErr: ErrMalformedRecord},
		{name: "too many fields", line: "+|a|b|c|d|e|f", wantErr: ErrMalformedRecord},
		{name: "unknown marker", line: "?|a|b|c|d", wantErr: ErrUnknownRecordKind},
		{name: "declare without value", line: "-|a|b|c|", wantErr: ErrMalformedRecord},
		{name: "attach without classifier", line: "+|a|size||x", wantErr: ErrMalformedRecord},
		{name: "bad weight", line: "*||||hot:x", wantErr: ErrInvalidWeight},
		{name: "annotate with extra field", line: "*||||hot:1|x", wantErr: ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, skip, err := p.ParseLine("src", 1, tt.line)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

				var lineErr *LineError
				require.True(t, errors.As(err, &lineErr))
				assert.Equal(t, 1, lineErr.Line)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.skip, skip)
			if !tt.skip {
				assert.Equal(t, tt.want, rec)
			}
		})
	}
}

func TestParser_CustomDelimiter(t *testing.T) {
	p := NewParser(WithDelimiter(";"))
	rec, skip, err := p.ParseLine("src", 3, "+;brand;brand;key;apple,sony")
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, KindAttach, rec.Kind)
	assert.Equal(t, []Ref{{Value: "apple"}, {Value: "sony"}}, rec.Children())
}

func TestRecord_Concept(t *testing.T) {
	t.Run("explicit id", func(t *testing.T) {
		r := Record{Kind: KindDeclare, Payload: "tv/n1"}
		assert.Equal(t, Ref{Value: "tv", ID: "n1"}, r.Concept())
	})
	t.Run("value doubles as id", func(t *testing.T) {
		r := Record{Kind: KindDeclare, Payload: "tv"}
		assert.Equal(t, Ref{Value: "tv", ID: "tv"}, r.Concept())
	})
}

func TestRecord_Children(t *testing.T) {
	r := Record{Kind: KindAttach, Payload: "55inch,,tv/n1,"}
	children := r.Children()
	require.Len(t, children, 2)
	assert.Equal(t, Ref{Value: "55inch"}, children[0])
	assert.False(t, children[0].HasID())
	assert.Equal(t, Ref{Value: "tv", ID: "n1"}, children[1])
	assert.Equal(t, "tv/n1", children[1].String())

	empty := Record{Kind: KindAttach}
	assert.Empty(t, empty.Children())
}

func TestRecord_AnnotationWeights(t *testing.T) {
	declare := Record{Kind: KindDeclare, Payload: "tv", Weights: "a:1,b:0.25"}
	w, err := declare.AnnotationWeights()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 1, "b": 0.25}, w)

	annotate := Record{Kind: KindAnnotate, Payload: "c:-2"}
	w, err = annotate.AnnotationWeights()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"c": -2}, w)

	assert.Equal(t, "a:1,b:0.25", FormatWeights(map[string]float64{"b": 0.25, "a": 1}))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"apple", "apple"},
		{"Apple", "apple"},
		{" Big Screen\t", "bigscreen"},
		{"TV.Size", "tv.size"},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestParser_Parse(t *testing.T) {
	src := strings.Join([]string{
		"# root file",
		"-|root|root|root|root",
		"",
		"-|tv|category|category|tv/n1",
		"*||||hot:0.7",
		"+|size|size|key|55inch",
	}, "\n")

	records, err := NewParser().Parse(strings.NewReader(src), "root.txt")
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, KindDeclare, records[0].Kind)
	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, KindAnnotate, records[2].Kind)
	assert.Equal(t, "root.txt:6", records[3].Position())
}

func TestParser_ParseFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "root.txt")
	second := filepath.Join(dir, "tv.txt")
	require.NoError(t, os.WriteFile(first, []byte("-|root|root|root|root\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("-|tv|category|category|tv\n+|size|size|key|55inch\n"), 0o644))

	ctx := context.Background()

	t.Run("file order is preserved", func(t *testing.T) {
		records, err := NewParser().ParseFiles(ctx, []string{first, second})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, first, records[0].Source)
		assert.Equal(t, second, records[1].Source)
		assert.Equal(t, 2, records[2].Line)
	})

	t.Run("no sources", func(t *testing.T) {
		_, err := NewParser().ParseFiles(ctx, nil)
		assert.ErrorIs(t, err, ErrNoSources)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewParser().ParseFiles(ctx, []string{filepath.Join(dir, "missing.txt")})
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewParser().ParseFiles(cctx, []string{first})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("malformed line reports position", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.txt")
		require.NoError(t, os.WriteFile(bad, []byte("-|root|root|root|root\n-|x\n"), 0o644))
		_, err := NewParser().ParseFiles(ctx, []string{bad})
		var lineErr *LineError
		require.ErrorAs(t, err, &lineErr)
		assert.Equal(t, bad, lineErr.Source)
		assert.Equal(t, 2, lineErr.Line)
	})
}
