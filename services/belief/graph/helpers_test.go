// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/beliefgraph/services/belief/source"
)

// catalogSource is a small retail taxonomy exercising every record kind.
const catalogSource = `# retail catalog
-|root|root|root|root
-|tv|category|category|tv
-|phone|category|category|phone
-|grocery|category|category|grocery
*||||popular:0.8
+|categories|category|key|tv,phone,grocery|root
+|size|size|key|55inch,65inch|tv
+|price|price|numeric||tv
+|brand|brand|key|apple,samsung|phone
+|fruit|fruit|key|apple,banana|grocery
`

// parseRecords parses table source text.
func parseRecords(t *testing.T, text string) []source.Record {
	t.Helper()
	records, err := source.NewParser().Parse(strings.NewReader(text), "test.tbl")
	require.NoError(t, err)
	return records
}

// sequentialIDs returns a deterministic id generator.
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("leaf-%d", n)
	}
}

// buildGraph builds text with deterministic leaf ids.
func buildGraph(t *testing.T, text string, opts ...BuilderOption) *BuildResult {
	t.Helper()
	opts = append([]BuilderOption{WithIDGenerator(sequentialIDs())}, opts...)
	result, err := NewBuilder(opts...).Build(context.Background(), parseRecords(t, text))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// buildErr builds text and returns the error.
func buildErr(t *testing.T, text string, opts ...BuilderOption) error {
	t.Helper()
	result, err := NewBuilder(opts...).Build(context.Background(), parseRecords(t, text))
	require.Error(t, err)
	require.Nil(t, result)
	return err
}

func nodeValues(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Value())
	}
	return out
}
