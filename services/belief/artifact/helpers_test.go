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
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/beliefgraph/services/belief/graph"
	"github.com/AleutianAI/beliefgraph/services/belief/source"
)

const testSource = `-|root|root|root|root
-|phone|category|category|phone
-|grocery|category|category|grocery
+|categories|category|key|phone,grocery|root
+|brand|brand|key|apple,samsung|phone
+|price|price|numeric||phone
+|fruit|fruit|key|apple,banana|grocery
`

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	records, err := source.NewParser().Parse(strings.NewReader(testSource), "test.tbl")
	require.NoError(t, err)
	result, err := graph.NewBuilder().Build(context.Background(), records)
	require.NoError(t, err)
	return result.Graph
}

func testBlob(t *testing.T) ([]byte, *graph.Graph) {
	t.Helper()
	g := testGraph(t)
	blob, err := EncodeGraph(g)
	require.NoError(t, err)
	return blob, g
}
