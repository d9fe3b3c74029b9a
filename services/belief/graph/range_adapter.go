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

import "sort"

// Range labels shared by several slots.
const (
	RangeLabelInch  = "__inch__"
	RangeLabelMeter = "__meter__"
	RangeLabelLiter = "__L__"
)

// rangeAdapters maps numeric slot keys to the unit or category label the
// dialogue layer compares ranges under.
var rangeAdapters = map[string]string{
	"price":          "price",
	"tv.size":        RangeLabelInch,
	"phone.size":     RangeLabelInch,
	"pc.size":        RangeLabelInch,
	"tv.distance":    RangeLabelMeter,
	"ac.power_float": "ac.power",
	"fr.height":      "height",
	"fr.width":       "width",
	"phone.rmem":     "memory",
	"pc.mem":         "memory",
	"fr.vol":         RangeLabelLiter,
}

// RangeAdapter returns the range label of a numeric slot key, or "" when
// the key is unmapped.
func RangeAdapter(key string) string {
	return rangeAdapters[key]
}

// RangeKeys returns every mapped key, sorted.
func RangeKeys() []string {
	keys := make([]string, 0, len(rangeAdapters))
	for k := range rangeAdapters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RangeAdapter returns the range label of a numeric slot key.
func (g *Graph) RangeAdapter(key string) string {
	return RangeAdapter(key)
}
