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

// Default configuration values.
const (
	// DefaultMaxNodes is the default maximum number of nodes a graph can hold.
	DefaultMaxNodes = 1_000_000

	// RootValue is the reserved value of the root declaration.
	RootValue = "root"

	// PropertyNodeType is the node type of anonymous property leaves and of
	// declarations exempt from value uniqueness.
	PropertyNodeType = "property"
)

// GraphState represents the lifecycle state of the graph.
type GraphState int

const (
	// GraphStateBuilding indicates the graph is being constructed.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly indicates the graph is frozen and read-only.
	GraphStateReadOnly
)

// String returns the string representation of the GraphState.
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return "unknown"
	}
}

// NodeKind distinguishes the root, declared concepts and property leaves.
type NodeKind int

const (
	// NodeKindConcept is a declared, uniquely valued concept.
	NodeKindConcept NodeKind = iota

	// NodeKindProperty is a property value that may share its value with
	// other property nodes.
	NodeKindProperty

	// NodeKindRoot is the designated root.
	NodeKindRoot
)

// String returns the string representation of the NodeKind.
func (k NodeKind) String() string {
	switch k {
	case NodeKindConcept:
		return "concept"
	case NodeKindProperty:
		return "property"
	case NodeKindRoot:
		return "root"
	default:
		return "unknown"
	}
}

// ValueType is the value-type classifier of a slot.
//
// KEY slots link a node to child nodes. Every other classifier declares a
// typed leaf slot (numeric, enum, ...) that has no child nodes. Sources may
// use classifiers beyond the named constants.
type ValueType string

// Well-known classifiers.
const (
	ValueTypeKey     ValueType = "key"
	ValueTypeNumeric ValueType = "numeric"
	ValueTypeEnum    ValueType = "enum"
	ValueTypeString  ValueType = "string"
	ValueTypeBool    ValueType = "bool"
)

// IsKey returns true for the KEY classifier.
func (v ValueType) IsKey() bool {
	return v == ValueTypeKey
}

// String returns the classifier as written in the source.
func (v ValueType) String() string {
	return string(v)
}
