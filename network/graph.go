// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package network

import (
	"github.com/born-ml/graphc/internal/frontend"
	"github.com/born-ml/graphc/internal/graph"
)

// Graph is a network under construction.
type Graph = graph.Graph

// Layer is one node of a Graph.
type Layer = graph.Layer

// LayerID identifies a layer within its Graph. Ids are never reused.
type LayerID = graph.LayerID

// InputSlot and OutputSlot are the connection points of a layer.
type (
	InputSlot  = graph.InputSlot
	OutputSlot = graph.OutputSlot
)

// Subgraph is a set of layers plus the boundary slots through which it is
// connected to the rest of its Graph.
type Subgraph = graph.Subgraph

// ShapeInferenceMethod selects whether output shapes are inferred or only
// checked.
type ShapeInferenceMethod = graph.ShapeInferenceMethod

// Shape inference methods.
const (
	ValidateOnly     = graph.ValidateOnly
	InferAndValidate = graph.InferAndValidate
)

// New creates an empty graph that infers output shapes.
func New() *Graph {
	return graph.New()
}

// NewSubgraphFromLayers collects layers of g together with their boundary
// slots.
func NewSubgraphFromLayers(g *Graph, layers ...*Layer) *Subgraph {
	return graph.NewSubgraphFromLayers(g, layers...)
}

// AlignRanks inserts a Reshape in front of the lower-rank operand so that
// both have the same rank, prepending dimensions of size 1.
func AlignRanks(g *Graph, a, b *OutputSlot) (*OutputSlot, *OutputSlot, error) {
	return frontend.AlignRanks(g, a, b)
}

// AddFloorDiv adds layers computing floor(a / b) and returns the last one.
// Signed integer operands are divided in float and cast back.
func AddFloorDiv(g *Graph, a, b *OutputSlot, name string) (*Layer, error) {
	return frontend.AddFloorDiv(g, a, b, name)
}
