// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package network

import (
	"github.com/born-ml/graphc/backend"
	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/infer"
	"github.com/born-ml/graphc/internal/optimizer"
	"github.com/born-ml/graphc/internal/sequencer"
)

// Sentinel errors. Every compilation failure wraps one of them.
var (
	ErrShapeMismatch    = graph.ErrShapeMismatch
	ErrUnresolvedShape  = graph.ErrUnresolvedShape
	ErrUnsupportedLayer = graph.ErrUnsupportedLayer
	ErrGraphStructure   = graph.ErrGraphStructure
	ErrInvalidParameter = graph.ErrInvalidParameter
)

// LayerValidationError reports the layer whose shape check failed.
type LayerValidationError = graph.LayerValidationError

// UnsupportedLayerError lists every layer no candidate backend accepted.
type UnsupportedLayerError = graph.UnsupportedLayerError

// Options configures Optimize. The zero value runs every default pass and
// fails on unsupported layers.
type Options = optimizer.Options

// Pass is one graph rewrite.
type Pass = optimizer.Pass

// DefaultPasses returns the rewrites Optimize runs when Options.Passes is
// nil, in order.
func DefaultPasses() []Pass {
	return optimizer.DefaultPasses()
}

// OptimizedNetwork is a compiled graph with its pass reports and backend
// assignment.
type OptimizedNetwork = optimizer.OptimizedNetwork

// Block is one operator of an execution order produced by
// OptimizedNetwork.Blocks.
type Block = sequencer.Block

// Optimize compiles g in place for the candidate backends, tried in order.
//
// Example:
//
//	reg, _ := backend.NewRegistry(nil, cpu.New())
//	net, err := network.Optimize(g, reg, []backend.ID{backend.CpuRef}, network.Options{
//	    ReduceFp32ToFp16: true,
//	})
func Optimize(g *Graph, registry *backend.Registry, candidates []backend.ID, opts Options) (*OptimizedNetwork, error) {
	return optimizer.Optimize(g, registry, candidates, opts)
}

// InferTensorInfos resolves the output TensorInfo of every layer of g in
// topological order without rewriting the graph.
func InferTensorInfos(g *Graph) error {
	return infer.InferTensorInfos(g)
}
