// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package onnx

import (
	internalonnx "github.com/born-ml/graphc/internal/onnx"
)

// Network is an imported model: the layer graph plus the model value names
// bound to each input and output binding id.
//
// Metadata returns the producer fields and metadata_props of the model:
//   - "producer_name": framework that exported the model (e.g. "pytorch")
//   - "producer_version": version of the exporter
//   - "domain": domain of the model (usually "")
type Network = internalonnx.Network

// Registry maps ONNX op types to converters. Register additional converters
// on a registry and pass it through ImportOptions.
//
// Example:
//
//	reg := onnx.NewRegistry()
//	reg.Register("Swish", func(imp *onnx.Importer, node *onnx.NodeProto) error {
//	    x, err := imp.Operand(node.Input(0))
//	    if err != nil {
//	        return err
//	    }
//	    l, err := imp.AddLayer(network.ActivationDescriptor{Function: network.ActivationHardSwish}, node.DisplayName(), x)
//	    if err != nil {
//	        return err
//	    }
//	    return imp.Bind(node, l)
//	})
type Registry = internalonnx.Registry

// Converter lowers one ONNX node onto the graph.
type Converter = internalonnx.Converter

// Importer is the state of one import handed to converters.
type Importer = internalonnx.Importer

// NodeProto is a decoded ONNX node.
type NodeProto = internalonnx.NodeProto

// NewRegistry returns a registry holding every built-in converter.
func NewRegistry() *Registry {
	return internalonnx.NewRegistry()
}
