// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package network builds layer graphs and compiles them for a set of
// backends.
//
// # Overview
//
// A network is a directed acyclic graph of layers. Each layer has a
// descriptor fixing its type and parameters, input slots accepting one
// producer each and output slots carrying a TensorInfo. Compiling a network:
//   - infers every output TensorInfo from the graph inputs
//   - rewrites the graph (pad folding, reshape removal, layer fusion, fp16)
//   - assigns every layer to the first candidate backend that accepts it
//
// # Basic Usage
//
//	g := network.New()
//	in, _ := g.AddInputLayer(0, "x")
//	in.OutputSlot(0).SetTensorInfo(tensor.NewTensorInfo(tensor.NewShape(5, 7, 6, 2), tensor.Float32))
//	abs, _ := g.AddLayer(network.ElementwiseUnaryDescriptor{Operation: network.UnaryAbs}, "abs")
//	out, _ := g.AddOutputLayer(0, "y")
//	_ = g.Connect(in.OutputSlot(0), abs.InputSlot(0))
//	_ = g.Connect(abs.OutputSlot(0), out.InputSlot(0))
//
//	reg, _ := backend.NewRegistry(nil, cpu.New())
//	net, err := network.Optimize(g, reg, []backend.ID{backend.CpuRef}, network.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	blocks, _ := net.Blocks()
//
// # Errors
//
// Failures wrap one of the sentinel errors of this package and can be
// tested with errors.Is. Layers no candidate accepts are reported as an
// *UnsupportedLayerError listing every offending layer.
package network
