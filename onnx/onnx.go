// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package onnx imports ONNX models as layer graphs.
//
// This package turns models exported from PyTorch, TensorFlow and other
// frameworks into a network.Graph that can be compiled with
// network.Optimize.
//
// # Supported Features
//
//   - ONNX format parsing (protobuf wire format, no generated code)
//   - Opset versions 7-21
//   - Partial input shapes (symbolic batch dimensions)
//   - Custom converters for additional operators
//
// # Example Usage
//
//	import (
//	    "github.com/born-ml/graphc/backend"
//	    "github.com/born-ml/graphc/backend/cpu"
//	    "github.com/born-ml/graphc/network"
//	    "github.com/born-ml/graphc/onnx"
//	)
//
//	// Import ONNX model
//	model, err := onnx.ImportFile("mobilenet.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Compile for the reference backend
//	reg, _ := backend.NewRegistry(nil, cpu.New())
//	net, err := network.Optimize(model.Graph, reg, []backend.ID{backend.CpuRef}, network.Options{})
//
// # Supported Operators
//
//   - Arithmetic: Add, Sub, Mul, Div, Max, Min, Pow, Neg, Abs, Sqrt, Exp, Log, Floor, FloorDiv
//   - Activation: Relu, Sigmoid, Tanh, LeakyRelu, Elu, Softplus, HardSwish, Gelu, Clip, Softmax
//   - Matrix: MatMul, Gemm
//   - Reduction: ReduceMean, GlobalAveragePool
//   - Shape: Reshape, Flatten, Concat, Split
//   - Pooling: MaxPool, AveragePool, LpPool
//   - Convolution: Conv (2D, depthwise)
//   - Other: Pad, Constant, Identity, Dropout, Cast
//
// Use [ListSupportedOps] to get the complete list of supported operators.
package onnx

import (
	internalonnx "github.com/born-ml/graphc/internal/onnx"
)

// Errors reported by import.
var (
	ErrMalformed           = internalonnx.ErrMalformed
	ErrUnsupportedOperator = internalonnx.ErrUnsupportedOperator
	ErrUnsupportedDataType = internalonnx.ErrUnsupportedDataType
	ErrUnknownValue        = internalonnx.ErrUnknownValue
)

// ImportOptions configures ONNX model import.
type ImportOptions = internalonnx.ImportOptions

// DefaultImportOptions returns the default options for importing ONNX models.
//
// Default configuration:
//   - Registry: every built-in converter
//   - StandInUnknown: disabled (fails on unsupported operators)
//   - Logger: slog.Default()
func DefaultImportOptions() ImportOptions {
	return internalonnx.DefaultImportOptions()
}

// ImportFile imports an ONNX model from a file path.
//
// Example:
//
//	model, err := onnx.ImportFile("resnet18.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Inputs:", model.InputNames)
//	fmt.Println("Layers:", model.Graph.CountLayers())
//
// Operators without a converter fail the import. To keep them as opaque
// StandIn layers instead:
//
//	opts := onnx.DefaultImportOptions()
//	opts.StandInUnknown = true
//	model, err := onnx.ImportFile("model.onnx", opts)
func ImportFile(path string, opts ...ImportOptions) (*Network, error) {
	return internalonnx.ImportFile(path, opts...)
}

// ImportBytes imports an ONNX model from raw bytes.
//
// This is useful when the model is embedded in the binary or received
// over the network.
func ImportBytes(data []byte, opts ...ImportOptions) (*Network, error) {
	return internalonnx.ImportBytes(data, opts...)
}

// ModelInfo summarizes a model without importing it.
//
// Use [GetModelInfo] to inspect a model file before importing it.
type ModelInfo = internalonnx.ModelInfo

// GetModelInfo summarizes an ONNX file without building a graph.
//
// Example:
//
//	info, err := onnx.GetModelInfo("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Opset: %d\n", info.OpsetVersion)
//	fmt.Printf("Unsupported: %v\n", info.Unsupported)
func GetModelInfo(path string) (*ModelInfo, error) {
	return internalonnx.InspectFile(path)
}

// ListSupportedOps returns every ONNX operator the default registry converts,
// sorted.
func ListSupportedOps() []string {
	return internalonnx.NewRegistry().SupportedOps()
}
