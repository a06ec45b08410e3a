// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor describes the tensors flowing along graph edges.
//
// # Overview
//
// A graph compiler never touches tensor contents except for constants, so
// this package only carries descriptors:
//   - DataType: element type, including the quantized types
//   - Shape: rank and dimensions, each of which may be unknown
//   - TensorInfo: shape, element type and quantization parameters
//   - ConstTensor: a TensorInfo plus the raw bytes of a constant
//
// # Basic Usage
//
//	import "github.com/born-ml/graphc/tensor"
//
//	func main() {
//	    in := tensor.NewTensorInfo(tensor.NewShape(1, 3, 224, 224), tensor.Float32)
//	    fmt.Println(in) // [1,3,224,224] float32
//
//	    q := tensor.NewQuantizedTensorInfo(tensor.NewShape(1, 1000), tensor.QAsymmU8, 0.05, 128)
//	    fmt.Println(q.Quantization().Scale)
//	}
//
// # Partial Shapes
//
// Producers that do not know every dimension declare partial shapes. Shape
// inference fills in what it can and rejects what it cannot resolve:
//
//	batch := tensor.NewPartialShape([]int{0, 3, 224, 224}, []bool{false, true, true, true})
//	fmt.Println(batch.IsFullySpecified()) // false
package tensor
