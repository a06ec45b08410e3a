// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/graphc/internal/tensor"
)

// DataType is the element type of a tensor.
type DataType = tensor.DataType

// Element types.
const (
	Float32  = tensor.Float32
	Float16  = tensor.Float16
	BFloat16 = tensor.BFloat16
	QAsymmU8 = tensor.QAsymmU8
	QAsymmS8 = tensor.QAsymmS8
	QSymmS8  = tensor.QSymmS8
	QSymmS16 = tensor.QSymmS16
	Signed32 = tensor.Signed32
	Signed64 = tensor.Signed64
	Boolean  = tensor.Boolean
)

// ParseDataType accepts the names printed by DataType.String, case
// insensitively, plus a few common aliases such as "f32".
func ParseDataType(name string) (DataType, error) {
	return tensor.ParseDataType(name)
}

// Shape is a tensor shape whose rank or individual dimensions may be unknown.
type Shape = tensor.Shape

// Dimensionality tells whether the rank of a shape is known.
type Dimensionality = tensor.Dimensionality

// NewShape creates a fully specified shape.
//
// Example:
//
//	s := tensor.NewShape(2, 3)
//	fmt.Println(s.Rank(), s.Dim(1)) // 2 3
func NewShape(dims ...int) Shape {
	return tensor.NewShape(dims...)
}

// NewPartialShape creates a shape of known rank where dims[i] is only
// meaningful when specified[i] is true.
func NewPartialShape(dims []int, specified []bool) Shape {
	return tensor.NewPartialShape(dims, specified)
}

// UnknownDims creates a shape of the given rank with no dimension known.
func UnknownDims(rank int) Shape {
	return tensor.UnknownDims(rank)
}

// UnknownRank creates a shape whose rank is not known.
func UnknownRank() Shape {
	return tensor.UnknownRank()
}

// ScalarShape creates the rank-0 shape.
func ScalarShape() Shape {
	return tensor.ScalarShape()
}

// BroadcastShapes computes the numpy-style broadcast of a and b. The boolean
// reports whether either operand has to be expanded.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}

// Quantization holds the scale and offset of quantized element types.
type Quantization = tensor.Quantization

// TensorInfo describes one tensor edge.
type TensorInfo = tensor.TensorInfo

// NewTensorInfo creates an unquantized descriptor.
func NewTensorInfo(shape Shape, dt DataType) TensorInfo {
	return tensor.NewTensorInfo(shape, dt)
}

// NewQuantizedTensorInfo creates a descriptor with per-tensor quantization.
func NewQuantizedTensorInfo(shape Shape, dt DataType, scale float32, offset int32) TensorInfo {
	return tensor.NewQuantizedTensorInfo(shape, dt, scale, offset)
}

// NewPerAxisTensorInfo creates a descriptor quantized along axis.
func NewPerAxisTensorInfo(shape Shape, dt DataType, scales []float32, axis int) TensorInfo {
	return tensor.NewPerAxisTensorInfo(shape, dt, scales, axis)
}

// ConstTensor is an immutable constant: a descriptor plus its bytes.
type ConstTensor = tensor.ConstTensor

// NewConstTensor creates a constant. It fails when len(data) does not match
// the byte size implied by info.
//
// Example:
//
//	info := tensor.NewTensorInfo(tensor.NewShape(2), tensor.Float32)
//	c, err := tensor.NewConstTensor(info, make([]byte, 8))
func NewConstTensor(info TensorInfo, data []byte) (ConstTensor, error) {
	return tensor.NewConstTensor(info, data)
}
