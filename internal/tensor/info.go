package tensor

import (
	"fmt"
	"slices"
	"strings"
)

// Quantization holds the scale/offset pair of a quantized tensor, or the
// per-axis scales of a per-channel quantized one.
type Quantization struct {
	Scale  float32
	Offset int32

	// Scales is non-empty for per-axis quantization; Axis then names the
	// quantized dimension.
	Scales []float32
	Axis   int
}

// IsPerAxis reports whether the quantization has one scale per channel.
func (q Quantization) IsPerAxis() bool {
	return len(q.Scales) > 0
}

// Equal compares two quantization blocks.
func (q Quantization) Equal(other Quantization) bool {
	if q.IsPerAxis() != other.IsPerAxis() {
		return false
	}
	if q.IsPerAxis() {
		return q.Axis == other.Axis && slices.Equal(q.Scales, other.Scales)
	}
	return q.Scale == other.Scale && q.Offset == other.Offset
}

// TensorInfo describes one tensor edge: its shape, element type and quantization.
// It is a value type; every With* method returns a modified copy.
type TensorInfo struct {
	shape      Shape
	dataType   DataType
	quant      Quantization
	isConstant bool
}

// NewTensorInfo creates a descriptor with a zero scale/offset.
func NewTensorInfo(shape Shape, dt DataType) TensorInfo {
	return TensorInfo{shape: shape.Clone(), dataType: dt}
}

// NewQuantizedTensorInfo creates a descriptor with a single scale/offset pair.
func NewQuantizedTensorInfo(shape Shape, dt DataType, scale float32, offset int32) TensorInfo {
	return TensorInfo{
		shape:    shape.Clone(),
		dataType: dt,
		quant:    Quantization{Scale: scale, Offset: offset},
	}
}

// NewPerAxisTensorInfo creates a per-channel quantized descriptor.
func NewPerAxisTensorInfo(shape Shape, dt DataType, scales []float32, axis int) TensorInfo {
	return TensorInfo{
		shape:    shape.Clone(),
		dataType: dt,
		quant:    Quantization{Scales: append([]float32(nil), scales...), Axis: axis},
	}
}

// Shape returns the tensor shape.
func (ti TensorInfo) Shape() Shape { return ti.shape.Clone() }

// DataType returns the element type.
func (ti TensorInfo) DataType() DataType { return ti.dataType }

// Quantization returns the quantization parameters.
func (ti TensorInfo) Quantization() Quantization {
	q := ti.quant
	q.Scales = append([]float32(nil), q.Scales...)
	return q
}

// IsConstant reports whether the tensor is backed by constant data.
func (ti TensorInfo) IsConstant() bool { return ti.isConstant }

// NumElements returns the element count, or false when the shape is not fully known.
func (ti TensorInfo) NumElements() (int, bool) { return ti.shape.NumElements() }

// NumBytes returns the storage size, or false when the shape is not fully known.
func (ti TensorInfo) NumBytes() (int, bool) {
	n, ok := ti.shape.NumElements()
	if !ok {
		return 0, false
	}
	return n * ti.dataType.Size(), true
}

// WithShape returns a copy with a different shape.
func (ti TensorInfo) WithShape(s Shape) TensorInfo {
	ti.shape = s.Clone()
	return ti
}

// WithDataType returns a copy with a different element type.
func (ti TensorInfo) WithDataType(dt DataType) TensorInfo {
	ti.dataType = dt
	return ti
}

// WithQuantization returns a copy with different quantization parameters.
func (ti TensorInfo) WithQuantization(q Quantization) TensorInfo {
	q.Scales = append([]float32(nil), q.Scales...)
	ti.quant = q
	return ti
}

// WithConstant returns a copy with the constant flag set to c.
func (ti TensorInfo) WithConstant(c bool) TensorInfo {
	ti.isConstant = c
	return ti
}

// Equal compares every field of two descriptors.
func (ti TensorInfo) Equal(other TensorInfo) bool {
	return ti.dataType == other.dataType &&
		ti.isConstant == other.isConstant &&
		ti.shape.Equal(other.shape) &&
		ti.quant.Equal(other.quant)
}

// String renders the descriptor for logs and error messages.
func (ti TensorInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", ti.shape, ti.dataType)
	if ti.dataType.IsQuantized() {
		if ti.quant.IsPerAxis() {
			fmt.Fprintf(&b, " scales=%v axis=%d", ti.quant.Scales, ti.quant.Axis)
		} else {
			fmt.Fprintf(&b, " scale=%g offset=%d", ti.quant.Scale, ti.quant.Offset)
		}
	}
	if ti.isConstant {
		b.WriteString(" const")
	}
	return b.String()
}

// ConstTensor pairs a constant descriptor with its backing bytes.
type ConstTensor struct {
	info TensorInfo
	data []byte
}

// NewConstTensor creates a constant tensor. The shape must be fully
// specified and data must match its byte size.
func NewConstTensor(info TensorInfo, data []byte) (ConstTensor, error) {
	size, ok := info.NumBytes()
	if !ok {
		return ConstTensor{}, fmt.Errorf("constant tensor needs a fully specified shape, got %v", info.Shape())
	}
	if size != len(data) {
		return ConstTensor{}, fmt.Errorf("constant tensor %v needs %d bytes, got %d", info.Shape(), size, len(data))
	}
	return ConstTensor{info: info.WithConstant(true), data: data}, nil
}

// Info returns the descriptor of the constant.
func (c ConstTensor) Info() TensorInfo { return c.info }

// Data returns the raw little-endian bytes.
func (c ConstTensor) Data() []byte { return c.data }
