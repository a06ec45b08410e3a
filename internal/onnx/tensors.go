package onnx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/born-ml/graphc/internal/tensor"
)

// DataType maps an ONNX element type onto the compiler's data types.
// Unsigned and signed 8-bit integers map to the asymmetric quantized types
// with an identity scale.
func DataType(elemType int32) (tensor.DataType, error) {
	switch elemType {
	case TensorProtoFloat:
		return tensor.Float32, nil
	case TensorProtoFloat16:
		return tensor.Float16, nil
	case TensorProtoBfloat16:
		return tensor.BFloat16, nil
	case TensorProtoInt32:
		return tensor.Signed32, nil
	case TensorProtoInt64:
		return tensor.Signed64, nil
	case TensorProtoBool:
		return tensor.Boolean, nil
	case TensorProtoUint8:
		return tensor.QAsymmU8, nil
	case TensorProtoInt8:
		return tensor.QAsymmS8, nil
	case TensorProtoInt16:
		return tensor.QSymmS16, nil
	default:
		return 0, fmt.Errorf("%w: element type %d", ErrUnsupportedDataType, elemType)
	}
}

func dimsShape(dims []int64) tensor.Shape {
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = int(d)
	}
	return tensor.NewShape(out...)
}

// TensorInfo returns the declared descriptor of a graph value. A missing
// shape yields an unknown rank; symbolic dimensions are left unspecified.
func (v *ValueInfoProto) TensorInfo() (tensor.TensorInfo, error) {
	if v.Type == nil || v.Type.TensorType == nil {
		return tensor.TensorInfo{}, fmt.Errorf("%w: value %q is not a tensor", ErrUnsupportedDataType, v.Name)
	}
	dt, err := DataType(v.Type.TensorType.ElemType)
	if err != nil {
		return tensor.TensorInfo{}, fmt.Errorf("value %q: %w", v.Name, err)
	}
	s := v.Type.TensorType.Shape
	if s == nil {
		return tensor.NewTensorInfo(tensor.UnknownRank(), dt), nil
	}
	if len(s.Dims) == 0 {
		return tensor.NewTensorInfo(tensor.ScalarShape(), dt), nil
	}
	dims := make([]int, len(s.Dims))
	known := make([]bool, len(s.Dims))
	for i, d := range s.Dims {
		if d.HasValue && d.DimValue > 0 {
			dims[i], known[i] = int(d.DimValue), true
		}
	}
	return tensor.NewTensorInfo(tensor.NewPartialShape(dims, known), dt), nil
}

// ConstTensor converts an initializer into a constant tensor.
func (t *TensorProto) ConstTensor() (tensor.ConstTensor, error) {
	dt, err := DataType(t.DataType)
	if err != nil {
		return tensor.ConstTensor{}, fmt.Errorf("initializer %q: %w", t.Name, err)
	}
	data, err := t.bytes(dt)
	if err != nil {
		return tensor.ConstTensor{}, fmt.Errorf("initializer %q: %w", t.Name, err)
	}
	c, err := tensor.NewConstTensor(tensor.NewTensorInfo(dimsShape(t.Dims), dt), data)
	if err != nil {
		return tensor.ConstTensor{}, fmt.Errorf("initializer %q: %w", t.Name, err)
	}
	return c, nil
}

// bytes returns the little-endian payload, packing the typed fields when
// there is no raw data. Narrow types are stored in int32_data.
func (t *TensorProto) bytes(dt tensor.DataType) ([]byte, error) {
	if t.RawData != nil {
		return t.RawData, nil
	}
	switch {
	case dt == tensor.Float32:
		b := make([]byte, 0, 4*len(t.FloatData))
		for _, f := range t.FloatData {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
		}
		return b, nil
	case dt == tensor.Signed64:
		b := make([]byte, 0, 8*len(t.Int64Data))
		for _, v := range t.Int64Data {
			b = binary.LittleEndian.AppendUint64(b, uint64(v))
		}
		return b, nil
	case dt.Size() == 4:
		b := make([]byte, 0, 4*len(t.Int32Data))
		for _, v := range t.Int32Data {
			b = binary.LittleEndian.AppendUint32(b, uint32(v))
		}
		return b, nil
	case dt.Size() == 2:
		b := make([]byte, 0, 2*len(t.Int32Data))
		for _, v := range t.Int32Data {
			b = binary.LittleEndian.AppendUint16(b, uint16(v))
		}
		return b, nil
	case dt.Size() == 1:
		b := make([]byte, 0, len(t.Int32Data))
		for _, v := range t.Int32Data {
			b = append(b, byte(v))
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: no data for %s", ErrUnsupportedDataType, dt)
}

// Ints reads an integer tensor such as a shape, pads or axes operand.
func (t *TensorProto) Ints() ([]int64, error) {
	switch t.DataType {
	case TensorProtoInt64:
		if t.RawData == nil {
			return t.Int64Data, nil
		}
		if len(t.RawData)%8 != 0 {
			return nil, fmt.Errorf("%w: int64 tensor %q has %d bytes", ErrMalformed, t.Name, len(t.RawData))
		}
		out := make([]int64, len(t.RawData)/8)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(t.RawData[8*i:]))
		}
		return out, nil
	case TensorProtoInt32:
		if t.RawData == nil {
			out := make([]int64, len(t.Int32Data))
			for i, v := range t.Int32Data {
				out[i] = int64(v)
			}
			return out, nil
		}
		if len(t.RawData)%4 != 0 {
			return nil, fmt.Errorf("%w: int32 tensor %q has %d bytes", ErrMalformed, t.Name, len(t.RawData))
		}
		out := make([]int64, len(t.RawData)/4)
		for i := range out {
			out[i] = int64(int32(binary.LittleEndian.Uint32(t.RawData[4*i:])))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: tensor %q has element type %d, want an integer type",
			ErrUnsupportedDataType, t.Name, t.DataType)
	}
}

// Float returns the single value of a float32 or float16 scalar or
// one-element tensor.
func (t *TensorProto) Float() (float32, error) {
	switch t.DataType {
	case TensorProtoFloat:
		switch {
		case len(t.RawData) == 4:
			return math.Float32frombits(binary.LittleEndian.Uint32(t.RawData)), nil
		case t.RawData == nil && len(t.FloatData) == 1:
			return t.FloatData[0], nil
		}
	case TensorProtoFloat16:
		// float16 values without raw_data are stored as bit patterns in int32_data.
		switch {
		case len(t.RawData) == 2:
			return float16.Frombits(binary.LittleEndian.Uint16(t.RawData)).Float32(), nil
		case t.RawData == nil && len(t.Int32Data) == 1:
			return float16.Frombits(uint16(t.Int32Data[0])).Float32(), nil
		}
	default:
		return 0, fmt.Errorf("%w: tensor %q has element type %d, want float",
			ErrUnsupportedDataType, t.Name, t.DataType)
	}
	return 0, fmt.Errorf("%w: tensor %q is not a float scalar", ErrMalformed, t.Name)
}
