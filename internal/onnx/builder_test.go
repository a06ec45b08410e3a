package onnx

import (
	"encoding/binary"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// pb builds protobuf messages for test models.
type pb struct {
	b []byte
}

func msg() *pb { return &pb{} }

func (m *pb) str(num protowire.Number, s string) *pb {
	m.b = protowire.AppendTag(m.b, num, protowire.BytesType)
	m.b = protowire.AppendString(m.b, s)
	return m
}

func (m *pb) raw(num protowire.Number, v []byte) *pb {
	m.b = protowire.AppendTag(m.b, num, protowire.BytesType)
	m.b = protowire.AppendBytes(m.b, v)
	return m
}

func (m *pb) varint(num protowire.Number, v int64) *pb {
	m.b = protowire.AppendTag(m.b, num, protowire.VarintType)
	m.b = protowire.AppendVarint(m.b, uint64(v))
	return m
}

func (m *pb) float(num protowire.Number, f float32) *pb {
	m.b = protowire.AppendTag(m.b, num, protowire.Fixed32Type)
	m.b = protowire.AppendFixed32(m.b, math.Float32bits(f))
	return m
}

func (m *pb) packed(num protowire.Number, vs ...int64) *pb {
	var p []byte
	for _, v := range vs {
		p = protowire.AppendVarint(p, uint64(v))
	}
	return m.raw(num, p)
}

func (m *pb) sub(num protowire.Number, s *pb) *pb {
	return m.raw(num, s.b)
}

// model wraps a GraphProto message into a ModelProto importing opset.
func model(opset int64, g *pb) []byte {
	return msg().
		varint(1, 8).
		str(2, "graphc-test").
		sub(8, msg().str(1, "").varint(2, opset)).
		sub(7, g).
		b
}

// valueInfo declares a tensor value; non-positive dims are symbolic.
func valueInfo(name string, elem int32, dims ...int64) *pb {
	shape := msg()
	for _, d := range dims {
		if d > 0 {
			shape.sub(1, msg().varint(1, d))
		} else {
			shape.sub(1, msg().str(2, "batch"))
		}
	}
	tt := msg().varint(1, int64(elem)).sub(2, shape)
	return msg().str(1, name).sub(2, msg().sub(1, tt))
}

func node(op string, inputs, outputs []string, attrs ...*pb) *pb {
	n := msg()
	for _, in := range inputs {
		n.str(1, in)
	}
	for _, out := range outputs {
		n.str(2, out)
	}
	n.str(3, op+"_"+outputs[0]).str(4, op)
	for _, a := range attrs {
		n.sub(5, a)
	}
	return n
}

func attrInts(name string, vs ...int64) *pb {
	return msg().str(1, name).varint(20, AttributeProtoInts).packed(8, vs...)
}

func attrInt(name string, v int64) *pb {
	return msg().str(1, name).varint(20, AttributeProtoInt).varint(3, v)
}

func attrFloat(name string, f float32) *pb {
	return msg().str(1, name).varint(20, AttributeProtoFloat).float(2, f)
}

func attrString(name, s string) *pb {
	return msg().str(1, name).varint(20, AttributeProtoString).str(4, s)
}

func floatTensor(name string, dims []int64, vals ...float32) *pb {
	t := msg().packed(1, dims...).varint(2, TensorProtoFloat).str(8, name)
	var raw []byte
	for _, v := range vals {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
	}
	return t.raw(9, raw)
}

func intTensor(name string, vals ...int64) *pb {
	t := msg().packed(1, int64(len(vals))).varint(2, TensorProtoInt64).str(8, name)
	var raw []byte
	for _, v := range vals {
		raw = binary.LittleEndian.AppendUint64(raw, uint64(v))
	}
	return t.raw(9, raw)
}

// ramp returns n float32 values 0, 1, 2, ...
func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}
