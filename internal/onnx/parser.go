package onnx

import (
	"errors"
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned for input that is not a valid ONNX protobuf.
var ErrMalformed = errors.New("malformed onnx model")

// ParseFile parses an ONNX model from file.
//
//nolint:gosec // G304: reading a user-supplied model path.
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes an ONNX model from its protobuf encoding.
func Parse(data []byte) (*ModelProto, error) {
	model := &ModelProto{}
	if err := decodeModel(data, model); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	if model.Graph == nil {
		return nil, fmt.Errorf("failed to parse model: %w: no graph", ErrMalformed)
	}
	return model, nil
}

// fieldFunc decodes the value of one field whose tag was already consumed
// and returns the number of bytes used. Returning skip leaves the field to
// the generic skipper.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

const skip = -1

func decodeMessage(b []byte, what string, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %s: %w", ErrMalformed, what, protowire.ParseError(n))
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("%s field %d: %w", what, num, err)
		}
		if m == skip {
			if m = protowire.ConsumeFieldValue(num, typ, b); m < 0 {
				return fmt.Errorf("%w: %s field %d: %w", ErrMalformed, what, num, protowire.ParseError(m))
			}
		}
		b = b[m:]
	}
	return nil
}

func decodeModel(b []byte, m *ModelProto) error {
	return decodeMessage(b, "ModelProto", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt64(typ, b, &m.IRVersion)
		case 2:
			return consumeString(typ, b, &m.ProducerName)
		case 3:
			return consumeString(typ, b, &m.ProducerVersion)
		case 4:
			return consumeString(typ, b, &m.Domain)
		case 5:
			return consumeInt64(typ, b, &m.ModelVersion)
		case 6:
			return consumeString(typ, b, &m.DocString)
		case 7:
			m.Graph = &GraphProto{}
			return consumeMessage(typ, b, func(b []byte) error { return decodeGraph(b, m.Graph) })
		case 8:
			var o OperatorSetID
			n, err := consumeMessage(typ, b, func(b []byte) error { return decodeOpset(b, &o) })
			m.OpsetImport = append(m.OpsetImport, o)
			return n, err
		case 14:
			var e StringStringEntry
			n, err := consumeMessage(typ, b, func(b []byte) error { return decodeEntry(b, &e) })
			m.MetadataProps = append(m.MetadataProps, e)
			return n, err
		}
		return skip, nil
	})
}

func decodeGraph(b []byte, g *GraphProto) error {
	return decodeMessage(b, "GraphProto", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			var node NodeProto
			n, err := consumeMessage(typ, b, func(b []byte) error { return decodeNode(b, &node) })
			g.Nodes = append(g.Nodes, node)
			return n, err
		case 2:
			return consumeString(typ, b, &g.Name)
		case 5:
			var t TensorProto
			n, err := consumeMessage(typ, b, func(b []byte) error { return decodeTensor(b, &t) })
			g.Initializers = append(g.Initializers, t)
			return n, err
		case 10:
			return consumeString(typ, b, &g.DocString)
		case 11, 12, 13:
			var v ValueInfoProto
			n, err := consumeMessage(typ, b, func(b []byte) error { return decodeValueInfo(b, &v) })
			switch num {
			case 11:
				g.Inputs = append(g.Inputs, v)
			case 12:
				g.Outputs = append(g.Outputs, v)
			default:
				g.ValueInfo = append(g.ValueInfo, v)
			}
			return n, err
		}
		return skip, nil
	})
}

func decodeNode(b []byte, node *NodeProto) error {
	return decodeMessage(b, "NodeProto", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return appendString(typ, b, &node.Inputs)
		case 2:
			return appendString(typ, b, &node.Outputs)
		case 3:
			return consumeString(typ, b, &node.Name)
		case 4:
			return consumeString(typ, b, &node.OpType)
		case 5:
			var a AttributeProto
			n, err := consumeMessage(typ, b, func(b []byte) error { return decodeAttribute(b, &a) })
			node.Attributes = append(node.Attributes, a)
			return n, err
		case 6:
			return consumeString(typ, b, &node.DocString)
		case 7:
			return consumeString(typ, b, &node.Domain)
		}
		return skip, nil
	})
}

func decodeTensor(b []byte, t *TensorProto) error {
	return decodeMessage(b, "TensorProto", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt64s(typ, b, &t.Dims)
		case 2:
			return consumeInt32(typ, b, &t.DataType)
		case 4:
			return consumeFloat32s(typ, b, &t.FloatData)
		case 5:
			return consumeInt32s(typ, b, &t.Int32Data)
		case 7:
			return consumeInt64s(typ, b, &t.Int64Data)
		case 8:
			return consumeString(typ, b, &t.Name)
		case 9:
			return consumeBytes(typ, b, &t.RawData)
		case 12:
			return consumeString(typ, b, &t.DocString)
		}
		return skip, nil
	})
}

func decodeValueInfo(b []byte, v *ValueInfoProto) error {
	return decodeMessage(b, "ValueInfoProto", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &v.Name)
		case 2:
			v.Type = &TypeProto{}
			return consumeMessage(typ, b, func(b []byte) error { return decodeType(b, v.Type) })
		case 3:
			return consumeString(typ, b, &v.DocString)
		}
		return skip, nil
	})
}

func decodeType(b []byte, tp *TypeProto) error {
	return decodeMessage(b, "TypeProto", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return skip, nil
		}
		tp.TensorType = &TensorTypeProto{}
		return consumeMessage(typ, b, func(b []byte) error {
			return decodeMessage(b, "TypeProto.Tensor", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					return consumeInt32(typ, b, &tp.TensorType.ElemType)
				case 2:
					tp.TensorType.Shape = &TensorShapeProto{}
					return consumeMessage(typ, b, func(b []byte) error { return decodeShape(b, tp.TensorType.Shape) })
				}
				return skip, nil
			})
		})
	})
}

func decodeShape(b []byte, s *TensorShapeProto) error {
	return decodeMessage(b, "TensorShapeProto", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return skip, nil
		}
		var d DimensionProto
		n, err := consumeMessage(typ, b, func(b []byte) error {
			return decodeMessage(b, "Dimension", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					d.HasValue = true
					return consumeInt64(typ, b, &d.DimValue)
				case 2:
					return consumeString(typ, b, &d.DimParam)
				}
				return skip, nil
			})
		})
		s.Dims = append(s.Dims, d)
		return n, err
	})
}

func decodeAttribute(b []byte, a *AttributeProto) error {
	return decodeMessage(b, "AttributeProto", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &a.Name)
		case 2:
			return consumeFloat32(typ, b, &a.F)
		case 3:
			return consumeInt64(typ, b, &a.I)
		case 4:
			return consumeBytes(typ, b, &a.S)
		case 5:
			a.T = &TensorProto{}
			return consumeMessage(typ, b, func(b []byte) error { return decodeTensor(b, a.T) })
		case 7:
			return consumeFloat32s(typ, b, &a.Floats)
		case 8:
			return consumeInt64s(typ, b, &a.Ints)
		case 9:
			var s []byte
			n, err := consumeBytes(typ, b, &s)
			a.Strings = append(a.Strings, s)
			return n, err
		case 13:
			return consumeString(typ, b, &a.DocString)
		case 20:
			return consumeInt32(typ, b, &a.Type)
		}
		return skip, nil
	})
}

func decodeOpset(b []byte, o *OperatorSetID) error {
	return decodeMessage(b, "OperatorSetIdProto", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &o.Domain)
		case 2:
			return consumeInt64(typ, b, &o.Version)
		}
		return skip, nil
	})
}

func decodeEntry(b []byte, e *StringStringEntry) error {
	return decodeMessage(b, "StringStringEntryProto", func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &e.Key)
		case 2:
			return consumeString(typ, b, &e.Value)
		}
		return skip, nil
	})
}

// Scalar and repeated field helpers. Repeated numeric fields accept both
// packed and unpacked encodings.

func wireTypeError(want, got protowire.Type) error {
	return fmt.Errorf("%w: wire type %d, want %d", ErrMalformed, got, want)
}

func parseError(n int) error {
	return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, wireTypeError(protowire.BytesType, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, parseError(n)
	}
	*dst = append([]byte(nil), v...)
	return n, nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	if typ != protowire.BytesType {
		return 0, wireTypeError(protowire.BytesType, typ)
	}
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, parseError(n)
	}
	*dst = v
	return n, nil
}

func appendString(typ protowire.Type, b []byte, dst *[]string) (int, error) {
	var s string
	n, err := consumeString(typ, b, &s)
	if err != nil {
		return 0, err
	}
	*dst = append(*dst, s)
	return n, nil
}

func consumeMessage(typ protowire.Type, b []byte, decode func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, wireTypeError(protowire.BytesType, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, parseError(n)
	}
	return n, decode(v)
}

func consumeInt64(typ protowire.Type, b []byte, dst *int64) (int, error) {
	if typ != protowire.VarintType {
		return 0, wireTypeError(protowire.VarintType, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, parseError(n)
	}
	*dst = int64(v)
	return n, nil
}

func consumeInt32(typ protowire.Type, b []byte, dst *int32) (int, error) {
	var v int64
	n, err := consumeInt64(typ, b, &v)
	*dst = int32(v)
	return n, err
}

func consumeFloat32(typ protowire.Type, b []byte, dst *float32) (int, error) {
	if typ != protowire.Fixed32Type {
		return 0, wireTypeError(protowire.Fixed32Type, typ)
	}
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, parseError(n)
	}
	*dst = math.Float32frombits(v)
	return n, nil
}

// consumePacked runs one on each element of a packed field, or once on an
// unpacked element.
func consumePacked(typ, elem protowire.Type, b []byte, one func(protowire.Type, []byte) (int, error)) (int, error) {
	if typ == elem {
		return one(typ, b)
	}
	if typ != protowire.BytesType {
		return 0, wireTypeError(elem, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, parseError(n)
	}
	for len(v) > 0 {
		m, err := one(elem, v)
		if err != nil {
			return 0, err
		}
		v = v[m:]
	}
	return n, nil
}

func consumeInt64s(typ protowire.Type, b []byte, dst *[]int64) (int, error) {
	return consumePacked(typ, protowire.VarintType, b, func(typ protowire.Type, b []byte) (int, error) {
		var v int64
		n, err := consumeInt64(typ, b, &v)
		*dst = append(*dst, v)
		return n, err
	})
}

func consumeInt32s(typ protowire.Type, b []byte, dst *[]int32) (int, error) {
	return consumePacked(typ, protowire.VarintType, b, func(typ protowire.Type, b []byte) (int, error) {
		var v int32
		n, err := consumeInt32(typ, b, &v)
		*dst = append(*dst, v)
		return n, err
	})
}

func consumeFloat32s(typ protowire.Type, b []byte, dst *[]float32) (int, error) {
	return consumePacked(typ, protowire.Fixed32Type, b, func(typ protowire.Type, b []byte) (int, error) {
		var v float32
		n, err := consumeFloat32(typ, b, &v)
		*dst = append(*dst, v)
		return n, err
	})
}
