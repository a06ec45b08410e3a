// Package tensor provides the tensor descriptor types shared by the graph compiler.
package tensor

import (
	"fmt"
	"strings"
)

// DataType represents the element type flowing along a tensor edge.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float16
	BFloat16
	QAsymmU8
	QAsymmS8
	QSymmS8
	QSymmS16
	Signed32
	Signed64
	Boolean
)

var dataTypeNames = [...]string{
	Float32:  "float32",
	Float16:  "float16",
	BFloat16: "bfloat16",
	QAsymmU8: "qasymmu8",
	QAsymmS8: "qasymms8",
	QSymmS8:  "qsymms8",
	QSymmS16: "qsymms16",
	Signed32: "int32",
	Signed64: "int64",
	Boolean:  "bool",
}

// Size returns the byte size of one element.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Signed32:
		return 4
	case Float16, BFloat16, QSymmS16:
		return 2
	case QAsymmU8, QAsymmS8, QSymmS8, Boolean:
		return 1
	case Signed64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	if dt >= 0 && int(dt) < len(dataTypeNames) {
		return dataTypeNames[dt]
	}
	return "unknown"
}

// IsQuantized reports whether values of this type carry a scale/offset.
func (dt DataType) IsQuantized() bool {
	switch dt {
	case QAsymmU8, QAsymmS8, QSymmS8, QSymmS16:
		return true
	default:
		return false
	}
}

// IsFloat reports whether the type is a floating point type.
func (dt DataType) IsFloat() bool {
	return dt == Float32 || dt == Float16 || dt == BFloat16
}

// IsSignedInteger reports whether the type is a plain (non-quantized) signed integer.
func (dt DataType) IsSignedInteger() bool {
	return dt == Signed32 || dt == Signed64
}

// ParseDataType maps a name as printed by String back to a DataType.
func ParseDataType(name string) (DataType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range dataTypeNames {
		if s == n {
			return DataType(i), nil
		}
	}
	switch n {
	case "f32", "float":
		return Float32, nil
	case "f16", "half":
		return Float16, nil
	case "signed32":
		return Signed32, nil
	case "signed64":
		return Signed64, nil
	case "boolean":
		return Boolean, nil
	}
	return 0, fmt.Errorf("unknown data type %q", name)
}
