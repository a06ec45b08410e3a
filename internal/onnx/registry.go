package onnx

import (
	"errors"
	"slices"
)

// Import errors.
var (
	ErrUnsupportedOperator = errors.New("unsupported onnx operator")
	ErrUnsupportedDataType = errors.New("unsupported onnx data type")
	ErrUnknownValue        = errors.New("unknown onnx value")
)

// Converter lowers one ONNX node onto the graph under construction.
type Converter func(imp *Importer, node *NodeProto) error

// Registry maps ONNX operator types to converters.
type Registry struct {
	converters map[string]Converter
}

// NewRegistry creates a registry with every built-in converter.
func NewRegistry() *Registry {
	r := &Registry{converters: make(map[string]Converter)}

	r.registerNN()
	r.registerElementwise()
	r.registerShape()

	return r
}

// Register adds or replaces the converter for an operator type.
func (r *Registry) Register(opType string, c Converter) {
	r.converters[opType] = c
}

// Get returns the converter for an operator type.
func (r *Registry) Get(opType string) (Converter, bool) {
	c, ok := r.converters[opType]
	return c, ok
}

// SupportedOps returns the registered operator types in sorted order.
func (r *Registry) SupportedOps() []string {
	ops := make([]string, 0, len(r.converters))
	for op := range r.converters {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}
