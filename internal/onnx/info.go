package onnx

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ModelInfo summarizes a model without importing it.
type ModelInfo struct {
	IRVersion       int64
	OpsetVersion    int64
	ProducerName    string
	ProducerVersion string
	InputNames      []string
	OutputNames     []string
	NodeCount       int
	WeightCount     int

	// Operators counts nodes per op type, in order of first appearance.
	Operators *orderedmap.OrderedMap[string, int]
	// Unsupported lists the op types reg has no converter for.
	Unsupported []string
}

// Inspect summarizes model. A nil reg uses NewRegistry().
func Inspect(model *ModelProto, reg *Registry) *ModelInfo {
	if reg == nil {
		reg = NewRegistry()
	}
	info := &ModelInfo{
		IRVersion:       model.IRVersion,
		OpsetVersion:    model.Opset(""),
		ProducerName:    model.ProducerName,
		ProducerVersion: model.ProducerVersion,
		Operators:       orderedmap.New[string, int](),
	}
	g := model.Graph
	if g == nil {
		return info
	}

	weights := make(map[string]bool, len(g.Initializers))
	for i := range g.Initializers {
		weights[g.Initializers[i].Name] = true
	}
	for i := range g.Inputs {
		if !weights[g.Inputs[i].Name] {
			info.InputNames = append(info.InputNames, g.Inputs[i].Name)
		}
	}
	for i := range g.Outputs {
		info.OutputNames = append(info.OutputNames, g.Outputs[i].Name)
	}
	info.NodeCount = len(g.Nodes)
	info.WeightCount = len(g.Initializers)

	for i := range g.Nodes {
		op := g.Nodes[i].OpType
		n, seen := info.Operators.Get(op)
		info.Operators.Set(op, n+1)
		if !seen {
			if _, ok := reg.Get(op); !ok {
				info.Unsupported = append(info.Unsupported, op)
			}
		}
	}
	return info
}

// InspectFile parses path and summarizes it with the default registry.
func InspectFile(path string) (*ModelInfo, error) {
	model, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return Inspect(model, nil), nil
}
