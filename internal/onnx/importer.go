package onnx

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/infer"
	"github.com/born-ml/graphc/internal/tensor"
)

// ImportOptions configures model import.
type ImportOptions struct {
	// Registry provides the operator converters (default: NewRegistry()).
	Registry *Registry

	// StandInUnknown lowers operators without a converter to StandIn layers
	// when value_info declares all of their outputs (default: false = fail).
	StandInUnknown bool

	// Logger receives per-node debug output (default: slog.Default()).
	Logger *slog.Logger
}

// DefaultImportOptions returns default import options.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		Registry: NewRegistry(),
		Logger:   slog.Default(),
	}
}

// ImportFile parses and imports an ONNX model file.
func ImportFile(path string, opts ...ImportOptions) (*Network, error) {
	model, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return Import(model, opts...)
}

// ImportBytes parses and imports an encoded ONNX model.
func ImportBytes(data []byte, opts ...ImportOptions) (*Network, error) {
	model, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Import(model, opts...)
}

// Import builds a layer graph from a decoded model. Graph inputs become
// Input layers in declaration order, graph outputs become Output layers and
// initializers become Constant layers when a layer consumes them. Every
// layer's output descriptors are resolved as it is added.
func Import(model *ModelProto, opts ...ImportOptions) (*Network, error) {
	opt := DefaultImportOptions()
	if len(opts) > 0 {
		opt = opts[0]
		if opt.Registry == nil {
			opt.Registry = NewRegistry()
		}
		if opt.Logger == nil {
			opt.Logger = slog.Default()
		}
	}
	if model == nil || model.Graph == nil {
		return nil, fmt.Errorf("import: %w: no graph", ErrMalformed)
	}

	imp := newImporter(model, opt.Logger)
	net := &Network{Graph: imp.g, Opset: imp.opset, proto: model}

	for i := range model.Graph.Inputs {
		v := &model.Graph.Inputs[i]
		if _, ok := imp.consts[v.Name]; ok {
			continue // older exporters list initializers as inputs
		}
		info, err := v.TensorInfo()
		if err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		l, err := imp.g.AddInputLayer(len(net.InputNames), v.Name)
		if err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		l.OutputSlot(0).SetTensorInfo(info)
		imp.values[v.Name] = l.OutputSlot(0)
		net.InputNames = append(net.InputNames, v.Name)
	}
	if err := imp.resolve(); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	for i := range model.Graph.Nodes {
		node := &model.Graph.Nodes[i]
		convert, ok := opt.Registry.Get(node.OpType)
		if !ok {
			if !opt.StandInUnknown {
				return nil, fmt.Errorf("import: node %q: %w: %s", node.DisplayName(), ErrUnsupportedOperator, node.OpType)
			}
			convert = convertStandIn
		}
		if err := convert(imp, node); err != nil {
			return nil, fmt.Errorf("import: node %q (%s): %w", node.DisplayName(), node.OpType, err)
		}
		if err := imp.resolve(); err != nil {
			return nil, fmt.Errorf("import: node %q (%s): %w", node.DisplayName(), node.OpType, err)
		}
		imp.logger.Debug("converted node", "node", node.DisplayName(), "op", node.OpType, "layers", imp.g.CountLayers())
	}

	for i, v := range model.Graph.Outputs {
		src, err := imp.Operand(v.Name)
		if err != nil {
			return nil, fmt.Errorf("import: output %q: %w", v.Name, err)
		}
		l, err := imp.g.AddOutputLayer(i, v.Name)
		if err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		if err := imp.g.Connect(src, l.InputSlot(0)); err != nil {
			return nil, fmt.Errorf("import: output %q: %w", v.Name, err)
		}
		net.OutputNames = append(net.OutputNames, v.Name)
	}
	if err := imp.resolve(); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	imp.logger.Info("imported onnx model", "graph", model.Graph.Name, "opset", imp.opset,
		"nodes", len(model.Graph.Nodes), "layers", imp.g.CountLayers())
	return net, nil
}

// Importer is the state of one import, handed to converters.
type Importer struct {
	g        *graph.Graph
	opset    int64
	values   map[string]*graph.OutputSlot
	consts   map[string]*TensorProto
	declared map[string]*ValueInfoProto
	logger   *slog.Logger
	resolved int
}

func newImporter(model *ModelProto, logger *slog.Logger) *Importer {
	gp := model.Graph
	imp := &Importer{
		g:        graph.New(),
		opset:    model.Opset(""),
		values:   make(map[string]*graph.OutputSlot),
		consts:   make(map[string]*TensorProto, len(gp.Initializers)),
		declared: make(map[string]*ValueInfoProto, len(gp.ValueInfo)+len(gp.Outputs)),
		logger:   logger,
	}
	for i := range gp.Initializers {
		imp.consts[gp.Initializers[i].Name] = &gp.Initializers[i]
	}
	for i := range gp.ValueInfo {
		imp.declared[gp.ValueInfo[i].Name] = &gp.ValueInfo[i]
	}
	for i := range gp.Outputs {
		imp.declared[gp.Outputs[i].Name] = &gp.Outputs[i]
	}
	return imp
}

// Graph returns the graph under construction.
func (imp *Importer) Graph() *graph.Graph { return imp.g }

// Opset returns the default-domain opset version of the model.
func (imp *Importer) Opset() int64 { return imp.opset }

// Const returns the constant tensor bound to name, if it is an initializer
// or the output of a Constant node.
func (imp *Importer) Const(name string) (*TensorProto, bool) {
	t, ok := imp.consts[name]
	return t, ok
}

// SetConst binds name to a constant tensor.
func (imp *Importer) SetConst(name string, t *TensorProto) {
	imp.consts[name] = t
}

// Operand returns the output slot producing the value name. Constants get
// a Constant layer on first use.
func (imp *Importer) Operand(name string) (*graph.OutputSlot, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: required input is omitted", ErrUnknownValue)
	}
	if out, ok := imp.values[name]; ok {
		return out, nil
	}
	t, ok := imp.consts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownValue, name)
	}
	c, err := t.ConstTensor()
	if err != nil {
		return nil, err
	}
	l, err := imp.g.AddConstantLayer(c, name)
	if err != nil {
		return nil, err
	}
	imp.values[name] = l.OutputSlot(0)
	return l.OutputSlot(0), nil
}

// OperandInfo returns an operand together with its resolved descriptor.
func (imp *Importer) OperandInfo(name string) (*graph.OutputSlot, tensor.TensorInfo, error) {
	out, err := imp.Operand(name)
	if err != nil {
		return nil, tensor.TensorInfo{}, err
	}
	if !out.IsTensorInfoSet() {
		return nil, tensor.TensorInfo{}, fmt.Errorf("%w: value %q has no descriptor", graph.ErrUnresolvedShape, name)
	}
	return out, out.TensorInfo(), nil
}

// AddLayer adds a layer fed by inputs in slot order.
func (imp *Importer) AddLayer(desc graph.Descriptor, name string, inputs ...*graph.OutputSlot) (*graph.Layer, error) {
	l, err := imp.g.AddLayer(desc, name)
	if err != nil {
		return nil, err
	}
	for i, in := range inputs {
		if err := imp.g.Connect(in, l.InputSlot(i)); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Bind maps the node's outputs onto the layer's output slots.
func (imp *Importer) Bind(node *NodeProto, l *graph.Layer) error {
	for i, name := range node.Outputs {
		if name == "" {
			continue
		}
		if i >= l.NumOutputSlots() {
			return fmt.Errorf("%w: output %d (%q) has no %s slot", ErrUnsupportedOperator, i, name, l.Type())
		}
		imp.values[name] = l.OutputSlot(i)
	}
	return nil
}

// Alias makes name refer to an existing value.
func (imp *Importer) Alias(name string, out *graph.OutputSlot) {
	imp.values[name] = out
}

// resolve infers the descriptors of every layer added since the last call.
// Converters add layers in dependency order.
func (imp *Importer) resolve() error {
	layers := imp.g.Layers()
	for _, l := range layers[imp.resolved:] {
		if err := infer.ValidateTensorShapesFromInputs(imp.g, l); err != nil {
			return err
		}
	}
	imp.resolved = len(layers)
	return nil
}

// convertStandIn keeps an unknown operator as a placeholder whose outputs
// come from the model's value_info.
func convertStandIn(imp *Importer, n *NodeProto) error {
	var inputs []*graph.OutputSlot
	for _, name := range n.Inputs {
		if name == "" {
			continue
		}
		out, err := imp.Operand(name)
		if err != nil {
			return err
		}
		inputs = append(inputs, out)
	}
	infos := make([]tensor.TensorInfo, len(n.Outputs))
	for i, name := range n.Outputs {
		v, ok := imp.declared[name]
		if !ok {
			return fmt.Errorf("%w: %s has no converter and output %q has no value_info", ErrUnsupportedOperator, n.OpType, name)
		}
		info, err := v.TensorInfo()
		if err != nil {
			return err
		}
		infos[i] = info
	}

	l, err := imp.AddLayer(graph.StandInDescriptor{Inputs: len(inputs), Outputs: len(infos)}, n.DisplayName(), inputs...)
	if err != nil {
		return err
	}
	for i, info := range infos {
		l.OutputSlot(i).SetTensorInfo(info)
	}
	imp.logger.Warn("operator lowered to stand-in", "node", n.DisplayName(), "op", n.OpType)
	return imp.Bind(n, l)
}
