// Package graph implements the mutable layer graph compiled by the optimizer.
//
// A Graph owns its layers in an arena: layers are appended, never moved, and
// removed only by EraseLayer. Slots address their peers by LayerID and slot
// index rather than by pointer, so erasing a layer can never leave a dangling
// reference behind.
//
// Example:
//
//	g := graph.New()
//	in, _ := g.AddInputLayer(0, "input")
//	relu, _ := g.AddLayer(graph.ActivationDescriptor{Function: graph.ActivationReLu}, "relu")
//	out, _ := g.AddOutputLayer(0, "output")
//	_ = g.Connect(in.OutputSlot(0), relu.InputSlot(0))
//	_ = g.Connect(relu.OutputSlot(0), out.InputSlot(0))
package graph

import (
	"fmt"

	"github.com/born-ml/graphc/internal/tensor"
)

// Graph is a directed graph of layers connected through slots.
type Graph struct {
	layers        []*Layer // arena; erased entries are nil
	count         int
	defaultMethod ShapeInferenceMethod
}

// New creates an empty graph whose layers default to InferAndValidate.
func New() *Graph {
	return &Graph{defaultMethod: InferAndValidate}
}

// SetShapeInferenceMethod sets the policy given to every layer added afterwards.
func (g *Graph) SetShapeInferenceMethod(m ShapeInferenceMethod) {
	g.defaultMethod = m
}

// AddLayer validates desc and appends a new unconnected layer.
func (g *Graph) AddLayer(desc Descriptor, name string) (*Layer, error) {
	if desc == nil {
		return nil, invalidParam("nil descriptor for layer %q", name)
	}
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("%s layer %q: %w", desc.Type(), name, err)
	}
	l := newLayer(LayerID(len(g.layers)), desc, name, g.defaultMethod)
	g.layers = append(g.layers, l)
	g.count++
	return l, nil
}

// AddInputLayer adds a graph input with the given binding id.
func (g *Graph) AddInputLayer(bindingID int, name string) (*Layer, error) {
	return g.AddLayer(InputDescriptor{BindingID: bindingID}, name)
}

// AddOutputLayer adds a graph output with the given binding id.
func (g *Graph) AddOutputLayer(bindingID int, name string) (*Layer, error) {
	return g.AddLayer(OutputDescriptor{BindingID: bindingID}, name)
}

// AddConstantLayer adds a constant whose output descriptor is taken from t.
func (g *Graph) AddConstantLayer(t tensor.ConstTensor, name string) (*Layer, error) {
	l, err := g.AddLayer(ConstantDescriptor{Tensor: t}, name)
	if err != nil {
		return nil, err
	}
	l.OutputSlot(0).SetTensorInfo(t.Info())
	return l, nil
}

// Layer returns the live layer with the given id, or nil.
func (g *Graph) Layer(id LayerID) *Layer {
	if id < 0 || int(id) >= len(g.layers) {
		return nil
	}
	return g.layers[id]
}

// CountLayers returns the number of live layers.
func (g *Graph) CountLayers() int { return g.count }

// Layers returns the live layers in insertion order.
func (g *Graph) Layers() []*Layer {
	out := make([]*Layer, 0, g.count)
	for _, l := range g.layers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

// LayersOfType returns the live layers of type t in insertion order.
func (g *Graph) LayersOfType(t LayerType) []*Layer {
	var out []*Layer
	for _, l := range g.layers {
		if l != nil && l.Type() == t {
			out = append(out, l)
		}
	}
	return out
}

func (g *Graph) owns(id LayerID) bool {
	return g.Layer(id) != nil
}

// Connect links a producer slot to a consumer slot. It fails when the input
// is already connected, when both ends belong to the same layer, or when both
// ends carry specified descriptors with different rank or element type.
// Everything else is left to shape inference.
func (g *Graph) Connect(out *OutputSlot, in *InputSlot) error {
	if out == nil || in == nil {
		return fmt.Errorf("%w: nil slot", ErrGraphStructure)
	}
	if !g.owns(out.owner) || !g.owns(in.owner) {
		return fmt.Errorf("connect: %w", ErrLayerNotFound)
	}
	if out.owner == in.owner {
		return fmt.Errorf("%w: layer %q connected to itself", ErrGraphStructure, g.layers[out.owner].DisplayName())
	}
	if in.attached {
		return fmt.Errorf("%w: input %d of layer %q is already connected",
			ErrGraphStructure, in.index, g.layers[in.owner].DisplayName())
	}
	if err := checkSlotCompatibility(out, in); err != nil {
		return fmt.Errorf("connect %q -> %q: %w",
			g.layers[out.owner].DisplayName(), g.layers[in.owner].DisplayName(), err)
	}

	g.link(out, in)
	return nil
}

// link connects without compatibility checks. It is used to move existing
// connections, which were accepted when first made.
func (g *Graph) link(out *OutputSlot, in *InputSlot) {
	in.source = SlotRef{Layer: out.owner, Index: out.index}
	in.attached = true
	out.consumers = append(out.consumers, SlotRef{Layer: in.owner, Index: in.index})
}

func checkSlotCompatibility(out *OutputSlot, in *InputSlot) error {
	want, ok := in.TensorInfoOverride()
	if !ok || !out.infoSet {
		return nil
	}
	have := out.info
	if have.DataType() != want.DataType() {
		return fmt.Errorf("%w: %s vs %s", ErrSlotTypeMismatch, have.DataType(), want.DataType())
	}
	hs, ws := have.Shape(), want.Shape()
	if hs.Dimensionality() == tensor.Specified && ws.Dimensionality() == tensor.Specified && hs.Rank() != ws.Rank() {
		return fmt.Errorf("%w: rank %d vs %d", ErrSlotTypeMismatch, hs.Rank(), ws.Rank())
	}
	return nil
}

// Disconnect removes the link between out and in.
func (g *Graph) Disconnect(out *OutputSlot, in *InputSlot) error {
	if !in.attached || in.source != (SlotRef{Layer: out.owner, Index: out.index}) {
		return fmt.Errorf("%w: input %d of layer %d is not connected to output %d of layer %d",
			ErrGraphStructure, in.index, in.owner, out.index, out.owner)
	}
	target := SlotRef{Layer: in.owner, Index: in.index}
	for i, c := range out.consumers {
		if c == target {
			out.consumers = append(out.consumers[:i], out.consumers[i+1:]...)
			break
		}
	}
	in.attached = false
	in.source = SlotRef{}
	return nil
}

// DisconnectAll detaches every slot of l.
func (g *Graph) DisconnectAll(l *Layer) {
	for i := range l.inputs {
		in := &l.inputs[i]
		if out := g.Producer(in); out != nil {
			_ = g.Disconnect(out, in)
		}
	}
	for i := range l.outputs {
		out := &l.outputs[i]
		for _, in := range g.Consumers(out) {
			_ = g.Disconnect(out, in)
		}
	}
}

// EraseLayer removes l from the graph. All of its slots must be disconnected.
func (g *Graph) EraseLayer(l *Layer) error {
	if l == nil || !g.owns(l.id) || g.layers[l.id] != l {
		return fmt.Errorf("erase: %w", ErrLayerNotFound)
	}
	if l.isConnected() {
		return fmt.Errorf("erase %s layer %q: %w", l.Type(), l.DisplayName(), ErrDanglingConnection)
	}
	g.layers[l.id] = nil
	g.count--
	return nil
}

// Producer returns the output slot feeding in, or nil when unconnected.
func (g *Graph) Producer(in *InputSlot) *OutputSlot {
	if !in.attached {
		return nil
	}
	l := g.Layer(in.source.Layer)
	if l == nil {
		return nil
	}
	return l.OutputSlot(in.source.Index)
}

// ProducerLayer returns the layer feeding in, or nil when unconnected.
func (g *Graph) ProducerLayer(in *InputSlot) *Layer {
	if !in.attached {
		return nil
	}
	return g.Layer(in.source.Layer)
}

// Consumers returns the input slots fed by out.
func (g *Graph) Consumers(out *OutputSlot) []*InputSlot {
	ins := make([]*InputSlot, 0, len(out.consumers))
	for _, ref := range out.consumers {
		if l := g.Layer(ref.Layer); l != nil {
			ins = append(ins, l.InputSlot(ref.Index))
		}
	}
	return ins
}

// InputTensorInfo resolves the descriptor seen by in: its override when set,
// otherwise the producer's output descriptor.
func (g *Graph) InputTensorInfo(in *InputSlot) (tensor.TensorInfo, bool) {
	if info, ok := in.TensorInfoOverride(); ok {
		return info, true
	}
	out := g.Producer(in)
	if out == nil || !out.IsTensorInfoSet() {
		return tensor.TensorInfo{}, false
	}
	return out.TensorInfo(), true
}

// TopologicalSort orders live layers so that every producer precedes its
// consumers. Ties keep insertion order, which makes the result deterministic.
func (g *Graph) TopologicalSort() ([]*Layer, error) {
	inDegree := make(map[LayerID]int, g.count)
	for _, l := range g.layers {
		if l == nil {
			continue
		}
		deps := 0
		for i := range l.inputs {
			if l.inputs[i].attached {
				deps++
			}
		}
		inDegree[l.id] = deps
	}

	queue := make([]*Layer, 0, g.count)
	for _, l := range g.layers {
		if l != nil && inDegree[l.id] == 0 {
			queue = append(queue, l)
		}
	}

	order := make([]*Layer, 0, g.count)
	for len(queue) > 0 {
		l := queue[0]
		queue = queue[1:]
		order = append(order, l)
		for i := range l.outputs {
			for _, ref := range l.outputs[i].consumers {
				inDegree[ref.Layer]--
				if inDegree[ref.Layer] == 0 {
					queue = append(queue, g.layers[ref.Layer])
				}
			}
		}
	}

	if len(order) != g.count {
		return nil, fmt.Errorf("%w: graph contains a cycle (%d of %d layers ordered)",
			ErrGraphStructure, len(order), g.count)
	}
	return order, nil
}
