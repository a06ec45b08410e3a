package graph

import (
	"fmt"
)

// Subgraph is a non-owning view over some layers of a Graph together with
// the slots that cross its boundary. It is the unit of substitution and is
// not meant to outlive the pass that built it.
type Subgraph struct {
	layers  []*Layer
	inputs  []*InputSlot
	outputs []*OutputSlot
}

// NewSubgraph creates a view with an explicit boundary.
func NewSubgraph(layers []*Layer, inputs []*InputSlot, outputs []*OutputSlot) *Subgraph {
	return &Subgraph{
		layers:  append([]*Layer(nil), layers...),
		inputs:  append([]*InputSlot(nil), inputs...),
		outputs: append([]*OutputSlot(nil), outputs...),
	}
}

// NewSubgraphFromLayers creates a view over layers and derives its boundary.
// An input slot is on the boundary when its producer is not a member. An
// output slot is on the boundary when it feeds a non-member or feeds nothing.
// Boundary slots are ordered by layer order, then slot index.
func NewSubgraphFromLayers(g *Graph, layers ...*Layer) *Subgraph {
	members := make(map[LayerID]bool, len(layers))
	for _, l := range layers {
		members[l.id] = true
	}

	sg := &Subgraph{layers: append([]*Layer(nil), layers...)}
	for _, l := range layers {
		for i := range l.inputs {
			in := &l.inputs[i]
			if !in.attached || !members[in.source.Layer] {
				sg.inputs = append(sg.inputs, in)
			}
		}
		for i := range l.outputs {
			out := &l.outputs[i]
			if len(out.consumers) == 0 || feedsOutside(out, members) {
				sg.outputs = append(sg.outputs, out)
			}
		}
	}
	return sg
}

func feedsOutside(out *OutputSlot, members map[LayerID]bool) bool {
	for _, c := range out.consumers {
		if !members[c.Layer] {
			return true
		}
	}
	return false
}

// Layers returns the member layers.
func (s *Subgraph) Layers() []*Layer { return s.layers }

// InputSlots returns the boundary input slots.
func (s *Subgraph) InputSlots() []*InputSlot { return s.inputs }

// OutputSlots returns the boundary output slots.
func (s *Subgraph) OutputSlots() []*OutputSlot { return s.outputs }

// Contains reports whether l is a member.
func (s *Subgraph) Contains(l *Layer) bool {
	for _, m := range s.layers {
		if m == l {
			return true
		}
	}
	return false
}

// SubstituteSubgraph replaces old with replacement. Boundary slots are paired
// by position: the producer of old's i-th input feeds replacement's i-th
// input, and every outside consumer of old's i-th output is moved to
// replacement's i-th output. The layers of old are then erased.
func (g *Graph) SubstituteSubgraph(old, replacement *Subgraph) error {
	if len(old.inputs) != len(replacement.inputs) || len(old.outputs) != len(replacement.outputs) {
		return fmt.Errorf("%w: %d/%d inputs, %d/%d outputs", ErrSubstitutionMismatch,
			len(old.inputs), len(replacement.inputs), len(old.outputs), len(replacement.outputs))
	}
	for _, l := range old.layers {
		if !g.owns(l.id) {
			return fmt.Errorf("substitute: %w", ErrLayerNotFound)
		}
	}
	for _, l := range replacement.layers {
		if !g.owns(l.id) {
			return fmt.Errorf("substitute: replacement %w", ErrLayerNotFound)
		}
	}

	members := make(map[LayerID]bool, len(old.layers))
	for _, l := range old.layers {
		members[l.id] = true
	}

	for i, in := range old.inputs {
		producer := g.Producer(in)
		if producer == nil {
			continue
		}
		if err := g.Disconnect(producer, in); err != nil {
			return err
		}
		target := replacement.inputs[i]
		if info, ok := in.TensorInfoOverride(); ok {
			// The consumer saw info, not the producer's descriptor.
			if _, set := target.TensorInfoOverride(); !set {
				target.SetTensorInfo(info)
			}
			g.link(producer, target)
			continue
		}
		if err := g.Connect(producer, target); err != nil {
			return fmt.Errorf("substitute input %d: %w", i, err)
		}
	}

	for i, out := range old.outputs {
		target := replacement.outputs[i]
		if out.infoSet && !target.infoSet {
			target.SetTensorInfo(out.info)
		}
		for _, in := range g.Consumers(out) {
			if members[in.owner] {
				continue
			}
			if err := g.Disconnect(out, in); err != nil {
				return err
			}
			g.link(target, in)
		}
	}

	for _, l := range old.layers {
		g.DisconnectAll(l)
	}
	for _, l := range old.layers {
		if err := g.EraseLayer(l); err != nil {
			return err
		}
	}
	return nil
}

// Bypass removes a single-input single-output layer, connecting its producer
// straight to each of its consumers.
func (g *Graph) Bypass(l *Layer) error {
	if l.NumInputSlots() != 1 || l.NumOutputSlots() != 1 {
		return fmt.Errorf("%w: cannot bypass %s layer %q with %d inputs and %d outputs",
			ErrGraphStructure, l.Type(), l.DisplayName(), l.NumInputSlots(), l.NumOutputSlots())
	}
	in, out := l.InputSlot(0), l.OutputSlot(0)
	producer := g.Producer(in)
	if producer == nil {
		return fmt.Errorf("%w: %s layer %q has no producer", ErrGraphStructure, l.Type(), l.DisplayName())
	}
	consumers := g.Consumers(out)
	if err := g.Disconnect(producer, in); err != nil {
		return err
	}
	for _, c := range consumers {
		if err := g.Disconnect(out, c); err != nil {
			return err
		}
		g.link(producer, c)
	}
	return g.EraseLayer(l)
}
