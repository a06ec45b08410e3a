// Package frontend holds lowering helpers for model importers: operators
// without a single layer equivalent are expressed as several layers through
// the graph construction API.
package frontend

import (
	"fmt"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// AlignRanks makes two operands broadcast-compatible by rank. The operand
// with fewer dimensions is reshaped with leading ones; the returned slots
// replace a and b. Both slots must carry a resolved descriptor.
func AlignRanks(g *graph.Graph, a, b *graph.OutputSlot) (*graph.OutputSlot, *graph.OutputSlot, error) {
	if !a.IsTensorInfoSet() || !b.IsTensorInfoSet() {
		return nil, nil, fmt.Errorf("align ranks: %w: operand descriptors must be set", graph.ErrUnresolvedShape)
	}
	sa, sb := a.TensorInfo().Shape(), b.TensorInfo().Shape()
	if sa.Dimensionality() == tensor.NotSpecified || sb.Dimensionality() == tensor.NotSpecified {
		return nil, nil, fmt.Errorf("align ranks: %w: operand rank unknown", graph.ErrUnresolvedShape)
	}

	switch {
	case sa.Rank() < sb.Rank():
		expanded, err := expand(g, a, sb.Rank())
		return expanded, b, err
	case sb.Rank() < sa.Rank():
		expanded, err := expand(g, b, sa.Rank())
		return a, expanded, err
	default:
		return a, b, nil
	}
}

// expand reshapes out to rank dimensions by prepending ones.
func expand(g *graph.Graph, out *graph.OutputSlot, rank int) (*graph.OutputSlot, error) {
	info := out.TensorInfo()
	s := info.Shape()
	if !s.IsFullySpecified() {
		return nil, fmt.Errorf("align ranks: %w: cannot reshape partially known %v", graph.ErrUnresolvedShape, s)
	}
	dims := make([]int, rank)
	for i := range dims {
		dims[i] = 1
	}
	copy(dims[rank-s.Rank():], s.Dims())

	owner := g.Layer(out.Owner())
	target := tensor.NewShape(dims...)
	l, err := g.AddLayer(graph.ReshapeDescriptor{TargetShape: target}, fmt.Sprintf("%s_broadcast_reshape", owner.DisplayName()))
	if err != nil {
		return nil, err
	}
	if err := g.Connect(out, l.InputSlot(0)); err != nil {
		return nil, err
	}
	l.OutputSlot(0).SetTensorInfo(info.WithShape(target).WithConstant(false))
	return l.OutputSlot(0), nil
}

// AddFloorDiv lowers floor(a / b). Signed integer operands are divided in
// Float32 and the result is cast back to a's type. The returned layer
// produces the result on output 0. Operand ranks are aligned first.
func AddFloorDiv(g *graph.Graph, a, b *graph.OutputSlot, name string) (*graph.Layer, error) {
	a, b, err := AlignRanks(g, a, b)
	if err != nil {
		return nil, err
	}
	ta, tb := a.TensorInfo().DataType(), b.TensorInfo().DataType()
	integer := ta.IsSignedInteger() && tb.IsSignedInteger()

	if integer {
		if a, err = addCast(g, a, tensor.Float32, name+"_cast_a"); err != nil {
			return nil, err
		}
		if b, err = addCast(g, b, tensor.Float32, name+"_cast_b"); err != nil {
			return nil, err
		}
	}

	div, err := g.AddLayer(graph.ElementwiseBinaryDescriptor{Operation: graph.BinaryDiv}, name+"_div")
	if err != nil {
		return nil, err
	}
	if err := g.Connect(a, div.InputSlot(0)); err != nil {
		return nil, err
	}
	if err := g.Connect(b, div.InputSlot(1)); err != nil {
		return nil, err
	}

	floor, err := g.AddLayer(graph.ElementwiseUnaryDescriptor{Operation: graph.UnaryFloor}, name+"_floor")
	if err != nil {
		return nil, err
	}
	if err := g.Connect(div.OutputSlot(0), floor.InputSlot(0)); err != nil {
		return nil, err
	}
	if !integer {
		return floor, nil
	}

	back, err := g.AddLayer(graph.CastDescriptor{DataType: ta}, name)
	if err != nil {
		return nil, err
	}
	if err := g.Connect(floor.OutputSlot(0), back.InputSlot(0)); err != nil {
		return nil, err
	}
	return back, nil
}

func addCast(g *graph.Graph, in *graph.OutputSlot, dt tensor.DataType, name string) (*graph.OutputSlot, error) {
	l, err := g.AddLayer(graph.CastDescriptor{DataType: dt}, name)
	if err != nil {
		return nil, err
	}
	if err := g.Connect(in, l.InputSlot(0)); err != nil {
		return nil, err
	}
	return l.OutputSlot(0), nil
}
