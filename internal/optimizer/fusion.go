package optimizer

import (
	"slices"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// FuseLayerSequence replaces add -> mul -> add chains, plus an optional
// trailing activation, with a single Fused layer when a candidate backend
// accepts the fused descriptor.
//
// The chain is matched backward from the last add. Every tensor entering the
// chain must have the same element type. The intermediate mul result may only
// feed the last add; the first add result may also leave the chain, in which
// case the Fused layer exposes it as output 0.
type FuseLayerSequence struct{}

// Name implements Pass.
func (FuseLayerSequence) Name() string { return "FuseLayerSequence" }

// Run implements Pass.
func (p FuseLayerSequence) Run(ctx *Context, g *graph.Graph) (*OptimizationViews, error) {
	views := &OptimizationViews{}
	claimed := make(map[graph.LayerID]bool)

	binaries := g.LayersOfType(graph.LayerElementwiseBinary)
	for _, last := range binaries {
		if claimed[last.ID()] || !isBinary(last, graph.BinaryAdd) {
			continue
		}
		chain := matchAddMulAdd(g, last, claimed)
		if chain == nil {
			continue
		}

		var act *graph.ActivationDescriptor
		if next := singleConsumer(g, last.OutputSlot(0)); next != nil && !claimed[next.ID()] {
			if d, ok := next.Descriptor().(graph.ActivationDescriptor); ok && slices.Contains(ctx.fuseActivations(), d.Function) {
				act = &d
				chain = append(chain, next)
			}
		}

		old := graph.NewSubgraphFromLayers(g, chain...)
		if len(old.InputSlots()) != 4 || len(old.OutputSlots()) > 2 {
			continue
		}
		desc := graph.FusedDescriptor{
			Kind:       graph.FusedAddMulAdd,
			Inputs:     len(old.InputSlots()),
			Outputs:    len(old.OutputSlots()),
			Activation: act,
		}

		infos, ok := boundaryInfos(g, old)
		if !ok {
			continue
		}
		supported, id, reason := ctx.Registry.IsLayerTypeSupported(desc, infos, ctx.Candidates)
		if !supported {
			ctx.Logger.Debug("fusion rejected", "pass", p.Name(), "layer", last.DisplayName(), "reason", reason)
			continue
		}

		fused, err := ctx.AddLayer(g, desc, "fused-"+last.DisplayName())
		if err != nil {
			return nil, err
		}
		fused.SetShapeInferenceMethod(last.ShapeInferenceMethod())
		ctx.Logger.Debug("fusing", "pass", p.Name(), "layer", fused.DisplayName(), "backend", id, "layers", len(chain))
		views.AddSubstitution(old, graph.NewSubgraphFromLayers(g, fused))
		for _, l := range chain {
			claimed[l.ID()] = true
		}
	}

	for _, l := range binaries {
		if !claimed[l.ID()] {
			views.AddUntouched(l)
		}
	}
	return views, nil
}

func isBinary(l *graph.Layer, op graph.BinaryOperation) bool {
	d, ok := l.Descriptor().(graph.ElementwiseBinaryDescriptor)
	return ok && d.Operation == op
}

// matchAddMulAdd returns [first add, mul, last] or nil.
func matchAddMulAdd(g *graph.Graph, last *graph.Layer, claimed map[graph.LayerID]bool) []*graph.Layer {
	for i := 0; i < last.NumInputSlots(); i++ {
		mul := g.ProducerLayer(last.InputSlot(i))
		if mul == nil || claimed[mul.ID()] || !isBinary(mul, graph.BinaryMul) {
			continue
		}
		if singleConsumer(g, mul.OutputSlot(0)) != last {
			continue
		}
		for j := 0; j < mul.NumInputSlots(); j++ {
			first := g.ProducerLayer(mul.InputSlot(j))
			if first == nil || first == last || claimed[first.ID()] || !isBinary(first, graph.BinaryAdd) {
				continue
			}
			chain := []*graph.Layer{first, mul, last}
			if sameInputTypes(g, chain) {
				return chain
			}
		}
	}
	return nil
}

// sameInputTypes reports whether every input of every layer has a resolved
// descriptor of one element type.
func sameInputTypes(g *graph.Graph, layers []*graph.Layer) bool {
	var (
		want tensor.DataType
		seen bool
	)
	for _, l := range layers {
		for i := 0; i < l.NumInputSlots(); i++ {
			info, ok := g.InputTensorInfo(l.InputSlot(i))
			if !ok {
				return false
			}
			if !seen {
				want, seen = info.DataType(), true
				continue
			}
			if info.DataType() != want {
				return false
			}
		}
	}
	return true
}

// boundaryInfos resolves the boundary descriptors of sg, inputs then outputs.
func boundaryInfos(g *graph.Graph, sg *graph.Subgraph) ([]tensor.TensorInfo, bool) {
	infos := make([]tensor.TensorInfo, 0, len(sg.InputSlots())+len(sg.OutputSlots()))
	for _, in := range sg.InputSlots() {
		info, ok := g.InputTensorInfo(in)
		if !ok {
			return nil, false
		}
		infos = append(infos, info)
	}
	for _, out := range sg.OutputSlots() {
		if !out.IsTensorInfoSet() {
			return nil, false
		}
		infos = append(infos, out.TensorInfo())
	}
	return infos, true
}
