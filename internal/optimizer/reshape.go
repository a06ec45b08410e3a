package optimizer

import (
	"github.com/born-ml/graphc/internal/graph"
)

// RemoveReshape deletes Reshape layers that sit between two operators. The
// consumers receive the reshaped descriptor as an input override so they
// keep seeing the same tensor. Reshapes fed by an Input or Constant layer,
// or feeding an Output layer, are kept.
type RemoveReshape struct{}

// Name implements Pass.
func (RemoveReshape) Name() string { return "RemoveReshape" }

// Run implements Pass.
func (p RemoveReshape) Run(ctx *Context, g *graph.Graph) (*OptimizationViews, error) {
	views := &OptimizationViews{}
	for _, l := range g.LayersOfType(graph.LayerReshape) {
		if !removable(g, l) {
			views.AddUntouched(l)
			continue
		}
		info := l.OutputSlot(0).TensorInfo()
		ctx.Logger.Debug("removing reshape", "pass", p.Name(), "layer", l.DisplayName(), "shape", info.Shape())
		views.AddDeletion(l, &info)
	}
	return views, nil
}

func removable(g *graph.Graph, l *graph.Layer) bool {
	producer := g.ProducerLayer(l.InputSlot(0))
	if producer == nil || producer.Type() == graph.LayerInput || producer.Type() == graph.LayerConstant {
		return false
	}
	if !l.OutputSlot(0).IsTensorInfoSet() {
		return false
	}
	consumers := g.Consumers(l.OutputSlot(0))
	if len(consumers) == 0 {
		return false
	}
	for _, in := range consumers {
		if g.Layer(in.Owner()).Type() == graph.LayerOutput {
			return false
		}
	}
	return true
}

// MergeConsecutiveReshapes collapses a Reshape whose only consumer is
// another Reshape into a single Reshape to the second target.
type MergeConsecutiveReshapes struct{}

// Name implements Pass.
func (MergeConsecutiveReshapes) Name() string { return "MergeConsecutiveReshapes" }

// Run implements Pass.
func (p MergeConsecutiveReshapes) Run(ctx *Context, g *graph.Graph) (*OptimizationViews, error) {
	views := &OptimizationViews{}
	claimed := make(map[graph.LayerID]bool)
	for _, first := range g.LayersOfType(graph.LayerReshape) {
		if claimed[first.ID()] {
			continue
		}
		second := singleConsumer(g, first.OutputSlot(0))
		if second == nil || second.Type() != graph.LayerReshape || claimed[second.ID()] {
			views.AddUntouched(first)
			claimed[first.ID()] = true
			continue
		}

		l, err := ctx.AddLayer(g, second.Descriptor(), second.DisplayName())
		if err != nil {
			return nil, err
		}
		l.SetShapeInferenceMethod(second.ShapeInferenceMethod())
		ctx.Logger.Debug("merging reshapes", "pass", p.Name(), "first", first.DisplayName(), "second", second.DisplayName())
		views.AddSubstitution(graph.NewSubgraphFromLayers(g, first, second), graph.NewSubgraphFromLayers(g, l))
		claimed[first.ID()] = true
		claimed[second.ID()] = true
	}
	return views, nil
}
