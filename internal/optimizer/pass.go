package optimizer

import (
	"github.com/born-ml/graphc/internal/graph"
)

// Pass is one graph rewrite. Run inspects g and reports what it wants
// changed; it may add the layers of replacement subgraphs to g but must not
// rewire existing layers. The driver applies the views.
type Pass interface {
	Name() string
	Run(ctx *Context, g *graph.Graph) (*OptimizationViews, error)
}

// DefaultPasses returns the pipeline in the order Optimize runs it. Later
// passes see the graph produced by earlier ones.
func DefaultPasses() []Pass {
	return []Pass{
		FoldPadIntoLayer2d{},
		RemoveReshape{},
		MergeConsecutiveReshapes{},
		FuseLayerSequence{},
		ConvertConstantsFloatToHalf{},
	}
}

// singleConsumer returns the only layer fed by out, or nil.
func singleConsumer(g *graph.Graph, out *graph.OutputSlot) *graph.Layer {
	consumers := g.Consumers(out)
	if len(consumers) != 1 {
		return nil
	}
	return g.Layer(consumers[0].Owner())
}
