package optimizer

import (
	"fmt"
	"math"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// padFoldable is the set of descriptors a Pad layer can be folded into.
// Convolution3d is not foldable.
type padFoldable[D any] interface {
	graph.Convolution2dDescriptor | graph.DepthwiseConvolution2dDescriptor | graph.Pooling2dDescriptor
	graph.Descriptor
	Padding() graph.Padding2d
	WithPadding(graph.Padding2d) D
	Layout() graph.DataLayout
}

// FoldPadIntoLayer2d merges a constant Pad into the explicit padding of the
// 2D convolution or pooling layer it feeds.
type FoldPadIntoLayer2d struct{}

// Name implements Pass.
func (FoldPadIntoLayer2d) Name() string { return "FoldPadIntoLayer2d" }

// Run implements Pass.
func (p FoldPadIntoLayer2d) Run(ctx *Context, g *graph.Graph) (*OptimizationViews, error) {
	views := &OptimizationViews{}
	for _, pad := range g.LayersOfType(graph.LayerPad) {
		target := singleConsumer(g, pad.OutputSlot(0))
		if target == nil {
			views.AddUntouched(pad)
			continue
		}

		var (
			old, repl *graph.Subgraph
			err       error
		)
		switch d := target.Descriptor().(type) {
		case graph.Convolution2dDescriptor:
			old, repl, err = foldPad(ctx, g, pad, target, d, zeroElement)
		case graph.DepthwiseConvolution2dDescriptor:
			old, repl, err = foldPad(ctx, g, pad, target, d, zeroElement)
		case graph.Pooling2dDescriptor:
			old, repl, err = foldPadIntoPooling(ctx, g, pad, target, d)
		}
		if err != nil {
			return nil, err
		}
		if old == nil {
			views.AddUntouched(pad)
			continue
		}
		ctx.Logger.Debug("folding pad", "pass", p.Name(), "pad", pad.DisplayName(), "into", target.DisplayName())
		views.AddSubstitution(old, repl)
	}
	return views, nil
}

// spatialPadding extracts the height/width amounts of a 4D pad list. It
// fails when the batch or channel dimension is padded.
func spatialPadding(desc graph.PadDescriptor, layout graph.DataLayout) (graph.Padding2d, bool) {
	if len(desc.PadList) != 4 || desc.Mode != graph.PadConstant {
		return graph.Padding2d{}, false
	}
	c, h, w := 1, 2, 3
	if layout == graph.NHWC {
		c, h, w = 3, 1, 2
	}
	if desc.PadList[0] != [2]int{} || desc.PadList[c] != [2]int{} {
		return graph.Padding2d{}, false
	}
	return graph.Padding2d{
		Top:    desc.PadList[h][0],
		Bottom: desc.PadList[h][1],
		Left:   desc.PadList[w][0],
		Right:  desc.PadList[w][1],
	}, true
}

// zeroElement reports whether v is the real zero of info: the quantization
// offset for quantized types, 0 otherwise.
func zeroElement(info tensor.TensorInfo, v float32) bool {
	if info.DataType().IsQuantized() {
		return v == float32(info.Quantization().Offset)
	}
	return v == 0
}

// lowestElement reports whether v is at or below the smallest value of
// info's type, so padding with it never wins a max reduction.
func lowestElement(info tensor.TensorInfo, v float32) bool {
	switch info.DataType() {
	case tensor.QAsymmU8:
		return v <= 0
	case tensor.QAsymmS8, tensor.QSymmS8:
		return v <= math.MinInt8
	case tensor.QSymmS16:
		return v <= math.MinInt16
	case tensor.Signed32, tensor.Signed64:
		return v <= math.MinInt32
	default:
		return math.IsInf(float64(v), -1) || v <= -math.MaxFloat32
	}
}

// foldPad builds the substitution {pad, target} -> {target'} when the pad
// value is neutral for target and the pad only touches spatial dimensions.
func foldPad[D padFoldable[D]](ctx *Context, g *graph.Graph, pad, target *graph.Layer, desc D,
	neutral func(tensor.TensorInfo, float32) bool) (*graph.Subgraph, *graph.Subgraph, error) {
	padDesc := pad.Descriptor().(graph.PadDescriptor)
	if target.InputSlot(0) != g.Consumers(pad.OutputSlot(0))[0] {
		// Padded weights.
		return nil, nil, nil
	}
	amounts, ok := spatialPadding(padDesc, desc.Layout())
	if !ok {
		return nil, nil, nil
	}
	info, ok := g.InputTensorInfo(pad.InputSlot(0))
	if !ok || !neutral(info, padDesc.PadValue) {
		return nil, nil, nil
	}

	folded := desc.WithPadding(desc.Padding().Add(amounts))
	l, err := ctx.AddLayer(g, folded, fmt.Sprintf("folded-%s-into-%s", pad.DisplayName(), target.DisplayName()))
	if err != nil {
		return nil, nil, err
	}
	l.SetShapeInferenceMethod(target.ShapeInferenceMethod())
	return graph.NewSubgraphFromLayers(g, pad, target), graph.NewSubgraphFromLayers(g, l), nil
}

func foldPadIntoPooling(ctx *Context, g *graph.Graph, pad, target *graph.Layer, desc graph.Pooling2dDescriptor) (*graph.Subgraph, *graph.Subgraph, error) {
	switch desc.PoolType {
	case graph.PoolMax:
		return foldPad(ctx, g, pad, target, desc, lowestElement)
	case graph.PoolAverage:
		// Existing Exclude padding would change meaning under IgnoreValue.
		if desc.PaddingMethod == graph.PaddingExclude && desc.Padding() != (graph.Padding2d{}) {
			return nil, nil, nil
		}
		desc.PaddingMethod = graph.PaddingIgnoreValue
		return foldPad(ctx, g, pad, target, desc, zeroElement)
	default:
		return nil, nil, nil
	}
}
