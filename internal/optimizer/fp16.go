package optimizer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// ConvertConstantsFloatToHalf stores Float32 constants as Float16 followed
// by a Cast back to Float32, halving their size without changing the type
// their consumers see. It only runs with Options.ReduceFp32ToFp16.
type ConvertConstantsFloatToHalf struct{}

// Name implements Pass.
func (ConvertConstantsFloatToHalf) Name() string { return "ConvertConstantsFloatToHalf" }

// Run implements Pass.
func (p ConvertConstantsFloatToHalf) Run(ctx *Context, g *graph.Graph) (*OptimizationViews, error) {
	views := &OptimizationViews{}
	for _, l := range g.LayersOfType(graph.LayerConstant) {
		d := l.Descriptor().(graph.ConstantDescriptor)
		if !ctx.Options.ReduceFp32ToFp16 || d.Tensor.Info().DataType() != tensor.Float32 {
			views.AddUntouched(l)
			continue
		}

		half, err := toHalf(d.Tensor)
		if err != nil {
			return nil, fmt.Errorf("%s: constant %q: %w", p.Name(), l.DisplayName(), err)
		}
		constant, err := ctx.AddLayer(g, graph.ConstantDescriptor{Tensor: half}, l.DisplayName()+"-fp16")
		if err != nil {
			return nil, err
		}
		constant.OutputSlot(0).SetTensorInfo(half.Info())
		cast, err := ctx.AddLayer(g, graph.CastDescriptor{DataType: tensor.Float32}, l.DisplayName()+"-fp32")
		if err != nil {
			return nil, err
		}
		if err := g.Connect(constant.OutputSlot(0), cast.InputSlot(0)); err != nil {
			return nil, err
		}

		ctx.Logger.Debug("converting constant", "pass", p.Name(), "layer", l.DisplayName(), "bytes", len(half.Data()))
		views.AddSubstitution(graph.NewSubgraphFromLayers(g, l), graph.NewSubgraphFromLayers(g, constant, cast))
	}
	return views, nil
}

// toHalf converts little-endian float32 data to float16.
func toHalf(t tensor.ConstTensor) (tensor.ConstTensor, error) {
	src := t.Data()
	dst := make([]byte, len(src)/2)
	for i := 0; i+4 <= len(src); i += 4 {
		f := math.Float32frombits(binary.LittleEndian.Uint32(src[i:]))
		binary.LittleEndian.PutUint16(dst[i/2:], float16.Fromfloat32(f).Bits())
	}
	return tensor.NewConstTensor(t.Info().WithDataType(tensor.Float16), dst)
}
