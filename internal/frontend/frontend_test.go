package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/infer"
	"github.com/born-ml/graphc/internal/tensor"
)

func input(t *testing.T, g *graph.Graph, binding int, dt tensor.DataType, dims ...int) *graph.Layer {
	t.Helper()
	l, err := g.AddInputLayer(binding, "")
	require.NoError(t, err)
	l.OutputSlot(0).SetTensorInfo(tensor.NewTensorInfo(tensor.NewShape(dims...), dt))
	return l
}

func TestAlignRanksReshapesLowerRank(t *testing.T) {
	g := graph.New()
	a := input(t, g, 0, tensor.Float32, 2, 3, 4)
	b := input(t, g, 1, tensor.Float32, 4)

	ra, rb, err := AlignRanks(g, a.OutputSlot(0), b.OutputSlot(0))
	require.NoError(t, err)
	assert.Same(t, a.OutputSlot(0), ra)

	reshape := g.Layer(rb.Owner())
	require.Equal(t, graph.LayerReshape, reshape.Type())
	target := reshape.Descriptor().(graph.ReshapeDescriptor).TargetShape
	assert.True(t, target.Equal(tensor.NewShape(1, 1, 4)), "got %v", target)
	assert.Same(t, b, g.ProducerLayer(reshape.InputSlot(0)))
}

func TestAlignRanksEqualRanks(t *testing.T) {
	g := graph.New()
	a := input(t, g, 0, tensor.Float32, 2, 2)
	b := input(t, g, 1, tensor.Float32, 1, 2)

	ra, rb, err := AlignRanks(g, a.OutputSlot(0), b.OutputSlot(0))
	require.NoError(t, err)
	assert.Same(t, a.OutputSlot(0), ra)
	assert.Same(t, b.OutputSlot(0), rb)
	assert.Equal(t, 2, g.CountLayers())
}

func TestAlignRanksNeedsDescriptors(t *testing.T) {
	g := graph.New()
	a, err := g.AddInputLayer(0, "a")
	require.NoError(t, err)
	b := input(t, g, 1, tensor.Float32, 2)

	_, _, err = AlignRanks(g, a.OutputSlot(0), b.OutputSlot(0))
	assert.ErrorIs(t, err, graph.ErrUnresolvedShape)
}

func TestAddFloorDivFloat(t *testing.T) {
	g := graph.New()
	a := input(t, g, 0, tensor.Float32, 4)
	b := input(t, g, 1, tensor.Float32, 4)

	last, err := AddFloorDiv(g, a.OutputSlot(0), b.OutputSlot(0), "fdiv")
	require.NoError(t, err)
	assert.Equal(t, graph.LayerElementwiseUnary, last.Type())
	assert.Empty(t, g.LayersOfType(graph.LayerCast))

	div := g.ProducerLayer(last.InputSlot(0))
	require.NotNil(t, div)
	assert.Equal(t, graph.BinaryDiv, div.Descriptor().(graph.ElementwiseBinaryDescriptor).Operation)
}

func TestAddFloorDivSignedInteger(t *testing.T) {
	g := graph.New()
	a := input(t, g, 0, tensor.Signed32, 2, 4)
	b := input(t, g, 1, tensor.Signed32, 4)

	last, err := AddFloorDiv(g, a.OutputSlot(0), b.OutputSlot(0), "fdiv")
	require.NoError(t, err)
	assert.Equal(t, "fdiv", last.Name())
	assert.Equal(t, tensor.Signed32, last.Descriptor().(graph.CastDescriptor).DataType)
	assert.Len(t, g.LayersOfType(graph.LayerCast), 3)
	assert.Len(t, g.LayersOfType(graph.LayerReshape), 1)

	out, err := g.AddOutputLayer(0, "out")
	require.NoError(t, err)
	require.NoError(t, g.Connect(last.OutputSlot(0), out.InputSlot(0)))
	require.NoError(t, infer.InferTensorInfos(g))

	info := last.OutputSlot(0).TensorInfo()
	assert.Equal(t, tensor.Signed32, info.DataType())
	assert.True(t, info.Shape().Equal(tensor.NewShape(2, 4)))

	div := g.LayersOfType(graph.LayerElementwiseBinary)[0]
	assert.Equal(t, tensor.Float32, div.OutputSlot(0).TensorInfo().DataType())
}
