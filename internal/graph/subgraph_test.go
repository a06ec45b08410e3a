package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphc/internal/tensor"
)

func conv2d(bias bool) Convolution2dDescriptor {
	return Convolution2dDescriptor{StrideX: 1, StrideY: 1, DilationX: 1, DilationY: 1, BiasEnabled: bias}
}

func TestSubgraphBoundary(t *testing.T) {
	g := New()
	in, err := g.AddInputLayer(0, "in")
	require.NoError(t, err)
	w, err := g.AddInputLayer(1, "w")
	require.NoError(t, err)
	pad := mustAdd(t, g, PadDescriptor{PadList: [][2]int{{0, 0}, {0, 0}, {1, 1}, {1, 1}}}, "pad")
	conv := mustAdd(t, g, conv2d(false), "conv")
	out, err := g.AddOutputLayer(0, "out")
	require.NoError(t, err)

	mustConnect(t, g, in, 0, pad, 0)
	mustConnect(t, g, pad, 0, conv, 0)
	mustConnect(t, g, w, 0, conv, 1)
	mustConnect(t, g, conv, 0, out, 0)

	sg := NewSubgraphFromLayers(g, pad, conv)
	require.Len(t, sg.InputSlots(), 2)
	assert.Equal(t, pad.InputSlot(0), sg.InputSlots()[0])
	assert.Equal(t, conv.InputSlot(1), sg.InputSlots()[1])
	require.Len(t, sg.OutputSlots(), 1)
	assert.Equal(t, conv.OutputSlot(0), sg.OutputSlots()[0])
	assert.True(t, sg.Contains(pad))
	assert.False(t, sg.Contains(in))
}

func TestSubstituteSubgraph(t *testing.T) {
	g := New()
	in, err := g.AddInputLayer(0, "in")
	require.NoError(t, err)
	w, err := g.AddInputLayer(1, "w")
	require.NoError(t, err)
	pad := mustAdd(t, g, PadDescriptor{PadList: [][2]int{{0, 0}, {0, 0}, {1, 1}, {1, 1}}}, "pad")
	conv := mustAdd(t, g, conv2d(false), "conv")
	out, err := g.AddOutputLayer(0, "out")
	require.NoError(t, err)

	mustConnect(t, g, in, 0, pad, 0)
	mustConnect(t, g, pad, 0, conv, 0)
	mustConnect(t, g, w, 0, conv, 1)
	mustConnect(t, g, conv, 0, out, 0)
	conv.OutputSlot(0).SetTensorInfo(tensor.NewTensorInfo(tensor.NewShape(1, 1, 4, 4), tensor.Float32))

	folded := mustAdd(t, g, conv2d(false).WithPadding(Padding2d{Top: 1, Bottom: 1, Left: 1, Right: 1}), "conv")
	old := NewSubgraphFromLayers(g, pad, conv)
	repl := NewSubgraphFromLayers(g, folded)

	require.NoError(t, g.SubstituteSubgraph(old, repl))

	assert.Equal(t, 4, g.CountLayers())
	assert.Nil(t, g.Layer(pad.ID()))
	assert.Nil(t, g.Layer(conv.ID()))
	assert.Equal(t, in, g.ProducerLayer(folded.InputSlot(0)))
	assert.Equal(t, w, g.ProducerLayer(folded.InputSlot(1)))
	assert.Equal(t, folded, g.ProducerLayer(out.InputSlot(0)))
	assert.True(t, folded.OutputSlot(0).IsTensorInfoSet())

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Len(t, order, 4)
}

func TestSubstituteSubgraphKeepsInputOverride(t *testing.T) {
	g, in, relu, out := buildChain(t)
	in.OutputSlot(0).SetTensorInfo(tensor.NewTensorInfo(tensor.NewShape(2, 3), tensor.Float32))
	reshaped := tensor.NewTensorInfo(tensor.NewShape(6), tensor.Float32)
	relu.InputSlot(0).SetTensorInfo(reshaped)

	abs := mustAdd(t, g, ActivationDescriptor{Function: ActivationAbs}, "abs")
	require.NoError(t, g.SubstituteSubgraph(NewSubgraphFromLayers(g, relu), NewSubgraphFromLayers(g, abs)))

	assert.Equal(t, in, g.ProducerLayer(abs.InputSlot(0)))
	assert.Equal(t, abs, g.ProducerLayer(out.InputSlot(0)))
	got, ok := g.InputTensorInfo(abs.InputSlot(0))
	require.True(t, ok)
	assert.True(t, got.Shape().Equal(tensor.NewShape(6)), "got %v", got.Shape())
}

func TestSubstituteSubgraphMismatch(t *testing.T) {
	g, _, relu, _ := buildChain(t)
	add := mustAdd(t, g, ElementwiseBinaryDescriptor{Operation: BinaryAdd}, "add")

	err := g.SubstituteSubgraph(NewSubgraphFromLayers(g, relu), NewSubgraphFromLayers(g, add))
	assert.ErrorIs(t, err, ErrSubstitutionMismatch)
	assert.ErrorIs(t, err, ErrGraphStructure)

	// Nothing was rewired.
	assert.Equal(t, 4, g.CountLayers())
	assert.NotNil(t, g.ProducerLayer(relu.InputSlot(0)))
}

func TestBypass(t *testing.T) {
	g, in, relu, out := buildChain(t)
	second := mustAdd(t, g, ActivationDescriptor{Function: ActivationAbs}, "abs")
	mustConnect(t, g, relu, 0, second, 0)

	require.NoError(t, g.Bypass(relu))

	assert.Nil(t, g.Layer(relu.ID()))
	assert.Equal(t, in, g.ProducerLayer(out.InputSlot(0)))
	assert.Equal(t, in, g.ProducerLayer(second.InputSlot(0)))
	assert.Equal(t, 2, in.OutputSlot(0).NumConnections())
}
