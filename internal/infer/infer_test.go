package infer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

func f32(dims ...int) tensor.TensorInfo {
	return tensor.NewTensorInfo(tensor.NewShape(dims...), tensor.Float32)
}

// single builds input -> layer -> output with the input descriptor set.
func single(t *testing.T, method graph.ShapeInferenceMethod, desc graph.Descriptor, in tensor.TensorInfo) (*graph.Graph, *graph.Layer) {
	t.Helper()
	g := graph.New()
	g.SetShapeInferenceMethod(method)
	input, err := g.AddInputLayer(0, "input")
	require.NoError(t, err)
	input.OutputSlot(0).SetTensorInfo(in)
	l, err := g.AddLayer(desc, "layer")
	require.NoError(t, err)
	out, err := g.AddOutputLayer(0, "output")
	require.NoError(t, err)
	require.NoError(t, g.Connect(input.OutputSlot(0), l.InputSlot(0)))
	require.NoError(t, g.Connect(l.OutputSlot(0), out.InputSlot(0)))
	return g, l
}

func TestAbsInferAndValidate(t *testing.T) {
	g, abs := single(t, graph.InferAndValidate,
		graph.ActivationDescriptor{Function: graph.ActivationAbs}, f32(5, 7, 6, 2))

	require.NoError(t, ValidateTensorShapesFromInputs(g, abs))
	got := abs.OutputSlot(0).TensorInfo()
	assert.True(t, got.Shape().Equal(tensor.NewShape(5, 7, 6, 2)), "got %v", got.Shape())
	assert.Equal(t, tensor.Float32, got.DataType())
}

func TestAbsValidateOnlyRejectsUnspecifiedOutput(t *testing.T) {
	g, abs := single(t, graph.ValidateOnly,
		graph.ActivationDescriptor{Function: graph.ActivationAbs}, f32(5, 7, 6, 2))
	abs.OutputSlot(0).SetTensorInfo(tensor.NewTensorInfo(tensor.UnknownRank(), tensor.Float32))

	err := ValidateTensorShapesFromInputs(g, abs)
	require.Error(t, err)
	var lve *graph.LayerValidationError
	require.True(t, errors.As(err, &lve))
	assert.Equal(t, "layer", lve.Layer)
	assert.ErrorIs(t, err, graph.ErrShapeMismatch)
}

func TestValidateOnlyAcceptsMatchingOutput(t *testing.T) {
	g, abs := single(t, graph.ValidateOnly,
		graph.ActivationDescriptor{Function: graph.ActivationAbs}, f32(5, 7, 6, 2))
	abs.OutputSlot(0).SetTensorInfo(f32(5, 7, 6, 2))
	assert.NoError(t, ValidateTensorShapesFromInputs(g, abs))
}

func TestValidateOnlyRejectsUnspecifiedInput(t *testing.T) {
	g, abs := single(t, graph.ValidateOnly,
		graph.ActivationDescriptor{Function: graph.ActivationAbs},
		tensor.NewTensorInfo(tensor.UnknownRank(), tensor.Float32))
	abs.OutputSlot(0).SetTensorInfo(f32(5, 7, 6, 2))

	err := ValidateTensorShapesFromInputs(g, abs)
	assert.ErrorIs(t, err, graph.ErrUnresolvedShape)
}

func TestInferAndValidateConflict(t *testing.T) {
	g, abs := single(t, graph.InferAndValidate,
		graph.ActivationDescriptor{Function: graph.ActivationAbs}, f32(5, 7, 6, 2))
	abs.OutputSlot(0).SetTensorInfo(f32(5, 7, 6, 3))

	err := ValidateTensorShapesFromInputs(g, abs)
	var lve *graph.LayerValidationError
	require.True(t, errors.As(err, &lve))
	assert.ErrorIs(t, err, graph.ErrShapeMismatch)
}

func TestInferAndValidateFillsUnknownDims(t *testing.T) {
	g, abs := single(t, graph.InferAndValidate,
		graph.ActivationDescriptor{Function: graph.ActivationAbs}, f32(5, 7, 6, 2))
	partial := tensor.NewPartialShape([]int{5, 0, 6, 0}, []bool{true, false, true, false})
	abs.OutputSlot(0).SetTensorInfo(tensor.NewTensorInfo(partial, tensor.Float32))

	require.NoError(t, ValidateTensorShapesFromInputs(g, abs))
	assert.True(t, abs.OutputSlot(0).TensorInfo().Shape().Equal(tensor.NewShape(5, 7, 6, 2)))
}

func TestValidateIsIdempotent(t *testing.T) {
	descs := []graph.Descriptor{
		graph.ActivationDescriptor{Function: graph.ActivationReLu},
		graph.SoftmaxDescriptor{Beta: 1, Axis: -1},
		graph.MeanDescriptor{Axes: []int{1}},
		graph.PadDescriptor{PadList: [][2]int{{0, 0}, {1, 2}, {0, 0}, {3, 3}}},
		graph.Pooling2dDescriptor{PoolWidth: 2, PoolHeight: 2, StrideX: 2, StrideY: 2},
		graph.ReshapeDescriptor{TargetShape: tensor.NewShape(2, 42)},
		graph.RankDescriptor{},
	}
	for _, desc := range descs {
		t.Run(desc.Type().String(), func(t *testing.T) {
			g, l := single(t, graph.InferAndValidate, desc, f32(1, 7, 6, 2))
			require.NoError(t, ValidateTensorShapesFromInputs(g, l))
			first := l.OutputSlot(0).TensorInfo()
			require.NoError(t, ValidateTensorShapesFromInputs(g, l))
			second := l.OutputSlot(0).TensorInfo()
			assert.True(t, first.Equal(second), "%v != %v", first, second)
		})
	}
}

func TestConvolution2dDilation(t *testing.T) {
	desc := graph.Convolution2dDescriptor{StrideX: 1, StrideY: 1, DilationX: 3, DilationY: 3}
	shapes, err := OutputShapes(desc, []tensor.Shape{tensor.NewShape(1, 1, 10, 10), tensor.NewShape(1, 1, 3, 3)})
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.Equal(t, []int{1, 1, 4, 4}, shapes[0].Dims())
}

func TestConvolution2dNHWC(t *testing.T) {
	desc := graph.Convolution2dDescriptor{
		PadTop: 1, PadBottom: 1, PadLeft: 1, PadRight: 1,
		StrideX: 2, StrideY: 2, DilationX: 1, DilationY: 1,
		DataLayout: graph.NHWC,
	}
	// Weights [O, H, W, I].
	shapes, err := OutputShapes(desc, []tensor.Shape{tensor.NewShape(2, 8, 8, 3), tensor.NewShape(16, 3, 3, 3)})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 4, 16}, shapes[0].Dims())
}

func TestDepthwiseConvolution2d(t *testing.T) {
	desc := graph.DepthwiseConvolution2dDescriptor{StrideX: 1, StrideY: 1, DilationX: 1, DilationY: 1}
	shapes, err := OutputShapes(desc, []tensor.Shape{tensor.NewShape(1, 4, 5, 5), tensor.NewShape(1, 3, 3, 8)})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 8, 3, 3}, shapes[0].Dims())
}

func TestConvolution3d(t *testing.T) {
	desc := graph.Convolution3dDescriptor{
		StrideX: 1, StrideY: 1, StrideZ: 1, DilationX: 1, DilationY: 1, DilationZ: 1,
		DataLayout: graph.NDHWC,
	}
	shapes, err := OutputShapes(desc, []tensor.Shape{tensor.NewShape(1, 5, 6, 7, 3), tensor.NewShape(2, 3, 3, 3, 4)})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 4, 5, 4}, shapes[0].Dims())
}

func TestStack(t *testing.T) {
	t.Run("scalars on axis 0", func(t *testing.T) {
		desc := graph.StackDescriptor{Axis: 0, Inputs: 3, InputShape: tensor.ScalarShape()}
		in := []tensor.Shape{tensor.ScalarShape(), tensor.ScalarShape(), tensor.ScalarShape()}
		shapes, err := OutputShapes(desc, in)
		require.NoError(t, err)
		assert.Equal(t, []int{3}, shapes[0].Dims())
	})

	t.Run("vectors on axis 1", func(t *testing.T) {
		desc := graph.StackDescriptor{Axis: 1, Inputs: 3, InputShape: tensor.NewShape(2)}
		in := []tensor.Shape{tensor.NewShape(2), tensor.NewShape(2), tensor.NewShape(2)}
		shapes, err := OutputShapes(desc, in)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, shapes[0].Dims())
	})

	t.Run("vectors on axis 0", func(t *testing.T) {
		desc := graph.StackDescriptor{Axis: 0, Inputs: 2, InputShape: tensor.NewShape(2)}
		shapes, err := OutputShapes(desc, []tensor.Shape{tensor.NewShape(2), tensor.NewShape(2)})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2}, shapes[0].Dims())
	})

	t.Run("input disagrees with descriptor", func(t *testing.T) {
		desc := graph.StackDescriptor{Axis: 0, Inputs: 2, InputShape: tensor.NewShape(2)}
		_, err := OutputShapes(desc, []tensor.Shape{tensor.NewShape(2), tensor.NewShape(3)})
		assert.ErrorIs(t, err, graph.ErrShapeMismatch)
	})
}

func TestMean(t *testing.T) {
	in := tensor.NewShape(2, 3, 4)
	tests := []struct {
		name string
		desc graph.MeanDescriptor
		want []int
	}{
		{"one axis", graph.MeanDescriptor{Axes: []int{1}}, []int{2, 4}},
		{"keep dims", graph.MeanDescriptor{Axes: []int{0, 2}, KeepDims: true}, []int{1, 3, 1}},
		{"all axes", graph.MeanDescriptor{}, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shapes, err := OutputShapes(tt.desc, []tensor.Shape{in})
			require.NoError(t, err)
			assert.Equal(t, tt.want, shapes[0].Dims())
		})
	}

	_, err := OutputShapes(graph.MeanDescriptor{Axes: []int{3}}, []tensor.Shape{in})
	assert.ErrorIs(t, err, graph.ErrInvalidParameter)
}

func TestPooling2dRounding(t *testing.T) {
	desc := graph.Pooling2dDescriptor{PoolWidth: 2, PoolHeight: 2, StrideX: 2, StrideY: 2}
	in := []tensor.Shape{tensor.NewShape(1, 3, 5, 5)}

	shapes, err := OutputShapes(desc, in)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 2, 2}, shapes[0].Dims())

	desc.Rounding = graph.RoundCeiling
	shapes, err = OutputShapes(desc, in)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 3, 3}, shapes[0].Dims())
}

func TestElementwiseBinaryBroadcast(t *testing.T) {
	desc := graph.ElementwiseBinaryDescriptor{Operation: graph.BinaryAdd}

	shapes, err := OutputShapes(desc, []tensor.Shape{tensor.NewShape(3, 1), tensor.NewShape(2, 1, 5)})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 5}, shapes[0].Dims())

	partial := tensor.NewPartialShape([]int{0, 4}, []bool{false, true})
	shapes, err = OutputShapes(desc, []tensor.Shape{partial, tensor.NewShape(1, 4)})
	require.NoError(t, err)
	assert.False(t, shapes[0].IsDimSpecified(0))
	assert.Equal(t, 4, shapes[0].Dim(1))

	_, err = OutputShapes(desc, []tensor.Shape{tensor.NewShape(3, 4), tensor.NewShape(3, 5)})
	assert.ErrorIs(t, err, graph.ErrShapeMismatch)
}

func TestConcatAndSplitter(t *testing.T) {
	concat := graph.ConcatDescriptor{Axis: 1, Inputs: 2}
	shapes, err := OutputShapes(concat, []tensor.Shape{tensor.NewShape(2, 3), tensor.NewShape(2, 5)})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 8}, shapes[0].Dims())

	_, err = OutputShapes(concat, []tensor.Shape{tensor.NewShape(2, 3), tensor.NewShape(4, 5)})
	assert.ErrorIs(t, err, graph.ErrShapeMismatch)

	split := graph.SplitterDescriptor{Axis: 1, Sizes: []int{3, 5}}
	shapes, err = OutputShapes(split, []tensor.Shape{tensor.NewShape(2, 8)})
	require.NoError(t, err)
	got := [][]int{shapes[0].Dims(), shapes[1].Dims()}
	if diff := cmp.Diff([][]int{{2, 3}, {2, 5}}, got); diff != "" {
		t.Errorf("splitter shapes mismatch (-want +got):\n%s", diff)
	}

	_, err = OutputShapes(split, []tensor.Shape{tensor.NewShape(2, 9)})
	assert.ErrorIs(t, err, graph.ErrShapeMismatch)
}

func TestReshapeElementCount(t *testing.T) {
	desc := graph.ReshapeDescriptor{TargetShape: tensor.NewShape(4, 6)}
	_, err := OutputShapes(desc, []tensor.Shape{tensor.NewShape(2, 3, 4)})
	require.NoError(t, err)

	_, err = OutputShapes(desc, []tensor.Shape{tensor.NewShape(5, 5)})
	assert.ErrorIs(t, err, graph.ErrShapeMismatch)
}

func TestFullyConnected(t *testing.T) {
	desc := graph.FullyConnectedDescriptor{TransposeWeightMatrix: true}
	shapes, err := OutputShapes(desc, []tensor.Shape{tensor.NewShape(8, 16), tensor.NewShape(10, 16)})
	require.NoError(t, err)
	assert.Equal(t, []int{8, 10}, shapes[0].Dims())
}

func TestRankIsScalar(t *testing.T) {
	g, rank := single(t, graph.InferAndValidate, graph.RankDescriptor{}, f32(2, 3))
	require.NoError(t, ValidateTensorShapesFromInputs(g, rank))
	info := rank.OutputSlot(0).TensorInfo()
	assert.Equal(t, tensor.Scalar, info.Shape().Dimensionality())
	assert.Equal(t, tensor.Signed32, info.DataType())
}

func TestDataTypePropagation(t *testing.T) {
	g, cast := single(t, graph.InferAndValidate, graph.CastDescriptor{DataType: tensor.Signed32}, f32(4))
	require.NoError(t, ValidateTensorShapesFromInputs(g, cast))
	assert.Equal(t, tensor.Signed32, cast.OutputSlot(0).TensorInfo().DataType())

	q := graph.QuantizeDescriptor{DataType: tensor.QAsymmU8, Scale: 0.5, Offset: 3}
	g, quant := single(t, graph.InferAndValidate, q, f32(4))
	require.NoError(t, ValidateTensorShapesFromInputs(g, quant))
	info := quant.OutputSlot(0).TensorInfo()
	assert.Equal(t, tensor.QAsymmU8, info.DataType())
	assert.Equal(t, float32(0.5), info.Quantization().Scale)
}

func TestInferTensorInfosWalksGraph(t *testing.T) {
	g := graph.New()
	in, err := g.AddInputLayer(0, "in")
	require.NoError(t, err)
	in.OutputSlot(0).SetTensorInfo(f32(1, 2, 8, 8))
	pad, err := g.AddLayer(graph.PadDescriptor{PadList: [][2]int{{0, 0}, {0, 0}, {1, 1}, {1, 1}}}, "pad")
	require.NoError(t, err)
	pool, err := g.AddLayer(graph.Pooling2dDescriptor{PoolType: graph.PoolMax, PoolWidth: 2, PoolHeight: 2, StrideX: 2, StrideY: 2}, "pool")
	require.NoError(t, err)
	out, err := g.AddOutputLayer(0, "out")
	require.NoError(t, err)
	require.NoError(t, g.Connect(in.OutputSlot(0), pad.InputSlot(0)))
	require.NoError(t, g.Connect(pad.OutputSlot(0), pool.InputSlot(0)))
	require.NoError(t, g.Connect(pool.OutputSlot(0), out.InputSlot(0)))

	require.NoError(t, InferTensorInfos(g))
	assert.Equal(t, []int{1, 2, 10, 10}, pad.OutputSlot(0).TensorInfo().Shape().Dims())
	assert.Equal(t, []int{1, 2, 5, 5}, pool.OutputSlot(0).TensorInfo().Shape().Dims())
}

func TestInputLayerMustBeSet(t *testing.T) {
	g := graph.New()
	in, err := g.AddInputLayer(0, "in")
	require.NoError(t, err)
	err = ValidateTensorShapesFromInputs(g, in)
	assert.ErrorIs(t, err, graph.ErrUnresolvedShape)
}
