package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/graphc/internal/backend"
	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

func info(dt tensor.DataType, dims ...int) tensor.TensorInfo {
	return tensor.NewTensorInfo(tensor.NewShape(dims...), dt)
}

func TestBackendID(t *testing.T) {
	b := New()
	if b.ID() != backend.CpuRef {
		t.Errorf("Expected id CpuRef, got %s", b.ID())
	}
	if b.LayerSupport() == nil {
		t.Fatal("LayerSupport() returned nil")
	}
}

func TestConvolution2dSupport(t *testing.T) {
	ls := New().LayerSupport()
	desc := graph.Convolution2dDescriptor{StrideX: 1, StrideY: 1, DilationX: 1, DilationY: 1, BiasEnabled: true}

	tests := []struct {
		name    string
		input   tensor.TensorInfo
		weights tensor.TensorInfo
		biases  tensor.TensorInfo
		output  tensor.TensorInfo
		want    bool
	}{
		{
			name:    "float32",
			input:   info(tensor.Float32, 1, 1, 4, 4),
			weights: info(tensor.Float32, 1, 1, 3, 3),
			biases:  info(tensor.Float32, 1),
			output:  info(tensor.Float32, 1, 1, 2, 2),
			want:    true,
		},
		{
			name:    "quantized",
			input:   info(tensor.QAsymmU8, 1, 1, 4, 4),
			weights: info(tensor.QSymmS8, 1, 1, 3, 3),
			biases:  info(tensor.Signed32, 1),
			output:  info(tensor.QAsymmU8, 1, 1, 2, 2),
			want:    true,
		},
		{
			name:    "quantized with float bias",
			input:   info(tensor.QAsymmU8, 1, 1, 4, 4),
			weights: info(tensor.QSymmS8, 1, 1, 3, 3),
			biases:  info(tensor.Float32, 1),
			output:  info(tensor.QAsymmU8, 1, 1, 2, 2),
			want:    false,
		},
		{
			name:    "int64 input",
			input:   info(tensor.Signed64, 1, 1, 4, 4),
			weights: info(tensor.Signed64, 1, 1, 3, 3),
			biases:  info(tensor.Signed64, 1),
			output:  info(tensor.Signed64, 1, 1, 2, 2),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := ls.IsConvolution2dSupported(tt.input, tt.output, tt.weights, tt.biases, desc)
			assert.Equal(t, tt.want, ok, reason)
			if !ok {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestFusedAndStandInAreRejected(t *testing.T) {
	ls := New().LayerSupport()
	x := info(tensor.Float32, 4)

	ok, reason := ls.IsFusedSupported([]tensor.TensorInfo{x, x, x, x}, []tensor.TensorInfo{x},
		graph.FusedDescriptor{Kind: graph.FusedAddMulAdd, Inputs: 4, Outputs: 1})
	assert.False(t, ok)
	assert.Contains(t, reason, "Fused")

	ok, _ = ls.IsStandInSupported([]tensor.TensorInfo{x}, []tensor.TensorInfo{x}, graph.StandInDescriptor{Inputs: 1, Outputs: 1})
	assert.False(t, ok)
}

func TestElementwiseSupport(t *testing.T) {
	ls := New().LayerSupport()
	i32 := info(tensor.Signed32, 4)
	f := info(tensor.Float32, 4)

	ok, _ := ls.IsElementwiseBinarySupported(i32, i32, i32, graph.ElementwiseBinaryDescriptor{Operation: graph.BinaryAdd})
	assert.True(t, ok)

	ok, reason := ls.IsElementwiseBinarySupported(i32, i32, i32, graph.ElementwiseBinaryDescriptor{Operation: graph.BinaryPower})
	assert.False(t, ok)
	assert.Contains(t, reason, "Power")

	ok, _ = ls.IsElementwiseBinarySupported(f, i32, f, graph.ElementwiseBinaryDescriptor{Operation: graph.BinaryDiv})
	assert.False(t, ok)

	ok, _ = ls.IsElementwiseUnarySupported(i32, i32, graph.ElementwiseUnaryDescriptor{Operation: graph.UnaryFloor})
	assert.False(t, ok)

	ok, _ = ls.IsElementwiseUnarySupported(f, f, graph.ElementwiseUnaryDescriptor{Operation: graph.UnaryFloor})
	assert.True(t, ok)
}

func TestRankAndCastSupport(t *testing.T) {
	ls := New().LayerSupport()
	scalar := tensor.NewTensorInfo(tensor.ScalarShape(), tensor.Signed32)

	ok, _ := ls.IsRankSupported(info(tensor.Float32, 2, 3), scalar)
	assert.True(t, ok)

	ok, _ = ls.IsCastSupported(info(tensor.Signed32, 4), info(tensor.Float32, 4))
	assert.True(t, ok)
}
