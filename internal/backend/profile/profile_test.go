package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphc/internal/backend"
	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

func npu(t *testing.T) *Backend {
	t.Helper()
	b, err := New(Profile{
		ID: "NpuAcc",
		Rules: map[graph.LayerType]Rule{
			graph.LayerActivation:    {DataTypes: []tensor.DataType{tensor.QAsymmU8}},
			graph.LayerConvolution2d: {DataTypes: []tensor.DataType{tensor.QAsymmU8}, Layouts: []graph.DataLayout{graph.NHWC}},
			graph.LayerFused:         {MaxRank: 4},
		},
	})
	require.NoError(t, err)
	return b
}

func TestProfileRejectsEmptyID(t *testing.T) {
	_, err := New(Profile{})
	assert.Error(t, err)
}

func TestProfileUnlistedLayer(t *testing.T) {
	ls := npu(t).LayerSupport()
	x := tensor.NewTensorInfo(tensor.NewShape(2, 2), tensor.Float32)

	ok, reason := ls.IsSoftmaxSupported(x, x, graph.SoftmaxDescriptor{Beta: 1, Axis: -1})
	assert.False(t, ok)
	assert.Equal(t, "Softmax is not listed in profile NpuAcc", reason)
}

func TestProfileDataTypes(t *testing.T) {
	ls := npu(t).LayerSupport()
	q := tensor.NewQuantizedTensorInfo(tensor.NewShape(4), tensor.QAsymmU8, 0.5, 0)
	f := tensor.NewTensorInfo(tensor.NewShape(4), tensor.Float32)

	ok, _ := ls.IsActivationSupported(q, q, graph.ActivationDescriptor{Function: graph.ActivationReLu})
	assert.True(t, ok)

	ok, reason := ls.IsActivationSupported(f, f, graph.ActivationDescriptor{Function: graph.ActivationReLu})
	assert.False(t, ok)
	assert.Contains(t, reason, "float32 not in [qasymmu8]")
}

func TestProfileLayouts(t *testing.T) {
	ls := npu(t).LayerSupport()
	q := tensor.NewQuantizedTensorInfo(tensor.NewShape(1, 4, 4, 1), tensor.QAsymmU8, 0.5, 0)
	w := tensor.NewQuantizedTensorInfo(tensor.NewShape(1, 3, 3, 1), tensor.QSymmS8, 0.1, 0)
	bias := tensor.NewTensorInfo(tensor.NewShape(1), tensor.Signed32)

	ok, reason := ls.IsConvolution2dSupported(q, q, w, bias, graph.Convolution2dDescriptor{DataLayout: graph.NHWC})
	assert.True(t, ok, reason)

	ok, reason = ls.IsConvolution2dSupported(q, q, w, bias, graph.Convolution2dDescriptor{DataLayout: graph.NCHW})
	assert.False(t, ok)
	assert.Contains(t, reason, "layout NCHW")
}

func TestProfileMaxRank(t *testing.T) {
	ls := npu(t).LayerSupport()
	r4 := tensor.NewTensorInfo(tensor.NewShape(1, 2, 3, 4), tensor.Float32)
	r5 := tensor.NewTensorInfo(tensor.NewShape(1, 1, 2, 3, 4), tensor.Float32)
	desc := graph.FusedDescriptor{Kind: graph.FusedAddMulAdd, Inputs: 4, Outputs: 1}

	ok, _ := ls.IsFusedSupported([]tensor.TensorInfo{r4, r4, r4, r4}, []tensor.TensorInfo{r4}, desc)
	assert.True(t, ok)

	ok, reason := ls.IsFusedSupported([]tensor.TensorInfo{r5, r4, r4, r4}, []tensor.TensorInfo{r5}, desc)
	assert.False(t, ok)
	assert.Contains(t, reason, "rank 5 exceeds 4")
}

func TestProfileInRegistry(t *testing.T) {
	r, err := backend.NewRegistry(nil, npu(t))
	require.NoError(t, err)

	f := tensor.NewTensorInfo(tensor.NewShape(4), tensor.Float32)
	ok, _, reason := r.IsLayerTypeSupported(graph.ActivationDescriptor{}, []tensor.TensorInfo{f, f}, []backend.ID{"NpuAcc"})
	assert.False(t, ok)
	assert.Contains(t, reason, "NpuAcc:")

	assert.Equal(t, []graph.LayerType{graph.LayerActivation, graph.LayerConvolution2d, graph.LayerFused}, npu(t).LayerTypes())
}
