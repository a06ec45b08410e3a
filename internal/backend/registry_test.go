package backend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphc/internal/backend"
	"github.com/born-ml/graphc/internal/backend/cpu"
	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// floatOnly accepts float32 activations and nothing else.
type floatOnly struct {
	backend.LayerSupportBase
	lastBias *tensor.TensorInfo
}

func (f *floatOnly) IsActivationSupported(input, _ tensor.TensorInfo, _ graph.ActivationDescriptor) (bool, string) {
	if input.DataType() != tensor.Float32 {
		return false, "float32 only"
	}
	return true, ""
}

func (f *floatOnly) IsConvolution2dSupported(_, _, _, biases tensor.TensorInfo, _ graph.Convolution2dDescriptor) (bool, string) {
	f.lastBias = &biases
	return true, ""
}

type fakeBackend struct {
	id      backend.ID
	support *floatOnly
}

func (b fakeBackend) ID() backend.ID                     { return b.id }
func (b fakeBackend) LayerSupport() backend.LayerSupport { return b.support }

func newRegistry(t *testing.T) (*backend.Registry, *floatOnly) {
	t.Helper()
	support := &floatOnly{}
	r, err := backend.NewRegistry(nil, fakeBackend{id: backend.GpuAcc, support: support}, cpu.New())
	require.NoError(t, err)
	return r, support
}

func f32(dims ...int) tensor.TensorInfo {
	return tensor.NewTensorInfo(tensor.NewShape(dims...), tensor.Float32)
}

func TestRegistryRegister(t *testing.T) {
	r, _ := newRegistry(t)
	assert.Equal(t, []backend.ID{backend.GpuAcc, backend.CpuRef}, r.IDs())

	b, ok := r.Get(backend.CpuRef)
	require.True(t, ok)
	assert.Equal(t, backend.CpuRef, b.ID())

	err := r.Register(cpu.New())
	assert.Error(t, err)
}

func TestEmptyCandidateList(t *testing.T) {
	r, _ := newRegistry(t)
	desc := graph.ActivationDescriptor{Function: graph.ActivationReLu}

	ok, id, reason := r.IsLayerTypeSupported(desc, []tensor.TensorInfo{f32(2), f32(2)}, nil)
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.NotEmpty(t, reason)
}

func TestFirstAcceptorWins(t *testing.T) {
	r, _ := newRegistry(t)
	desc := graph.ActivationDescriptor{Function: graph.ActivationReLu}
	infos := []tensor.TensorInfo{f32(2), f32(2)}

	ok, id, _ := r.IsLayerTypeSupported(desc, infos, []backend.ID{backend.GpuAcc, backend.CpuRef})
	require.True(t, ok)
	assert.Equal(t, backend.GpuAcc, id)

	ok, id, _ = r.IsLayerTypeSupported(desc, infos, []backend.ID{backend.CpuRef, backend.GpuAcc})
	require.True(t, ok)
	assert.Equal(t, backend.CpuRef, id)
}

func TestFallbackAndAggregateReason(t *testing.T) {
	r, _ := newRegistry(t)
	desc := graph.ActivationDescriptor{Function: graph.ActivationReLu}
	q := tensor.NewQuantizedTensorInfo(tensor.NewShape(2), tensor.QAsymmU8, 0.1, 0)

	results := r.Check(desc, []tensor.TensorInfo{q, q}, []backend.ID{backend.GpuAcc, backend.CpuRef})
	require.Len(t, results, 2)
	assert.False(t, results[0].Supported)
	assert.Equal(t, "float32 only", results[0].Reason)
	assert.True(t, results[1].Supported)

	i32 := tensor.NewTensorInfo(tensor.NewShape(2), tensor.Signed32)
	ok, _, reason := r.IsLayerTypeSupported(desc, []tensor.TensorInfo{i32, i32}, []backend.ID{backend.GpuAcc, backend.CpuRef, "Missing"})
	assert.False(t, ok)
	assert.Contains(t, reason, "not supported by any specified backend")
	assert.Contains(t, reason, "GpuAcc: float32 only")
	assert.Contains(t, reason, "Missing: backend is not registered")
}

func TestArityMismatchIsRejected(t *testing.T) {
	r, _ := newRegistry(t)
	ok, _, reason := r.IsLayerTypeSupported(graph.ActivationDescriptor{}, []tensor.TensorInfo{f32(1)}, []backend.ID{backend.CpuRef})
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestIsLayerSupportedPlaceholderBias(t *testing.T) {
	r, support := newRegistry(t)
	g := graph.New()
	in, err := g.AddInputLayer(0, "in")
	require.NoError(t, err)
	w, err := g.AddInputLayer(1, "w")
	require.NoError(t, err)
	conv, err := g.AddLayer(graph.Convolution2dDescriptor{StrideX: 1, StrideY: 1, DilationX: 1, DilationY: 1}, "conv")
	require.NoError(t, err)
	require.NoError(t, g.Connect(in.OutputSlot(0), conv.InputSlot(0)))
	require.NoError(t, g.Connect(w.OutputSlot(0), conv.InputSlot(1)))
	in.OutputSlot(0).SetTensorInfo(f32(1, 1, 4, 4))
	w.OutputSlot(0).SetTensorInfo(f32(1, 1, 3, 3))
	conv.OutputSlot(0).SetTensorInfo(f32(1, 1, 2, 2))

	ok, id, _ := r.IsLayerSupported(g, conv, []backend.ID{backend.GpuAcc}, nil)
	require.True(t, ok)
	assert.Equal(t, backend.GpuAcc, id)
	require.NotNil(t, support.lastBias)
	assert.True(t, backend.IsPlaceholder(*support.lastBias))
	assert.Equal(t, tensor.Float32, support.lastBias.DataType())

	ok, _, _ = r.IsLayerSupported(g, conv, []backend.ID{backend.CpuRef}, nil)
	assert.True(t, ok)
}

func TestIsLayerSupportedDataTypeOverride(t *testing.T) {
	r, _ := newRegistry(t)
	g := graph.New()
	in, err := g.AddInputLayer(0, "in")
	require.NoError(t, err)
	relu, err := g.AddLayer(graph.ActivationDescriptor{Function: graph.ActivationReLu}, "relu")
	require.NoError(t, err)
	require.NoError(t, g.Connect(in.OutputSlot(0), relu.InputSlot(0)))
	in.OutputSlot(0).SetTensorInfo(f32(4))
	relu.OutputSlot(0).SetTensorInfo(f32(4))

	ok, _, _ := r.IsLayerSupported(g, relu, []backend.ID{backend.GpuAcc}, nil)
	assert.True(t, ok)

	override := tensor.QAsymmU8
	ok, _, reason := r.IsLayerSupported(g, relu, []backend.ID{backend.GpuAcc}, &override)
	assert.False(t, ok)
	assert.Contains(t, reason, "float32 only")

	// The graph itself is untouched.
	assert.Equal(t, tensor.Float32, relu.OutputSlot(0).TensorInfo().DataType())
}

func TestRules(t *testing.T) {
	var r backend.Rules
	r.Check(true, "never")
	ok, reason := r.Result()
	assert.True(t, ok)
	assert.Empty(t, reason)

	r.Check(false, "first %d", 1)
	r.Check(false, "second")
	ok, reason = r.Result()
	assert.False(t, ok)
	assert.Equal(t, "first 1; second", reason)
}
