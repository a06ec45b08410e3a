// Package backend implements capability negotiation between the compiler and
// execution backends.
//
// A backend exposes a LayerSupport with one predicate per layer type. The
// Registry asks candidate backends in caller priority order and returns the
// first one that accepts a layer; rejection reasons are advisory strings,
// never errors.
package backend

import (
	"fmt"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// ID names a backend.
type ID = graph.BackendID

// Well-known backend ids.
const (
	CpuRef ID = "CpuRef"
	CpuAcc ID = "CpuAcc"
	GpuAcc ID = "GpuAcc"
)

// LayerSupport answers whether a backend can execute a layer with the given
// resolved descriptors. Every predicate returns false with a reason when it
// rejects.
type LayerSupport interface {
	IsActivationSupported(input, output tensor.TensorInfo, desc graph.ActivationDescriptor) (bool, string)
	IsCastSupported(input, output tensor.TensorInfo) (bool, string)
	IsConcatSupported(inputs []tensor.TensorInfo, output tensor.TensorInfo, desc graph.ConcatDescriptor) (bool, string)
	IsConstantSupported(output tensor.TensorInfo) (bool, string)
	IsConvolution2dSupported(input, output, weights, biases tensor.TensorInfo, desc graph.Convolution2dDescriptor) (bool, string)
	IsConvolution3dSupported(input, output, weights, biases tensor.TensorInfo, desc graph.Convolution3dDescriptor) (bool, string)
	IsDepthwiseConvolution2dSupported(input, output, weights, biases tensor.TensorInfo, desc graph.DepthwiseConvolution2dDescriptor) (bool, string)
	IsDequantizeSupported(input, output tensor.TensorInfo) (bool, string)
	IsElementwiseBinarySupported(input0, input1, output tensor.TensorInfo, desc graph.ElementwiseBinaryDescriptor) (bool, string)
	IsElementwiseUnarySupported(input, output tensor.TensorInfo, desc graph.ElementwiseUnaryDescriptor) (bool, string)
	IsFullyConnectedSupported(input, output, weights, biases tensor.TensorInfo, desc graph.FullyConnectedDescriptor) (bool, string)
	IsFusedSupported(inputs, outputs []tensor.TensorInfo, desc graph.FusedDescriptor) (bool, string)
	IsInputSupported(input tensor.TensorInfo) (bool, string)
	IsMeanSupported(input, output tensor.TensorInfo, desc graph.MeanDescriptor) (bool, string)
	IsMergeSupported(input0, input1, output tensor.TensorInfo) (bool, string)
	IsOutputSupported(output tensor.TensorInfo) (bool, string)
	IsPadSupported(input, output tensor.TensorInfo, desc graph.PadDescriptor) (bool, string)
	IsPooling2dSupported(input, output tensor.TensorInfo, desc graph.Pooling2dDescriptor) (bool, string)
	IsQuantizeSupported(input, output tensor.TensorInfo) (bool, string)
	IsRankSupported(input, output tensor.TensorInfo) (bool, string)
	IsReshapeSupported(input, output tensor.TensorInfo, desc graph.ReshapeDescriptor) (bool, string)
	IsSoftmaxSupported(input, output tensor.TensorInfo, desc graph.SoftmaxDescriptor) (bool, string)
	IsSplitterSupported(input tensor.TensorInfo, outputs []tensor.TensorInfo, desc graph.SplitterDescriptor) (bool, string)
	IsStackSupported(inputs []tensor.TensorInfo, output tensor.TensorInfo, desc graph.StackDescriptor) (bool, string)
	IsStandInSupported(inputs, outputs []tensor.TensorInfo, desc graph.StandInDescriptor) (bool, string)
}

// LayerSupportBase rejects every layer. Backends embed it and override the
// predicates they implement.
type LayerSupportBase struct{}

var _ LayerSupport = LayerSupportBase{}

func notImplemented(t graph.LayerType) (bool, string) {
	return false, fmt.Sprintf("%s is not implemented by this backend", t)
}

func (LayerSupportBase) IsActivationSupported(_, _ tensor.TensorInfo, _ graph.ActivationDescriptor) (bool, string) {
	return notImplemented(graph.LayerActivation)
}

func (LayerSupportBase) IsCastSupported(_, _ tensor.TensorInfo) (bool, string) {
	return notImplemented(graph.LayerCast)
}

func (LayerSupportBase) IsConcatSupported(_ []tensor.TensorInfo, _ tensor.TensorInfo, _ graph.ConcatDescriptor) (bool, string) {
	return notImplemented(graph.LayerConcat)
}

func (LayerSupportBase) IsConstantSupported(_ tensor.TensorInfo) (bool, string) {
	return notImplemented(graph.LayerConstant)
}

func (LayerSupportBase) IsConvolution2dSupported(_, _, _, _ tensor.TensorInfo, _ graph.Convolution2dDescriptor) (bool, string) {
	return notImplemented(graph.LayerConvolution2d)
}

func (LayerSupportBase) IsConvolution3dSupported(_, _, _, _ tensor.TensorInfo, _ graph.Convolution3dDescriptor) (bool, string) {
	return notImplemented(graph.LayerConvolution3d)
}

func (LayerSupportBase) IsDepthwiseConvolution2dSupported(_, _, _, _ tensor.TensorInfo, _ graph.DepthwiseConvolution2dDescriptor) (bool, string) {
	return notImplemented(graph.LayerDepthwiseConvolution2d)
}

func (LayerSupportBase) IsDequantizeSupported(_, _ tensor.TensorInfo) (bool, string) {
	return notImplemented(graph.LayerDequantize)
}

func (LayerSupportBase) IsElementwiseBinarySupported(_, _, _ tensor.TensorInfo, _ graph.ElementwiseBinaryDescriptor) (bool, string) {
	return notImplemented(graph.LayerElementwiseBinary)
}

func (LayerSupportBase) IsElementwiseUnarySupported(_, _ tensor.TensorInfo, _ graph.ElementwiseUnaryDescriptor) (bool, string) {
	return notImplemented(graph.LayerElementwiseUnary)
}

func (LayerSupportBase) IsFullyConnectedSupported(_, _, _, _ tensor.TensorInfo, _ graph.FullyConnectedDescriptor) (bool, string) {
	return notImplemented(graph.LayerFullyConnected)
}

func (LayerSupportBase) IsFusedSupported(_, _ []tensor.TensorInfo, _ graph.FusedDescriptor) (bool, string) {
	return notImplemented(graph.LayerFused)
}

func (LayerSupportBase) IsInputSupported(_ tensor.TensorInfo) (bool, string) {
	return notImplemented(graph.LayerInput)
}

func (LayerSupportBase) IsMeanSupported(_, _ tensor.TensorInfo, _ graph.MeanDescriptor) (bool, string) {
	return notImplemented(graph.LayerMean)
}

func (LayerSupportBase) IsMergeSupported(_, _, _ tensor.TensorInfo) (bool, string) {
	return notImplemented(graph.LayerMerge)
}

func (LayerSupportBase) IsOutputSupported(_ tensor.TensorInfo) (bool, string) {
	return notImplemented(graph.LayerOutput)
}

func (LayerSupportBase) IsPadSupported(_, _ tensor.TensorInfo, _ graph.PadDescriptor) (bool, string) {
	return notImplemented(graph.LayerPad)
}

func (LayerSupportBase) IsPooling2dSupported(_, _ tensor.TensorInfo, _ graph.Pooling2dDescriptor) (bool, string) {
	return notImplemented(graph.LayerPooling2d)
}

func (LayerSupportBase) IsQuantizeSupported(_, _ tensor.TensorInfo) (bool, string) {
	return notImplemented(graph.LayerQuantize)
}

func (LayerSupportBase) IsRankSupported(_, _ tensor.TensorInfo) (bool, string) {
	return notImplemented(graph.LayerRank)
}

func (LayerSupportBase) IsReshapeSupported(_, _ tensor.TensorInfo, _ graph.ReshapeDescriptor) (bool, string) {
	return notImplemented(graph.LayerReshape)
}

func (LayerSupportBase) IsSoftmaxSupported(_, _ tensor.TensorInfo, _ graph.SoftmaxDescriptor) (bool, string) {
	return notImplemented(graph.LayerSoftmax)
}

func (LayerSupportBase) IsSplitterSupported(_ tensor.TensorInfo, _ []tensor.TensorInfo, _ graph.SplitterDescriptor) (bool, string) {
	return notImplemented(graph.LayerSplitter)
}

func (LayerSupportBase) IsStackSupported(_ []tensor.TensorInfo, _ tensor.TensorInfo, _ graph.StackDescriptor) (bool, string) {
	return notImplemented(graph.LayerStack)
}

func (LayerSupportBase) IsStandInSupported(_, _ []tensor.TensorInfo, _ graph.StandInDescriptor) (bool, string) {
	return notImplemented(graph.LayerStandIn)
}
