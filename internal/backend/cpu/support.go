package cpu

import (
	"github.com/born-ml/graphc/internal/backend"
	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// Element type tables of the reference kernels.
var (
	floatTypes = []tensor.DataType{tensor.Float32, tensor.Float16, tensor.BFloat16}

	arithmeticTypes = []tensor.DataType{
		tensor.Float32, tensor.Float16, tensor.QAsymmS8, tensor.QAsymmU8, tensor.QSymmS16, tensor.Signed32,
	}

	convolutionTypes = []tensor.DataType{
		tensor.Float32, tensor.Float16, tensor.QAsymmS8, tensor.QAsymmU8, tensor.QSymmS16,
	}

	quantizedWeightTypes = []tensor.DataType{tensor.QAsymmS8, tensor.QAsymmU8, tensor.QSymmS8}

	copyTypes = []tensor.DataType{
		tensor.Float32, tensor.Float16, tensor.BFloat16, tensor.QAsymmS8, tensor.QAsymmU8,
		tensor.QSymmS8, tensor.QSymmS16, tensor.Signed32, tensor.Signed64, tensor.Boolean,
	}
)

// LayerSupport holds the reference capability predicates. Fused and StandIn
// layers have no reference kernel and are left to LayerSupportBase.
type LayerSupport struct {
	backend.LayerSupportBase
}

var _ backend.LayerSupport = LayerSupport{}

func (LayerSupport) IsActivationSupported(input, output tensor.TensorInfo, _ graph.ActivationDescriptor) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(input, tensor.Float32, tensor.Float16, tensor.BFloat16,
		tensor.QAsymmS8, tensor.QAsymmU8, tensor.QSymmS16), "activation: input type %s not supported", input.DataType())
	r.Check(backend.TypesAreEqual(input, output), "activation: input and output types differ")
	r.Check(backend.ShapesAreSameRank(input, output), "activation: input and output ranks differ")
	return r.Result()
}

func (LayerSupport) IsCastSupported(input, output tensor.TensorInfo) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(input, copyTypes...), "cast: input type %s not supported", input.DataType())
	r.Check(backend.TypeAnyOf(output, copyTypes...), "cast: output type %s not supported", output.DataType())
	r.Check(backend.ShapesAreSameRank(input, output), "cast: input and output ranks differ")
	return r.Result()
}

func (LayerSupport) IsConcatSupported(inputs []tensor.TensorInfo, output tensor.TensorInfo, _ graph.ConcatDescriptor) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(output, copyTypes...), "concat: output type %s not supported", output.DataType())
	for i, in := range inputs {
		r.Check(backend.TypesAreEqual(in, output), "concat: input %d type %s differs from output", i, in.DataType())
	}
	return r.Result()
}

func (LayerSupport) IsConstantSupported(output tensor.TensorInfo) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(output, copyTypes...), "constant: type %s not supported", output.DataType())
	return r.Result()
}

// checkWeighted applies the shared rules of convolution and fully connected layers.
func checkWeighted(r *backend.Rules, op string, input, output, weights, biases tensor.TensorInfo, biasEnabled bool) {
	r.Check(backend.TypeAnyOf(input, convolutionTypes...), "%s: input type %s not supported", op, input.DataType())
	r.Check(backend.TypeAnyOf(output, convolutionTypes...), "%s: output type %s not supported", op, output.DataType())

	if input.DataType().IsQuantized() {
		r.Check(output.DataType().IsQuantized(), "%s: quantized input requires a quantized output", op)
		r.Check(backend.TypeAnyOf(weights, quantizedWeightTypes...), "%s: weights type %s not supported for quantized input", op, weights.DataType())
	} else {
		r.Check(backend.TypesAreEqual(input, output, weights), "%s: input, output and weights types differ", op)
	}

	if !biasEnabled {
		r.Check(backend.IsPlaceholder(biases), "%s: bias given although disabled", op)
		return
	}
	want := backend.BiasTypeFor(weights.DataType())
	if input.DataType().IsFloat() {
		want = input.DataType()
	}
	r.Check(biases.DataType() == want, "%s: bias type %s, expected %s", op, biases.DataType(), want)
}

func (LayerSupport) IsConvolution2dSupported(input, output, weights, biases tensor.TensorInfo, desc graph.Convolution2dDescriptor) (bool, string) {
	var r backend.Rules
	checkWeighted(&r, "convolution2d", input, output, weights, biases, desc.BiasEnabled)
	return r.Result()
}

func (LayerSupport) IsConvolution3dSupported(input, output, weights, biases tensor.TensorInfo, desc graph.Convolution3dDescriptor) (bool, string) {
	var r backend.Rules
	checkWeighted(&r, "convolution3d", input, output, weights, biases, desc.BiasEnabled)
	return r.Result()
}

func (LayerSupport) IsDepthwiseConvolution2dSupported(input, output, weights, biases tensor.TensorInfo, desc graph.DepthwiseConvolution2dDescriptor) (bool, string) {
	var r backend.Rules
	checkWeighted(&r, "depthwise convolution2d", input, output, weights, biases, desc.BiasEnabled)
	return r.Result()
}

func (LayerSupport) IsDequantizeSupported(input, output tensor.TensorInfo) (bool, string) {
	var r backend.Rules
	r.Check(input.DataType().IsQuantized(), "dequantize: input type %s is not quantized", input.DataType())
	r.Check(backend.TypeAnyOf(output, tensor.Float32, tensor.Float16), "dequantize: output type %s not supported", output.DataType())
	return r.Result()
}

func (LayerSupport) IsElementwiseBinarySupported(input0, input1, output tensor.TensorInfo, desc graph.ElementwiseBinaryDescriptor) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(input0, arithmeticTypes...), "%s: input type %s not supported", desc.Operation, input0.DataType())
	r.Check(backend.TypesAreEqual(input0, input1, output), "%s: input and output types differ", desc.Operation)
	if desc.Operation == graph.BinaryPower {
		r.Check(backend.TypeAnyOf(input0, floatTypes...), "Power: only floating point inputs are supported")
	}
	return r.Result()
}

func (LayerSupport) IsElementwiseUnarySupported(input, output tensor.TensorInfo, desc graph.ElementwiseUnaryDescriptor) (bool, string) {
	var r backend.Rules
	switch desc.Operation {
	case graph.UnaryAbs, graph.UnaryNeg:
		r.Check(backend.TypeAnyOf(input, arithmeticTypes...), "%s: input type %s not supported", desc.Operation, input.DataType())
	default:
		r.Check(backend.TypeAnyOf(input, tensor.Float32, tensor.Float16, tensor.QAsymmS8, tensor.QAsymmU8, tensor.QSymmS16),
			"%s: input type %s not supported", desc.Operation, input.DataType())
	}
	r.Check(backend.TypesAreEqual(input, output), "%s: input and output types differ", desc.Operation)
	return r.Result()
}

func (LayerSupport) IsFullyConnectedSupported(input, output, weights, biases tensor.TensorInfo, desc graph.FullyConnectedDescriptor) (bool, string) {
	var r backend.Rules
	checkWeighted(&r, "fully connected", input, output, weights, biases, desc.BiasEnabled)
	return r.Result()
}

func (LayerSupport) IsInputSupported(tensor.TensorInfo) (bool, string) {
	return true, ""
}

func (LayerSupport) IsMeanSupported(input, output tensor.TensorInfo, _ graph.MeanDescriptor) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(input, convolutionTypes...), "mean: input type %s not supported", input.DataType())
	r.Check(backend.TypesAreEqual(input, output), "mean: input and output types differ")
	return r.Result()
}

func (LayerSupport) IsMergeSupported(input0, input1, output tensor.TensorInfo) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypesAreEqual(input0, input1, output), "merge: input and output types differ")
	return r.Result()
}

func (LayerSupport) IsOutputSupported(tensor.TensorInfo) (bool, string) {
	return true, ""
}

func (LayerSupport) IsPadSupported(input, output tensor.TensorInfo, _ graph.PadDescriptor) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(input, tensor.Float32, tensor.Float16, tensor.BFloat16,
		tensor.QAsymmS8, tensor.QAsymmU8, tensor.QSymmS16), "pad: input type %s not supported", input.DataType())
	r.Check(backend.TypesAreEqual(input, output), "pad: input and output types differ")
	return r.Result()
}

func (LayerSupport) IsPooling2dSupported(input, output tensor.TensorInfo, _ graph.Pooling2dDescriptor) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(input, convolutionTypes...), "pooling2d: input type %s not supported", input.DataType())
	r.Check(backend.TypesAreEqual(input, output), "pooling2d: input and output types differ")
	return r.Result()
}

func (LayerSupport) IsQuantizeSupported(input, output tensor.TensorInfo) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(input, tensor.Float32, tensor.Float16, tensor.QAsymmS8, tensor.QAsymmU8,
		tensor.QSymmS8, tensor.QSymmS16), "quantize: input type %s not supported", input.DataType())
	r.Check(output.DataType().IsQuantized(), "quantize: output type %s is not quantized", output.DataType())
	return r.Result()
}

func (LayerSupport) IsRankSupported(_, output tensor.TensorInfo) (bool, string) {
	var r backend.Rules
	r.Check(output.DataType() == tensor.Signed32, "rank: output must be int32, got %s", output.DataType())
	return r.Result()
}

func (LayerSupport) IsReshapeSupported(input, output tensor.TensorInfo, _ graph.ReshapeDescriptor) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(input, copyTypes...), "reshape: input type %s not supported", input.DataType())
	r.Check(backend.TypesAreEqual(input, output), "reshape: input and output types differ")
	return r.Result()
}

func (LayerSupport) IsSoftmaxSupported(input, output tensor.TensorInfo, _ graph.SoftmaxDescriptor) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(input, tensor.Float32, tensor.Float16, tensor.BFloat16,
		tensor.QAsymmS8, tensor.QAsymmU8, tensor.QSymmS16), "softmax: input type %s not supported", input.DataType())
	r.Check(backend.TypesAreEqual(input, output), "softmax: input and output types differ")
	return r.Result()
}

func (LayerSupport) IsSplitterSupported(input tensor.TensorInfo, outputs []tensor.TensorInfo, _ graph.SplitterDescriptor) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(input, copyTypes...), "splitter: input type %s not supported", input.DataType())
	for i, out := range outputs {
		r.Check(backend.TypesAreEqual(input, out), "splitter: output %d type %s differs from input", i, out.DataType())
	}
	return r.Result()
}

func (LayerSupport) IsStackSupported(inputs []tensor.TensorInfo, output tensor.TensorInfo, _ graph.StackDescriptor) (bool, string) {
	var r backend.Rules
	r.Check(backend.TypeAnyOf(output, copyTypes...), "stack: output type %s not supported", output.DataType())
	for i, in := range inputs {
		r.Check(backend.TypesAreEqual(in, output), "stack: input %d type %s differs from output", i, in.DataType())
	}
	return r.Result()
}
