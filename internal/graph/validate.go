package graph

import (
	"github.com/born-ml/graphc/internal/tensor"
)

func (d InputDescriptor) Validate() error {
	if d.BindingID < 0 {
		return invalidParam("negative binding id %d", d.BindingID)
	}
	return nil
}

func (d OutputDescriptor) Validate() error {
	if d.BindingID < 0 {
		return invalidParam("negative binding id %d", d.BindingID)
	}
	return nil
}

func (d ConstantDescriptor) Validate() error {
	if !d.Tensor.Info().Shape().IsFullySpecified() {
		return invalidParam("constant tensor shape %v is not fully specified", d.Tensor.Info().Shape())
	}
	return nil
}

func (d ActivationDescriptor) Validate() error {
	if d.Function < ActivationSigmoid || d.Function > ActivationGelu {
		return invalidParam("unknown activation function %d", int(d.Function))
	}
	if d.Function == ActivationBoundedReLu && d.A < d.B {
		return invalidParam("bounded relu upper bound %g below lower bound %g", d.A, d.B)
	}
	return nil
}

func (CastDescriptor) Validate() error { return nil }

func (d ConcatDescriptor) Validate() error {
	if d.Inputs < 1 {
		return invalidParam("concat needs at least one input, got %d", d.Inputs)
	}
	if d.Axis < 0 {
		return invalidParam("negative concat axis %d", d.Axis)
	}
	return nil
}

func validateWindow(strideX, strideY, dilationX, dilationY int) error {
	if strideX <= 0 || strideY <= 0 {
		return invalidParam("strides must be positive, got (%d, %d)", strideX, strideY)
	}
	if dilationX <= 0 || dilationY <= 0 {
		return invalidParam("dilations must be positive, got (%d, %d)", dilationX, dilationY)
	}
	return nil
}

func validateLayout2d(l DataLayout) error {
	if l != NCHW && l != NHWC {
		return invalidParam("2D layer cannot use %s layout", l)
	}
	return nil
}

func (d Convolution2dDescriptor) Validate() error {
	if err := d.Padding().validate(); err != nil {
		return err
	}
	if err := validateWindow(d.StrideX, d.StrideY, d.DilationX, d.DilationY); err != nil {
		return err
	}
	return validateLayout2d(d.DataLayout)
}

func (d Convolution3dDescriptor) Validate() error {
	if d.PadLeft < 0 || d.PadRight < 0 || d.PadTop < 0 || d.PadBottom < 0 || d.PadFront < 0 || d.PadBack < 0 {
		return invalidParam("negative padding")
	}
	if err := validateWindow(d.StrideX, d.StrideY, d.DilationX, d.DilationY); err != nil {
		return err
	}
	if d.StrideZ <= 0 || d.DilationZ <= 0 {
		return invalidParam("depth stride and dilation must be positive, got (%d, %d)", d.StrideZ, d.DilationZ)
	}
	if d.DataLayout != NCDHW && d.DataLayout != NDHWC {
		return invalidParam("3D convolution cannot use %s layout", d.DataLayout)
	}
	return nil
}

func (d DepthwiseConvolution2dDescriptor) Validate() error {
	if err := d.Padding().validate(); err != nil {
		return err
	}
	if err := validateWindow(d.StrideX, d.StrideY, d.DilationX, d.DilationY); err != nil {
		return err
	}
	return validateLayout2d(d.DataLayout)
}

func (DequantizeDescriptor) Validate() error { return nil }

func (d ElementwiseBinaryDescriptor) Validate() error {
	if d.Operation < BinaryAdd || d.Operation > BinaryPower {
		return invalidParam("unknown binary operation %d", int(d.Operation))
	}
	return nil
}

func (d ElementwiseUnaryDescriptor) Validate() error {
	if d.Operation < UnaryAbs || d.Operation > UnarySqrt {
		return invalidParam("unknown unary operation %d", int(d.Operation))
	}
	return nil
}

func (FullyConnectedDescriptor) Validate() error { return nil }

func (d FusedDescriptor) Validate() error {
	if d.Kind != FusedAddMulAdd {
		return invalidParam("unknown fused kernel %d", int(d.Kind))
	}
	if d.Inputs != 4 || d.Outputs < 1 || d.Outputs > 2 {
		return invalidParam("%s takes 4 inputs and 1 or 2 outputs, got %d/%d", d.Kind, d.Inputs, d.Outputs)
	}
	if d.Activation != nil {
		return d.Activation.Validate()
	}
	return nil
}

func (d MeanDescriptor) Validate() error {
	seen := make(map[int]bool, len(d.Axes))
	for _, a := range d.Axes {
		if a < 0 {
			return invalidParam("negative mean axis %d", a)
		}
		if seen[a] {
			return invalidParam("duplicate mean axis %d", a)
		}
		seen[a] = true
	}
	return nil
}

func (MergeDescriptor) Validate() error { return nil }

func (d PadDescriptor) Validate() error {
	if len(d.PadList) == 0 {
		return invalidParam("pad list is empty")
	}
	for i, p := range d.PadList {
		if p[0] < 0 || p[1] < 0 {
			return invalidParam("negative padding %v at dimension %d", p, i)
		}
	}
	if d.Mode < PadConstant || d.Mode > PadSymmetric {
		return invalidParam("unknown padding mode %d", int(d.Mode))
	}
	return nil
}

func (d Pooling2dDescriptor) Validate() error {
	if d.PoolWidth <= 0 || d.PoolHeight <= 0 {
		return invalidParam("pooling window must be positive, got %dx%d", d.PoolWidth, d.PoolHeight)
	}
	if d.StrideX <= 0 || d.StrideY <= 0 {
		return invalidParam("strides must be positive, got (%d, %d)", d.StrideX, d.StrideY)
	}
	if err := d.Padding().validate(); err != nil {
		return err
	}
	return validateLayout2d(d.DataLayout)
}

func (d QuantizeDescriptor) Validate() error {
	if !d.DataType.IsQuantized() {
		return invalidParam("quantize target %s is not a quantized type", d.DataType)
	}
	if d.Scale <= 0 {
		return invalidParam("quantization scale must be positive, got %g", d.Scale)
	}
	return nil
}

func (RankDescriptor) Validate() error { return nil }

func (d ReshapeDescriptor) Validate() error {
	if !d.TargetShape.IsFullySpecified() {
		return invalidParam("reshape target %v is not fully specified", d.TargetShape)
	}
	if err := d.TargetShape.Validate(); err != nil {
		return invalidParam("reshape target: %v", err)
	}
	return nil
}

func (d SoftmaxDescriptor) Validate() error {
	if d.Axis < -1 {
		return invalidParam("softmax axis %d", d.Axis)
	}
	return nil
}

func (d SplitterDescriptor) Validate() error {
	if len(d.Sizes) == 0 {
		return invalidParam("splitter needs at least one view")
	}
	if d.Axis < 0 {
		return invalidParam("negative split axis %d", d.Axis)
	}
	for i, s := range d.Sizes {
		if s <= 0 {
			return invalidParam("split view %d has size %d", i, s)
		}
	}
	return nil
}

func (d StackDescriptor) Validate() error {
	if d.Inputs < 1 {
		return invalidParam("stack needs at least one input, got %d", d.Inputs)
	}
	dims := d.InputShape.Dimensionality()
	if dims == tensor.NotSpecified {
		return invalidParam("stack input shape must have a known rank")
	}
	if d.Axis < 0 || d.Axis > d.InputShape.Rank() {
		return invalidParam("stack axis %d out of range for input rank %d", d.Axis, d.InputShape.Rank())
	}
	return nil
}

func (d StandInDescriptor) Validate() error {
	if d.Inputs < 0 || d.Outputs < 0 {
		return invalidParam("negative slot count %d/%d", d.Inputs, d.Outputs)
	}
	return nil
}
