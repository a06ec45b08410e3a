package graph

import (
	"fmt"
	"strings"

	"github.com/born-ml/graphc/internal/tensor"
)

// Descriptor is the parameter block of a layer. Each LayerType has exactly
// one descriptor struct; the set is sealed to this package.
type Descriptor interface {
	// Type returns the layer type the descriptor belongs to.
	Type() LayerType
	// Validate rejects fields outside their legal domain.
	Validate() error
	// NumInputs and NumOutputs fix the slot counts of the layer at creation.
	NumInputs() int
	NumOutputs() int

	descriptor()
}

// DataLayout is the memory order of a 4D/5D activation tensor.
type DataLayout int

// Data layouts.
const (
	NCHW DataLayout = iota
	NHWC
	NCDHW
	NDHWC
)

// String returns the layout name.
func (l DataLayout) String() string {
	switch l {
	case NCHW:
		return "NCHW"
	case NHWC:
		return "NHWC"
	case NCDHW:
		return "NCDHW"
	case NDHWC:
		return "NDHWC"
	default:
		return "unknown"
	}
}

// ParseDataLayout maps a name returned by String back to its DataLayout.
func ParseDataLayout(name string) (DataLayout, error) {
	for l := NCHW; l <= NDHWC; l++ {
		if strings.EqualFold(l.String(), name) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown data layout %q", name)
}

// ChannelsFirst reports whether channels precede the spatial dimensions.
func (l DataLayout) ChannelsFirst() bool {
	return l == NCHW || l == NCDHW
}

// Padding2d is the explicit padding of a 2D spatial operator.
type Padding2d struct {
	Top, Bottom, Left, Right int
}

// Add returns the element-wise sum of two paddings.
func (p Padding2d) Add(o Padding2d) Padding2d {
	return Padding2d{Top: p.Top + o.Top, Bottom: p.Bottom + o.Bottom, Left: p.Left + o.Left, Right: p.Right + o.Right}
}

func (p Padding2d) validate() error {
	if p.Top < 0 || p.Bottom < 0 || p.Left < 0 || p.Right < 0 {
		return invalidParam("negative padding %+v", p)
	}
	return nil
}

// InputDescriptor parameterizes a graph input.
type InputDescriptor struct {
	BindingID int
}

// OutputDescriptor parameterizes a graph output.
type OutputDescriptor struct {
	BindingID int
}

// ConstantDescriptor holds the data of a constant layer.
type ConstantDescriptor struct {
	Tensor tensor.ConstTensor
}

// ActivationFunction selects the activation kind.
type ActivationFunction int

// Activation functions.
const (
	ActivationSigmoid ActivationFunction = iota
	ActivationTanH
	ActivationLinear
	ActivationReLu
	ActivationBoundedReLu
	ActivationSoftReLu
	ActivationLeakyReLu
	ActivationAbs
	ActivationSqrt
	ActivationSquare
	ActivationElu
	ActivationHardSwish
	ActivationGelu
)

var activationNames = [...]string{"Sigmoid", "TanH", "Linear", "ReLu", "BoundedReLu", "SoftReLu",
	"LeakyReLu", "Abs", "Sqrt", "Square", "Elu", "HardSwish", "Gelu"}

// String returns the activation name.
func (f ActivationFunction) String() string {
	if f >= 0 && int(f) < len(activationNames) {
		return activationNames[f]
	}
	return "unknown"
}

// ActivationDescriptor parameterizes an Activation layer. A and B are the
// upper/lower bounds of BoundedReLu, the slope of LeakyReLu, or alpha of Elu.
type ActivationDescriptor struct {
	Function ActivationFunction
	A, B     float32
}

// CastDescriptor converts the element type of its input.
type CastDescriptor struct {
	DataType tensor.DataType
}

// ConcatDescriptor joins Inputs tensors along Axis.
type ConcatDescriptor struct {
	Axis   int
	Inputs int
}

// Convolution2dDescriptor parameterizes a 2D convolution. Inputs are
// [data, weights] plus [bias] when BiasEnabled.
type Convolution2dDescriptor struct {
	PadLeft, PadRight, PadTop, PadBottom int
	StrideX, StrideY                     int
	DilationX, DilationY                 int
	BiasEnabled                          bool
	DataLayout                           DataLayout
}

// Convolution3dDescriptor parameterizes a 3D convolution over NDHWC/NCDHW data.
type Convolution3dDescriptor struct {
	PadLeft, PadRight, PadTop, PadBottom, PadFront, PadBack int
	StrideX, StrideY, StrideZ                               int
	DilationX, DilationY, DilationZ                         int
	BiasEnabled                                             bool
	DataLayout                                              DataLayout
}

// DepthwiseConvolution2dDescriptor parameterizes a depthwise convolution.
// Weights are laid out [1, H, W, I*M].
type DepthwiseConvolution2dDescriptor struct {
	PadLeft, PadRight, PadTop, PadBottom int
	StrideX, StrideY                     int
	DilationX, DilationY                 int
	BiasEnabled                          bool
	DataLayout                           DataLayout
}

// DequantizeDescriptor converts quantized data to Float32.
type DequantizeDescriptor struct{}

// BinaryOperation selects an element-wise binary operator.
type BinaryOperation int

// Binary operations.
const (
	BinaryAdd BinaryOperation = iota
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMaximum
	BinaryMinimum
	BinaryPower
)

var binaryNames = [...]string{"Add", "Sub", "Mul", "Div", "Maximum", "Minimum", "Power"}

// String returns the operation name.
func (op BinaryOperation) String() string {
	if op >= 0 && int(op) < len(binaryNames) {
		return binaryNames[op]
	}
	return "unknown"
}

// ElementwiseBinaryDescriptor parameterizes a broadcasting binary operator.
type ElementwiseBinaryDescriptor struct {
	Operation BinaryOperation
}

// UnaryOperation selects an element-wise unary operator.
type UnaryOperation int

// Unary operations.
const (
	UnaryAbs UnaryOperation = iota
	UnaryExp
	UnaryFloor
	UnaryLog
	UnaryNeg
	UnaryRsqrt
	UnarySqrt
)

var unaryNames = [...]string{"Abs", "Exp", "Floor", "Log", "Neg", "Rsqrt", "Sqrt"}

// String returns the operation name.
func (op UnaryOperation) String() string {
	if op >= 0 && int(op) < len(unaryNames) {
		return unaryNames[op]
	}
	return "unknown"
}

// ElementwiseUnaryDescriptor parameterizes a unary operator.
type ElementwiseUnaryDescriptor struct {
	Operation UnaryOperation
}

// FullyConnectedDescriptor parameterizes a dense layer. Weights are [K, O],
// or [O, K] when TransposeWeightMatrix is set.
type FullyConnectedDescriptor struct {
	BiasEnabled           bool
	TransposeWeightMatrix bool
}

// FusedKind names the macro-operator a Fused layer computes.
type FusedKind int

// Fused kernels.
const (
	// FusedAddMulAdd computes ((in0 + in1) * in2) + in3.
	FusedAddMulAdd FusedKind = iota
)

// String returns the fused kernel name.
func (k FusedKind) String() string {
	if k == FusedAddMulAdd {
		return "AddMulAdd"
	}
	return "unknown"
}

// FusedDescriptor parameterizes a fused macro-operator produced by the optimizer.
type FusedDescriptor struct {
	Kind       FusedKind
	Inputs     int
	Outputs    int
	Activation *ActivationDescriptor // absorbed trailing activation, if any
}

// MeanDescriptor reduces Axes by averaging. An empty Axes reduces every dimension.
type MeanDescriptor struct {
	Axes     []int
	KeepDims bool
}

// MergeDescriptor forwards one of two identically shaped inputs.
type MergeDescriptor struct{}

// PaddingMode selects how a Pad layer fills the border.
type PaddingMode int

// Padding modes.
const (
	PadConstant PaddingMode = iota
	PadReflect
	PadSymmetric
)

// PadDescriptor lists (before, after) amounts per dimension.
type PadDescriptor struct {
	PadList  [][2]int
	PadValue float32
	Mode     PaddingMode
}

// PoolingAlgorithm selects the pooling reduction.
type PoolingAlgorithm int

// Pooling algorithms.
const (
	PoolMax PoolingAlgorithm = iota
	PoolAverage
	PoolL2
)

// OutputShapeRounding selects floor or ceiling in the pooling output formula.
type OutputShapeRounding int

// Rounding modes.
const (
	RoundFloor OutputShapeRounding = iota
	RoundCeiling
)

// PaddingMethod controls whether padded elements count in averages.
type PaddingMethod int

// Padding methods.
const (
	// PaddingIgnoreValue counts padded elements with value zero.
	PaddingIgnoreValue PaddingMethod = iota
	// PaddingExclude leaves padded elements out of the reduction.
	PaddingExclude
)

// Pooling2dDescriptor parameterizes a 2D pooling layer.
type Pooling2dDescriptor struct {
	PoolType                             PoolingAlgorithm
	PadLeft, PadRight, PadTop, PadBottom int
	PoolWidth, PoolHeight                int
	StrideX, StrideY                     int
	Rounding                             OutputShapeRounding
	PaddingMethod                        PaddingMethod
	DataLayout                           DataLayout
}

// QuantizeDescriptor quantizes its input to DataType with Scale and Offset.
type QuantizeDescriptor struct {
	DataType tensor.DataType
	Scale    float32
	Offset   int32
}

// RankDescriptor produces the rank of its input as a scalar.
type RankDescriptor struct{}

// ReshapeDescriptor reshapes its input to TargetShape.
type ReshapeDescriptor struct {
	TargetShape tensor.Shape
}

// SoftmaxDescriptor parameterizes a softmax along Axis (-1 for the last axis).
type SoftmaxDescriptor struct {
	Beta float32
	Axis int
}

// SplitterDescriptor splits its input along Axis into pieces of Sizes.
type SplitterDescriptor struct {
	Axis  int
	Sizes []int
}

// StackDescriptor stacks Inputs tensors of InputShape along a new Axis.
type StackDescriptor struct {
	Axis       int
	Inputs     int
	InputShape tensor.Shape
}

// StandInDescriptor is a placeholder for an operator the runtime does not
// know; its output descriptors must be set by the producer.
type StandInDescriptor struct {
	Inputs  int
	Outputs int
}

// Type implementations.

func (InputDescriptor) Type() LayerType                  { return LayerInput }
func (OutputDescriptor) Type() LayerType                 { return LayerOutput }
func (ConstantDescriptor) Type() LayerType               { return LayerConstant }
func (ActivationDescriptor) Type() LayerType             { return LayerActivation }
func (CastDescriptor) Type() LayerType                   { return LayerCast }
func (ConcatDescriptor) Type() LayerType                 { return LayerConcat }
func (Convolution2dDescriptor) Type() LayerType          { return LayerConvolution2d }
func (Convolution3dDescriptor) Type() LayerType          { return LayerConvolution3d }
func (DepthwiseConvolution2dDescriptor) Type() LayerType { return LayerDepthwiseConvolution2d }
func (DequantizeDescriptor) Type() LayerType             { return LayerDequantize }
func (ElementwiseBinaryDescriptor) Type() LayerType      { return LayerElementwiseBinary }
func (ElementwiseUnaryDescriptor) Type() LayerType       { return LayerElementwiseUnary }
func (FullyConnectedDescriptor) Type() LayerType         { return LayerFullyConnected }
func (FusedDescriptor) Type() LayerType                  { return LayerFused }
func (MeanDescriptor) Type() LayerType                   { return LayerMean }
func (MergeDescriptor) Type() LayerType                  { return LayerMerge }
func (PadDescriptor) Type() LayerType                    { return LayerPad }
func (Pooling2dDescriptor) Type() LayerType              { return LayerPooling2d }
func (QuantizeDescriptor) Type() LayerType               { return LayerQuantize }
func (RankDescriptor) Type() LayerType                   { return LayerRank }
func (ReshapeDescriptor) Type() LayerType                { return LayerReshape }
func (SoftmaxDescriptor) Type() LayerType                { return LayerSoftmax }
func (SplitterDescriptor) Type() LayerType               { return LayerSplitter }
func (StackDescriptor) Type() LayerType                  { return LayerStack }
func (StandInDescriptor) Type() LayerType                { return LayerStandIn }

func (InputDescriptor) descriptor()                  {}
func (OutputDescriptor) descriptor()                 {}
func (ConstantDescriptor) descriptor()               {}
func (ActivationDescriptor) descriptor()             {}
func (CastDescriptor) descriptor()                   {}
func (ConcatDescriptor) descriptor()                 {}
func (Convolution2dDescriptor) descriptor()          {}
func (Convolution3dDescriptor) descriptor()          {}
func (DepthwiseConvolution2dDescriptor) descriptor() {}
func (DequantizeDescriptor) descriptor()             {}
func (ElementwiseBinaryDescriptor) descriptor()      {}
func (ElementwiseUnaryDescriptor) descriptor()       {}
func (FullyConnectedDescriptor) descriptor()         {}
func (FusedDescriptor) descriptor()                  {}
func (MeanDescriptor) descriptor()                   {}
func (MergeDescriptor) descriptor()                  {}
func (PadDescriptor) descriptor()                    {}
func (Pooling2dDescriptor) descriptor()              {}
func (QuantizeDescriptor) descriptor()               {}
func (RankDescriptor) descriptor()                   {}
func (ReshapeDescriptor) descriptor()                {}
func (SoftmaxDescriptor) descriptor()                {}
func (SplitterDescriptor) descriptor()               {}
func (StackDescriptor) descriptor()                  {}
func (StandInDescriptor) descriptor()                {}

// Slot counts.

func (InputDescriptor) NumInputs() int                    { return 0 }
func (InputDescriptor) NumOutputs() int                   { return 1 }
func (OutputDescriptor) NumInputs() int                   { return 1 }
func (OutputDescriptor) NumOutputs() int                  { return 0 }
func (ConstantDescriptor) NumInputs() int                 { return 0 }
func (ConstantDescriptor) NumOutputs() int                { return 1 }
func (ActivationDescriptor) NumInputs() int               { return 1 }
func (ActivationDescriptor) NumOutputs() int              { return 1 }
func (CastDescriptor) NumInputs() int                     { return 1 }
func (CastDescriptor) NumOutputs() int                    { return 1 }
func (d ConcatDescriptor) NumInputs() int                 { return d.Inputs }
func (ConcatDescriptor) NumOutputs() int                  { return 1 }
func (d Convolution2dDescriptor) NumInputs() int          { return weightedInputs(d.BiasEnabled) }
func (Convolution2dDescriptor) NumOutputs() int           { return 1 }
func (d Convolution3dDescriptor) NumInputs() int          { return weightedInputs(d.BiasEnabled) }
func (Convolution3dDescriptor) NumOutputs() int           { return 1 }
func (d DepthwiseConvolution2dDescriptor) NumInputs() int { return weightedInputs(d.BiasEnabled) }
func (DepthwiseConvolution2dDescriptor) NumOutputs() int  { return 1 }
func (DequantizeDescriptor) NumInputs() int               { return 1 }
func (DequantizeDescriptor) NumOutputs() int              { return 1 }
func (ElementwiseBinaryDescriptor) NumInputs() int        { return 2 }
func (ElementwiseBinaryDescriptor) NumOutputs() int       { return 1 }
func (ElementwiseUnaryDescriptor) NumInputs() int         { return 1 }
func (ElementwiseUnaryDescriptor) NumOutputs() int        { return 1 }
func (d FullyConnectedDescriptor) NumInputs() int         { return weightedInputs(d.BiasEnabled) }
func (FullyConnectedDescriptor) NumOutputs() int          { return 1 }
func (d FusedDescriptor) NumInputs() int                  { return d.Inputs }
func (d FusedDescriptor) NumOutputs() int                 { return d.Outputs }
func (MeanDescriptor) NumInputs() int                     { return 1 }
func (MeanDescriptor) NumOutputs() int                    { return 1 }
func (MergeDescriptor) NumInputs() int                    { return 2 }
func (MergeDescriptor) NumOutputs() int                   { return 1 }
func (PadDescriptor) NumInputs() int                      { return 1 }
func (PadDescriptor) NumOutputs() int                     { return 1 }
func (Pooling2dDescriptor) NumInputs() int                { return 1 }
func (Pooling2dDescriptor) NumOutputs() int               { return 1 }
func (QuantizeDescriptor) NumInputs() int                 { return 1 }
func (QuantizeDescriptor) NumOutputs() int                { return 1 }
func (RankDescriptor) NumInputs() int                     { return 1 }
func (RankDescriptor) NumOutputs() int                    { return 1 }
func (ReshapeDescriptor) NumInputs() int                  { return 1 }
func (ReshapeDescriptor) NumOutputs() int                 { return 1 }
func (SoftmaxDescriptor) NumInputs() int                  { return 1 }
func (SoftmaxDescriptor) NumOutputs() int                 { return 1 }
func (SplitterDescriptor) NumInputs() int                 { return 1 }
func (d SplitterDescriptor) NumOutputs() int              { return len(d.Sizes) }
func (d StackDescriptor) NumInputs() int                  { return d.Inputs }
func (StackDescriptor) NumOutputs() int                   { return 1 }
func (d StandInDescriptor) NumInputs() int                { return d.Inputs }
func (d StandInDescriptor) NumOutputs() int               { return d.Outputs }

func weightedInputs(bias bool) int {
	if bias {
		return 3
	}
	return 2
}

// Padding accessors used by pad folding.

// Padding returns the explicit spatial padding.
func (d Convolution2dDescriptor) Padding() Padding2d {
	return Padding2d{Top: d.PadTop, Bottom: d.PadBottom, Left: d.PadLeft, Right: d.PadRight}
}

// WithPadding returns a copy with the spatial padding replaced.
func (d Convolution2dDescriptor) WithPadding(p Padding2d) Convolution2dDescriptor {
	d.PadTop, d.PadBottom, d.PadLeft, d.PadRight = p.Top, p.Bottom, p.Left, p.Right
	return d
}

// Layout returns the data layout.
func (d Convolution2dDescriptor) Layout() DataLayout { return d.DataLayout }

// Padding returns the explicit spatial padding.
func (d DepthwiseConvolution2dDescriptor) Padding() Padding2d {
	return Padding2d{Top: d.PadTop, Bottom: d.PadBottom, Left: d.PadLeft, Right: d.PadRight}
}

// WithPadding returns a copy with the spatial padding replaced.
func (d DepthwiseConvolution2dDescriptor) WithPadding(p Padding2d) DepthwiseConvolution2dDescriptor {
	d.PadTop, d.PadBottom, d.PadLeft, d.PadRight = p.Top, p.Bottom, p.Left, p.Right
	return d
}

// Layout returns the data layout.
func (d DepthwiseConvolution2dDescriptor) Layout() DataLayout { return d.DataLayout }

// Padding returns the explicit spatial padding.
func (d Pooling2dDescriptor) Padding() Padding2d {
	return Padding2d{Top: d.PadTop, Bottom: d.PadBottom, Left: d.PadLeft, Right: d.PadRight}
}

// WithPadding returns a copy with the spatial padding replaced.
func (d Pooling2dDescriptor) WithPadding(p Padding2d) Pooling2dDescriptor {
	d.PadTop, d.PadBottom, d.PadLeft, d.PadRight = p.Top, p.Bottom, p.Left, p.Right
	return d
}

// Layout returns the data layout.
func (d Pooling2dDescriptor) Layout() DataLayout { return d.DataLayout }
