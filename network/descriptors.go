// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package network

import (
	"github.com/born-ml/graphc/internal/graph"
)

// LayerType is the closed set of layer kinds.
type LayerType = graph.LayerType

// Layer types.
const (
	LayerInput                  = graph.LayerInput
	LayerOutput                 = graph.LayerOutput
	LayerConstant               = graph.LayerConstant
	LayerActivation             = graph.LayerActivation
	LayerCast                   = graph.LayerCast
	LayerConcat                 = graph.LayerConcat
	LayerConvolution2d          = graph.LayerConvolution2d
	LayerConvolution3d          = graph.LayerConvolution3d
	LayerDepthwiseConvolution2d = graph.LayerDepthwiseConvolution2d
	LayerDequantize             = graph.LayerDequantize
	LayerElementwiseBinary      = graph.LayerElementwiseBinary
	LayerElementwiseUnary       = graph.LayerElementwiseUnary
	LayerFullyConnected         = graph.LayerFullyConnected
	LayerFused                  = graph.LayerFused
	LayerMean                   = graph.LayerMean
	LayerMerge                  = graph.LayerMerge
	LayerPad                    = graph.LayerPad
	LayerPooling2d              = graph.LayerPooling2d
	LayerQuantize               = graph.LayerQuantize
	LayerRank                   = graph.LayerRank
	LayerReshape                = graph.LayerReshape
	LayerSoftmax                = graph.LayerSoftmax
	LayerSplitter               = graph.LayerSplitter
	LayerStack                  = graph.LayerStack
	LayerStandIn                = graph.LayerStandIn
)

// ParseLayerType returns the layer type printed as name.
func ParseLayerType(name string) (LayerType, error) {
	return graph.ParseLayerType(name)
}

// Descriptor parameterizes a layer. Only the descriptor types of this
// package implement it.
type Descriptor = graph.Descriptor

// Layer descriptors.
type (
	InputDescriptor                  = graph.InputDescriptor
	OutputDescriptor                 = graph.OutputDescriptor
	ConstantDescriptor               = graph.ConstantDescriptor
	ActivationDescriptor             = graph.ActivationDescriptor
	CastDescriptor                   = graph.CastDescriptor
	ConcatDescriptor                 = graph.ConcatDescriptor
	Convolution2dDescriptor          = graph.Convolution2dDescriptor
	Convolution3dDescriptor          = graph.Convolution3dDescriptor
	DepthwiseConvolution2dDescriptor = graph.DepthwiseConvolution2dDescriptor
	DequantizeDescriptor             = graph.DequantizeDescriptor
	ElementwiseBinaryDescriptor      = graph.ElementwiseBinaryDescriptor
	ElementwiseUnaryDescriptor       = graph.ElementwiseUnaryDescriptor
	FullyConnectedDescriptor         = graph.FullyConnectedDescriptor
	FusedDescriptor                  = graph.FusedDescriptor
	MeanDescriptor                   = graph.MeanDescriptor
	MergeDescriptor                  = graph.MergeDescriptor
	PadDescriptor                    = graph.PadDescriptor
	Pooling2dDescriptor              = graph.Pooling2dDescriptor
	QuantizeDescriptor               = graph.QuantizeDescriptor
	RankDescriptor                   = graph.RankDescriptor
	ReshapeDescriptor                = graph.ReshapeDescriptor
	SoftmaxDescriptor                = graph.SoftmaxDescriptor
	SplitterDescriptor               = graph.SplitterDescriptor
	StackDescriptor                  = graph.StackDescriptor
	StandInDescriptor                = graph.StandInDescriptor
)

// Descriptor parameter types.
type (
	DataLayout          = graph.DataLayout
	Padding2d           = graph.Padding2d
	ActivationFunction  = graph.ActivationFunction
	BinaryOperation     = graph.BinaryOperation
	UnaryOperation      = graph.UnaryOperation
	FusedKind           = graph.FusedKind
	PaddingMode         = graph.PaddingMode
	PoolingAlgorithm    = graph.PoolingAlgorithm
	OutputShapeRounding = graph.OutputShapeRounding
	PaddingMethod       = graph.PaddingMethod
)

// Data layouts.
const (
	NCHW  = graph.NCHW
	NHWC  = graph.NHWC
	NCDHW = graph.NCDHW
	NDHWC = graph.NDHWC
)

// Activation functions.
const (
	ActivationSigmoid     = graph.ActivationSigmoid
	ActivationTanH        = graph.ActivationTanH
	ActivationLinear      = graph.ActivationLinear
	ActivationReLu        = graph.ActivationReLu
	ActivationBoundedReLu = graph.ActivationBoundedReLu
	ActivationSoftReLu    = graph.ActivationSoftReLu
	ActivationLeakyReLu   = graph.ActivationLeakyReLu
	ActivationAbs         = graph.ActivationAbs
	ActivationSqrt        = graph.ActivationSqrt
	ActivationSquare      = graph.ActivationSquare
	ActivationElu         = graph.ActivationElu
	ActivationHardSwish   = graph.ActivationHardSwish
	ActivationGelu        = graph.ActivationGelu
)

// Elementwise operations.
const (
	BinaryAdd     = graph.BinaryAdd
	BinarySub     = graph.BinarySub
	BinaryMul     = graph.BinaryMul
	BinaryDiv     = graph.BinaryDiv
	BinaryMaximum = graph.BinaryMaximum
	BinaryMinimum = graph.BinaryMinimum
	BinaryPower   = graph.BinaryPower

	UnaryAbs   = graph.UnaryAbs
	UnaryExp   = graph.UnaryExp
	UnaryFloor = graph.UnaryFloor
	UnaryLog   = graph.UnaryLog
	UnaryNeg   = graph.UnaryNeg
	UnaryRsqrt = graph.UnaryRsqrt
	UnarySqrt  = graph.UnarySqrt
)

// FusedAddMulAdd computes ((in0 + in1) * in2) + in3.
const FusedAddMulAdd = graph.FusedAddMulAdd

// Padding and pooling parameters.
const (
	PadConstant  = graph.PadConstant
	PadReflect   = graph.PadReflect
	PadSymmetric = graph.PadSymmetric

	PoolMax     = graph.PoolMax
	PoolAverage = graph.PoolAverage
	PoolL2      = graph.PoolL2

	RoundFloor   = graph.RoundFloor
	RoundCeiling = graph.RoundCeiling

	PaddingIgnoreValue = graph.PaddingIgnoreValue
	PaddingExclude     = graph.PaddingExclude
)
