package graph

import "fmt"

// LayerType tags every layer with its operator kind. The set is closed:
// shape inference and capability queries switch over it exhaustively.
type LayerType int

// Layer types.
const (
	LayerInput LayerType = iota
	LayerOutput
	LayerConstant
	LayerActivation
	LayerCast
	LayerConcat
	LayerConvolution2d
	LayerConvolution3d
	LayerDepthwiseConvolution2d
	LayerDequantize
	LayerElementwiseBinary
	LayerElementwiseUnary
	LayerFullyConnected
	LayerFused
	LayerMean
	LayerMerge
	LayerPad
	LayerPooling2d
	LayerQuantize
	LayerRank
	LayerReshape
	LayerSoftmax
	LayerSplitter
	LayerStack
	LayerStandIn

	// layerTypeCount must stay last.
	layerTypeCount
)

var layerTypeNames = [...]string{
	LayerInput:                  "Input",
	LayerOutput:                 "Output",
	LayerConstant:               "Constant",
	LayerActivation:             "Activation",
	LayerCast:                   "Cast",
	LayerConcat:                 "Concat",
	LayerConvolution2d:          "Convolution2d",
	LayerConvolution3d:          "Convolution3d",
	LayerDepthwiseConvolution2d: "DepthwiseConvolution2d",
	LayerDequantize:             "Dequantize",
	LayerElementwiseBinary:      "ElementwiseBinary",
	LayerElementwiseUnary:       "ElementwiseUnary",
	LayerFullyConnected:         "FullyConnected",
	LayerFused:                  "Fused",
	LayerMean:                   "Mean",
	LayerMerge:                  "Merge",
	LayerPad:                    "Pad",
	LayerPooling2d:              "Pooling2d",
	LayerQuantize:               "Quantize",
	LayerRank:                   "Rank",
	LayerReshape:                "Reshape",
	LayerSoftmax:                "Softmax",
	LayerSplitter:               "Splitter",
	LayerStack:                  "Stack",
	LayerStandIn:                "StandIn",
}

// String returns the layer type name.
func (t LayerType) String() string {
	if t >= 0 && t < layerTypeCount {
		return layerTypeNames[t]
	}
	return fmt.Sprintf("LayerType(%d)", int(t))
}

// ParseLayerType maps a name returned by String back to its LayerType.
func ParseLayerType(name string) (LayerType, error) {
	for i, s := range layerTypeNames {
		if s == name {
			return LayerType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layer type %q", name)
}

// LayerTypes returns every layer type in declaration order.
func LayerTypes() []LayerType {
	types := make([]LayerType, layerTypeCount)
	for i := range types {
		types[i] = LayerType(i)
	}
	return types
}
