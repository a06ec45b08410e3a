package infer

import (
	"errors"
	"fmt"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// OutputInfos computes full output descriptors for desc: shapes from
// OutputShapes, element type and quantization from the inputs.
func OutputInfos(desc graph.Descriptor, inputs []tensor.TensorInfo) ([]tensor.TensorInfo, error) {
	shapes := make([]tensor.Shape, len(inputs))
	for i, in := range inputs {
		shapes[i] = in.Shape()
	}
	outShapes, err := OutputShapes(desc, shapes)
	if err != nil {
		return nil, err
	}

	infos := make([]tensor.TensorInfo, len(outShapes))
	for i, s := range outShapes {
		infos[i] = outputType(desc, inputs).WithShape(s)
	}
	return infos, nil
}

// outputType derives element type and quantization of an output.
func outputType(desc graph.Descriptor, inputs []tensor.TensorInfo) tensor.TensorInfo {
	switch d := desc.(type) {
	case graph.ConstantDescriptor:
		return d.Tensor.Info()
	case graph.RankDescriptor:
		return tensor.NewTensorInfo(tensor.ScalarShape(), tensor.Signed32)
	case graph.DequantizeDescriptor:
		return tensor.NewTensorInfo(tensor.ScalarShape(), tensor.Float32)
	case graph.CastDescriptor:
		return tensor.NewTensorInfo(tensor.ScalarShape(), d.DataType)
	case graph.QuantizeDescriptor:
		return tensor.NewQuantizedTensorInfo(tensor.ScalarShape(), d.DataType, d.Scale, d.Offset)
	}
	if len(inputs) == 0 {
		return tensor.NewTensorInfo(tensor.ScalarShape(), tensor.Float32)
	}
	return inputs[0].WithConstant(false)
}

func validationError(l *graph.Layer, err error, format string, args ...any) error {
	return &graph.LayerValidationError{
		Layer:   l.DisplayName(),
		Type:    l.Type(),
		Details: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// inputInfos resolves the descriptors seen by every input slot of l.
func inputInfos(g *graph.Graph, l *graph.Layer) ([]tensor.TensorInfo, error) {
	infos := make([]tensor.TensorInfo, l.NumInputSlots())
	for i := range infos {
		in := l.InputSlot(i)
		if _, ok := in.Connection(); !ok {
			return nil, validationError(l, graph.ErrUnresolvedShape, "input %d is not connected", i)
		}
		info, ok := g.InputTensorInfo(in)
		if !ok {
			info = tensor.NewTensorInfo(tensor.UnknownRank(), tensor.Float32)
		}
		if l.ShapeInferenceMethod() == graph.ValidateOnly && info.Shape().Dimensionality() == tensor.NotSpecified {
			return nil, validationError(l, graph.ErrUnresolvedShape, "input %d shape is not specified", i)
		}
		infos[i] = info
	}
	return infos, nil
}

// ValidateTensorShapesFromInputs infers the outputs of l and checks them
// against the descriptors already set on its output slots.
//
// Under ValidateOnly every input and output must already be specified and
// must agree with inference. Under InferAndValidate known output dimensions
// must agree with inference and unknown ones are filled in; an output that is
// unset or NotSpecified adopts the inferred descriptor. Calling it twice with
// unchanged inputs yields the same descriptors.
func ValidateTensorShapesFromInputs(g *graph.Graph, l *graph.Layer) error {
	switch l.Type() {
	case graph.LayerInput, graph.LayerStandIn:
		for i := 0; i < l.NumOutputSlots(); i++ {
			out := l.OutputSlot(i)
			if !out.IsTensorInfoSet() || out.TensorInfo().Shape().Dimensionality() == tensor.NotSpecified {
				return validationError(l, graph.ErrUnresolvedShape, "output %d must be set by the producer", i)
			}
		}
		return nil
	}

	inputs, err := inputInfos(g, l)
	if err != nil {
		return err
	}
	inferred, err := OutputInfos(l.Descriptor(), inputs)
	if err != nil {
		if errors.Is(err, graph.ErrInvalidParameter) || errors.Is(err, graph.ErrUnsupportedLayer) {
			return fmt.Errorf("%s layer %q: %w", l.Type(), l.DisplayName(), err)
		}
		return validationError(l, err, "")
	}

	for i, want := range inferred {
		out := l.OutputSlot(i)
		declared := out.TensorInfo()

		if l.ShapeInferenceMethod() == graph.ValidateOnly {
			if declared.Shape().Dimensionality() == tensor.NotSpecified {
				return validationError(l, graph.ErrShapeMismatch,
					"output %d is not specified, inferred %v", i, want.Shape())
			}
			merged, err := Merge(declared.Shape(), want.Shape())
			if err != nil || !merged.Equal(declared.Shape()) {
				return validationError(l, graph.ErrShapeMismatch,
					"output %d is %v, inferred %v", i, declared.Shape(), want.Shape())
			}
			continue
		}

		merged, err := Merge(declared.Shape(), want.Shape())
		if err != nil {
			return validationError(l, graph.ErrShapeMismatch,
				"output %d is %v, inferred %v", i, declared.Shape(), want.Shape())
		}
		if out.IsTensorInfoSet() {
			out.SetTensorInfo(declared.WithShape(merged))
		} else {
			out.SetTensorInfo(want.WithShape(merged))
		}
	}
	return nil
}

// InferTensorInfos validates every layer of g in topological order, so each
// layer sees the resolved outputs of its producers.
func InferTensorInfos(g *graph.Graph) error {
	order, err := g.TopologicalSort()
	if err != nil {
		return err
	}
	for _, l := range order {
		if err := ValidateTensorShapesFromInputs(g, l); err != nil {
			return err
		}
	}
	return nil
}
