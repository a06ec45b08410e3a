package onnx

import (
	"fmt"
	"math"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// registerShape adds shape manipulation and utility converters.
func (r *Registry) registerShape() {
	r.Register("Reshape", convertReshape)
	r.Register("Flatten", convertFlatten)
	r.Register("Concat", convertConcat)
	r.Register("Split", convertSplit)
	r.Register("ReduceMean", convertReduceMean)
	r.Register("Cast", convertCast)
	r.Register("Identity", convertIdentity)
	r.Register("Dropout", convertIdentity)
	r.Register("Constant", convertConstant)
}

// normalizeAxis maps a possibly negative axis into [0, rank).
func normalizeAxis(n *NodeProto, axis int64, rank int) (int, error) {
	if axis < 0 {
		axis += int64(rank)
	}
	if axis < 0 || axis >= int64(rank) {
		return 0, fmt.Errorf("%w: %s %q: axis %d out of range for rank %d",
			graph.ErrInvalidParameter, n.OpType, n.DisplayName(), axis, rank)
	}
	return int(axis), nil
}

func convertReshape(imp *Importer, n *NodeProto) error {
	x, info, err := imp.OperandInfo(n.Input(0))
	if err != nil {
		return err
	}
	var req []int64
	if imp.Opset() < 5 {
		req = n.AttrInts("shape")
	} else {
		t, ok := imp.Const(n.Input(1))
		if !ok {
			return unsupported(n, "shape must be constant")
		}
		if req, err = t.Ints(); err != nil {
			return err
		}
	}
	target, err := resolveReshape(info.Shape(), req, n.AttrInt("allowzero", 0) == 1)
	if err != nil {
		return fmt.Errorf("%s %q: %w", n.OpType, n.DisplayName(), err)
	}
	l, err := imp.AddLayer(graph.ReshapeDescriptor{TargetShape: target}, n.DisplayName(), x)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}

// resolveReshape turns an ONNX shape operand into a concrete shape: 0 copies
// the input dimension (unless allowZero) and a single -1 takes the
// remaining elements.
func resolveReshape(in tensor.Shape, req []int64, allowZero bool) (tensor.Shape, error) {
	dims := make([]int, len(req))
	inferred, known := -1, 1
	for i, v := range req {
		switch {
		case v == -1:
			if inferred >= 0 {
				return tensor.Shape{}, fmt.Errorf("%w: more than one -1 in %v", graph.ErrInvalidParameter, req)
			}
			inferred = i
			continue
		case v == 0 && !allowZero:
			if i >= in.Rank() || !in.IsDimSpecified(i) {
				return tensor.Shape{}, fmt.Errorf("%w: dimension %d of %v is unknown", graph.ErrUnresolvedShape, i, in)
			}
			dims[i] = in.Dim(i)
		case v < 0:
			return tensor.Shape{}, fmt.Errorf("%w: dimension %d in %v", graph.ErrInvalidParameter, v, req)
		default:
			dims[i] = int(v)
		}
		known *= dims[i]
	}
	if inferred >= 0 {
		total, ok := in.NumElements()
		if !ok {
			return tensor.Shape{}, fmt.Errorf("%w: cannot infer -1 from %v", graph.ErrUnresolvedShape, in)
		}
		if known == 0 || total%known != 0 {
			return tensor.Shape{}, fmt.Errorf("%w: cannot reshape %v to %v", graph.ErrShapeMismatch, in, req)
		}
		dims[inferred] = total / known
	}
	return tensor.NewShape(dims...), nil
}

func convertFlatten(imp *Importer, n *NodeProto) error {
	x, info, err := imp.OperandInfo(n.Input(0))
	if err != nil {
		return err
	}
	s := info.Shape()
	if !s.IsFullySpecified() {
		return fmt.Errorf("%w: %s %q: input %v", graph.ErrUnresolvedShape, n.OpType, n.DisplayName(), s)
	}
	axis := n.AttrInt("axis", 1)
	if axis < 0 {
		axis += int64(s.Rank())
	}
	if axis < 0 || axis > int64(s.Rank()) {
		return fmt.Errorf("%w: %s %q: axis %d for rank %d", graph.ErrInvalidParameter, n.OpType, n.DisplayName(), axis, s.Rank())
	}
	outer, inner := 1, 1
	for i, d := range s.Dims() {
		if int64(i) < axis {
			outer *= d
		} else {
			inner *= d
		}
	}
	l, err := imp.AddLayer(graph.ReshapeDescriptor{TargetShape: tensor.NewShape(outer, inner)}, n.DisplayName(), x)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}

func convertConcat(imp *Importer, n *NodeProto) error {
	if len(n.Inputs) == 0 {
		return unsupported(n, "no inputs")
	}
	inputs := make([]*graph.OutputSlot, len(n.Inputs))
	var rank int
	for i, name := range n.Inputs {
		out, info, err := imp.OperandInfo(name)
		if err != nil {
			return err
		}
		inputs[i], rank = out, info.Shape().Rank()
	}
	axis, err := normalizeAxis(n, n.AttrInt("axis", 0), rank)
	if err != nil {
		return err
	}
	l, err := imp.AddLayer(graph.ConcatDescriptor{Axis: axis, Inputs: len(inputs)}, n.DisplayName(), inputs...)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}

// convertSplit reads sizes from the split input or attribute, else splits
// into equal parts with a smaller last part.
func convertSplit(imp *Importer, n *NodeProto) error {
	x, info, err := imp.OperandInfo(n.Input(0))
	if err != nil {
		return err
	}
	in := info.Shape()
	axis, err := normalizeAxis(n, n.AttrInt("axis", 0), in.Rank())
	if err != nil {
		return err
	}

	var split []int64
	if name := n.Input(1); name != "" {
		t, ok := imp.Const(name)
		if !ok {
			return unsupported(n, "split must be constant")
		}
		if split, err = t.Ints(); err != nil {
			return err
		}
	} else if s := n.AttrInts("split"); len(s) > 0 {
		split = s
	}

	var sizes []int
	if split != nil {
		for _, s := range split {
			sizes = append(sizes, int(s))
		}
	} else {
		if !in.IsDimSpecified(axis) {
			return fmt.Errorf("%w: %s %q: split axis of %v is unknown", graph.ErrUnresolvedShape, n.OpType, n.DisplayName(), in)
		}
		parts := len(n.Outputs)
		if num := n.AttrInt("num_outputs", 0); num > 0 {
			parts = int(num)
		}
		dim := in.Dim(axis)
		chunk := int(math.Ceil(float64(dim) / float64(parts)))
		for i := 0; i < parts; i++ {
			sizes = append(sizes, min(chunk, dim-i*chunk))
		}
	}

	l, err := imp.AddLayer(graph.SplitterDescriptor{Axis: axis, Sizes: sizes}, n.DisplayName(), x)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}

// convertReduceMean reads axes from the attribute before opset 18 and from
// the second input after.
func convertReduceMean(imp *Importer, n *NodeProto) error {
	x, info, err := imp.OperandInfo(n.Input(0))
	if err != nil {
		return err
	}
	var axes []int64
	if imp.Opset() >= 18 {
		if name := n.Input(1); name != "" {
			t, ok := imp.Const(name)
			if !ok {
				return unsupported(n, "axes must be constant")
			}
			if axes, err = t.Ints(); err != nil {
				return err
			}
		}
	} else {
		axes = n.AttrInts("axes")
	}
	if len(axes) == 0 && n.AttrInt("noop_with_empty_axes", 0) == 1 {
		imp.Alias(n.Outputs[0], x)
		return nil
	}

	d := graph.MeanDescriptor{KeepDims: n.AttrInt("keepdims", 1) == 1}
	for _, a := range axes {
		axis, err := normalizeAxis(n, a, info.Shape().Rank())
		if err != nil {
			return err
		}
		d.Axes = append(d.Axes, axis)
	}
	l, err := imp.AddLayer(d, n.DisplayName(), x)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}

func convertCast(imp *Importer, n *NodeProto) error {
	to := n.Attr("to")
	if to == nil {
		return unsupported(n, "missing 'to'")
	}
	dt, err := DataType(int32(to.I))
	if err != nil {
		return err
	}
	x, err := imp.Operand(n.Input(0))
	if err != nil {
		return err
	}
	l, err := imp.AddLayer(graph.CastDescriptor{DataType: dt}, n.DisplayName(), x)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}

// convertIdentity forwards its input without a layer. Dropout is an
// identity at inference time as long as its mask output is unused.
func convertIdentity(imp *Importer, n *NodeProto) error {
	if len(n.Outputs) > 1 && n.Outputs[1] != "" {
		return unsupported(n, "mask output")
	}
	x, err := imp.Operand(n.Input(0))
	if err != nil {
		return err
	}
	imp.Alias(n.Outputs[0], x)
	return nil
}

// convertConstant binds the node output to its tensor; a Constant layer is
// created only if another layer consumes it.
func convertConstant(imp *Importer, n *NodeProto) error {
	var t *TensorProto
	switch {
	case n.Attr("value") != nil && n.Attr("value").T != nil:
		v := *n.Attr("value").T
		t = &v
	case n.Attr("value_float") != nil:
		t = &TensorProto{DataType: TensorProtoFloat, FloatData: []float32{n.Attr("value_float").F}}
	case n.Attr("value_floats") != nil:
		fs := n.Attr("value_floats").Floats
		t = &TensorProto{DataType: TensorProtoFloat, Dims: []int64{int64(len(fs))}, FloatData: fs}
	case n.Attr("value_int") != nil:
		t = &TensorProto{DataType: TensorProtoInt64, Int64Data: []int64{n.Attr("value_int").I}}
	case n.Attr("value_ints") != nil:
		is := n.Attr("value_ints").Ints
		t = &TensorProto{DataType: TensorProtoInt64, Dims: []int64{int64(len(is))}, Int64Data: is}
	default:
		return unsupported(n, "no supported value attribute")
	}
	t.Name = n.Outputs[0]
	imp.SetConst(t.Name, t)
	return nil
}
