package onnx

import (
	"fmt"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// registerNN adds convolution, padding, pooling and dense converters.
func (r *Registry) registerNN() {
	r.Register("Conv", convertConv)
	r.Register("Pad", convertPad)
	r.Register("MaxPool", convertPool(graph.PoolMax))
	r.Register("AveragePool", convertPool(graph.PoolAverage))
	r.Register("LpPool", convertPool(graph.PoolL2))
	r.Register("GlobalAveragePool", convertGlobalAveragePool)
	r.Register("Gemm", convertGemm)
	r.Register("MatMul", convertMatMul)
}

func unsupported(n *NodeProto, format string, args ...any) error {
	return fmt.Errorf("%w: %s %q: %s", ErrUnsupportedOperator, n.OpType, n.DisplayName(), fmt.Sprintf(format, args...))
}

func convertConv(imp *Importer, n *NodeProto) error {
	if err := checkAutoPad(n); err != nil {
		return err
	}
	strides, err := pair(n, "strides", 1)
	if err != nil {
		return err
	}
	dilations, err := pair(n, "dilations", 1)
	if err != nil {
		return err
	}
	pads, err := pads2d(n)
	if err != nil {
		return err
	}

	x, err := imp.Operand(n.Input(0))
	if err != nil {
		return err
	}
	bias := n.Input(2) != ""

	var (
		desc    graph.Descriptor
		weights *graph.OutputSlot
	)
	if group := n.AttrInt("group", 1); group == 1 {
		if weights, err = imp.Operand(n.Input(1)); err != nil {
			return err
		}
		desc = graph.Convolution2dDescriptor{
			PadTop: pads[0], PadLeft: pads[1], PadBottom: pads[2], PadRight: pads[3],
			StrideY: strides[0], StrideX: strides[1],
			DilationY: dilations[0], DilationX: dilations[1],
			BiasEnabled: bias,
			DataLayout:  graph.NCHW,
		}
	} else {
		if weights, err = imp.depthwiseWeights(n, x, group); err != nil {
			return err
		}
		desc = graph.DepthwiseConvolution2dDescriptor{
			PadTop: pads[0], PadLeft: pads[1], PadBottom: pads[2], PadRight: pads[3],
			StrideY: strides[0], StrideX: strides[1],
			DilationY: dilations[0], DilationX: dilations[1],
			BiasEnabled: bias,
			DataLayout:  graph.NCHW,
		}
	}

	inputs := []*graph.OutputSlot{x, weights}
	if bias {
		b, err := imp.Operand(n.Input(2))
		if err != nil {
			return err
		}
		inputs = append(inputs, b)
	}
	l, err := imp.AddLayer(desc, n.DisplayName(), inputs...)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}

// depthwiseWeights accepts a grouped convolution with one group per input
// channel and permutes its [C*M, 1, H, W] weights to [1, H, W, C*M].
func (imp *Importer) depthwiseWeights(n *NodeProto, x *graph.OutputSlot, group int64) (*graph.OutputSlot, error) {
	t, ok := imp.Const(n.Input(1))
	if !ok {
		return nil, unsupported(n, "grouped convolution needs constant weights")
	}
	if len(t.Dims) != 4 || t.Dims[1] != 1 {
		return nil, unsupported(n, "group %d with weights %v is not depthwise", group, t.Dims)
	}
	in := x.TensorInfo().Shape()
	if in.Rank() != 4 || !in.IsDimSpecified(1) || int64(in.Dim(1)) != group {
		return nil, unsupported(n, "group %d does not match input channels of %v", group, in)
	}

	c, err := t.ConstTensor()
	if err != nil {
		return nil, err
	}
	outs, kh, kw := int(t.Dims[0]), int(t.Dims[2]), int(t.Dims[3])
	size := c.Info().DataType().Size()
	src, dst := c.Data(), make([]byte, len(c.Data()))
	for o := 0; o < outs; o++ {
		for h := 0; h < kh; h++ {
			for w := 0; w < kw; w++ {
				from := ((o*kh+h)*kw + w) * size
				to := ((h*kw+w)*outs + o) * size
				copy(dst[to:to+size], src[from:from+size])
			}
		}
	}

	permuted, err := tensor.NewConstTensor(c.Info().WithShape(tensor.NewShape(1, kh, kw, outs)), dst)
	if err != nil {
		return nil, err
	}
	l, err := imp.g.AddConstantLayer(permuted, t.Name+"_depthwise")
	if err != nil {
		return nil, err
	}
	return l.OutputSlot(0), nil
}

func convertPad(imp *Importer, n *NodeProto) error {
	mode := graph.PadConstant
	switch m := n.AttrString("mode", "constant"); m {
	case "constant":
	case "reflect":
		mode = graph.PadReflect
	default:
		return unsupported(n, "mode %s", m)
	}

	var (
		pads  []int64
		value float32
		err   error
	)
	if imp.Opset() < 11 {
		pads = n.AttrInts("pads")
		value = n.AttrFloat("value", 0)
	} else {
		t, ok := imp.Const(n.Input(1))
		if !ok {
			return unsupported(n, "pads must be constant")
		}
		if pads, err = t.Ints(); err != nil {
			return err
		}
		if name := n.Input(2); name != "" {
			t, ok := imp.Const(name)
			if !ok {
				return unsupported(n, "constant_value must be constant")
			}
			if value, err = t.Float(); err != nil {
				return err
			}
		}
		if n.Input(3) != "" {
			return unsupported(n, "axes input")
		}
	}
	if len(pads) == 0 || len(pads)%2 != 0 {
		return fmt.Errorf("%w: %s %q: %d pad values", graph.ErrInvalidParameter, n.OpType, n.DisplayName(), len(pads))
	}

	rank := len(pads) / 2
	list := make([][2]int, rank)
	for i := range list {
		list[i] = [2]int{int(pads[i]), int(pads[i+rank])}
	}
	x, err := imp.Operand(n.Input(0))
	if err != nil {
		return err
	}
	l, err := imp.AddLayer(graph.PadDescriptor{PadList: list, PadValue: value, Mode: mode}, n.DisplayName(), x)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}

func convertPool(alg graph.PoolingAlgorithm) Converter {
	return func(imp *Importer, n *NodeProto) error {
		if err := checkAutoPad(n); err != nil {
			return err
		}
		if len(n.Outputs) > 1 && n.Outputs[1] != "" {
			return unsupported(n, "indices output")
		}
		if alg == graph.PoolL2 && n.AttrInt("p", 2) != 2 {
			return unsupported(n, "p %d", n.AttrInt("p", 2))
		}
		kernel := n.AttrInts("kernel_shape")
		if len(kernel) != 2 {
			return unsupported(n, "kernel_shape %v is not 2D", kernel)
		}
		strides, err := pair(n, "strides", 1)
		if err != nil {
			return err
		}
		if dilations, err := pair(n, "dilations", 1); err != nil {
			return err
		} else if dilations != [2]int{1, 1} {
			return unsupported(n, "dilations %v", dilations)
		}
		pads, err := pads2d(n)
		if err != nil {
			return err
		}

		d := graph.Pooling2dDescriptor{
			PoolType:   alg,
			PoolHeight: int(kernel[0]), PoolWidth: int(kernel[1]),
			StrideY: strides[0], StrideX: strides[1],
			PadTop: pads[0], PadLeft: pads[1], PadBottom: pads[2], PadRight: pads[3],
			PaddingMethod: graph.PaddingExclude,
			DataLayout:    graph.NCHW,
		}
		if n.AttrInt("ceil_mode", 0) == 1 {
			d.Rounding = graph.RoundCeiling
		}
		if alg == graph.PoolAverage && n.AttrInt("count_include_pad", 0) == 1 {
			d.PaddingMethod = graph.PaddingIgnoreValue
		}

		x, err := imp.Operand(n.Input(0))
		if err != nil {
			return err
		}
		l, err := imp.AddLayer(d, n.DisplayName(), x)
		if err != nil {
			return err
		}
		return imp.Bind(n, l)
	}
}

func convertGlobalAveragePool(imp *Importer, n *NodeProto) error {
	x, err := imp.Operand(n.Input(0))
	if err != nil {
		return err
	}
	l, err := imp.AddLayer(graph.MeanDescriptor{Axes: []int{2, 3}, KeepDims: true}, n.DisplayName(), x)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}

func convertGemm(imp *Importer, n *NodeProto) error {
	if n.AttrInt("transA", 0) != 0 {
		return unsupported(n, "transA")
	}
	if alpha, beta := n.AttrFloat("alpha", 1), n.AttrFloat("beta", 1); alpha != 1 || beta != 1 {
		return unsupported(n, "alpha %g beta %g", alpha, beta)
	}
	a, err := imp.Operand(n.Input(0))
	if err != nil {
		return err
	}
	b, err := imp.Operand(n.Input(1))
	if err != nil {
		return err
	}
	inputs := []*graph.OutputSlot{a, b}
	bias := n.Input(2) != ""
	if bias {
		c, err := imp.Operand(n.Input(2))
		if err != nil {
			return err
		}
		inputs = append(inputs, c)
	}

	d := graph.FullyConnectedDescriptor{BiasEnabled: bias, TransposeWeightMatrix: n.AttrInt("transB", 0) == 1}
	l, err := imp.AddLayer(d, n.DisplayName(), inputs...)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}

// convertMatMul handles the two-dimensional case as a FullyConnected layer.
func convertMatMul(imp *Importer, n *NodeProto) error {
	a, ai, err := imp.OperandInfo(n.Input(0))
	if err != nil {
		return err
	}
	b, bi, err := imp.OperandInfo(n.Input(1))
	if err != nil {
		return err
	}
	if ai.Shape().Rank() != 2 || bi.Shape().Rank() != 2 {
		return unsupported(n, "operands %v and %v are not matrices", ai.Shape(), bi.Shape())
	}
	l, err := imp.AddLayer(graph.FullyConnectedDescriptor{}, n.DisplayName(), a, b)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}
