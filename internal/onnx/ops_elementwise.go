package onnx

import (
	"math"

	"github.com/born-ml/graphc/internal/frontend"
	"github.com/born-ml/graphc/internal/graph"
)

// registerElementwise adds arithmetic, activation and softmax converters.
func (r *Registry) registerElementwise() {
	for op, bin := range map[string]graph.BinaryOperation{
		"Add": graph.BinaryAdd,
		"Sub": graph.BinarySub,
		"Mul": graph.BinaryMul,
		"Div": graph.BinaryDiv,
		"Max": graph.BinaryMaximum,
		"Min": graph.BinaryMinimum,
		"Pow": graph.BinaryPower,
	} {
		r.Register(op, convertBinary(bin))
	}

	for op, un := range map[string]graph.UnaryOperation{
		"Abs":   graph.UnaryAbs,
		"Exp":   graph.UnaryExp,
		"Floor": graph.UnaryFloor,
		"Log":   graph.UnaryLog,
		"Neg":   graph.UnaryNeg,
		"Sqrt":  graph.UnarySqrt,
	} {
		r.Register(op, convertUnary(un))
	}

	r.Register("Relu", convertActivation(func(*NodeProto) graph.ActivationDescriptor {
		return graph.ActivationDescriptor{Function: graph.ActivationReLu}
	}))
	r.Register("Sigmoid", convertActivation(func(*NodeProto) graph.ActivationDescriptor {
		return graph.ActivationDescriptor{Function: graph.ActivationSigmoid}
	}))
	r.Register("Tanh", convertActivation(func(*NodeProto) graph.ActivationDescriptor {
		return graph.ActivationDescriptor{Function: graph.ActivationTanH, A: 1, B: 1}
	}))
	r.Register("LeakyRelu", convertActivation(func(n *NodeProto) graph.ActivationDescriptor {
		return graph.ActivationDescriptor{Function: graph.ActivationLeakyReLu, A: n.AttrFloat("alpha", 0.01)}
	}))
	r.Register("Elu", convertActivation(func(n *NodeProto) graph.ActivationDescriptor {
		return graph.ActivationDescriptor{Function: graph.ActivationElu, A: n.AttrFloat("alpha", 1)}
	}))
	r.Register("Softplus", convertActivation(func(*NodeProto) graph.ActivationDescriptor {
		return graph.ActivationDescriptor{Function: graph.ActivationSoftReLu}
	}))
	r.Register("HardSwish", convertActivation(func(*NodeProto) graph.ActivationDescriptor {
		return graph.ActivationDescriptor{Function: graph.ActivationHardSwish}
	}))
	r.Register("Gelu", convertActivation(func(*NodeProto) graph.ActivationDescriptor {
		return graph.ActivationDescriptor{Function: graph.ActivationGelu}
	}))
	r.Register("Clip", convertClip)
	r.Register("Softmax", convertSoftmax)
	r.Register("FloorDiv", convertFloorDiv)
}

// binaryOperands returns both operands of n with their ranks aligned.
func binaryOperands(imp *Importer, n *NodeProto) (*graph.OutputSlot, *graph.OutputSlot, error) {
	if len(n.Inputs) != 2 {
		return nil, nil, unsupported(n, "%d inputs", len(n.Inputs))
	}
	a, err := imp.Operand(n.Input(0))
	if err != nil {
		return nil, nil, err
	}
	b, err := imp.Operand(n.Input(1))
	if err != nil {
		return nil, nil, err
	}
	return frontend.AlignRanks(imp.g, a, b)
}

func convertBinary(op graph.BinaryOperation) Converter {
	return func(imp *Importer, n *NodeProto) error {
		a, b, err := binaryOperands(imp, n)
		if err != nil {
			return err
		}
		l, err := imp.AddLayer(graph.ElementwiseBinaryDescriptor{Operation: op}, n.DisplayName(), a, b)
		if err != nil {
			return err
		}
		return imp.Bind(n, l)
	}
}

func convertUnary(op graph.UnaryOperation) Converter {
	return func(imp *Importer, n *NodeProto) error {
		x, err := imp.Operand(n.Input(0))
		if err != nil {
			return err
		}
		l, err := imp.AddLayer(graph.ElementwiseUnaryDescriptor{Operation: op}, n.DisplayName(), x)
		if err != nil {
			return err
		}
		return imp.Bind(n, l)
	}
}

func convertActivation(describe func(*NodeProto) graph.ActivationDescriptor) Converter {
	return func(imp *Importer, n *NodeProto) error {
		x, err := imp.Operand(n.Input(0))
		if err != nil {
			return err
		}
		l, err := imp.AddLayer(describe(n), n.DisplayName(), x)
		if err != nil {
			return err
		}
		return imp.Bind(n, l)
	}
}

// convertClip lowers Clip to a bounded ReLu. Missing bounds are open.
func convertClip(imp *Importer, n *NodeProto) error {
	lo, hi := float32(-math.MaxFloat32), float32(math.MaxFloat32)
	if imp.Opset() < 11 {
		lo, hi = n.AttrFloat("min", lo), n.AttrFloat("max", hi)
	} else {
		for i, dst := range []*float32{&lo, &hi} {
			name := n.Input(i + 1)
			if name == "" {
				continue
			}
			t, ok := imp.Const(name)
			if !ok {
				return unsupported(n, "bound %q must be constant", name)
			}
			v, err := t.Float()
			if err != nil {
				return err
			}
			*dst = v
		}
	}
	return convertActivation(func(*NodeProto) graph.ActivationDescriptor {
		return graph.ActivationDescriptor{Function: graph.ActivationBoundedReLu, A: hi, B: lo}
	})(imp, n)
}

// convertSoftmax normalizes along axis. The default axis is the last one
// from opset 13 and 1 before.
func convertSoftmax(imp *Importer, n *NodeProto) error {
	def := int64(-1)
	if imp.Opset() < 13 {
		def = 1
	}
	x, info, err := imp.OperandInfo(n.Input(0))
	if err != nil {
		return err
	}
	axis := int(n.AttrInt("axis", def))
	if rank := info.Shape().Rank(); axis < 0 && rank > 0 {
		axis += rank
	}
	l, err := imp.AddLayer(graph.SoftmaxDescriptor{Beta: 1, Axis: axis}, n.DisplayName(), x)
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}

// convertFloorDiv lowers the FloorDiv extension operator exported by
// TensorFlow converters.
func convertFloorDiv(imp *Importer, n *NodeProto) error {
	if len(n.Inputs) != 2 {
		return unsupported(n, "%d inputs", len(n.Inputs))
	}
	a, err := imp.Operand(n.Input(0))
	if err != nil {
		return err
	}
	b, err := imp.Operand(n.Input(1))
	if err != nil {
		return err
	}
	l, err := frontend.AddFloorDiv(imp.g, a, b, n.DisplayName())
	if err != nil {
		return err
	}
	return imp.Bind(n, l)
}
