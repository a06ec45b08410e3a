// Package infer computes output tensor descriptors from input descriptors and
// layer parameters, and checks them against what a graph already declares.
package infer

import (
	"fmt"
	"math"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", graph.ErrShapeMismatch, fmt.Sprintf(format, args...))
}

func unresolved(format string, args ...any) error {
	return fmt.Errorf("%w: %s", graph.ErrUnresolvedShape, fmt.Sprintf(format, args...))
}

// dim is one dimension of a partially known shape.
type dim struct {
	v     int
	known bool
}

func dimsOf(s tensor.Shape) []dim {
	out := make([]dim, s.Rank())
	for i := range out {
		out[i] = dim{v: s.Dim(i), known: s.IsDimSpecified(i)}
	}
	return out
}

func shapeOf(dims []dim) tensor.Shape {
	if len(dims) == 0 {
		return tensor.ScalarShape()
	}
	values := make([]int, len(dims))
	known := make([]bool, len(dims))
	for i, d := range dims {
		values[i], known[i] = d.v, d.known
	}
	return tensor.NewPartialShape(values, known)
}

func requireRank(s tensor.Shape, what string) error {
	if s.Dimensionality() == tensor.NotSpecified {
		return unresolved("%s has unknown rank", what)
	}
	return nil
}

func requireExactRank(s tensor.Shape, rank int, what string) error {
	if err := requireRank(s, what); err != nil {
		return err
	}
	if s.Rank() != rank {
		return mismatch("%s must have rank %d, got %v", what, rank, s)
	}
	return nil
}

// OutputShapes computes the output shapes of a layer described by desc from
// the shapes of its inputs. Unknown input dimensions propagate as unknown
// output dimensions. Input and StandIn layers have no inputs to infer from;
// their outputs must be set by the producer of the graph.
func OutputShapes(desc graph.Descriptor, inputs []tensor.Shape) ([]tensor.Shape, error) {
	if len(inputs) != desc.NumInputs() {
		return nil, fmt.Errorf("%w: %s expects %d inputs, got %d",
			graph.ErrGraphStructure, desc.Type(), desc.NumInputs(), len(inputs))
	}

	switch d := desc.(type) {
	case graph.InputDescriptor, graph.StandInDescriptor:
		return nil, unresolved("%s outputs cannot be inferred", desc.Type())
	case graph.OutputDescriptor:
		return nil, nil
	case graph.ConstantDescriptor:
		return []tensor.Shape{d.Tensor.Info().Shape()}, nil
	case graph.ActivationDescriptor, graph.CastDescriptor, graph.DequantizeDescriptor,
		graph.ElementwiseUnaryDescriptor, graph.QuantizeDescriptor, graph.SoftmaxDescriptor:
		if err := requireRank(inputs[0], "input"); err != nil {
			return nil, err
		}
		return []tensor.Shape{inputs[0]}, nil
	case graph.ElementwiseBinaryDescriptor:
		s, err := broadcast(inputs[0], inputs[1])
		if err != nil {
			return nil, err
		}
		return []tensor.Shape{s}, nil
	case graph.MergeDescriptor:
		s, err := Merge(inputs[0], inputs[1])
		if err != nil {
			return nil, err
		}
		return []tensor.Shape{s}, nil
	case graph.ConcatDescriptor:
		return concatShape(d, inputs)
	case graph.Convolution2dDescriptor:
		return conv2dShape(d.Padding(), d.StrideX, d.StrideY, d.DilationX, d.DilationY, d.DataLayout, false, inputs)
	case graph.DepthwiseConvolution2dDescriptor:
		return conv2dShape(d.Padding(), d.StrideX, d.StrideY, d.DilationX, d.DilationY, d.DataLayout, true, inputs)
	case graph.Convolution3dDescriptor:
		return conv3dShape(d, inputs)
	case graph.FullyConnectedDescriptor:
		return fullyConnectedShape(d, inputs)
	case graph.FusedDescriptor:
		return fusedShapes(d, inputs)
	case graph.MeanDescriptor:
		return meanShape(d, inputs[0])
	case graph.PadDescriptor:
		return padShape(d, inputs[0])
	case graph.Pooling2dDescriptor:
		return pooling2dShape(d, inputs[0])
	case graph.RankDescriptor:
		return []tensor.Shape{tensor.ScalarShape()}, nil
	case graph.ReshapeDescriptor:
		return reshapeShape(d, inputs[0])
	case graph.SplitterDescriptor:
		return splitterShapes(d, inputs[0])
	case graph.StackDescriptor:
		return stackShape(d, inputs)
	default:
		return nil, fmt.Errorf("%w: no shape function for %s", graph.ErrUnsupportedLayer, desc.Type())
	}
}

// broadcast applies NumPy broadcasting to partially known shapes.
func broadcast(a, b tensor.Shape) (tensor.Shape, error) {
	if err := requireRank(a, "input 0"); err != nil {
		return tensor.Shape{}, err
	}
	if err := requireRank(b, "input 1"); err != nil {
		return tensor.Shape{}, err
	}
	if a.IsFullySpecified() && b.IsFullySpecified() {
		s, _, err := tensor.BroadcastShapes(a, b)
		if err != nil {
			return tensor.Shape{}, mismatch("%v", err)
		}
		return s, nil
	}

	da, db := dimsOf(a), dimsOf(b)
	n := max(len(da), len(db))
	out := make([]dim, n)
	for i := 0; i < n; i++ {
		x, y := dim{v: 1, known: true}, dim{v: 1, known: true}
		if j := len(da) - n + i; j >= 0 {
			x = da[j]
		}
		if j := len(db) - n + i; j >= 0 {
			y = db[j]
		}
		switch {
		case x.known && y.known:
			if x.v != y.v && x.v != 1 && y.v != 1 {
				return tensor.Shape{}, mismatch("cannot broadcast %v and %v at dimension %d", a, b, i)
			}
			out[i] = dim{v: max(x.v, y.v), known: true}
		case x.known && x.v != 1:
			out[i] = x
		case y.known && y.v != 1:
			out[i] = y
		default:
			out[i] = dim{}
		}
	}
	return shapeOf(out), nil
}

// Merge combines two descriptions of the same tensor. Known dimensions must
// agree; a dimension known on either side is known in the result. A
// NotSpecified shape merges with anything.
func Merge(declared, inferred tensor.Shape) (tensor.Shape, error) {
	if declared.Dimensionality() == tensor.NotSpecified {
		return inferred, nil
	}
	if inferred.Dimensionality() == tensor.NotSpecified {
		return declared, nil
	}
	if declared.Dimensionality() != inferred.Dimensionality() || declared.Rank() != inferred.Rank() {
		return tensor.Shape{}, mismatch("%v is not compatible with %v", declared, inferred)
	}
	if declared.Dimensionality() == tensor.Scalar {
		return declared, nil
	}
	dd, di := dimsOf(declared), dimsOf(inferred)
	for i := range dd {
		switch {
		case dd[i].known && di[i].known && dd[i].v != di[i].v:
			return tensor.Shape{}, mismatch("%v is not compatible with %v at dimension %d", declared, inferred, i)
		case !dd[i].known:
			dd[i] = di[i]
		}
	}
	return shapeOf(dd), nil
}

func concatShape(d graph.ConcatDescriptor, inputs []tensor.Shape) ([]tensor.Shape, error) {
	if err := requireRank(inputs[0], "input 0"); err != nil {
		return nil, err
	}
	rank := inputs[0].Rank()
	if d.Axis >= rank {
		return nil, fmt.Errorf("%w: concat axis %d out of range for rank %d", graph.ErrInvalidParameter, d.Axis, rank)
	}
	out := dimsOf(inputs[0])
	for i, in := range inputs[1:] {
		if err := requireExactRank(in, rank, fmt.Sprintf("input %d", i+1)); err != nil {
			return nil, err
		}
		dims := dimsOf(in)
		for j := range out {
			if j == d.Axis {
				out[j] = dim{v: out[j].v + dims[j].v, known: out[j].known && dims[j].known}
				continue
			}
			if out[j].known && dims[j].known && out[j].v != dims[j].v {
				return nil, mismatch("concat input %d has %v, expected dimension %d to be %d", i+1, in, j, out[j].v)
			}
			if !out[j].known {
				out[j] = dims[j]
			}
		}
	}
	if !out[d.Axis].known {
		out[d.Axis] = dim{}
	}
	return []tensor.Shape{shapeOf(out)}, nil
}

// window computes one spatial output extent. Unknown inputs give unknown outputs.
func window(in dim, padBefore, padAfter int, kernel dim, stride, dilation int, ceil bool) (dim, error) {
	if !in.known || !kernel.known {
		return dim{}, nil
	}
	effective := (kernel.v-1)*dilation + 1
	span := in.v + padBefore + padAfter - effective
	if span < 0 {
		return dim{}, mismatch("window %d (dilated from %d) exceeds padded input %d", effective, kernel.v, in.v+padBefore+padAfter)
	}
	var out int
	if ceil {
		out = int(math.Ceil(float64(span)/float64(stride))) + 1
	} else {
		out = span/stride + 1
	}
	return dim{v: out, known: true}, nil
}

// spatialAxes returns the (channel, height, width) positions for a 4D layout.
func spatialAxes(l graph.DataLayout) (c, h, w int) {
	if l == graph.NHWC {
		return 3, 1, 2
	}
	return 1, 2, 3
}

func conv2dShape(pad graph.Padding2d, strideX, strideY, dilationX, dilationY int, layout graph.DataLayout,
	depthwise bool, inputs []tensor.Shape) ([]tensor.Shape, error) {
	if err := requireExactRank(inputs[0], 4, "input"); err != nil {
		return nil, err
	}
	if err := requireExactRank(inputs[1], 4, "weights"); err != nil {
		return nil, err
	}
	in, w := dimsOf(inputs[0]), dimsOf(inputs[1])
	cAxis, hAxis, wAxis := spatialAxes(layout)

	var kh, kw, channels dim
	if depthwise {
		// [1, H, W, I*M] regardless of layout.
		kh, kw, channels = w[1], w[2], w[3]
	} else {
		kh, kw, channels = w[hAxis], w[wAxis], w[0]
	}

	outH, err := window(in[hAxis], pad.Top, pad.Bottom, kh, strideY, dilationY, false)
	if err != nil {
		return nil, err
	}
	outW, err := window(in[wAxis], pad.Left, pad.Right, kw, strideX, dilationX, false)
	if err != nil {
		return nil, err
	}

	out := make([]dim, 4)
	out[0], out[cAxis], out[hAxis], out[wAxis] = in[0], channels, outH, outW
	return []tensor.Shape{shapeOf(out)}, nil
}

func conv3dShape(d graph.Convolution3dDescriptor, inputs []tensor.Shape) ([]tensor.Shape, error) {
	if err := requireExactRank(inputs[0], 5, "input"); err != nil {
		return nil, err
	}
	if err := requireExactRank(inputs[1], 5, "weights"); err != nil {
		return nil, err
	}
	in, w := dimsOf(inputs[0]), dimsOf(inputs[1])

	// Weights are [D, H, W, I, O] for both layouts.
	cAxis, dAxis, hAxis, wAxis := 4, 1, 2, 3
	if d.DataLayout == graph.NCDHW {
		cAxis, dAxis, hAxis, wAxis = 1, 2, 3, 4
	}

	outD, err := window(in[dAxis], d.PadFront, d.PadBack, w[0], d.StrideZ, d.DilationZ, false)
	if err != nil {
		return nil, err
	}
	outH, err := window(in[hAxis], d.PadTop, d.PadBottom, w[1], d.StrideY, d.DilationY, false)
	if err != nil {
		return nil, err
	}
	outW, err := window(in[wAxis], d.PadLeft, d.PadRight, w[2], d.StrideX, d.DilationX, false)
	if err != nil {
		return nil, err
	}

	out := make([]dim, 5)
	out[0], out[cAxis], out[dAxis], out[hAxis], out[wAxis] = in[0], w[4], outD, outH, outW
	return []tensor.Shape{shapeOf(out)}, nil
}

func fullyConnectedShape(d graph.FullyConnectedDescriptor, inputs []tensor.Shape) ([]tensor.Shape, error) {
	if err := requireRank(inputs[0], "input"); err != nil {
		return nil, err
	}
	if inputs[0].Rank() < 1 {
		return nil, mismatch("fully connected input must have rank >= 1, got %v", inputs[0])
	}
	if err := requireExactRank(inputs[1], 2, "weights"); err != nil {
		return nil, err
	}
	w := dimsOf(inputs[1])
	units := w[1]
	if d.TransposeWeightMatrix {
		units = w[0]
	}
	batch := dimsOf(inputs[0])[0]
	return []tensor.Shape{shapeOf([]dim{batch, units})}, nil
}

func fusedShapes(d graph.FusedDescriptor, inputs []tensor.Shape) ([]tensor.Shape, error) {
	sum, err := broadcast(inputs[0], inputs[1])
	if err != nil {
		return nil, err
	}
	scaled, err := broadcast(sum, inputs[2])
	if err != nil {
		return nil, err
	}
	result, err := broadcast(scaled, inputs[3])
	if err != nil {
		return nil, err
	}
	if d.Outputs == 2 {
		return []tensor.Shape{sum, result}, nil
	}
	return []tensor.Shape{result}, nil
}

func meanShape(d graph.MeanDescriptor, in tensor.Shape) ([]tensor.Shape, error) {
	if err := requireRank(in, "input"); err != nil {
		return nil, err
	}
	rank := in.Rank()
	reduce := make([]bool, rank)
	if len(d.Axes) == 0 {
		for i := range reduce {
			reduce[i] = true
		}
	}
	for _, a := range d.Axes {
		if a >= rank {
			return nil, fmt.Errorf("%w: mean axis %d out of range for rank %d", graph.ErrInvalidParameter, a, rank)
		}
		reduce[a] = true
	}

	dims := dimsOf(in)
	var out []dim
	for i, r := range reduce {
		switch {
		case !r:
			out = append(out, dims[i])
		case d.KeepDims:
			out = append(out, dim{v: 1, known: true})
		}
	}
	if len(out) == 0 {
		out = []dim{{v: 1, known: true}}
	}
	return []tensor.Shape{shapeOf(out)}, nil
}

func padShape(d graph.PadDescriptor, in tensor.Shape) ([]tensor.Shape, error) {
	if err := requireExactRank(in, len(d.PadList), "input"); err != nil {
		return nil, err
	}
	out := dimsOf(in)
	for i, p := range d.PadList {
		if out[i].known {
			out[i].v += p[0] + p[1]
		}
	}
	return []tensor.Shape{shapeOf(out)}, nil
}

func pooling2dShape(d graph.Pooling2dDescriptor, in tensor.Shape) ([]tensor.Shape, error) {
	if err := requireExactRank(in, 4, "input"); err != nil {
		return nil, err
	}
	dims := dimsOf(in)
	_, hAxis, wAxis := spatialAxes(d.DataLayout)
	ceil := d.Rounding == graph.RoundCeiling

	outH, err := window(dims[hAxis], d.PadTop, d.PadBottom, dim{v: d.PoolHeight, known: true}, d.StrideY, 1, ceil)
	if err != nil {
		return nil, err
	}
	outW, err := window(dims[wAxis], d.PadLeft, d.PadRight, dim{v: d.PoolWidth, known: true}, d.StrideX, 1, ceil)
	if err != nil {
		return nil, err
	}
	dims[hAxis], dims[wAxis] = outH, outW
	return []tensor.Shape{shapeOf(dims)}, nil
}

func reshapeShape(d graph.ReshapeDescriptor, in tensor.Shape) ([]tensor.Shape, error) {
	want, _ := d.TargetShape.NumElements()
	if have, ok := in.NumElements(); ok && have != want {
		return nil, mismatch("cannot reshape %v (%d elements) to %v (%d elements)", in, have, d.TargetShape, want)
	}
	return []tensor.Shape{d.TargetShape}, nil
}

func splitterShapes(d graph.SplitterDescriptor, in tensor.Shape) ([]tensor.Shape, error) {
	if err := requireRank(in, "input"); err != nil {
		return nil, err
	}
	if d.Axis >= in.Rank() {
		return nil, fmt.Errorf("%w: split axis %d out of range for rank %d", graph.ErrInvalidParameter, d.Axis, in.Rank())
	}
	total := 0
	for _, s := range d.Sizes {
		total += s
	}
	if in.IsDimSpecified(d.Axis) && in.Dim(d.Axis) != total {
		return nil, mismatch("split sizes %v do not add up to dimension %d of %v", d.Sizes, d.Axis, in)
	}
	outs := make([]tensor.Shape, len(d.Sizes))
	for i, s := range d.Sizes {
		outs[i] = in.WithDim(d.Axis, s)
	}
	return outs, nil
}

func stackShape(d graph.StackDescriptor, inputs []tensor.Shape) ([]tensor.Shape, error) {
	for i, in := range inputs {
		if _, err := Merge(d.InputShape, in); err != nil {
			return nil, mismatch("stack input %d is %v, expected %v", i, in, d.InputShape)
		}
	}
	in := dimsOf(d.InputShape)
	out := make([]dim, 0, len(in)+1)
	out = append(out, in[:d.Axis]...)
	out = append(out, dim{v: len(inputs), known: true})
	out = append(out, in[d.Axis:]...)
	return []tensor.Shape{shapeOf(out)}, nil
}
