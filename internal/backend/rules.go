package backend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/graphc/internal/tensor"
)

// Rules collects the checks of one predicate and turns the failures into a
// single reason string.
//
//	var r backend.Rules
//	r.Check(backend.TypeAnyOf(input, tensor.Float32), "input must be float32")
//	return r.Result()
type Rules struct {
	reasons []string
}

// Check records reason when ok is false.
func (r *Rules) Check(ok bool, format string, args ...any) {
	if !ok {
		r.reasons = append(r.reasons, fmt.Sprintf(format, args...))
	}
}

// Result reports whether every check passed, with the joined failure reasons.
func (r *Rules) Result() (bool, string) {
	if len(r.reasons) == 0 {
		return true, ""
	}
	return false, strings.Join(r.reasons, "; ")
}

// TypeAnyOf reports whether info has one of types.
func TypeAnyOf(info tensor.TensorInfo, types ...tensor.DataType) bool {
	return slices.Contains(types, info.DataType())
}

// TypesAreEqual reports whether every descriptor has the same element type.
func TypesAreEqual(infos ...tensor.TensorInfo) bool {
	for _, info := range infos[1:] {
		if info.DataType() != infos[0].DataType() {
			return false
		}
	}
	return true
}

// ShapesAreSameRank reports whether a and b have the same dimensionality and rank.
func ShapesAreSameRank(a, b tensor.TensorInfo) bool {
	sa, sb := a.Shape(), b.Shape()
	return sa.Dimensionality() == sb.Dimensionality() && sa.Rank() == sb.Rank()
}

// IsPlaceholder reports whether info is the zero-sized descriptor passed for
// absent optional tensors such as a disabled bias.
func IsPlaceholder(info tensor.TensorInfo) bool {
	n, ok := info.NumElements()
	return ok && n == 0
}

// Placeholder returns the zero-sized bias descriptor matching input: Signed32
// for quantized inputs, the input type otherwise.
func Placeholder(input tensor.TensorInfo) tensor.TensorInfo {
	dt := input.DataType()
	if dt.IsQuantized() {
		dt = tensor.Signed32
	}
	return tensor.NewTensorInfo(tensor.NewShape(0), dt)
}

// BiasTypeFor returns the bias element type expected for weights of type dt.
func BiasTypeFor(dt tensor.DataType) tensor.DataType {
	if dt.IsQuantized() {
		return tensor.Signed32
	}
	return dt
}
