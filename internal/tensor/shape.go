package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// Dimensionality tells how much of a shape is known.
type Dimensionality int

// Dimensionality values.
const (
	// NotSpecified means not even the rank is known.
	NotSpecified Dimensionality = iota
	// Specified means the rank is known; individual dimensions may still be unknown.
	Specified
	// Scalar is a rank-zero tensor holding a single element.
	Scalar
)

// String returns the dimensionality name.
func (d Dimensionality) String() string {
	switch d {
	case NotSpecified:
		return "NotSpecified"
	case Specified:
		return "Specified"
	case Scalar:
		return "Scalar"
	default:
		return "unknown"
	}
}

// Shape represents the dimensions of a tensor.
// The zero value is a shape of unknown rank.
type Shape struct {
	dims           []int
	specified      []bool
	dimensionality Dimensionality
}

// NewShape creates a fully specified shape. With no dimensions it returns a scalar shape.
func NewShape(dims ...int) Shape {
	if len(dims) == 0 {
		return ScalarShape()
	}
	s := Shape{
		dims:           append([]int(nil), dims...),
		specified:      make([]bool, len(dims)),
		dimensionality: Specified,
	}
	for i := range s.specified {
		s.specified[i] = true
	}
	return s
}

// NewPartialShape creates a shape of known rank where specified[i] tells
// whether dims[i] is known. Unknown dimensions hold 0.
func NewPartialShape(dims []int, specified []bool) Shape {
	if len(dims) != len(specified) {
		panic(fmt.Sprintf("shape: %d dimensions but %d specificity flags", len(dims), len(specified)))
	}
	s := Shape{
		dims:           make([]int, len(dims)),
		specified:      append([]bool(nil), specified...),
		dimensionality: Specified,
	}
	for i, d := range dims {
		if specified[i] {
			s.dims[i] = d
		}
	}
	return s
}

// UnknownDims creates a shape of the given rank where no dimension is known.
func UnknownDims(rank int) Shape {
	return NewPartialShape(make([]int, rank), make([]bool, rank))
}

// UnknownRank returns a NotSpecified shape.
func UnknownRank() Shape {
	return Shape{dimensionality: NotSpecified}
}

// ScalarShape returns the rank-zero shape.
func ScalarShape() Shape {
	return Shape{dimensionality: Scalar}
}

// Dimensionality returns how much of the shape is known.
func (s Shape) Dimensionality() Dimensionality {
	return s.dimensionality
}

// Rank returns the number of dimensions. Scalar and NotSpecified shapes return 0.
func (s Shape) Rank() int {
	return len(s.dims)
}

// Dim returns dimension i. Unknown dimensions return 0.
func (s Shape) Dim(i int) int {
	return s.dims[i]
}

// IsDimSpecified reports whether dimension i is known.
func (s Shape) IsDimSpecified(i int) bool {
	return s.specified[i]
}

// Dims returns a copy of the dimension values.
func (s Shape) Dims() []int {
	return append([]int(nil), s.dims...)
}

// IsFullySpecified reports whether the rank and every dimension are known.
func (s Shape) IsFullySpecified() bool {
	switch s.dimensionality {
	case Scalar:
		return true
	case Specified:
		for _, ok := range s.specified {
			if !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// AnyDimSpecified reports whether at least one dimension is known.
func (s Shape) AnyDimSpecified() bool {
	for _, ok := range s.specified {
		if ok {
			return true
		}
	}
	return false
}

// NumElements returns the total number of elements. The second result is
// false when the shape is not fully specified.
func (s Shape) NumElements() (int, bool) {
	if !s.IsFullySpecified() {
		return 0, false
	}
	n := 1
	for _, dim := range s.dims {
		n *= dim
	}
	return n, true
}

// WithDim returns a copy of s where dimension i is set and marked as known.
// The rank never changes.
func (s Shape) WithDim(i, value int) Shape {
	c := s.Clone()
	c.dims[i] = value
	c.specified[i] = true
	return c
}

// Validate checks that every known dimension is positive.
func (s Shape) Validate() error {
	for i, dim := range s.dims {
		if s.specified[i] && dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal, including which dimensions are known.
func (s Shape) Equal(other Shape) bool {
	if s.dimensionality != other.dimensionality || len(s.dims) != len(other.dims) {
		return false
	}
	for i := range s.dims {
		if s.specified[i] != other.specified[i] {
			return false
		}
		if s.specified[i] && s.dims[i] != other.dims[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{
		dims:           append([]int(nil), s.dims...),
		specified:      append([]bool(nil), s.specified...),
		dimensionality: s.dimensionality,
	}
}

// String formats the shape as [d0,d1,...] with ? for unknown dimensions.
func (s Shape) String() string {
	switch s.dimensionality {
	case NotSpecified:
		return "[*]"
	case Scalar:
		return "[]"
	}
	parts := make([]string, len(s.dims))
	for i, d := range s.dims {
		if s.specified[i] {
			parts[i] = strconv.Itoa(d)
		} else {
			parts[i] = "?"
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// BroadcastShapes aligns two fully specified shapes from the trailing
// dimension, treating missing dimensions as 1. Each aligned pair must be
// equal or contain a 1. The flag reports whether either operand is stretched.
//
//	[3,1] with [3,5] gives [3,5], true
//	[3,5] with [3,5] gives [3,5], false
//	[3,4] with [3,5] fails
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	if !a.IsFullySpecified() || !b.IsFullySpecified() {
		return Shape{}, false, fmt.Errorf("cannot broadcast partially known shapes %v and %v", a, b)
	}
	if a.Dimensionality() == Scalar && b.Dimensionality() == Scalar {
		return ScalarShape(), false, nil
	}

	maxLen := max(a.Rank(), b.Rank())
	result := make([]int, maxLen)
	needsBroadcast := a.Rank() != b.Rank()

	for i := 0; i < maxLen; i++ {
		aIdx := a.Rank() - 1 - i
		bIdx := b.Rank() - 1 - i

		aDim := 1
		if aIdx >= 0 {
			aDim = a.dims[aIdx]
		}

		bDim := 1
		if bIdx >= 0 {
			bDim = b.dims[bIdx]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[maxLen-1-i] = aDim
			needsBroadcast = true
		default:
			return Shape{}, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, maxLen-1-i, aDim, bDim)
		}
	}

	return NewShape(result...), needsBroadcast, nil
}
