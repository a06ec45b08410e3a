package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every error returned by the compiler wraps one of these.
var (
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrUnresolvedShape  = errors.New("unresolved shape")
	ErrUnsupportedLayer = errors.New("layer not supported by any specified backend")
	ErrGraphStructure   = errors.New("graph structure error")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Graph structure failures, all matching ErrGraphStructure with errors.Is.
var (
	ErrDanglingConnection   = fmt.Errorf("%w: layer still has connected slots", ErrGraphStructure)
	ErrSlotTypeMismatch     = fmt.Errorf("%w: slot descriptors are incompatible", ErrGraphStructure)
	ErrSubstitutionMismatch = fmt.Errorf("%w: substitution boundary slots differ", ErrGraphStructure)
	ErrLayerNotFound        = fmt.Errorf("%w: layer not found", ErrGraphStructure)
)

// LayerValidationError reports a layer whose tensor descriptors failed validation.
type LayerValidationError struct {
	Layer   string   // Layer name (or GUID if unnamed)
	Type    LayerType
	Details string
	Err     error // ErrShapeMismatch or ErrUnresolvedShape
}

// Error implements the error interface.
func (e *LayerValidationError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("%s layer %q: %v", e.Type, e.Layer, e.Err)
	}
	return fmt.Sprintf("%s layer %q: %v: %s", e.Type, e.Layer, e.Err, e.Details)
}

// Unwrap returns the error class.
func (e *LayerValidationError) Unwrap() error { return e.Err }

// UnsupportedLayerError lists layers that no candidate backend accepted.
type UnsupportedLayerError struct {
	Layers  []string
	Reasons map[string]string // layer name -> aggregated rejection reasons
}

// Error implements the error interface.
func (e *UnsupportedLayerError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %d layer(s)", ErrUnsupportedLayer, len(e.Layers))
	for _, name := range e.Layers {
		fmt.Fprintf(&b, "\n  %s: %s", name, e.Reasons[name])
	}
	return b.String()
}

// Unwrap returns ErrUnsupportedLayer.
func (e *UnsupportedLayerError) Unwrap() error { return ErrUnsupportedLayer }

func invalidParam(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
