// Package cpu implements the reference CPU backend's capability tables.
package cpu

import (
	"github.com/born-ml/graphc/internal/backend"
)

// Backend is the CpuRef backend. It accepts the widest set of element types
// and is the usual last entry of a candidate list.
type Backend struct {
	support LayerSupport
}

var _ backend.Backend = (*Backend)(nil)

// New creates the reference backend.
func New() *Backend {
	return &Backend{}
}

// ID returns backend.CpuRef.
func (b *Backend) ID() backend.ID {
	return backend.CpuRef
}

// LayerSupport returns the reference capability predicates.
func (b *Backend) LayerSupport() backend.LayerSupport {
	return b.support
}
