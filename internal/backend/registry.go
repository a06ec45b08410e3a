package backend

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// Backend is an execution target known to the compiler.
type Backend interface {
	ID() ID
	LayerSupport() LayerSupport
}

// Workload is an executable kernel bound to one layer.
type Workload interface {
	Execute() error
}

// WorkloadFactory creates workloads for layers assigned to its backend. It is
// used by the execution layer once compilation has finished.
type WorkloadFactory interface {
	CreateWorkload(l *graph.Layer, inputs, outputs []tensor.TensorInfo) (Workload, error)
}

// WorkloadProvider is implemented by backends that can execute layers.
type WorkloadProvider interface {
	WorkloadFactory() WorkloadFactory
}

// Registry maps backend ids to backends. Register every backend before the
// first query; afterwards the registry is read-only and may be shared by
// concurrent compilations.
type Registry struct {
	backends map[ID]Backend
	order    []ID
	logger   *slog.Logger
}

// NewRegistry creates a registry holding backends. A nil logger uses slog.Default().
func NewRegistry(logger *slog.Logger, backends ...Backend) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		backends: make(map[ID]Backend, len(backends)),
		logger:   logger,
	}
	for _, b := range backends {
		if err := r.Register(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds b. Registering the same id twice is an error.
func (r *Registry) Register(b Backend) error {
	id := b.ID()
	if id == "" {
		return fmt.Errorf("backend has an empty id")
	}
	if _, ok := r.backends[id]; ok {
		return fmt.Errorf("backend %q is already registered", id)
	}
	r.backends[id] = b
	r.order = append(r.order, id)
	return nil
}

// Get returns the backend with the given id.
func (r *Registry) Get(id ID) (Backend, bool) {
	b, ok := r.backends[id]
	return b, ok
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []ID {
	return slices.Clone(r.order)
}

// Logger returns the logger used for rejection diagnostics.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}
