// Package optimizer rewrites a layer graph for execution. Optimize resolves
// tensor descriptors, runs the rewrite passes in a fixed order and assigns
// each layer to the first candidate backend that accepts it.
package optimizer

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/born-ml/graphc/internal/backend"
	"github.com/born-ml/graphc/internal/graph"
)

// DefaultFuseActivations lists the activations FuseLayerSequence absorbs
// when Options.FuseActivations is nil.
var DefaultFuseActivations = []graph.ActivationFunction{graph.ActivationReLu, graph.ActivationBoundedReLu}

// Options configures one Optimize call.
type Options struct {
	// ValidateOnly switches every layer to ValidateOnly shape inference.
	ValidateOnly bool
	// ReduceFp32ToFp16 stores Float32 constants as Float16.
	ReduceFp32ToFp16 bool
	// AllowUnsupported returns the network even when some layers have no
	// backend; they are reported in OptimizedNetwork.Unsupported.
	AllowUnsupported bool
	// FuseActivations overrides DefaultFuseActivations.
	FuseActivations []graph.ActivationFunction
	// Passes overrides DefaultPasses.
	Passes []Pass
	// Logger defaults to the registry logger.
	Logger *slog.Logger
}

// Context is the state of one Optimize call. Passes read the registry and
// candidate list from it and create layers through it so that debug names
// stay unique within the compilation.
type Context struct {
	Registry   *backend.Registry
	Candidates []backend.ID
	Options    Options
	Logger     *slog.Logger

	names *orderedmap.OrderedMap[string, uuid.UUID]
}

// NewContext creates a context for compiling g. The names of g's layers are
// reserved up front.
func NewContext(g *graph.Graph, registry *backend.Registry, candidates []backend.ID, opts Options) *Context {
	logger := opts.Logger
	if logger == nil {
		logger = registry.Logger()
	}
	c := &Context{
		Registry:   registry,
		Candidates: append([]backend.ID(nil), candidates...),
		Options:    opts,
		Logger:     logger,
		names:      orderedmap.New[string, uuid.UUID](),
	}
	for _, l := range g.Layers() {
		if l.Name() != "" {
			c.names.Set(l.Name(), l.GUID())
		}
	}
	return c
}

// fuseActivations returns the activation allow-list in effect.
func (c *Context) fuseActivations() []graph.ActivationFunction {
	if c.Options.FuseActivations != nil {
		return c.Options.FuseActivations
	}
	return DefaultFuseActivations
}

// uniqueName returns base, or base with the smallest numeric suffix that is
// not yet taken.
func (c *Context) uniqueName(base string) string {
	name := base
	for i := 1; ; i++ {
		if _, taken := c.names.Get(name); !taken {
			return name
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
}

// AddLayer adds desc to g under a unique name derived from base.
func (c *Context) AddLayer(g *graph.Graph, desc graph.Descriptor, base string) (*graph.Layer, error) {
	name := c.uniqueName(base)
	l, err := g.AddLayer(desc, name)
	if err != nil {
		return nil, err
	}
	c.names.Set(name, l.GUID())
	return l, nil
}

// NamedLayer pairs a debug name with the GUID of the layer it was given to.
type NamedLayer struct {
	Name string
	GUID uuid.UUID
}

// Names returns every debug name known to the compilation in the order it
// was registered.
func (c *Context) Names() []NamedLayer {
	out := make([]NamedLayer, 0, c.names.Len())
	for pair := c.names.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, NamedLayer{Name: pair.Key, GUID: pair.Value})
	}
	return out
}
