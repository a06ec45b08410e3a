package optimizer

import (
	"errors"
	"fmt"

	"github.com/born-ml/graphc/internal/backend"
	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/infer"
	"github.com/born-ml/graphc/internal/sequencer"
)

// PassReport summarizes what one pass changed.
type PassReport struct {
	Pass          string
	Substitutions int
	Deletions     int
	Untouched     int
}

// UnsupportedLayer is a layer no candidate backend accepted.
type UnsupportedLayer struct {
	Layer  *graph.Layer
	Reason string
}

// OptimizedNetwork is the compiled graph. Every layer in Graph either has a
// backend assigned or is listed in Unsupported.
type OptimizedNetwork struct {
	Graph       *graph.Graph
	Passes      []PassReport
	Unsupported []UnsupportedLayer
	Names       []NamedLayer
}

// Optimize compiles g in place for the candidate backends, in priority
// order. Shape and structure errors abort; layers without a backend abort
// only when opts.AllowUnsupported is false, and only after every pass ran.
func Optimize(g *graph.Graph, registry *backend.Registry, candidates []backend.ID, opts Options) (*OptimizedNetwork, error) {
	if registry == nil {
		return nil, errors.New("optimize: nil backend registry")
	}
	ctx := NewContext(g, registry, candidates, opts)

	if opts.ValidateOnly {
		g.SetShapeInferenceMethod(graph.ValidateOnly)
		for _, l := range g.Layers() {
			l.SetShapeInferenceMethod(graph.ValidateOnly)
		}
	}
	if err := infer.InferTensorInfos(g); err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	passes := opts.Passes
	if passes == nil {
		passes = DefaultPasses()
	}

	net := &OptimizedNetwork{Graph: g}
	for _, p := range passes {
		report, err := runPass(ctx, g, p)
		if err != nil {
			return nil, fmt.Errorf("optimize: %s: %w", p.Name(), err)
		}
		net.Passes = append(net.Passes, report)
	}

	unsupported, err := AssignBackends(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	net.Unsupported = unsupported
	net.Names = ctx.Names()

	if len(net.Unsupported) > 0 && !opts.AllowUnsupported {
		return nil, unsupportedError(net.Unsupported)
	}
	return net, nil
}

func runPass(ctx *Context, g *graph.Graph, p Pass) (PassReport, error) {
	views, err := p.Run(ctx, g)
	if err != nil {
		return PassReport{}, err
	}
	if err := views.Validate(); err != nil {
		return PassReport{}, err
	}
	report := PassReport{
		Pass:          p.Name(),
		Substitutions: len(views.Substitutions),
		Deletions:     len(views.Deletions),
		Untouched:     len(views.Untouched),
	}
	if !views.Changed() {
		return report, nil
	}
	if err := views.apply(g); err != nil {
		return PassReport{}, err
	}
	ctx.Logger.Info("pass applied", "pass", p.Name(),
		"substitutions", report.Substitutions, "deletions", report.Deletions, "layers", g.CountLayers())
	return report, infer.InferTensorInfos(g)
}

// AssignBackends gives every layer of g the first candidate backend that
// accepts it. Rejected layers keep an empty backend id and are returned.
func AssignBackends(ctx *Context, g *graph.Graph) ([]UnsupportedLayer, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	var unsupported []UnsupportedLayer
	for _, l := range order {
		ok, id, reason := ctx.Registry.IsLayerSupported(g, l, ctx.Candidates, nil)
		if !ok {
			l.SetBackendID("")
			unsupported = append(unsupported, UnsupportedLayer{Layer: l, Reason: reason})
			continue
		}
		l.SetBackendID(id)
	}
	return unsupported, nil
}

func unsupportedError(layers []UnsupportedLayer) error {
	e := &graph.UnsupportedLayerError{Reasons: make(map[string]string, len(layers))}
	for _, u := range layers {
		name := u.Layer.DisplayName()
		e.Layers = append(e.Layers, name)
		e.Reasons[name] = u.Reason
	}
	return e
}

// TensorName returns the sequencer name of the tensor produced by out.
func TensorName(g *graph.Graph, out *graph.OutputSlot) string {
	l := g.Layer(out.Owner())
	switch d := l.Descriptor().(type) {
	case graph.InputDescriptor:
		return fmt.Sprintf("%s_%d", sequencer.InputPrefix, d.BindingID)
	case graph.ConstantDescriptor:
		return fmt.Sprintf("%s_%s", sequencer.ConstantPrefix, l.GUID())
	default:
		return fmt.Sprintf("intermediate_%s_%d", l.GUID(), out.Index())
	}
}

// Blocks orders the operator layers of the network for execution. Input and
// Constant layers are not blocks; their tensors are always available.
func (n *OptimizedNetwork) Blocks() ([]sequencer.Block, error) {
	s := sequencer.New()
	for _, l := range n.Graph.Layers() {
		if l.Type() == graph.LayerInput || l.Type() == graph.LayerConstant {
			continue
		}
		b := sequencer.Block{Layer: l}
		for i := 0; i < l.NumInputSlots(); i++ {
			out := n.Graph.Producer(l.InputSlot(i))
			if out == nil {
				return nil, fmt.Errorf("%w: %s layer %q input %d is not connected",
					graph.ErrGraphStructure, l.Type(), l.DisplayName(), i)
			}
			b.Inputs = append(b.Inputs, TensorName(n.Graph, out))
		}
		for i := 0; i < l.NumOutputSlots(); i++ {
			b.Outputs = append(b.Outputs, TensorName(n.Graph, l.OutputSlot(i)))
		}
		s.Add(b)
	}
	return s.Finish()
}
