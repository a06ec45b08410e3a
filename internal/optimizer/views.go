package optimizer

import (
	"fmt"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// Substitution replaces Old with New. New's layers are already in the graph
// but not yet connected to the rest of it.
type Substitution struct {
	Old *graph.Subgraph
	New *graph.Subgraph
}

// Deletion removes a single-input single-output layer, splicing its producer
// to its consumers. When ConsumerInfo is set it becomes the input descriptor
// of every former consumer.
type Deletion struct {
	Layer        *graph.Layer
	ConsumerInfo *tensor.TensorInfo
}

// OptimizationViews is the result of one pass over the graph.
type OptimizationViews struct {
	Substitutions []Substitution
	Deletions     []Deletion
	Untouched     []*graph.Layer
}

// AddSubstitution records that old is to be replaced by replacement.
func (v *OptimizationViews) AddSubstitution(old, replacement *graph.Subgraph) {
	v.Substitutions = append(v.Substitutions, Substitution{Old: old, New: replacement})
}

// AddDeletion records that l is to be spliced out.
func (v *OptimizationViews) AddDeletion(l *graph.Layer, consumerInfo *tensor.TensorInfo) {
	v.Deletions = append(v.Deletions, Deletion{Layer: l, ConsumerInfo: consumerInfo})
}

// AddUntouched records that l is kept as is.
func (v *OptimizationViews) AddUntouched(l *graph.Layer) {
	v.Untouched = append(v.Untouched, l)
}

// Changed reports whether the views modify the graph.
func (v *OptimizationViews) Changed() bool {
	return len(v.Substitutions) > 0 || len(v.Deletions) > 0
}

// Validate checks that every substitution has matching boundaries and that
// no layer is claimed by two records.
func (v *OptimizationViews) Validate() error {
	claimed := make(map[graph.LayerID]string)
	claim := func(l *graph.Layer, what string) error {
		if prev, ok := claimed[l.ID()]; ok {
			return fmt.Errorf("%w: layer %q is both %s and %s", graph.ErrGraphStructure, l.DisplayName(), prev, what)
		}
		claimed[l.ID()] = what
		return nil
	}

	for i, s := range v.Substitutions {
		if len(s.Old.InputSlots()) != len(s.New.InputSlots()) || len(s.Old.OutputSlots()) != len(s.New.OutputSlots()) {
			return fmt.Errorf("substitution %d: %w: %d/%d inputs, %d/%d outputs", i, graph.ErrSubstitutionMismatch,
				len(s.Old.InputSlots()), len(s.New.InputSlots()), len(s.Old.OutputSlots()), len(s.New.OutputSlots()))
		}
		for _, l := range s.Old.Layers() {
			if err := claim(l, "substituted"); err != nil {
				return err
			}
		}
	}
	for _, d := range v.Deletions {
		if err := claim(d.Layer, "deleted"); err != nil {
			return err
		}
	}
	for _, l := range v.Untouched {
		if err := claim(l, "untouched"); err != nil {
			return err
		}
	}
	return nil
}

// apply performs the recorded rewrites on g: substitutions first, then
// deletions, each in the order recorded.
func (v *OptimizationViews) apply(g *graph.Graph) error {
	for _, s := range v.Substitutions {
		if err := g.SubstituteSubgraph(s.Old, s.New); err != nil {
			return err
		}
	}
	for _, d := range v.Deletions {
		consumers := g.Consumers(d.Layer.OutputSlot(0))
		if err := g.Bypass(d.Layer); err != nil {
			return err
		}
		if d.ConsumerInfo != nil {
			for _, in := range consumers {
				in.SetTensorInfo(*d.ConsumerInfo)
			}
		}
	}
	return nil
}
