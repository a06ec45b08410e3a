// Package sequencer orders operator blocks by tensor-name availability.
package sequencer

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/v2/queues/linkedlistqueue"
	"github.com/emirpasic/gods/v2/sets/hashset"

	"github.com/born-ml/graphc/internal/graph"
)

// Tensor names with these prefixes are produced outside the block set and
// are always available.
const (
	InputPrefix    = "input"
	ConstantPrefix = "constant"
)

// Block is one operator with the names of the tensors it reads and writes.
type Block struct {
	Layer   *graph.Layer
	Inputs  []string
	Outputs []string
}

// Sequencer places blocks once every tensor they read has been written by a
// block placed earlier. The zero value is not usable; call New.
type Sequencer struct {
	available *hashset.Set[string]
	pending   *linkedlistqueue.Queue[*Block]
	ready     []Block
}

// New creates an empty sequencer.
func New() *Sequencer {
	return &Sequencer{
		available: hashset.New[string](),
		pending:   linkedlistqueue.New[*Block](),
	}
}

// Add offers a block. It is placed immediately when its inputs are
// available, otherwise it waits until a later placement releases it.
func (s *Sequencer) Add(b Block) {
	if s.isReady(b) {
		s.place(b)
		s.drain()
		return
	}
	s.pending.Enqueue(&b)
}

// Finish returns the blocks in execution order. It fails when some block can
// never become ready, which happens on cycles and on missing producers.
func (s *Sequencer) Finish() ([]Block, error) {
	s.drain()
	if !s.pending.Empty() {
		names := make([]string, 0, s.pending.Size())
		for _, b := range s.pending.Values() {
			names = append(names, blockName(*b))
		}
		return nil, fmt.Errorf("%w: blocks could not be processed: %s",
			graph.ErrGraphStructure, strings.Join(names, ", "))
	}
	return s.ready, nil
}

// drain rescans the queue until a full pass places nothing.
func (s *Sequencer) drain() {
	for progress := true; progress; {
		progress = false
		for n := s.pending.Size(); n > 0; n-- {
			b, _ := s.pending.Dequeue()
			if s.isReady(*b) {
				s.place(*b)
				progress = true
				continue
			}
			s.pending.Enqueue(b)
		}
	}
}

func (s *Sequencer) place(b Block) {
	s.ready = append(s.ready, b)
	for _, name := range b.Outputs {
		s.available.Add(name)
	}
}

func (s *Sequencer) isReady(b Block) bool {
	for _, name := range b.Inputs {
		if AlwaysAvailable(name) {
			continue
		}
		if !s.available.Contains(name) {
			return false
		}
	}
	return true
}

// AlwaysAvailable reports whether name refers to a graph input or constant.
func AlwaysAvailable(name string) bool {
	return strings.HasPrefix(name, InputPrefix) || strings.HasPrefix(name, ConstantPrefix)
}

func blockName(b Block) string {
	if b.Layer == nil {
		return strings.Join(b.Outputs, "+")
	}
	return b.Layer.DisplayName()
}
