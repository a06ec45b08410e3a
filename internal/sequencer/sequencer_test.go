package sequencer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphc/internal/graph"
)

func names(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Outputs[0]
	}
	return out
}

func TestSequencerOrdersDAG(t *testing.T) {
	s := New()
	// Offered in reverse dependency order.
	s.Add(Block{Inputs: []string{"c", "b"}, Outputs: []string{"d"}})
	s.Add(Block{Inputs: []string{"a"}, Outputs: []string{"c"}})
	s.Add(Block{Inputs: []string{"a", "constant_w"}, Outputs: []string{"b"}})
	s.Add(Block{Inputs: []string{"input_0"}, Outputs: []string{"a"}})

	blocks, err := s.Finish()
	require.NoError(t, err)
	require.Len(t, blocks, 4)

	pos := make(map[string]int)
	for i, b := range blocks {
		pos[b.Outputs[0]] = i
	}
	for _, b := range blocks {
		for _, in := range b.Inputs {
			if AlwaysAvailable(in) {
				continue
			}
			assert.Less(t, pos[in], pos[b.Outputs[0]], "%s must precede %s", in, b.Outputs[0])
		}
	}
}

func TestSequencerKeepsOfferOrderForReadyBlocks(t *testing.T) {
	s := New()
	s.Add(Block{Inputs: []string{"input_0"}, Outputs: []string{"x"}})
	s.Add(Block{Inputs: []string{"constant_1"}, Outputs: []string{"y"}})
	s.Add(Block{Inputs: []string{"x", "y"}, Outputs: []string{"z"}})

	blocks, err := s.Finish()
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"x", "y", "z"}, names(blocks)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSequencerDetectsCycle(t *testing.T) {
	s := New()
	s.Add(Block{Inputs: []string{"input_0"}, Outputs: []string{"a"}})
	s.Add(Block{Inputs: []string{"a", "c"}, Outputs: []string{"b"}})
	s.Add(Block{Inputs: []string{"b"}, Outputs: []string{"c"}})

	_, err := s.Finish()
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrGraphStructure))
	assert.Contains(t, err.Error(), "blocks could not be processed")
}

func TestSequencerMissingProducer(t *testing.T) {
	s := New()
	s.Add(Block{Inputs: []string{"nowhere"}, Outputs: []string{"a"}})

	_, err := s.Finish()
	assert.ErrorIs(t, err, graph.ErrGraphStructure)
}

func TestAlwaysAvailable(t *testing.T) {
	assert.True(t, AlwaysAvailable("input_3"))
	assert.True(t, AlwaysAvailable("constant_weights"))
	assert.False(t, AlwaysAvailable("intermediate_1_0"))
}
