package graph

import (
	"github.com/google/uuid"

	"github.com/born-ml/graphc/internal/tensor"
)

// LayerID is the arena index of a layer inside its Graph. IDs are never reused.
type LayerID int

// BackendID names an execution backend such as "CpuRef".
type BackendID string

// SlotRef addresses one slot of one layer.
type SlotRef struct {
	Layer LayerID
	Index int
}

// ShapeInferenceMethod selects how output shapes are checked against inference.
type ShapeInferenceMethod int

const (
	// ValidateOnly requires every input and output shape to be set and checks them.
	ValidateOnly ShapeInferenceMethod = iota
	// InferAndValidate fills in unknown output shapes and checks the known parts.
	InferAndValidate
)

// String returns the method name.
func (m ShapeInferenceMethod) String() string {
	if m == ValidateOnly {
		return "ValidateOnly"
	}
	return "InferAndValidate"
}

// InputSlot is a connection point accepting at most one producer.
type InputSlot struct {
	owner    LayerID
	index    int
	source   SlotRef
	attached bool

	override    tensor.TensorInfo
	hasOverride bool
}

// Owner returns the layer this slot belongs to.
func (s *InputSlot) Owner() LayerID { return s.owner }

// Index returns the slot position on its layer.
func (s *InputSlot) Index() int { return s.index }

// Connection returns the producing output slot, if connected.
func (s *InputSlot) Connection() (SlotRef, bool) { return s.source, s.attached }

// SetTensorInfo overrides the descriptor seen by this input, independent of
// the producer's output descriptor.
func (s *InputSlot) SetTensorInfo(info tensor.TensorInfo) {
	s.override = info
	s.hasOverride = true
}

// ClearTensorInfo drops an override set by SetTensorInfo.
func (s *InputSlot) ClearTensorInfo() {
	s.override = tensor.TensorInfo{}
	s.hasOverride = false
}

// TensorInfoOverride returns the overriding descriptor, if any.
func (s *InputSlot) TensorInfoOverride() (tensor.TensorInfo, bool) {
	return s.override, s.hasOverride
}

// OutputSlot is a connection point fanning out to any number of inputs.
type OutputSlot struct {
	owner     LayerID
	index     int
	info      tensor.TensorInfo
	infoSet   bool
	consumers []SlotRef
}

// Owner returns the layer this slot belongs to.
func (s *OutputSlot) Owner() LayerID { return s.owner }

// Index returns the slot position on its layer.
func (s *OutputSlot) Index() int { return s.index }

// TensorInfo returns the descriptor of the produced tensor. Unset slots
// return a descriptor of unknown rank.
func (s *OutputSlot) TensorInfo() tensor.TensorInfo {
	if !s.infoSet {
		return tensor.NewTensorInfo(tensor.UnknownRank(), tensor.Float32)
	}
	return s.info
}

// IsTensorInfoSet reports whether a descriptor was set or inferred.
func (s *OutputSlot) IsTensorInfoSet() bool { return s.infoSet }

// SetTensorInfo sets the descriptor of the produced tensor.
func (s *OutputSlot) SetTensorInfo(info tensor.TensorInfo) {
	s.info = info
	s.infoSet = true
}

// Connections returns the consumers of this slot.
func (s *OutputSlot) Connections() []SlotRef {
	return append([]SlotRef(nil), s.consumers...)
}

// NumConnections returns the number of consumers.
func (s *OutputSlot) NumConnections() int { return len(s.consumers) }

// Layer is one node of the network graph.
type Layer struct {
	id      LayerID
	guid    uuid.UUID
	name    string
	desc    Descriptor
	inputs  []InputSlot
	outputs []OutputSlot
	backend BackendID
	method  ShapeInferenceMethod
}

func newLayer(id LayerID, desc Descriptor, name string, method ShapeInferenceMethod) *Layer {
	l := &Layer{
		id:      id,
		guid:    uuid.New(),
		name:    name,
		desc:    desc,
		inputs:  make([]InputSlot, desc.NumInputs()),
		outputs: make([]OutputSlot, desc.NumOutputs()),
		method:  method,
	}
	for i := range l.inputs {
		l.inputs[i] = InputSlot{owner: id, index: i}
	}
	for i := range l.outputs {
		l.outputs[i] = OutputSlot{owner: id, index: i}
	}
	return l
}

// ID returns the arena index of the layer.
func (l *Layer) ID() LayerID { return l.id }

// GUID returns the process-unique identifier of the layer.
func (l *Layer) GUID() uuid.UUID { return l.guid }

// Name returns the human-readable name, which may be empty.
func (l *Layer) Name() string { return l.name }

// DisplayName returns the name, or the GUID for unnamed layers.
func (l *Layer) DisplayName() string {
	if l.name != "" {
		return l.name
	}
	return l.guid.String()
}

// Type returns the layer type tag.
func (l *Layer) Type() LayerType { return l.desc.Type() }

// Descriptor returns the parameter block.
func (l *Layer) Descriptor() Descriptor { return l.desc }

// NumInputSlots returns the number of input slots.
func (l *Layer) NumInputSlots() int { return len(l.inputs) }

// NumOutputSlots returns the number of output slots.
func (l *Layer) NumOutputSlots() int { return len(l.outputs) }

// InputSlot returns input slot i.
func (l *Layer) InputSlot(i int) *InputSlot { return &l.inputs[i] }

// OutputSlot returns output slot i.
func (l *Layer) OutputSlot(i int) *OutputSlot { return &l.outputs[i] }

// BackendID returns the assigned backend, empty until assignment.
func (l *Layer) BackendID() BackendID { return l.backend }

// SetBackendID assigns the layer to a backend.
func (l *Layer) SetBackendID(id BackendID) { l.backend = id }

// ShapeInferenceMethod returns the validation policy of the layer.
func (l *Layer) ShapeInferenceMethod() ShapeInferenceMethod { return l.method }

// SetShapeInferenceMethod changes the validation policy of the layer.
func (l *Layer) SetShapeInferenceMethod(m ShapeInferenceMethod) { l.method = m }

func (l *Layer) isConnected() bool {
	for i := range l.inputs {
		if l.inputs[i].attached {
			return true
		}
	}
	for i := range l.outputs {
		if len(l.outputs[i].consumers) > 0 {
			return true
		}
	}
	return false
}
