// Package profile builds backends whose capabilities are declared as data
// rather than code. A Profile lists, per layer type, the element types and
// layouts a device accepts; every layer type it does not list is rejected.
package profile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/graphc/internal/backend"
	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// Rule constrains one layer type. Empty lists and a zero MaxRank do not
// constrain anything.
type Rule struct {
	DataTypes []tensor.DataType
	Layouts   []graph.DataLayout
	MaxRank   int
}

// Profile is the declared capability set of one backend.
type Profile struct {
	ID    backend.ID
	Rules map[graph.LayerType]Rule
}

// Validate rejects profiles without an id.
func (p Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile: empty backend id")
	}
	return nil
}

// Backend serves a Profile through backend.LayerSupport.
type Backend struct {
	profile Profile
	support support
}

var _ backend.Backend = (*Backend)(nil)

// New creates a backend from p.
func New(p Profile) (*Backend, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Backend{profile: p, support: support{profile: p}}, nil
}

// ID returns the profile id.
func (b *Backend) ID() backend.ID { return b.profile.ID }

// LayerSupport returns predicates evaluating the profile rules.
func (b *Backend) LayerSupport() backend.LayerSupport { return b.support }

// LayerTypes returns the layer types the profile lists, in enum order.
func (b *Backend) LayerTypes() []graph.LayerType {
	var types []graph.LayerType
	for _, t := range graph.LayerTypes() {
		if _, ok := b.profile.Rules[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

type support struct {
	profile Profile
}

var _ backend.LayerSupport = support{}

// check evaluates the rule of t against the data-carrying descriptors. The
// layout is only compared when hasLayout is set.
func (s support) check(t graph.LayerType, infos []tensor.TensorInfo, layout graph.DataLayout, hasLayout bool) (bool, string) {
	rule, ok := s.profile.Rules[t]
	if !ok {
		return false, fmt.Sprintf("%s is not listed in profile %s", t, s.profile.ID)
	}

	var r backend.Rules
	for i, info := range infos {
		if len(rule.DataTypes) > 0 {
			r.Check(backend.TypeAnyOf(info, rule.DataTypes...), "%s: tensor %d type %s not in [%s]",
				t, i, info.DataType(), joinTypes(rule.DataTypes))
		}
		if rule.MaxRank > 0 && info.Shape().Dimensionality() == tensor.Specified {
			r.Check(info.Shape().Rank() <= rule.MaxRank, "%s: tensor %d rank %d exceeds %d",
				t, i, info.Shape().Rank(), rule.MaxRank)
		}
	}
	if hasLayout && len(rule.Layouts) > 0 {
		r.Check(slices.Contains(rule.Layouts, layout), "%s: layout %s not supported", t, layout)
	}
	return r.Result()
}

func joinTypes(types []tensor.DataType) string {
	names := make([]string, len(types))
	for i, dt := range types {
		names[i] = dt.String()
	}
	return strings.Join(names, ", ")
}

func infos(list ...tensor.TensorInfo) []tensor.TensorInfo { return list }

// weighted leaves weights and biases out of the type rule: their element
// types follow the quantization scheme of the data, not the data type.
func (s support) weighted(t graph.LayerType, input, output tensor.TensorInfo, layout graph.DataLayout, hasLayout bool) (bool, string) {
	return s.check(t, infos(input, output), layout, hasLayout)
}

func (s support) IsActivationSupported(input, output tensor.TensorInfo, _ graph.ActivationDescriptor) (bool, string) {
	return s.check(graph.LayerActivation, infos(input, output), 0, false)
}

func (s support) IsCastSupported(input, _ tensor.TensorInfo) (bool, string) {
	return s.check(graph.LayerCast, infos(input), 0, false)
}

func (s support) IsConcatSupported(inputs []tensor.TensorInfo, output tensor.TensorInfo, _ graph.ConcatDescriptor) (bool, string) {
	return s.check(graph.LayerConcat, append(slices.Clone(inputs), output), 0, false)
}

func (s support) IsConstantSupported(output tensor.TensorInfo) (bool, string) {
	return s.check(graph.LayerConstant, infos(output), 0, false)
}

func (s support) IsConvolution2dSupported(input, output, _, _ tensor.TensorInfo, desc graph.Convolution2dDescriptor) (bool, string) {
	return s.weighted(graph.LayerConvolution2d, input, output, desc.DataLayout, true)
}

func (s support) IsConvolution3dSupported(input, output, _, _ tensor.TensorInfo, desc graph.Convolution3dDescriptor) (bool, string) {
	return s.weighted(graph.LayerConvolution3d, input, output, desc.DataLayout, true)
}

func (s support) IsDepthwiseConvolution2dSupported(input, output, _, _ tensor.TensorInfo, desc graph.DepthwiseConvolution2dDescriptor) (bool, string) {
	return s.weighted(graph.LayerDepthwiseConvolution2d, input, output, desc.DataLayout, true)
}

func (s support) IsDequantizeSupported(input, _ tensor.TensorInfo) (bool, string) {
	return s.check(graph.LayerDequantize, infos(input), 0, false)
}

func (s support) IsElementwiseBinarySupported(input0, input1, output tensor.TensorInfo, _ graph.ElementwiseBinaryDescriptor) (bool, string) {
	return s.check(graph.LayerElementwiseBinary, infos(input0, input1, output), 0, false)
}

func (s support) IsElementwiseUnarySupported(input, output tensor.TensorInfo, _ graph.ElementwiseUnaryDescriptor) (bool, string) {
	return s.check(graph.LayerElementwiseUnary, infos(input, output), 0, false)
}

func (s support) IsFullyConnectedSupported(input, output, _, _ tensor.TensorInfo, _ graph.FullyConnectedDescriptor) (bool, string) {
	return s.weighted(graph.LayerFullyConnected, input, output, 0, false)
}

func (s support) IsFusedSupported(inputs, outputs []tensor.TensorInfo, _ graph.FusedDescriptor) (bool, string) {
	return s.check(graph.LayerFused, append(slices.Clone(inputs), outputs...), 0, false)
}

func (s support) IsInputSupported(input tensor.TensorInfo) (bool, string) {
	return s.check(graph.LayerInput, infos(input), 0, false)
}

func (s support) IsMeanSupported(input, output tensor.TensorInfo, _ graph.MeanDescriptor) (bool, string) {
	return s.check(graph.LayerMean, infos(input, output), 0, false)
}

func (s support) IsMergeSupported(input0, input1, output tensor.TensorInfo) (bool, string) {
	return s.check(graph.LayerMerge, infos(input0, input1, output), 0, false)
}

func (s support) IsOutputSupported(output tensor.TensorInfo) (bool, string) {
	return s.check(graph.LayerOutput, infos(output), 0, false)
}

func (s support) IsPadSupported(input, output tensor.TensorInfo, _ graph.PadDescriptor) (bool, string) {
	return s.check(graph.LayerPad, infos(input, output), 0, false)
}

func (s support) IsPooling2dSupported(input, output tensor.TensorInfo, desc graph.Pooling2dDescriptor) (bool, string) {
	return s.check(graph.LayerPooling2d, infos(input, output), desc.DataLayout, true)
}

func (s support) IsQuantizeSupported(input, _ tensor.TensorInfo) (bool, string) {
	return s.check(graph.LayerQuantize, infos(input), 0, false)
}

func (s support) IsRankSupported(input, _ tensor.TensorInfo) (bool, string) {
	return s.check(graph.LayerRank, infos(input), 0, false)
}

func (s support) IsReshapeSupported(input, output tensor.TensorInfo, _ graph.ReshapeDescriptor) (bool, string) {
	return s.check(graph.LayerReshape, infos(input, output), 0, false)
}

func (s support) IsSoftmaxSupported(input, output tensor.TensorInfo, _ graph.SoftmaxDescriptor) (bool, string) {
	return s.check(graph.LayerSoftmax, infos(input, output), 0, false)
}

func (s support) IsSplitterSupported(input tensor.TensorInfo, outputs []tensor.TensorInfo, _ graph.SplitterDescriptor) (bool, string) {
	return s.check(graph.LayerSplitter, append(infos(input), outputs...), 0, false)
}

func (s support) IsStackSupported(inputs []tensor.TensorInfo, output tensor.TensorInfo, _ graph.StackDescriptor) (bool, string) {
	return s.check(graph.LayerStack, append(slices.Clone(inputs), output), 0, false)
}

func (s support) IsStandInSupported(inputs, outputs []tensor.TensorInfo, _ graph.StandInDescriptor) (bool, string) {
	return s.check(graph.LayerStandIn, append(slices.Clone(inputs), outputs...), 0, false)
}
