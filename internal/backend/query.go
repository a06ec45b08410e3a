package backend

import (
	"fmt"
	"strings"

	"github.com/born-ml/graphc/internal/graph"
	"github.com/born-ml/graphc/internal/tensor"
)

// SupportResult is the answer of one backend to one capability query.
type SupportResult struct {
	Backend   ID
	Supported bool
	Reason    string
}

// Ask dispatches a query to the predicate of ls matching desc. infos holds
// the input descriptors followed by the output descriptors, in slot order.
// A disabled bias is passed to the predicate as a zero-sized placeholder.
func Ask(ls LayerSupport, desc graph.Descriptor, infos []tensor.TensorInfo) (bool, string) {
	nIn, nOut := desc.NumInputs(), desc.NumOutputs()
	if len(infos) != nIn+nOut {
		return false, fmt.Sprintf("%s takes %d input and %d output descriptors, got %d",
			desc.Type(), nIn, nOut, len(infos))
	}
	in, out := infos[:nIn], infos[nIn:]

	switch d := desc.(type) {
	case graph.InputDescriptor:
		return ls.IsInputSupported(out[0])
	case graph.OutputDescriptor:
		return ls.IsOutputSupported(in[0])
	case graph.ConstantDescriptor:
		return ls.IsConstantSupported(out[0])
	case graph.ActivationDescriptor:
		return ls.IsActivationSupported(in[0], out[0], d)
	case graph.CastDescriptor:
		return ls.IsCastSupported(in[0], out[0])
	case graph.ConcatDescriptor:
		return ls.IsConcatSupported(in, out[0], d)
	case graph.Convolution2dDescriptor:
		return ls.IsConvolution2dSupported(in[0], out[0], in[1], bias(in, d.BiasEnabled), d)
	case graph.Convolution3dDescriptor:
		return ls.IsConvolution3dSupported(in[0], out[0], in[1], bias(in, d.BiasEnabled), d)
	case graph.DepthwiseConvolution2dDescriptor:
		return ls.IsDepthwiseConvolution2dSupported(in[0], out[0], in[1], bias(in, d.BiasEnabled), d)
	case graph.DequantizeDescriptor:
		return ls.IsDequantizeSupported(in[0], out[0])
	case graph.ElementwiseBinaryDescriptor:
		return ls.IsElementwiseBinarySupported(in[0], in[1], out[0], d)
	case graph.ElementwiseUnaryDescriptor:
		return ls.IsElementwiseUnarySupported(in[0], out[0], d)
	case graph.FullyConnectedDescriptor:
		return ls.IsFullyConnectedSupported(in[0], out[0], in[1], bias(in, d.BiasEnabled), d)
	case graph.FusedDescriptor:
		return ls.IsFusedSupported(in, out, d)
	case graph.MeanDescriptor:
		return ls.IsMeanSupported(in[0], out[0], d)
	case graph.MergeDescriptor:
		return ls.IsMergeSupported(in[0], in[1], out[0])
	case graph.PadDescriptor:
		return ls.IsPadSupported(in[0], out[0], d)
	case graph.Pooling2dDescriptor:
		return ls.IsPooling2dSupported(in[0], out[0], d)
	case graph.QuantizeDescriptor:
		return ls.IsQuantizeSupported(in[0], out[0])
	case graph.RankDescriptor:
		return ls.IsRankSupported(in[0], out[0])
	case graph.ReshapeDescriptor:
		return ls.IsReshapeSupported(in[0], out[0], d)
	case graph.SoftmaxDescriptor:
		return ls.IsSoftmaxSupported(in[0], out[0], d)
	case graph.SplitterDescriptor:
		return ls.IsSplitterSupported(in[0], out, d)
	case graph.StackDescriptor:
		return ls.IsStackSupported(in, out[0], d)
	case graph.StandInDescriptor:
		return ls.IsStandInSupported(in, out, d)
	default:
		return false, fmt.Sprintf("no capability predicate for %s", desc.Type())
	}
}

func bias(in []tensor.TensorInfo, enabled bool) tensor.TensorInfo {
	if enabled {
		return in[2]
	}
	return Placeholder(in[1])
}

// Check asks each candidate in order until one accepts. It returns one
// result per backend asked; the last result is the acceptor, if any.
func (r *Registry) Check(desc graph.Descriptor, infos []tensor.TensorInfo, candidates []ID) []SupportResult {
	results := make([]SupportResult, 0, len(candidates))
	for _, id := range candidates {
		b, ok := r.backends[id]
		if !ok {
			results = append(results, SupportResult{Backend: id, Reason: "backend is not registered"})
			continue
		}
		supported, reason := Ask(b.LayerSupport(), desc, infos)
		results = append(results, SupportResult{Backend: id, Supported: supported, Reason: reason})
		if supported {
			break
		}
	}
	return results
}

// IsLayerTypeSupported reports whether any candidate backend can run a layer
// described by desc and infos, and which one. Candidates are asked in order.
// Each rejection is logged; when every candidate rejects, the reason lists
// them all. An empty candidate list is always rejected.
func (r *Registry) IsLayerTypeSupported(desc graph.Descriptor, infos []tensor.TensorInfo, candidates []ID) (bool, ID, string) {
	if len(candidates) == 0 {
		return false, "", fmt.Sprintf("%s: no candidate backends specified", desc.Type())
	}

	results := r.Check(desc, infos, candidates)
	var reasons []string
	for _, res := range results {
		if res.Supported {
			return true, res.Backend, ""
		}
		r.logger.Debug("backend rejected layer",
			"backend", string(res.Backend), "layer_type", desc.Type().String(), "reason", res.Reason)
		reasons = append(reasons, fmt.Sprintf("%s: %s", res.Backend, res.Reason))
	}
	return false, "", fmt.Sprintf("%s is not supported by any specified backend (%s)",
		desc.Type(), strings.Join(reasons, "; "))
}

// LayerInfos resolves the descriptors of l's slots in the order Ask expects.
// Unresolved inputs are reported with unknown rank.
func LayerInfos(g *graph.Graph, l *graph.Layer) []tensor.TensorInfo {
	infos := make([]tensor.TensorInfo, 0, l.NumInputSlots()+l.NumOutputSlots())
	for i := 0; i < l.NumInputSlots(); i++ {
		info, ok := g.InputTensorInfo(l.InputSlot(i))
		if !ok {
			info = tensor.NewTensorInfo(tensor.UnknownRank(), tensor.Float32)
		}
		infos = append(infos, info)
	}
	for i := 0; i < l.NumOutputSlots(); i++ {
		infos = append(infos, l.OutputSlot(i).TensorInfo())
	}
	return infos
}

// IsLayerSupported resolves the descriptors of l and asks the candidates.
// A non-nil dataTypeOverride replaces the element type of every descriptor
// for the query only; the graph is not modified.
func (r *Registry) IsLayerSupported(g *graph.Graph, l *graph.Layer, candidates []ID, dataTypeOverride *tensor.DataType) (bool, ID, string) {
	infos := LayerInfos(g, l)
	if dataTypeOverride != nil {
		for i := range infos {
			dt := *dataTypeOverride
			if i == 2 && hasBias(l.Descriptor()) {
				dt = BiasTypeFor(dt)
			}
			infos[i] = infos[i].WithDataType(dt)
		}
	}

	ok, id, reason := r.IsLayerTypeSupported(l.Descriptor(), infos, candidates)
	if !ok {
		r.logger.Debug("layer not supported", "layer", l.DisplayName(), "reason", reason)
	}
	return ok, id, reason
}

func hasBias(desc graph.Descriptor) bool {
	switch d := desc.(type) {
	case graph.Convolution2dDescriptor:
		return d.BiasEnabled
	case graph.Convolution3dDescriptor:
		return d.BiasEnabled
	case graph.DepthwiseConvolution2dDescriptor:
		return d.BiasEnabled
	case graph.FullyConnectedDescriptor:
		return d.BiasEnabled
	}
	return false
}
