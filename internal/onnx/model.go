package onnx

import "github.com/born-ml/graphc/internal/graph"

// Network is an imported ONNX model: the layer graph plus the names of its
// bindings. InputNames[i] and OutputNames[i] are the model values bound to
// binding id i.
type Network struct {
	Graph       *graph.Graph
	InputNames  []string
	OutputNames []string
	Opset       int64
	proto       *ModelProto
}

// Metadata returns model metadata as key-value pairs.
func (n *Network) Metadata() map[string]string {
	meta := make(map[string]string)
	for _, prop := range n.proto.MetadataProps {
		meta[prop.Key] = prop.Value
	}
	meta["producer_name"] = n.proto.ProducerName
	meta["producer_version"] = n.proto.ProducerVersion
	meta["domain"] = n.proto.Domain
	return meta
}
