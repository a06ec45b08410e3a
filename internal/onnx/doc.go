// Package onnx imports ONNX models into the layer graph.
//
// ONNX (Open Neural Network Exchange) is an open format for representing deep learning models.
// Models are decoded with the protobuf wire primitives of
// google.golang.org/protobuf/encoding/protowire into the structs of proto.go,
// then lowered node by node through a Registry of converters onto the graph
// construction API. Operators without a single layer equivalent (FloorDiv,
// broadcasting operands of different rank) go through the frontend helpers.
//
// Key components:
//   - ModelProto, GraphProto, NodeProto, TensorProto: decoded model
//   - Registry: ONNX op type to Converter
//   - Importer: per-import state handed to converters
//   - Network: the imported graph plus its input and output binding names
//
// Supported data types:
//   - float32, float16, bfloat16
//   - int32, int64, bool
//   - uint8, int8, int16 (as quantized types with identity scale)
//
// Example usage:
//
//	net, err := onnx.ImportFile("resnet50.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d layers, inputs %v\n", net.Graph.CountLayers(), net.InputNames)
package onnx
