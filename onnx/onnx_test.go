// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package onnx_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/born-ml/graphc/backend"
	"github.com/born-ml/graphc/backend/cpu"
	"github.com/born-ml/graphc/network"
	"github.com/born-ml/graphc/onnx"
)

func field(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func str(b []byte, num protowire.Number, s string) []byte {
	return field(b, num, []byte(s))
}

func varint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// tensorValue encodes a float ValueInfoProto of the given dims.
func tensorValue(name string, dims ...uint64) []byte {
	var shape []byte
	for _, d := range dims {
		shape = field(shape, 1, varint(nil, 1, d))
	}
	tt := field(varint(nil, 1, 1), 2, shape)
	return field(str(nil, 1, name), 2, field(nil, 1, tt))
}

// reluModel encodes X -> op -> Y over a [1, 4] float tensor.
func reluModel(op string) []byte {
	node := str(str(str(str(nil, 1, "X"), 2, "Y"), 3, "act"), 4, op)
	g := field(nil, 1, node)
	g = str(g, 2, "tiny")
	g = field(g, 11, tensorValue("X", 1, 4))
	g = field(g, 12, tensorValue("Y", 1, 4))

	m := varint(nil, 1, 8)
	m = str(m, 2, "pytorch")
	m = field(m, 8, varint(str(nil, 1, ""), 2, 13))
	return field(m, 7, g)
}

func quietOptions() onnx.ImportOptions {
	opts := onnx.DefaultImportOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opts
}

func TestImportAndOptimize(t *testing.T) {
	model, err := onnx.ImportBytes(reluModel("Relu"), quietOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, model.InputNames)
	assert.Equal(t, []string{"Y"}, model.OutputNames)
	assert.Equal(t, int64(13), model.Opset)
	assert.Equal(t, "pytorch", model.Metadata()["producer_name"])
	assert.Equal(t, 3, model.Graph.CountLayers())

	reg, err := backend.NewRegistry(nil, cpu.New())
	require.NoError(t, err)
	net, err := network.Optimize(model.Graph, reg, []backend.ID{backend.CpuRef}, network.Options{})
	require.NoError(t, err)

	acts := net.Graph.LayersOfType(network.LayerActivation)
	require.Len(t, acts, 1)
	assert.Equal(t, backend.CpuRef, acts[0].BackendID())
}

func TestImportUnsupportedOperator(t *testing.T) {
	_, err := onnx.ImportBytes(reluModel("Einsum"), quietOptions())
	assert.ErrorIs(t, err, onnx.ErrUnsupportedOperator)

	opts := quietOptions()
	opts.StandInUnknown = true
	model, err := onnx.ImportBytes(reluModel("Einsum"), opts)
	require.NoError(t, err)
	assert.Len(t, model.Graph.LayersOfType(network.LayerStandIn), 1)
}

func TestCustomConverter(t *testing.T) {
	reg := onnx.NewRegistry()
	reg.Register("Swish", func(imp *onnx.Importer, node *onnx.NodeProto) error {
		x, err := imp.Operand(node.Input(0))
		if err != nil {
			return err
		}
		l, err := imp.AddLayer(network.ActivationDescriptor{Function: network.ActivationHardSwish}, node.DisplayName(), x)
		if err != nil {
			return err
		}
		return imp.Bind(node, l)
	})

	opts := quietOptions()
	opts.Registry = reg
	model, err := onnx.ImportBytes(reluModel("Swish"), opts)
	require.NoError(t, err)

	acts := model.Graph.LayersOfType(network.LayerActivation)
	require.Len(t, acts, 1)
	assert.Equal(t, network.ActivationHardSwish, acts[0].Descriptor().(network.ActivationDescriptor).Function)
}

func TestImportMalformed(t *testing.T) {
	_, err := onnx.ImportBytes([]byte{0x80}, quietOptions())
	assert.ErrorIs(t, err, onnx.ErrMalformed)
}

func TestGetModelInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.onnx")
	require.NoError(t, os.WriteFile(path, reluModel("Relu"), 0o600))

	info, err := onnx.GetModelInfo(path)
	require.NoError(t, err)
	assert.Equal(t, int64(13), info.OpsetVersion)
	assert.Equal(t, 1, info.NodeCount)
	assert.Empty(t, info.Unsupported)
}

func TestListSupportedOps(t *testing.T) {
	ops := onnx.ListSupportedOps()
	assert.Contains(t, ops, "Conv")
	assert.Contains(t, ops, "FloorDiv")
	assert.IsNonDecreasing(t, ops)
}
