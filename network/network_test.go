// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package network_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphc/backend"
	"github.com/born-ml/graphc/backend/cpu"
	"github.com/born-ml/graphc/network"
	"github.com/born-ml/graphc/tensor"
)

func absNetwork(t *testing.T) (*network.Graph, *network.Layer) {
	t.Helper()
	g := network.New()
	in, err := g.AddInputLayer(0, "x")
	require.NoError(t, err)
	in.OutputSlot(0).SetTensorInfo(tensor.NewTensorInfo(tensor.NewShape(5, 7, 6, 2), tensor.Float32))

	abs, err := g.AddLayer(network.ElementwiseUnaryDescriptor{Operation: network.UnaryAbs}, "abs")
	require.NoError(t, err)
	out, err := g.AddOutputLayer(0, "y")
	require.NoError(t, err)

	require.NoError(t, g.Connect(in.OutputSlot(0), abs.InputSlot(0)))
	require.NoError(t, g.Connect(abs.OutputSlot(0), out.InputSlot(0)))
	return g, abs
}

func reference(t *testing.T) *backend.Registry {
	t.Helper()
	reg, err := backend.NewRegistry(nil, cpu.New())
	require.NoError(t, err)
	return reg
}

func TestOptimizeInfersShapes(t *testing.T) {
	g, abs := absNetwork(t)

	net, err := network.Optimize(g, reference(t), []backend.ID{backend.CpuRef}, network.Options{})
	require.NoError(t, err)
	assert.Empty(t, net.Unsupported)
	assert.True(t, abs.OutputSlot(0).TensorInfo().Shape().Equal(tensor.NewShape(5, 7, 6, 2)))
	assert.Equal(t, backend.CpuRef, abs.BackendID())

	blocks, err := net.Blocks()
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, abs, blocks[0].Layer)
}

func TestOptimizeValidateOnly(t *testing.T) {
	g, _ := absNetwork(t)

	_, err := network.Optimize(g, reference(t), []backend.ID{backend.CpuRef}, network.Options{ValidateOnly: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrUnresolvedShape), "got %v", err)

	g, abs := absNetwork(t)
	abs.OutputSlot(0).SetTensorInfo(tensor.NewTensorInfo(tensor.NewShape(5, 7, 6, 2), tensor.Float32))
	_, err = network.Optimize(g, reference(t), []backend.ID{backend.CpuRef}, network.Options{ValidateOnly: true})
	require.NoError(t, err)
}

func TestOptimizeUnsupported(t *testing.T) {
	npu, err := backend.NewProfile(backend.Profile{ID: "NpuAcc"})
	require.NoError(t, err)
	reg, err := backend.NewRegistry(nil, npu)
	require.NoError(t, err)

	g, _ := absNetwork(t)
	_, err = network.Optimize(g, reg, []backend.ID{"NpuAcc"}, network.Options{})
	require.ErrorIs(t, err, network.ErrUnsupportedLayer)

	var unsupported *network.UnsupportedLayerError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, unsupported.Layers, "abs")

	g, _ = absNetwork(t)
	net, err := network.Optimize(g, reg, []backend.ID{"NpuAcc"}, network.Options{AllowUnsupported: true})
	require.NoError(t, err)
	assert.Len(t, net.Unsupported, 3)
}

func TestParseLayerType(t *testing.T) {
	lt, err := network.ParseLayerType("DepthwiseConvolution2d")
	require.NoError(t, err)
	assert.Equal(t, network.LayerDepthwiseConvolution2d, lt)
}
