// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphc/tensor"
)

func TestTensorInfo(t *testing.T) {
	info := tensor.NewTensorInfo(tensor.NewShape(1, 3, 224, 224), tensor.Float32)
	assert.Equal(t, "[1,3,224,224] float32", info.String())

	n, ok := info.NumBytes()
	require.True(t, ok)
	assert.Equal(t, 3*224*224*4, n)
}

func TestPartialShape(t *testing.T) {
	s := tensor.NewPartialShape([]int{0, 3}, []bool{false, true})
	assert.False(t, s.IsFullySpecified())
	assert.Equal(t, "[?,3]", s.String())
	assert.Equal(t, "[*]", tensor.UnknownRank().String())
	assert.Equal(t, "[]", tensor.ScalarShape().String())
}

func TestParseDataType(t *testing.T) {
	dt, err := tensor.ParseDataType("QAsymmU8")
	require.NoError(t, err)
	assert.Equal(t, tensor.QAsymmU8, dt)

	_, err = tensor.ParseDataType("complex64")
	assert.Error(t, err)
}

func TestNewConstTensor(t *testing.T) {
	info := tensor.NewTensorInfo(tensor.NewShape(2), tensor.Float32)

	c, err := tensor.NewConstTensor(info, make([]byte, 8))
	require.NoError(t, err)
	assert.True(t, c.Info().IsConstant())

	_, err = tensor.NewConstTensor(info, make([]byte, 6))
	assert.Error(t, err)
}
