// Copyright 2025 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ml/strata/backend/cpu"
	"github.com/strata-ml/strata/tensor"
)

func TestCreationAndArithmetic(t *testing.T) {
	backend := cpu.New()

	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)

	z := x.Add(y)
	assert.Equal(t, tensor.Shape{2, 3}, z.Shape())
	for _, v := range z.Data() {
		assert.Equal(t, float32(1), v)
	}

	w := tensor.Full[float32](tensor.Shape{2, 3}, 0.5, backend)
	assert.Equal(t, float32(0.5), z.Mul(w).At(1, 2))
}

func TestFromSliceValidatesLength(t *testing.T) {
	backend := cpu.New()

	_, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, backend)
	require.Error(t, err)

	q, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	assert.Equal(t, float32(4), q.At(1, 1))
}

func TestEyeMatMul(t *testing.T) {
	backend := cpu.New()

	m, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	id := tensor.Eye[float32](2, backend)
	assert.Equal(t, m.Data(), m.MatMul(id).Data())
}

func TestWhereMasksValues(t *testing.T) {
	backend := cpu.New()

	cond, err := tensor.FromSlice([]bool{true, false, true}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	x, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	y := tensor.Zeros[float32](tensor.Shape{3}, backend)

	assert.Equal(t, []float32{1, 0, 3}, tensor.Where(cond, x, y).Data())
}
