// Copyright 2025 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/strata-ml/strata/internal/tensor"
)

// Backend is the compute interface the attention pipeline is built on.
//
// Implementations provide elementwise arithmetic with broadcasting,
// 2D and batched matrix products, shape manipulation, tanh, the two
// row normalizers (softmax and sparsemax), masking via Where, Gather
// and axis sums. All operations allocate fresh results and panic on
// misuse.
type Backend = tensor.Backend
