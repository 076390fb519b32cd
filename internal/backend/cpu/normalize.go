package cpu

import (
	"fmt"
	"math"
	"slices"

	"github.com/strata-ml/strata/internal/metrics"
	"github.com/strata-ml/strata/internal/parallel"
	"github.com/strata-ml/strata/internal/tensor"
)

// rowIter carries the geometry for walking a tensor one row at a time
// along a normalization dimension.
type rowIter struct {
	shape     tensor.Shape
	strides   []int
	dim       int
	dimSize   int
	dimStride int
	groups    int
}

func newRowIter(op string, shape tensor.Shape, dim int) rowIter {
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("%s: dimension %d out of range for %dD tensor", op, dim, ndim))
	}

	strides := shape.ComputeStrides()
	return rowIter{
		shape:     shape,
		strides:   strides,
		dim:       dim,
		dimSize:   shape[dim],
		dimStride: strides[dim],
		groups:    shape.NumElements() / shape[dim],
	}
}

// base returns the flat index of the first element of row group.
func (it *rowIter) base(group int) int {
	baseIdx := 0
	remaining := group
	for i := 0; i < len(it.shape); i++ {
		if i == it.dim {
			continue
		}
		coord := remaining % it.shape[i]
		remaining /= it.shape[i]
		baseIdx += coord * it.strides[i]
	}
	return baseIdx
}

// Softmax normalizes x along dim with the exponential softmax.
//
// Masked entries arrive as -Inf and come out exactly zero. A row whose
// maximum is -Inf has no valid positions; it produces an all-zero row
// (the zero-length source contract) rather than NaN, and is counted in
// the masked-row metric.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	it := newRowIter("softmax", x.Shape(), dim)

	result, err := tensor.NewRaw(x.Shape(), x.DType())
	if err != nil {
		panic(fmt.Sprintf("softmax: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		softmaxFloat32(x.AsFloat32(), result.AsFloat32(), &it, cpu.workers)
	case tensor.Float64:
		softmaxFloat64(x.AsFloat64(), result.AsFloat64(), &it, cpu.workers)
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

func softmaxFloat32(src, dst []float32, it *rowIter, workers parallel.Config) {
	parallel.For(it.groups, func(g int) {
		base := it.base(g)

		maxV := math.Inf(-1)
		for i := 0; i < it.dimSize; i++ {
			if v := float64(src[base+i*it.dimStride]); v > maxV {
				maxV = v
			}
		}

		if math.IsInf(maxV, -1) {
			for i := 0; i < it.dimSize; i++ {
				dst[base+i*it.dimStride] = 0
			}
			metrics.RecordMaskedRow()
			return
		}

		var sum float64
		for i := 0; i < it.dimSize; i++ {
			idx := base + i*it.dimStride
			e := math.Exp(float64(src[idx]) - maxV)
			dst[idx] = float32(e)
			sum += e
		}

		inv := float32(1 / sum)
		for i := 0; i < it.dimSize; i++ {
			dst[base+i*it.dimStride] *= inv
		}
	}, workers)
}

func softmaxFloat64(src, dst []float64, it *rowIter, workers parallel.Config) {
	parallel.For(it.groups, func(g int) {
		base := it.base(g)

		maxV := math.Inf(-1)
		for i := 0; i < it.dimSize; i++ {
			if v := src[base+i*it.dimStride]; v > maxV {
				maxV = v
			}
		}

		if math.IsInf(maxV, -1) {
			for i := 0; i < it.dimSize; i++ {
				dst[base+i*it.dimStride] = 0
			}
			metrics.RecordMaskedRow()
			return
		}

		var sum float64
		for i := 0; i < it.dimSize; i++ {
			idx := base + i*it.dimStride
			e := math.Exp(src[idx] - maxV)
			dst[idx] = e
			sum += e
		}

		inv := 1 / sum
		for i := 0; i < it.dimSize; i++ {
			dst[base+i*it.dimStride] *= inv
		}
	}, workers)
}

// Sparsemax normalizes x along dim by Euclidean projection onto the
// probability simplex (Martins & Astudillo 2016): sort the row, find the
// support size k and threshold tau, then clamp z - tau at zero. Entries
// below the threshold receive exact zeros, which is what makes the
// distribution sparse.
//
// Masked -Inf entries always fall outside the support and come out
// exactly zero. Fully masked rows follow the same all-zero contract as
// Softmax.
func (cpu *CPUBackend) Sparsemax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	it := newRowIter("sparsemax", x.Shape(), dim)

	result, err := tensor.NewRaw(x.Shape(), x.DType())
	if err != nil {
		panic(fmt.Sprintf("sparsemax: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		parallel.For(it.groups, func(g int) {
			sparsemaxRow(&it, g,
				func(i int) float64 { return float64(src[i]) },
				func(i int, v float64) { dst[i] = float32(v) })
		}, cpu.workers)
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		parallel.For(it.groups, func(g int) {
			sparsemaxRow(&it, g,
				func(i int) float64 { return src[i] },
				func(i int, v float64) { dst[i] = v })
		}, cpu.workers)
	default:
		panic(fmt.Sprintf("sparsemax: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

func sparsemaxRow(it *rowIter, group int, load func(i int) float64, store func(i int, v float64)) {
	base := it.base(group)

	row := make([]float64, it.dimSize)
	maxV := math.Inf(-1)
	for i := range row {
		v := load(base + i*it.dimStride)
		row[i] = v
		if v > maxV {
			maxV = v
		}
	}

	if math.IsInf(maxV, -1) {
		for i := range row {
			store(base+i*it.dimStride, 0)
		}
		metrics.RecordMaskedRow()
		return
	}

	sorted := slices.Clone(row)
	slices.Sort(sorted)
	slices.Reverse(sorted)

	// Largest k with 1 + k*z_(k) > sum of the k largest entries.
	// -Inf entries sort last and never satisfy the condition, so masked
	// positions cannot enter the support.
	var cumsum, supportSum float64
	k := 0
	for j, z := range sorted {
		cumsum += z
		if 1+float64(j+1)*z > cumsum {
			k = j + 1
			supportSum = cumsum
		}
	}
	tau := (supportSum - 1) / float64(k)

	for i, z := range row {
		p := z - tau
		if p < 0 {
			p = 0
		}
		store(base+i*it.dimStride, p)
	}
}
