package cpu

import (
	"fmt"

	"github.com/strata-ml/strata/internal/parallel"
	"github.com/strata-ml/strata/internal/tensor"
)

// MatMul computes the 2D matrix product of x (m, k) and y (k, n).
// Output rows are distributed across workers.
func (cpu *CPUBackend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xShape, yShape := x.Shape(), y.Shape()
	if len(xShape) != 2 || len(yShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D tensors, got %dD and %dD", len(xShape), len(yShape)))
	}
	if xShape[1] != yShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions do not match: %s x %s", xShape, yShape))
	}
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch: %s vs %s", x.DType(), y.DType()))
	}

	m, k, n := xShape[0], xShape[1], yShape[1]
	result, err := tensor.NewRaw(tensor.Shape{m, n}, x.DType())
	if err != nil {
		panic(fmt.Sprintf("matmul: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		matmulFloat32(x.AsFloat32(), y.AsFloat32(), result.AsFloat32(), m, k, n, cpu.workers)
	case tensor.Float64:
		matmulFloat64(x.AsFloat64(), y.AsFloat64(), result.AsFloat64(), m, k, n, cpu.workers)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

// BatchMatMul computes the batched matrix product of x (b, m, k) and
// y (b, k, n), one independent product per batch element.
func (cpu *CPUBackend) BatchMatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xShape, yShape := x.Shape(), y.Shape()
	if len(xShape) != 3 || len(yShape) != 3 {
		panic(fmt.Sprintf("batchmatmul: expected 3D tensors, got %dD and %dD", len(xShape), len(yShape)))
	}
	if xShape[0] != yShape[0] {
		panic(fmt.Sprintf("batchmatmul: batch sizes do not match: %d vs %d", xShape[0], yShape[0]))
	}
	if xShape[2] != yShape[1] {
		panic(fmt.Sprintf("batchmatmul: inner dimensions do not match: %s x %s", xShape, yShape))
	}
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("batchmatmul: dtype mismatch: %s vs %s", x.DType(), y.DType()))
	}

	batch, m, k, n := xShape[0], xShape[1], xShape[2], yShape[2]
	result, err := tensor.NewRaw(tensor.Shape{batch, m, n}, x.DType())
	if err != nil {
		panic(fmt.Sprintf("batchmatmul: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		xd, yd, od := x.AsFloat32(), y.AsFloat32(), result.AsFloat32()
		parallel.ForRows(batch, m, func(b, i int) {
			matmulRowFloat32(xd[b*m*k:], yd[b*k*n:], od[b*m*n:], i, k, n)
		}, cpu.workers)
	case tensor.Float64:
		xd, yd, od := x.AsFloat64(), y.AsFloat64(), result.AsFloat64()
		parallel.ForRows(batch, m, func(b, i int) {
			matmulRowFloat64(xd[b*m*k:], yd[b*k*n:], od[b*m*n:], i, k, n)
		}, cpu.workers)
	default:
		panic(fmt.Sprintf("batchmatmul: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

func matmulFloat32(x, y, out []float32, m, k, n int, workers parallel.Config) {
	parallel.For(m, func(i int) {
		matmulRowFloat32(x, y, out, i, k, n)
	}, workers)
}

func matmulFloat64(x, y, out []float64, m, k, n int, workers parallel.Config) {
	parallel.For(m, func(i int) {
		matmulRowFloat64(x, y, out, i, k, n)
	}, workers)
}

// matmulRowFloat32 fills output row i. The k-major loop order keeps the
// inner walk sequential over y's rows.
func matmulRowFloat32(x, y, out []float32, i, k, n int) {
	row := out[i*n : (i+1)*n]
	for j := range row {
		row[j] = 0
	}
	for kk := 0; kk < k; kk++ {
		xv := x[i*k+kk]
		if xv == 0 {
			continue
		}
		yRow := y[kk*n : (kk+1)*n]
		for j, yv := range yRow {
			row[j] += xv * yv
		}
	}
}

func matmulRowFloat64(x, y, out []float64, i, k, n int) {
	row := out[i*n : (i+1)*n]
	for j := range row {
		row[j] = 0
	}
	for kk := 0; kk < k; kk++ {
		xv := x[i*k+kk]
		if xv == 0 {
			continue
		}
		yRow := y[kk*n : (kk+1)*n]
		for j, yv := range yRow {
			row[j] += xv * yv
		}
	}
}
