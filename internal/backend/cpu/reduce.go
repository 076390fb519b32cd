package cpu

import (
	"fmt"

	"github.com/strata-ml/strata/internal/parallel"
	"github.com/strata-ml/strata/internal/tensor"
)

// SumDim sums x along dim. With keepDim the reduced dimension stays as
// size 1, which keeps the result broadcastable against the input.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	xShape := x.Shape()
	ndim := len(xShape)
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sum: dimension %d out of range for %dD tensor", dim, ndim))
	}

	var outShape tensor.Shape
	for d := 0; d < ndim; d++ {
		if d == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, xShape[d])
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result, err := tensor.NewRaw(outShape, x.DType())
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	srcStrides := xShape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	dimSize := xShape[dim]
	dimStride := srcStrides[dim]
	outN := outShape.NumElements()

	// Maps an output flat index to the flat index of the first source
	// element in its reduction row.
	srcBase := func(flat int) int {
		remaining := flat
		base := 0
		od := 0
		for d := 0; d < ndim; d++ {
			if d == dim {
				if keepDim {
					od++
				}
				continue
			}
			coord := remaining / outStrides[od]
			remaining %= outStrides[od]
			base += coord * srcStrides[d]
			od++
		}
		return base
	}

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		parallel.For(outN, func(flat int) {
			base := srcBase(flat)
			var sum float64
			for i := 0; i < dimSize; i++ {
				sum += float64(src[base+i*dimStride])
			}
			dst[flat] = float32(sum)
		}, cpu.workers)
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		parallel.For(outN, func(flat int) {
			base := srcBase(flat)
			var sum float64
			for i := 0; i < dimSize; i++ {
				sum += src[base+i*dimStride]
			}
			dst[flat] = sum
		}, cpu.workers)
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}
