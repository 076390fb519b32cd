package cpu

import (
	"fmt"

	"github.com/strata-ml/strata/internal/tensor"
)

// Expand materializes x broadcast to shape. Each dimension must either
// match or be 1 in x; size-1 dimensions are repeated.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	xShape := x.Shape()
	if len(xShape) != len(shape) {
		panic(fmt.Sprintf("expand: rank mismatch %s -> %s", xShape, shape))
	}
	for d := range shape {
		if xShape[d] != shape[d] && xShape[d] != 1 {
			panic(fmt.Sprintf("expand: cannot expand dim %d from %d to %d", d, xShape[d], shape[d]))
		}
	}

	result, err := tensor.NewRaw(shape, x.DType())
	if err != nil {
		panic(fmt.Sprintf("expand: %v", err))
	}

	srcStrides := broadcastStrides(xShape, shape)
	outStrides := shape.ComputeStrides()
	es := x.DType().Size()
	srcBytes := x.Bytes()
	dstBytes := result.Bytes()

	n := shape.NumElements()
	for flat := 0; flat < n; flat++ {
		remaining := flat
		srcIdx := 0
		for d := 0; d < len(shape); d++ {
			coord := remaining / outStrides[d]
			remaining %= outStrides[d]
			srcIdx += coord * srcStrides[d]
		}
		copy(dstBytes[flat*es:(flat+1)*es], srcBytes[srcIdx*es:(srcIdx+1)*es])
	}

	return result
}

// Cat concatenates tensors along dim. All inputs must share dtype, rank
// and every dimension except dim.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: no tensors to concatenate")
	}

	first := tensors[0]
	ndim := len(first.Shape())
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: dimension %d out of range for %dD tensor", dim, ndim))
	}

	outShape := first.Shape().Clone()
	for i, t := range tensors[1:] {
		if t.DType() != first.DType() {
			panic(fmt.Sprintf("cat: dtype mismatch %s vs %s", first.DType(), t.DType()))
		}
		s := t.Shape()
		if len(s) != ndim {
			panic(fmt.Sprintf("cat: rank mismatch %d vs %d", ndim, len(s)))
		}
		for d := 0; d < ndim; d++ {
			if d != dim && s[d] != outShape[d] {
				panic(fmt.Sprintf("cat: tensor %d has size %d at dim %d, want %d", i+1, s[d], d, outShape[d]))
			}
		}
		outShape[dim] += s[dim]
	}

	result, err := tensor.NewRaw(outShape, first.DType())
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	// Row-major layout: everything from dim onward is one contiguous
	// block per outer index, so each input contributes a block copy.
	outer := 1
	for d := 0; d < dim; d++ {
		outer *= outShape[d]
	}
	es := first.DType().Size()
	dstRowBytes := es
	for d := dim; d < ndim; d++ {
		dstRowBytes *= outShape[d]
	}

	dstBytes := result.Bytes()
	offset := 0
	for _, t := range tensors {
		s := t.Shape()
		blockBytes := es
		for d := dim; d < ndim; d++ {
			blockBytes *= s[d]
		}
		srcBytes := t.Bytes()
		for o := 0; o < outer; o++ {
			dst := o*dstRowBytes + offset
			copy(dstBytes[dst:dst+blockBytes], srcBytes[o*blockBytes:(o+1)*blockBytes])
		}
		offset += blockBytes
	}

	return result
}
