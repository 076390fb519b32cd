package cpu

import (
	"fmt"

	"github.com/strata-ml/strata/internal/tensor"
)

// Gather selects values from x along dim using an integer index tensor.
// The output has the shape of index: out[c] = x[c'] where c' is c with
// the dim coordinate replaced by index[c].
//
// The hierarchical rescale uses this to pull each word's sentence weight
// out of the coarse alignment, so the index is expected to contain a
// valid position for every element.
func (cpu *CPUBackend) Gather(x, index *tensor.RawTensor, dim int) *tensor.RawTensor {
	if index.DType() != tensor.Int32 {
		panic(fmt.Sprintf("gather: index must be int32, got %s", index.DType()))
	}

	xShape, idxShape := x.Shape(), index.Shape()
	ndim := len(xShape)
	if len(idxShape) != ndim {
		panic(fmt.Sprintf("gather: index rank %d does not match input rank %d", len(idxShape), ndim))
	}
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("gather: dimension %d out of range for %dD tensor", dim, ndim))
	}
	for d := 0; d < ndim; d++ {
		if d != dim && idxShape[d] > xShape[d] {
			panic(fmt.Sprintf("gather: index shape %s exceeds input shape %s at dim %d", idxShape, xShape, d))
		}
	}

	result, err := tensor.NewRaw(idxShape, x.DType())
	if err != nil {
		panic(fmt.Sprintf("gather: %v", err))
	}

	xStrides := xShape.ComputeStrides()
	idxStrides := idxShape.ComputeStrides()
	idxData := index.AsInt32()

	es := x.DType().Size()
	srcBytes := x.Bytes()
	dstBytes := result.Bytes()

	coords := make([]int, ndim)
	n := idxShape.NumElements()
	for flat := 0; flat < n; flat++ {
		remaining := flat
		for d := 0; d < ndim; d++ {
			coords[d] = remaining / idxStrides[d]
			remaining %= idxStrides[d]
		}

		pos := int(idxData[flat])
		if pos < 0 || pos >= xShape[dim] {
			panic(fmt.Sprintf("gather: index %d out of range for dim %d with size %d", pos, dim, xShape[dim]))
		}

		srcIdx := 0
		for d := 0; d < ndim; d++ {
			c := coords[d]
			if d == dim {
				c = pos
			}
			srcIdx += c * xStrides[d]
		}

		copy(dstBytes[flat*es:(flat+1)*es], srcBytes[srcIdx*es:(srcIdx+1)*es])
	}

	return result
}

// Where selects elementwise from x where cond is true and from y where it
// is false. All three operands broadcast together; x and y must share a
// dtype and cond must be bool.
func (cpu *CPUBackend) Where(cond, x, y *tensor.RawTensor) *tensor.RawTensor {
	if cond.DType() != tensor.Bool {
		panic(fmt.Sprintf("where: condition must be bool, got %s", cond.DType()))
	}
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("where: dtype mismatch %s vs %s", x.DType(), y.DType()))
	}

	outShape, err := tensor.BroadcastShapes(cond.Shape(), x.Shape())
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}
	outShape, err = tensor.BroadcastShapes(outShape, y.Shape())
	if err != nil {
		panic(fmt.Sprintf("where: %v", err))
	}

	result, rerr := tensor.NewRaw(outShape, x.DType())
	if rerr != nil {
		panic(fmt.Sprintf("where: %v", rerr))
	}

	condStrides := broadcastStrides(cond.Shape(), outShape)
	xStrides := broadcastStrides(x.Shape(), outShape)
	yStrides := broadcastStrides(y.Shape(), outShape)
	outStrides := outShape.ComputeStrides()
	condData := cond.AsBool()

	switch x.DType() {
	case tensor.Float32:
		whereFloat32(condData, x.AsFloat32(), y.AsFloat32(), result.AsFloat32(), outShape, outStrides, condStrides, xStrides, yStrides)
	case tensor.Float64:
		whereFloat64(condData, x.AsFloat64(), y.AsFloat64(), result.AsFloat64(), outShape, outStrides, condStrides, xStrides, yStrides)
	default:
		panic(fmt.Sprintf("where: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

func whereFloat32(cond []bool, x, y, out []float32, shape tensor.Shape, outStrides, condStrides, xStrides, yStrides []int) {
	n := shape.NumElements()
	for flat := 0; flat < n; flat++ {
		remaining := flat
		condIdx, xIdx, yIdx := 0, 0, 0
		for d := 0; d < len(shape); d++ {
			coord := remaining / outStrides[d]
			remaining %= outStrides[d]
			condIdx += coord * condStrides[d]
			xIdx += coord * xStrides[d]
			yIdx += coord * yStrides[d]
		}
		if cond[condIdx] {
			out[flat] = x[xIdx]
		} else {
			out[flat] = y[yIdx]
		}
	}
}

func whereFloat64(cond []bool, x, y, out []float64, shape tensor.Shape, outStrides, condStrides, xStrides, yStrides []int) {
	n := shape.NumElements()
	for flat := 0; flat < n; flat++ {
		remaining := flat
		condIdx, xIdx, yIdx := 0, 0, 0
		for d := 0; d < len(shape); d++ {
			coord := remaining / outStrides[d]
			remaining %= outStrides[d]
			condIdx += coord * condStrides[d]
			xIdx += coord * xStrides[d]
			yIdx += coord * yStrides[d]
		}
		if cond[condIdx] {
			out[flat] = x[xIdx]
		} else {
			out[flat] = y[yIdx]
		}
	}
}
