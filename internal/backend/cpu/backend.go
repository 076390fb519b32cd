// Package cpu provides the pure Go CPU implementation of the tensor
// backend used by the attention pipeline.
package cpu

import (
	"fmt"

	"github.com/strata-ml/strata/internal/parallel"
	"github.com/strata-ml/strata/internal/tensor"
)

// CPUBackend implements tensor.Backend with pure Go kernels.
//
// Elementwise operations run as straight loops; the batched kernels
// (matrix products, row normalizers) split their row grids across cores.
type CPUBackend struct {
	workers parallel.Config
}

// New creates a CPU backend with default parallelism.
func New() *CPUBackend {
	return &CPUBackend{workers: parallel.DefaultConfig()}
}

// Name returns the backend identifier.
func (cpu *CPUBackend) Name() string {
	return "cpu"
}

// Add computes elementwise x + y with broadcasting.
func (cpu *CPUBackend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", x, y,
		func(a, b float32) float32 { return a + b },
		func(a, b float64) float64 { return a + b })
}

// Mul computes elementwise x * y with broadcasting.
func (cpu *CPUBackend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", x, y,
		func(a, b float32) float32 { return a * b },
		func(a, b float64) float64 { return a * b })
}

// Div computes elementwise x / y with broadcasting. Division by zero
// follows IEEE semantics; callers that need a guarded denominator fix it
// up before dividing.
func (cpu *CPUBackend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", x, y,
		func(a, b float32) float32 { return a / b },
		func(a, b float64) float64 { return a / b })
}

func (cpu *CPUBackend) binary(op string, x, y *tensor.RawTensor,
	f32 func(a, b float32) float32, f64 func(a, b float64) float64) *tensor.RawTensor {
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", op, x.DType(), y.DType()))
	}

	outShape, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	result, err := tensor.NewRaw(outShape, x.DType())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	switch x.DType() {
	case tensor.Float32:
		binaryFloat32(x, y, result, f32)
	case tensor.Float64:
		binaryFloat64(x, y, result, f64)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", op, x.DType()))
	}

	return result
}

func binaryFloat32(x, y, out *tensor.RawTensor, f func(a, b float32) float32) {
	xd, yd, od := x.AsFloat32(), y.AsFloat32(), out.AsFloat32()

	if x.Shape().Equal(y.Shape()) {
		for i := range od {
			od[i] = f(xd[i], yd[i])
		}
		return
	}

	outShape := out.Shape()
	xStrides := broadcastStrides(x.Shape(), outShape)
	yStrides := broadcastStrides(y.Shape(), outShape)
	outStrides := outShape.ComputeStrides()

	for i := range od {
		xi, yi := 0, 0
		rem := i
		for d := 0; d < len(outShape); d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			xi += coord * xStrides[d]
			yi += coord * yStrides[d]
		}
		od[i] = f(xd[xi], yd[yi])
	}
}

func binaryFloat64(x, y, out *tensor.RawTensor, f func(a, b float64) float64) {
	xd, yd, od := x.AsFloat64(), y.AsFloat64(), out.AsFloat64()

	if x.Shape().Equal(y.Shape()) {
		for i := range od {
			od[i] = f(xd[i], yd[i])
		}
		return
	}

	outShape := out.Shape()
	xStrides := broadcastStrides(x.Shape(), outShape)
	yStrides := broadcastStrides(y.Shape(), outShape)
	outStrides := outShape.ComputeStrides()

	for i := range od {
		xi, yi := 0, 0
		rem := i
		for d := 0; d < len(outShape); d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			xi += coord * xStrides[d]
			yi += coord * yStrides[d]
		}
		od[i] = f(xd[xi], yd[yi])
	}
}

// broadcastStrides maps each output dimension to a stride into src, with
// stride 0 for dimensions src broadcasts over (missing or size 1).
func broadcastStrides(src, out tensor.Shape) []int {
	srcStrides := src.ComputeStrides()
	strides := make([]int, len(out))
	offset := len(out) - len(src)

	for d := range out {
		sd := d - offset
		if sd < 0 || src[sd] == 1 && out[d] != 1 {
			strides[d] = 0
		} else {
			strides[d] = srcStrides[sd]
		}
	}
	return strides
}

// Reshape returns a view of x under a new shape with the same element
// count. Storage is shared.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	view, err := x.WithShape(shape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

// Transpose swaps two dimensions of x, copying into a fresh contiguous
// tensor. Supports negative dim indexing.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, dim0, dim1 int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim0 < 0 {
		dim0 = ndim + dim0
	}
	if dim1 < 0 {
		dim1 = ndim + dim1
	}
	if dim0 < 0 || dim0 >= ndim || dim1 < 0 || dim1 >= ndim {
		panic(fmt.Sprintf("transpose: dimensions (%d, %d) out of range for %dD tensor", dim0, dim1, ndim))
	}

	outShape := shape.Clone()
	outShape[dim0], outShape[dim1] = outShape[dim1], outShape[dim0]

	result, err := tensor.NewRaw(outShape, x.DType())
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	if dim0 == dim1 {
		copy(result.Bytes(), x.Bytes())
		return result
	}

	inStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	size := x.DType().Size()
	src, dst := x.Bytes(), result.Bytes()

	n := shape.NumElements()
	coords := make([]int, ndim)
	for i := 0; i < n; i++ {
		rem := i
		for d := 0; d < ndim; d++ {
			coords[d] = rem / inStrides[d]
			rem %= inStrides[d]
		}

		coords[dim0], coords[dim1] = coords[dim1], coords[dim0]
		outIdx := 0
		for d := 0; d < ndim; d++ {
			outIdx += coords[d] * outStrides[d]
		}

		copy(dst[outIdx*size:(outIdx+1)*size], src[i*size:(i+1)*size])
	}

	return result
}

// Unsqueeze inserts a size-1 dimension at dim. View operation.
func (cpu *CPUBackend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	// Valid insertion range is [0, ndim].
	if dim < 0 {
		dim = ndim + 1 + dim
	}
	if dim < 0 || dim > ndim {
		panic(fmt.Sprintf("unsqueeze: dimension %d out of range for %dD tensor (valid: [0, %d])", dim, ndim, ndim))
	}

	newShape := make(tensor.Shape, 0, ndim+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)

	return cpu.Reshape(x, newShape)
}

// Squeeze removes the size-1 dimension at dim. View operation.
func (cpu *CPUBackend) Squeeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("squeeze: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dimension %d has size %d, must be 1", dim, shape[dim]))
	}

	newShape := make(tensor.Shape, 0, ndim-1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, shape[dim+1:]...)

	return cpu.Reshape(x, newShape)
}
