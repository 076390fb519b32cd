package tensor

import (
	"fmt"
)

// Tensor is a type-safe view over a RawTensor bound to a backend.
//
// T is the element type (float32, float64, int32, bool) and B the backend
// the tensor's operations dispatch to. Operations return fresh tensors and
// never mutate their inputs; Data gives direct access to the underlying
// storage for code that fills or inspects buffers in place.
type Tensor[T DType, B Backend] struct {
	raw     *RawTensor
	backend B
}

// New wraps a raw tensor. The raw dtype must match T.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	var dummy T
	if want := inferDataType(dummy); raw.DType() != want {
		panic(fmt.Sprintf("tensor: cannot wrap %s raw tensor as %s", raw.DType(), want))
	}
	return &Tensor[T, B]{raw: raw, backend: b}
}

// FromSlice creates a tensor by copying data into fresh storage.
// The slice length must equal the shape's element count.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}

	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy))
	if err != nil {
		return nil, err
	}

	t := &Tensor[T, B]{raw: raw, backend: b}
	copy(t.Data(), data)
	return t, nil
}

// Shape returns the tensor's shape. Callers must not modify it.
func (t *Tensor[T, B]) Shape() Shape { return t.raw.Shape() }

// NumElements returns the total element count.
func (t *Tensor[T, B]) NumElements() int { return t.raw.NumElements() }

// DType returns the runtime data type.
func (t *Tensor[T, B]) DType() DataType { return t.raw.DType() }

// Raw returns the underlying raw tensor.
func (t *Tensor[T, B]) Raw() *RawTensor { return t.raw }

// Backend returns the backend this tensor dispatches to.
func (t *Tensor[T, B]) Backend() B { return t.backend }

// Data returns the storage viewed as []T. Mutations write through to the
// tensor (and to any views sharing its storage).
func (t *Tensor[T, B]) Data() []T {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		return any(t.raw.AsFloat32()).([]T)
	case float64:
		return any(t.raw.AsFloat64()).([]T)
	case int32:
		return any(t.raw.AsInt32()).([]T)
	case bool:
		return any(t.raw.AsBool()).([]T)
	default:
		panic("unsupported type")
	}
}

// At returns the element at the given multi-dimensional index.
func (t *Tensor[T, B]) At(indices ...int) T {
	return t.Data()[t.flatIndex(indices)]
}

// Set writes the element at the given multi-dimensional index.
func (t *Tensor[T, B]) Set(value T, indices ...int) {
	t.Data()[t.flatIndex(indices)] = value
}

func (t *Tensor[T, B]) flatIndex(indices []int) int {
	shape := t.raw.Shape()
	if len(indices) != len(shape) {
		panic(fmt.Sprintf("tensor: got %d indices for %dD tensor", len(indices), len(shape)))
	}

	strides := shape.ComputeStrides()
	flat := 0
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d (size %d)", idx, i, shape[i]))
		}
		flat += idx * strides[i]
	}
	return flat
}

// Clone returns a deep copy sharing no storage with the receiver.
func (t *Tensor[T, B]) Clone() *Tensor[T, B] {
	return &Tensor[T, B]{raw: t.raw.Clone(), backend: t.backend}
}

// String summarizes the tensor without printing its data.
func (t *Tensor[T, B]) String() string {
	return fmt.Sprintf("Tensor%s %s on %s", t.Shape(), t.DType(), t.backend.Name())
}
