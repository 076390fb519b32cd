package tensor

import (
	"fmt"
	"unsafe"
)

// RawTensor is the untyped storage layer: a contiguous row-major byte
// buffer plus shape and dtype. Backends operate on raw tensors; the
// generic Tensor wrapper adds compile-time element typing on top.
//
// Views created by WithShape share storage with their parent. There is no
// reference counting: buffers live on the Go heap and are reclaimed by the
// garbage collector.
type RawTensor struct {
	shape Shape
	dtype DataType
	data  []byte
}

// NewRaw allocates a zero-filled raw tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape %v: %w", shape, err)
	}

	return &RawTensor{
		shape: shape.Clone(),
		dtype: dtype,
		data:  make([]byte, shape.NumElements()*dtype.Size()),
	}, nil
}

// Shape returns the tensor's shape. Callers must not modify it.
func (r *RawTensor) Shape() Shape { return r.shape }

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType { return r.dtype }

// NumElements returns the total element count.
func (r *RawTensor) NumElements() int { return r.shape.NumElements() }

// Bytes returns the underlying buffer. Mutations are visible to every
// view sharing this storage.
func (r *RawTensor) Bytes() []byte { return r.data }

// WithShape returns a view over the same storage under a new shape.
// The element count must be unchanged.
func (r *RawTensor) WithShape(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape %v: %w", shape, err)
	}
	if shape.NumElements() != r.shape.NumElements() {
		return nil, fmt.Errorf("cannot view %v as %v: element count %d != %d",
			r.shape, shape, r.shape.NumElements(), shape.NumElements())
	}

	return &RawTensor{shape: shape.Clone(), dtype: r.dtype, data: r.data}, nil
}

// Clone returns a deep copy sharing no storage with the receiver.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{shape: r.shape.Clone(), dtype: r.dtype, data: data}
}

// AsFloat32 returns the buffer viewed as []float32.
// Panics if the dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	r.mustBe(Float32)
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 returns the buffer viewed as []float64.
// Panics if the dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	r.mustBe(Float64)
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 returns the buffer viewed as []int32.
// Panics if the dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	r.mustBe(Int32)
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsBool returns the buffer viewed as []bool.
// Panics if the dtype is not Bool.
func (r *RawTensor) AsBool() []bool {
	r.mustBe(Bool)
	return unsafe.Slice((*bool)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

func (r *RawTensor) mustBe(dt DataType) {
	if r.dtype != dt {
		panic(fmt.Sprintf("tensor: dtype view mismatch: have %s, want %s", r.dtype, dt))
	}
}

// String summarizes the tensor without printing its data.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor%s %s", r.shape, r.dtype)
}
