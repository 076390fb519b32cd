package tensor

// Backend is the device interface the attention pipeline is built on.
// Implementations operate on RawTensor and are free to choose their own
// execution strategy (sequential, parallel, vectorized).
//
// Every operation allocates and returns a fresh result tensor; inputs are
// never mutated. Operations panic on misuse (wrong rank, dtype, or
// incompatible shapes) since those are programmer errors, not runtime
// conditions.
type Backend interface {
	// Name returns a human-readable backend identifier.
	Name() string

	// Add computes elementwise x + y with NumPy-style broadcasting.
	Add(x, y *RawTensor) *RawTensor
	// Mul computes elementwise x * y with broadcasting.
	Mul(x, y *RawTensor) *RawTensor
	// Div computes elementwise x / y with broadcasting.
	Div(x, y *RawTensor) *RawTensor

	// MatMul computes the 2D matrix product of x (m, k) and y (k, n).
	MatMul(x, y *RawTensor) *RawTensor
	// BatchMatMul computes the batched 3D matrix product of
	// x (b, m, k) and y (b, k, n).
	BatchMatMul(x, y *RawTensor) *RawTensor

	// Reshape returns a view of x under a new shape with the same
	// element count.
	Reshape(x *RawTensor, shape Shape) *RawTensor
	// Transpose swaps two dimensions of x.
	Transpose(x *RawTensor, dim0, dim1 int) *RawTensor
	// Unsqueeze inserts a size-1 dimension at dim.
	Unsqueeze(x *RawTensor, dim int) *RawTensor
	// Squeeze removes the size-1 dimension at dim.
	Squeeze(x *RawTensor, dim int) *RawTensor
	// Expand materializes x broadcast to the given shape; size-1
	// dimensions of x may grow, all others must match.
	Expand(x *RawTensor, shape Shape) *RawTensor
	// Cat concatenates tensors along dim.
	Cat(tensors []*RawTensor, dim int) *RawTensor

	// Tanh computes elementwise tanh(x).
	Tanh(x *RawTensor) *RawTensor

	// Softmax normalizes x along dim with the exponential softmax.
	// Rows whose maximum is -Inf (fully masked) produce all-zero rows
	// instead of NaN.
	Softmax(x *RawTensor, dim int) *RawTensor
	// Sparsemax normalizes x along dim with the sparse projection onto
	// the probability simplex; low-scoring entries receive exact zeros.
	// Fully masked rows produce all-zero rows, matching Softmax.
	Sparsemax(x *RawTensor, dim int) *RawTensor

	// Where selects x where cond is true and y elsewhere; cond is a bool
	// tensor broadcastable against x and y.
	Where(cond, x, y *RawTensor) *RawTensor

	// Gather picks values along dim: out[..., i, ...] =
	// x[..., index[..., i, ...], ...]. The index tensor is int32 and has
	// the output's shape.
	Gather(x, index *RawTensor, dim int) *RawTensor

	// SumDim sums x along dim, optionally keeping the reduced dimension
	// with size 1.
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
}
