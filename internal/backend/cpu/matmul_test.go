package cpu

import (
	"testing"

	"github.com/strata-ml/strata/internal/tensor"
)

// TestCPUBackend_MatMul tests 2D matrix multiplication.
func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()

	t.Run("2x3_matmul_3x2", func(t *testing.T) {
		// A = [[1, 2, 3],
		//      [4, 5, 6]]
		a := rawFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		// B = [[1, 2],
		//      [3, 4],
		//      [5, 6]]
		b := rawFloat32(t, tensor.Shape{3, 2}, []float32{1, 2, 3, 4, 5, 6})

		result := backend.MatMul(a, b)

		if !result.Shape().Equal(tensor.Shape{2, 2}) {
			t.Fatalf("Expected shape (2, 2), got %v", result.Shape())
		}

		// [1*1 + 2*3 + 3*5, 1*2 + 2*4 + 3*6] = [22, 28]
		// [4*1 + 5*3 + 6*5, 4*2 + 5*4 + 6*6] = [49, 64]
		expected := []float32{22, 28, 49, 64}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("MatMul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("IdentityMatrix", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
		identity := rawFloat32(t, tensor.Shape{2, 2}, []float32{1, 0, 0, 1})

		result := backend.MatMul(a, identity)

		expected := []float32{1, 2, 3, 4}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("MatMul with identity failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("InnerDimMismatchPanics", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))
		b := rawFloat32(t, tensor.Shape{2, 2}, make([]float32, 4))
		mustPanic(t, "MatMul", func() { backend.MatMul(a, b) })
	})
}

// TestCPUBackend_BatchMatMul tests batched matrix multiplication, the
// core of both scoring (query x bank^T) and context gathering
// (weights x bank).
func TestCPUBackend_BatchMatMul(t *testing.T) {
	backend := newTestBackend()

	t.Run("TwoBatches", func(t *testing.T) {
		// Batch 0: [[1, 2]] x [[1, 0], [0, 1]] = [[1, 2]]
		// Batch 1: [[3, 4]] x [[2, 0], [0, 2]] = [[6, 8]]
		a := rawFloat32(t, tensor.Shape{2, 1, 2}, []float32{1, 2, 3, 4})
		b := rawFloat32(t, tensor.Shape{2, 2, 2}, []float32{1, 0, 0, 1, 2, 0, 0, 2})

		result := backend.BatchMatMul(a, b)

		if !result.Shape().Equal(tensor.Shape{2, 1, 2}) {
			t.Fatalf("Expected shape (2, 1, 2), got %v", result.Shape())
		}

		expected := []float32{1, 2, 6, 8}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("BatchMatMul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("WeightedSum", func(t *testing.T) {
		// Attention-shaped contraction: (1, 1, 3) weights over a
		// (1, 3, 2) bank blend the bank rows.
		weights := rawFloat32(t, tensor.Shape{1, 1, 3}, []float32{0.5, 0.5, 0})
		bank := rawFloat32(t, tensor.Shape{1, 3, 2}, []float32{
			2, 4,
			6, 8,
			100, 100,
		})

		result := backend.BatchMatMul(weights, bank)

		// 0.5*[2 4] + 0.5*[6 8] + 0*[100 100] = [4, 6]
		expected := []float32{4, 6}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Weighted sum failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("ZeroWeightsGiveZeroContext", func(t *testing.T) {
		weights := rawFloat32(t, tensor.Shape{1, 1, 2}, []float32{0, 0})
		bank := rawFloat32(t, tensor.Shape{1, 2, 3}, []float32{1, 2, 3, 4, 5, 6})

		result := backend.BatchMatMul(weights, bank)

		for i, v := range result.AsFloat32() {
			if v != 0 {
				t.Errorf("Expected exact zero at %d, got %v", i, v)
			}
		}
	})

	t.Run("BatchMismatchPanics", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 1, 2}, make([]float32, 4))
		b := rawFloat32(t, tensor.Shape{3, 2, 2}, make([]float32, 12))
		mustPanic(t, "BatchMatMul", func() { backend.BatchMatMul(a, b) })
	})

	t.Run("InnerDimMismatchPanics", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{1, 1, 3}, make([]float32, 3))
		b := rawFloat32(t, tensor.Shape{1, 2, 2}, make([]float32, 4))
		mustPanic(t, "BatchMatMul", func() { backend.BatchMatMul(a, b) })
	})
}

// TestCPUBackend_BatchMatMulFloat64 tests the float64 path.
func TestCPUBackend_BatchMatMulFloat64(t *testing.T) {
	backend := newTestBackend()

	a, _ := tensor.NewRaw(tensor.Shape{1, 2, 2}, tensor.Float64)
	b, _ := tensor.NewRaw(tensor.Shape{1, 2, 2}, tensor.Float64)

	aData := a.AsFloat64()
	aData[0], aData[1], aData[2], aData[3] = 1.5, 2.5, 3.5, 4.5
	bData := b.AsFloat64()
	bData[0], bData[1], bData[2], bData[3] = 2, 0, 0, 2

	result := backend.BatchMatMul(a, b)

	// [[1.5, 2.5],   [[2, 0],   [[3.0, 5.0],
	//  [3.5, 4.5]] *  [0, 2]] =  [7.0, 9.0]]
	expected := []float64{3.0, 5.0, 7.0, 9.0}
	resultData := result.AsFloat64()
	for i, exp := range expected {
		if resultData[i] != exp {
			t.Errorf("Float64 batch matmul failed at %d: got %v, expected %v", i, resultData[i], exp)
		}
	}
}
