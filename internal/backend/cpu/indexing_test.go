package cpu

import (
	"testing"

	"github.com/strata-ml/strata/internal/tensor"
)

// Helper to fill an int32 raw tensor.
func rawInt32(t *testing.T, shape tensor.Shape, data []int32) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Int32)
	if err != nil {
		t.Fatalf("NewRaw(%v) failed: %v", shape, err)
	}
	copy(r.AsInt32(), data)
	return r
}

// Helper to fill a bool raw tensor.
func rawBool(t *testing.T, shape tensor.Shape, data []bool) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Bool)
	if err != nil {
		t.Fatalf("NewRaw(%v) failed: %v", shape, err)
	}
	copy(r.AsBool(), data)
	return r
}

// TestCPUBackend_Gather tests index-based selection along a dimension.
func TestCPUBackend_Gather(t *testing.T) {
	backend := newTestBackend()

	t.Run("LastDim2D", func(t *testing.T) {
		// src = [[10, 20, 30],
		//        [40, 50, 60]]
		src := rawFloat32(t, tensor.Shape{2, 3}, []float32{10, 20, 30, 40, 50, 60})
		index := rawInt32(t, tensor.Shape{2, 2}, []int32{0, 2, 1, 1})

		result := backend.Gather(src, index, -1)

		if !result.Shape().Equal(tensor.Shape{2, 2}) {
			t.Fatalf("Expected shape (2, 2), got %v", result.Shape())
		}
		expected := []float32{10, 30, 50, 50}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Gather failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("SentenceWeightLookup", func(t *testing.T) {
		// Coarse weights (1, 2, 3): one weight per sentence and step.
		// The index maps each of 4 word slots to its sentence, so the
		// output spreads sentence weights across words.
		coarse := rawFloat32(t, tensor.Shape{1, 2, 3}, []float32{
			10, 20, 30,
			40, 50, 60,
		})
		index := rawInt32(t, tensor.Shape{1, 2, 4}, []int32{
			0, 0, 1, 2,
			2, 1, 1, 0,
		})

		result := backend.Gather(coarse, index, -1)

		if !result.Shape().Equal(tensor.Shape{1, 2, 4}) {
			t.Fatalf("Expected shape (1, 2, 4), got %v", result.Shape())
		}
		expected := []float32{
			10, 10, 20, 30,
			60, 50, 50, 40,
		}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Gather failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("OutOfRangePanics", func(t *testing.T) {
		src := rawFloat32(t, tensor.Shape{1, 3}, []float32{1, 2, 3})
		index := rawInt32(t, tensor.Shape{1, 1}, []int32{3})
		mustPanic(t, "Gather", func() { backend.Gather(src, index, -1) })
	})

	t.Run("RankMismatchPanics", func(t *testing.T) {
		src := rawFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))
		index := rawInt32(t, tensor.Shape{2}, []int32{0, 1})
		mustPanic(t, "Gather", func() { backend.Gather(src, index, -1) })
	})
}

// TestCPUBackend_Where tests conditional selection.
func TestCPUBackend_Where(t *testing.T) {
	backend := newTestBackend()

	t.Run("SameShape", func(t *testing.T) {
		cond := rawBool(t, tensor.Shape{2, 2}, []bool{true, false, false, true})
		x := rawFloat32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
		y := rawFloat32(t, tensor.Shape{2, 2}, []float32{-1, -2, -3, -4})

		result := backend.Where(cond, x, y)

		expected := []float32{1, -2, -3, 4}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Where failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("BroadcastFill", func(t *testing.T) {
		// Masking pattern: keep scores where the mask is true, replace
		// the rest with a broadcast scalar.
		cond := rawBool(t, tensor.Shape{1, 3}, []bool{true, true, false})
		scores := rawFloat32(t, tensor.Shape{1, 3}, []float32{5, 6, 7})
		fill := rawFloat32(t, tensor.Shape{1}, []float32{negInf})

		result := backend.Where(cond, scores, fill)

		data := result.AsFloat32()
		if data[0] != 5 || data[1] != 6 {
			t.Errorf("Unmasked entries changed: got %v", data)
		}
		if data[2] != negInf {
			t.Errorf("Masked entry got %v, expected -Inf", data[2])
		}
	})

	t.Run("DTypeMismatchPanics", func(t *testing.T) {
		cond := rawBool(t, tensor.Shape{1}, []bool{true})
		x := rawFloat32(t, tensor.Shape{1}, []float32{1})
		y, _ := tensor.NewRaw(tensor.Shape{1}, tensor.Float64)
		mustPanic(t, "Where", func() { backend.Where(cond, x, y) })
	})
}
