package cpu

import (
	"math"
	"testing"

	"github.com/strata-ml/strata/internal/tensor"
)

var negInf = float32(math.Inf(-1))

// TestCPUBackend_Softmax tests exponential normalization.
func TestCPUBackend_Softmax(t *testing.T) {
	backend := newTestBackend()

	t.Run("KnownValues", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{1, 3}, []float32{1, 2, 3})

		result := backend.Softmax(a, -1)

		// exp([-2, -1, 0]) / sum = [0.09003057, 0.24472847, 0.66524096]
		expected := []float32{0.09003057, 0.24472847, 0.66524096}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Softmax failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("RowsSumToOne", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 4}, []float32{0.1, -3, 2.5, 0, 7, 7, 7, 7})

		result := backend.Softmax(a, -1)

		data := result.AsFloat32()
		for row := 0; row < 2; row++ {
			var sum float32
			for i := 0; i < 4; i++ {
				sum += data[row*4+i]
			}
			if diff := sum - 1; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("Row %d sums to %v, expected 1", row, sum)
			}
		}
	})

	t.Run("MaskedEntriesExactlyZero", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{1, 3}, []float32{1, 2, negInf})

		result := backend.Softmax(a, -1)

		data := result.AsFloat32()
		// exp(-Inf) underflows to exactly zero before normalization.
		if data[2] != 0 {
			t.Errorf("Masked position got %v, expected exact 0", data[2])
		}
		expected := []float32{0.26894142, 0.73105858, 0}
		if !float32SliceEqual(data, expected) {
			t.Errorf("Softmax with mask failed: got %v, expected %v", data, expected)
		}
	})

	t.Run("FullyMaskedRowIsAllZero", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 3}, []float32{
			1, 2, 3,
			negInf, negInf, negInf,
		})

		result := backend.Softmax(a, -1)

		data := result.AsFloat32()
		for i := 3; i < 6; i++ {
			if data[i] != 0 {
				t.Errorf("Fully masked row: position %d got %v, expected 0", i, data[i])
			}
		}
		// The live row is unaffected.
		var sum float32
		for i := 0; i < 3; i++ {
			sum += data[i]
		}
		if diff := sum - 1; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("Live row sums to %v, expected 1", sum)
		}
	})

	t.Run("NonLastDim", func(t *testing.T) {
		// Normalize columns of a (2, 2) matrix.
		a := rawFloat32(t, tensor.Shape{2, 2}, []float32{0, 0, 0, 0})

		result := backend.Softmax(a, 0)

		expected := []float32{0.5, 0.5, 0.5, 0.5}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Softmax(dim=0) failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("Float64", func(t *testing.T) {
		a, _ := tensor.NewRaw(tensor.Shape{1, 2}, tensor.Float64)
		aData := a.AsFloat64()
		aData[0], aData[1] = 5, 5

		result := backend.Softmax(a, -1)

		data := result.AsFloat64()
		if data[0] != 0.5 || data[1] != 0.5 {
			t.Errorf("Float64 softmax failed: got %v, expected [0.5 0.5]", data)
		}
	})
}

// TestCPUBackend_Sparsemax tests simplex-projection normalization.
func TestCPUBackend_Sparsemax(t *testing.T) {
	backend := newTestBackend()

	t.Run("ProducesExactZeros", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{1, 3}, []float32{1.5, 1.0, 0.5})

		result := backend.Sparsemax(a, -1)

		// Support is {1.5, 1.0}, tau = (2.5-1)/2 = 0.75.
		expected := []float32{0.75, 0.25, 0}
		data := result.AsFloat32()
		if !float32SliceEqual(data, expected) {
			t.Errorf("Sparsemax failed: got %v, expected %v", data, expected)
		}
		if data[2] != 0 {
			t.Errorf("Below-threshold entry got %v, expected exact 0", data[2])
		}
	})

	t.Run("WinnerTakesAll", func(t *testing.T) {
		// A gap of 1 or more between the top two scores collapses the
		// distribution onto the winner.
		a := rawFloat32(t, tensor.Shape{1, 2}, []float32{2, 0})

		result := backend.Sparsemax(a, -1)

		expected := []float32{1, 0}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Sparsemax failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("UniformStaysUniform", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{1, 4}, []float32{0.5, 0.5, 0.5, 0.5})

		result := backend.Sparsemax(a, -1)

		expected := []float32{0.25, 0.25, 0.25, 0.25}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Sparsemax failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("RowsSumToOne", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{2, 4}, []float32{
			0.3, -1.2, 0.9, 0.0,
			4.0, 3.9, -2.0, 1.0,
		})

		result := backend.Sparsemax(a, -1)

		data := result.AsFloat32()
		for row := 0; row < 2; row++ {
			var sum float32
			for i := 0; i < 4; i++ {
				v := data[row*4+i]
				if v < 0 {
					t.Errorf("Row %d has negative weight %v", row, v)
				}
				sum += v
			}
			if diff := sum - 1; diff > 1e-5 || diff < -1e-5 {
				t.Errorf("Row %d sums to %v, expected 1", row, sum)
			}
		}
	})

	t.Run("MaskedEntriesStayOutOfSupport", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{1, 3}, []float32{1.5, 1.0, negInf})

		result := backend.Sparsemax(a, -1)

		expected := []float32{0.75, 0.25, 0}
		data := result.AsFloat32()
		if !float32SliceEqual(data, expected) {
			t.Errorf("Sparsemax with mask failed: got %v, expected %v", data, expected)
		}
		if data[2] != 0 {
			t.Errorf("Masked position got %v, expected exact 0", data[2])
		}
	})

	t.Run("FullyMaskedRowIsAllZero", func(t *testing.T) {
		a := rawFloat32(t, tensor.Shape{1, 3}, []float32{negInf, negInf, negInf})

		result := backend.Sparsemax(a, -1)

		for i, v := range result.AsFloat32() {
			if v != 0 {
				t.Errorf("Fully masked row: position %d got %v, expected 0", i, v)
			}
		}
	})

	t.Run("Float64", func(t *testing.T) {
		a, _ := tensor.NewRaw(tensor.Shape{1, 3}, tensor.Float64)
		aData := a.AsFloat64()
		aData[0], aData[1], aData[2] = 1.5, 1.0, 0.5

		result := backend.Sparsemax(a, -1)

		expected := []float64{0.75, 0.25, 0}
		data := result.AsFloat64()
		for i, exp := range expected {
			if diff := data[i] - exp; diff > 1e-12 || diff < -1e-12 {
				t.Errorf("Float64 sparsemax failed at %d: got %v, expected %v", i, data[i], exp)
			}
		}
	})
}
