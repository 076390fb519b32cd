package nn

import (
	"github.com/strata-ml/strata/internal/tensor"
)

// SequenceMask builds a (batch, maxLen) bool mask from per-batch
// lengths: entry (b, i) is true iff i < lengths[b]. Positions at or
// beyond a sequence's length are padding and must not receive
// attention.
func SequenceMask[B tensor.Backend](lengths *tensor.Tensor[int32, B], maxLen int) *tensor.Tensor[bool, B] {
	checkDim("SequenceMask", "lengths rank", 1, len(lengths.Shape()))

	batch := lengths.Shape()[0]
	raw, err := tensor.NewRaw(tensor.Shape{batch, maxLen}, tensor.Bool)
	if err != nil {
		panic(err)
	}

	mask := raw.AsBool()
	for b, n := range lengths.Data() {
		limit := int(n)
		if limit > maxLen {
			limit = maxLen
		}
		for i := 0; i < limit; i++ {
			mask[b*maxLen+i] = true
		}
	}

	return tensor.New[bool](raw, lengths.Backend())
}
