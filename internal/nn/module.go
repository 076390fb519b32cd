// Package nn implements the hierarchical attention modules for the
// Strata ML library.
//
// This package provides the building blocks for query-over-source
// attention with document structure:
//   - Attention: word-level attention with masking, optional coverage,
//     optional hierarchical rescaling and output projection
//   - Linear: fully connected layer with optional bias
//   - SequenceMask: validity mask from per-batch lengths
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/strata-ml/strata/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules own their parameters and expose them both directly (for
// inspection) and as a flat state dictionary (for persistence).
// Forward signatures vary per module and are not part of the interface.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Parameters returns all trainable parameters of this module,
	// including nested module parameters.
	Parameters() []*Parameter[B]

	// StateDict returns a map of parameter names to raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads parameters from a state dictionary.
	// The shapes and dtypes must match the module's own parameters.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
