// Copyright 2025 The Strata Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for strata's hierarchical
// attention modules.
//
// The central type is Attention, a word-level attention unit with
// length masking, optional coverage injection, optional hierarchical
// rescaling by a sentence-level distribution, and an optional output
// projection. Linear, SequenceMask and the parameter types round out
// the surface a consuming decoder needs.
//
// Example:
//
//	backend := cpu.New()
//	attn, err := nn.NewAttention(nn.AttentionConfig{
//	    Dim:   512,
//	    Score: nn.ScoreGeneral,
//	    Norm:  nn.NormSoftmax,
//	}, backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out := attn.ForwardStep(query, bank, lengths, nil)
package nn

import (
	"github.com/strata-ml/strata/internal/nn"
	"github.com/strata-ml/strata/internal/tensor"
)

// Module is the base interface for components that own parameters.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter is a learned tensor owned by a module.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Linear is a fully connected layer with optional bias.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a linear layer with Xavier-initialized weights.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, withBias bool, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, withBias, backend)
}

// ScoreKind selects how query/source relevance scores are computed.
type ScoreKind = nn.ScoreKind

// Score strategies.
const (
	ScoreDot     ScoreKind = nn.ScoreDot
	ScoreGeneral ScoreKind = nn.ScoreGeneral
	ScoreMLP     ScoreKind = nn.ScoreMLP
)

// ParseScoreKind maps "dot", "general" or "mlp" to its enum value.
func ParseScoreKind(s string) (ScoreKind, error) {
	return nn.ParseScoreKind(s)
}

// NormKind selects how raw scores become an attention distribution.
type NormKind = nn.NormKind

// Normalizers.
const (
	NormSoftmax   NormKind = nn.NormSoftmax
	NormSparsemax NormKind = nn.NormSparsemax
)

// ParseNormKind maps "softmax" or "sparsemax" to its enum value.
func ParseNormKind(s string) (NormKind, error) {
	return nn.ParseNormKind(s)
}

// AttentionConfig fixes the behavior of an Attention unit at
// construction time.
type AttentionConfig = nn.AttentionConfig

// Attention is the hierarchical global attention unit.
type Attention[B tensor.Backend] = nn.Attention[B]

// NewAttention creates an attention unit from a validated
// configuration.
func NewAttention[B tensor.Backend](cfg AttentionConfig, backend B) (*Attention[B], error) {
	return nn.NewAttention(cfg, backend)
}

// AuxInputs carries the optional per-call attention inputs.
type AuxInputs[B tensor.Backend] = nn.AuxInputs[B]

// AttentionOutput bundles the results of one attention pass.
type AttentionOutput[B tensor.Backend] = nn.AttentionOutput[B]

// UnitAssignment maps each source position to its coarse unit.
type UnitAssignment[B tensor.Backend] = nn.UnitAssignment[B]

// SequenceMask builds a (batch, maxLen) bool mask from per-batch
// lengths: entry (b, i) is true iff i < lengths[b].
func SequenceMask[B tensor.Backend](lengths *tensor.Tensor[int32, B], maxLen int) *tensor.Tensor[bool, B] {
	return nn.SequenceMask(lengths, maxLen)
}

// Error types. Constructors return *ConfigError; forward paths panic
// with the other three on misuse.
type (
	// ConfigError reports an invalid module configuration.
	ConfigError = nn.ConfigError
	// ShapeError reports call arguments whose dimensions disagree.
	ShapeError = nn.ShapeError
	// MissingInputError reports a required input that was not provided.
	MissingInputError = nn.MissingInputError
	// ConsistencyError reports auxiliary inputs that contradict each other.
	ConsistencyError = nn.ConsistencyError
)
