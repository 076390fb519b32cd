package nn

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/strata-ml/strata/internal/logger"
	"github.com/strata-ml/strata/internal/metrics"
	"github.com/strata-ml/strata/internal/tensor"
)

// ScoreKind selects how query/source relevance scores are computed.
type ScoreKind int

const (
	// ScoreDot scores with the plain inner product between query and
	// source vectors (Luong dot).
	ScoreDot ScoreKind = iota
	// ScoreGeneral applies a learned transform to the query before the
	// inner product (Luong general).
	ScoreGeneral
	// ScoreMLP scores with an additive single-hidden-layer perceptron
	// (Bahdanau).
	ScoreMLP
)

func (k ScoreKind) String() string {
	switch k {
	case ScoreDot:
		return "dot"
	case ScoreGeneral:
		return "general"
	case ScoreMLP:
		return "mlp"
	default:
		return fmt.Sprintf("ScoreKind(%d)", int(k))
	}
}

// ParseScoreKind maps the textual strategy names to their enum values.
func ParseScoreKind(s string) (ScoreKind, error) {
	switch s {
	case "dot":
		return ScoreDot, nil
	case "general":
		return ScoreGeneral, nil
	case "mlp":
		return ScoreMLP, nil
	}
	return 0, fmt.Errorf("unknown score kind %q (options: dot, general, mlp)", s)
}

// NormKind selects how raw scores become an attention distribution.
type NormKind int

const (
	// NormSoftmax is the dense exponential normalization.
	NormSoftmax NormKind = iota
	// NormSparsemax projects scores onto the probability simplex,
	// assigning exact zeros to low-scoring positions.
	NormSparsemax
)

func (k NormKind) String() string {
	switch k {
	case NormSoftmax:
		return "softmax"
	case NormSparsemax:
		return "sparsemax"
	default:
		return fmt.Sprintf("NormKind(%d)", int(k))
	}
}

// ParseNormKind maps the textual normalizer names to their enum values.
func ParseNormKind(s string) (NormKind, error) {
	switch s {
	case "softmax":
		return NormSoftmax, nil
	case "sparsemax":
		return NormSparsemax, nil
	}
	return 0, fmt.Errorf("unknown norm kind %q (options: softmax, sparsemax)", s)
}

// AttentionConfig fixes the behavior of an Attention unit at
// construction time. All strategy choices are closed enums; there is no
// per-call mode switching.
type AttentionConfig struct {
	// Dim is the shared width of query and source vectors.
	Dim int
	// Score selects the scoring strategy.
	Score ScoreKind
	// Norm selects the normalization applied to scores.
	Norm NormKind
	// Coverage allocates the coverage projection and makes a coverage
	// vector a required call input. The accumulated coverage is folded
	// into a fresh copy of the source bank before scoring.
	Coverage bool
	// OutputHidden allocates the output projection that combines
	// context and query into an attentional hidden state.
	OutputHidden bool
	// Rescale makes the unit reweight word attention by a coarse
	// unit-level distribution; the coarse alignment and a unit
	// assignment become required call inputs.
	Rescale bool
}

// Validate reports the first configuration problem found.
func (c AttentionConfig) Validate() error {
	if c.Dim <= 0 {
		return &ConfigError{Err: fmt.Errorf("invalid dim: %d (must be positive)", c.Dim)}
	}
	switch c.Score {
	case ScoreDot, ScoreGeneral, ScoreMLP:
	default:
		return &ConfigError{Err: fmt.Errorf("invalid score kind: %d", int(c.Score))}
	}
	switch c.Norm {
	case NormSoftmax, NormSparsemax:
	default:
		return &ConfigError{Err: fmt.Errorf("invalid norm kind: %d", int(c.Norm))}
	}
	return nil
}

// UnitAssignment maps each source position to the coarse unit that
// contains it. IDs is (batch, source_len) int32 with padding positions
// assigned to unit 0 by convention. Lengths is the assignment's own
// view of the per-batch source lengths and must agree elementwise with
// the lengths given to Forward.
type UnitAssignment[B tensor.Backend] struct {
	IDs     *tensor.Tensor[int32, B]
	Lengths *tensor.Tensor[int32, B]
}

// AuxInputs carries the optional per-call inputs. Which fields are
// required depends on the unit's configuration.
type AuxInputs[B tensor.Backend] struct {
	// Coverage is the accumulated coverage vector (batch, source_len).
	// Required when the unit was built with Coverage.
	Coverage *tensor.Tensor[float32, B]

	// CoarseAlign is the unit-level attention distribution:
	// (batch, target_len, num_units) for Forward, (batch, num_units)
	// for ForwardStep. Required when the unit was built with Rescale.
	CoarseAlign *tensor.Tensor[float32, B]

	// Units assigns source positions to coarse units. Required when
	// the unit was built with Rescale.
	Units *UnitAssignment[B]
}

// AttentionOutput bundles the results of one attention pass.
type AttentionOutput[B tensor.Backend] struct {
	// Context is the attention-weighted blend of source vectors:
	// (target_len, batch, dim) from Forward, (batch, dim) from
	// ForwardStep.
	Context *tensor.Tensor[float32, B]

	// Hidden is the projected attentional hidden state, nil unless the
	// unit was built with OutputHidden. Same layout as Context.
	Hidden *tensor.Tensor[float32, B]

	// Align is the word-level attention distribution:
	// (target_len, batch, source_len) from Forward,
	// (batch, source_len) from ForwardStep.
	Align *tensor.Tensor[float32, B]

	// Bank is the coverage-adjusted source bank that scoring and the
	// context blend actually used, nil unless the unit was built with
	// Coverage. The caller's bank is never written to.
	Bank *tensor.Tensor[float32, B]
}

// Attention computes a parameterized convex combination of a source
// bank driven by a query, with masking for padded positions, optional
// coverage, optional hierarchical rescaling by a coarse unit
// distribution, and an optional output projection.
//
// The word-level pipeline is:
//
//	scores  = score(query, bank)            strategy-dependent
//	weights = normalize(mask(scores))       softmax or sparsemax
//	weights = rescale(weights, coarse)      only when configured
//	context = weights x bank
//	hidden  = tanh?(W [context; query])     only when configured
//
// Example:
//
//	attn, err := nn.NewAttention(nn.AttentionConfig{
//	    Dim:   512,
//	    Score: nn.ScoreGeneral,
//	    Norm:  nn.NormSoftmax,
//	}, backend)
type Attention[B tensor.Backend] struct {
	cfg     AttentionConfig
	backend B

	// Strategy-dependent layers; only the ones the configuration calls
	// for are allocated.
	linearIn      *Linear[B] // general: dim -> dim, no bias
	linearQuery   *Linear[B] // mlp: dim -> dim, with bias
	linearContext *Linear[B] // mlp: dim -> dim, no bias
	v             *Linear[B] // mlp: dim -> 1, no bias
	linearOut     *Linear[B] // output projection: 2*dim -> dim
	linearCover   *Linear[B] // coverage: 1 -> dim, no bias
}

// NewAttention creates an attention unit from a validated
// configuration.
func NewAttention[B tensor.Backend](cfg AttentionConfig, backend B) (*Attention[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Attention[B]{cfg: cfg, backend: backend}

	switch cfg.Score {
	case ScoreGeneral:
		a.linearIn = NewLinear(cfg.Dim, cfg.Dim, false, backend)
	case ScoreMLP:
		a.linearQuery = NewLinear(cfg.Dim, cfg.Dim, true, backend)
		a.linearContext = NewLinear(cfg.Dim, cfg.Dim, false, backend)
		a.v = NewLinear(cfg.Dim, 1, false, backend)
	}

	if cfg.OutputHidden {
		// The additive strategy wants a biased projection.
		a.linearOut = NewLinear(2*cfg.Dim, cfg.Dim, cfg.Score == ScoreMLP, backend)
	}
	if cfg.Coverage {
		a.linearCover = NewLinear(1, cfg.Dim, false, backend)
	}

	logger.Log.Debug("attention unit constructed",
		"dim", cfg.Dim,
		"score", cfg.Score.String(),
		"norm", cfg.Norm.String(),
		"coverage", cfg.Coverage,
		"rescale", cfg.Rescale)

	return a, nil
}

// Config returns the construction-time configuration.
func (a *Attention[B]) Config() AttentionConfig {
	return a.cfg
}

// Forward runs the attention pipeline for a whole sequence of decoder
// steps at once.
//
// Args:
//   - query: query vectors (batch, target_len, dim)
//   - bank: source vectors (batch, source_len, dim)
//   - lengths: valid source lengths (batch,)
//   - aux: optional inputs; may be nil when the configuration requires
//     none of them
//
// Outputs come back step-major: Context (target_len, batch, dim),
// Align (target_len, batch, source_len), Hidden like Context when
// configured.
//
// Invalid arguments panic with *ShapeError, *MissingInputError or
// *ConsistencyError before any numeric work.
func (a *Attention[B]) Forward(
	query, bank *tensor.Tensor[float32, B],
	lengths *tensor.Tensor[int32, B],
	aux *AuxInputs[B],
) *AttentionOutput[B] {
	const op = "Attention.Forward"
	checkDim(op, "query rank", 3, len(query.Shape()))

	out := a.run(op, query, bank, lengths, aux)

	// Step-major layout for sequence consumers.
	out.Context = out.Context.Transpose(0, 1)
	if out.Hidden != nil {
		out.Hidden = out.Hidden.Transpose(0, 1)
	}
	out.Align = out.Align.Transpose(0, 1)
	return out
}

// ForwardStep runs the attention pipeline for a single decoder step.
//
// Args:
//   - query: query vectors (batch, dim)
//   - bank: source vectors (batch, source_len, dim)
//   - lengths: valid source lengths (batch,)
//   - aux: optional inputs; CoarseAlign, when required, is
//     (batch, num_units)
//
// Outputs are squeezed back to per-step shapes: Context (batch, dim),
// Align (batch, source_len).
func (a *Attention[B]) ForwardStep(
	query, bank *tensor.Tensor[float32, B],
	lengths *tensor.Tensor[int32, B],
	aux *AuxInputs[B],
) *AttentionOutput[B] {
	const op = "Attention.ForwardStep"
	checkDim(op, "query rank", 2, len(query.Shape()))

	if aux != nil && aux.CoarseAlign != nil {
		checkDim(op, "coarse alignment rank", 2, len(aux.CoarseAlign.Shape()))
		stepAux := *aux
		stepAux.CoarseAlign = aux.CoarseAlign.Unsqueeze(1)
		aux = &stepAux
	}

	out := a.run(op, query.Unsqueeze(1), bank, lengths, aux)

	out.Context = out.Context.Squeeze(1)
	if out.Hidden != nil {
		out.Hidden = out.Hidden.Squeeze(1)
	}
	out.Align = out.Align.Squeeze(1)
	return out
}

// run is the shared pipeline behind Forward and ForwardStep. The query
// is always (batch, target_len, dim) here.
func (a *Attention[B]) run(
	op string,
	query, bank *tensor.Tensor[float32, B],
	lengths *tensor.Tensor[int32, B],
	aux *AuxInputs[B],
) *AttentionOutput[B] {
	start := time.Now()

	checkDim(op, "source bank rank", 3, len(bank.Shape()))
	bShape, qShape := bank.Shape(), query.Shape()
	batch, sourceLen := bShape[0], bShape[1]
	tgtLen := qShape[1]

	checkDim(op, "query batch", batch, qShape[0])
	checkDim(op, "query dim", a.cfg.Dim, qShape[2])
	checkDim(op, "source dim", a.cfg.Dim, bShape[2])

	if lengths == nil {
		failMissing(op, "source lengths")
	}
	checkDim(op, "source lengths rank", 1, len(lengths.Shape()))
	checkDim(op, "source lengths batch", batch, lengths.Shape()[0])

	out := &AttentionOutput[B]{}

	// 1. Coverage injection first: scoring and the context blend must
	// both see the adjusted bank.
	if a.cfg.Coverage {
		if aux == nil || aux.Coverage == nil {
			failMissing(op, "coverage")
		}
		cShape := aux.Coverage.Shape()
		checkDim(op, "coverage rank", 2, len(cShape))
		checkDim(op, "coverage batch", batch, cShape[0])
		checkDim(op, "coverage positions", sourceLen, cShape[1])
		bank = a.injectCoverage(bank, aux.Coverage, batch, sourceLen)
		out.Bank = bank
	}

	// 2. Raw relevance scores (batch, target_len, source_len).
	align := a.score(query, bank)

	// 3. Mask padding and normalize rows into a distribution.
	align = a.normalize(align, lengths, sourceLen)

	// 4. Hierarchical rescale by the coarse unit distribution.
	if a.cfg.Rescale {
		if aux == nil || aux.CoarseAlign == nil {
			failMissing(op, "coarse alignment")
		}
		if aux.Units == nil || aux.Units.IDs == nil || aux.Units.Lengths == nil {
			failMissing(op, "unit assignment")
		}
		align = a.rescale(op, align, aux.CoarseAlign, aux.Units, lengths, batch, tgtLen, sourceLen)
	}

	// 5. Context is the weighted blend of the bank.
	out.Context = align.BatchMatMul(bank)

	// 6. Optional projection to the attentional hidden state.
	if a.cfg.OutputHidden {
		out.Hidden = a.project(out.Context, query, batch, tgtLen)
	}

	out.Align = align
	metrics.RecordForward(a.cfg.Score.String(), a.cfg.Norm.String(), time.Since(start).Seconds())
	return out
}

// score computes raw relevance scores (batch, target_len, source_len)
// with the strategy fixed at construction.
func (a *Attention[B]) score(query, bank *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if a.cfg.Score == ScoreMLP {
		return a.scoreAdditive(query, bank)
	}

	if a.cfg.Score == ScoreGeneral {
		qShape := query.Shape()
		batch, tgtLen, dim := qShape[0], qShape[1], qShape[2]
		q2 := query.Reshape(tensor.Shape{batch * tgtLen, dim})
		query = a.linearIn.Forward(q2).Reshape(tensor.Shape{batch, tgtLen, dim})
	}

	// (batch, t, d) x (batch, d, s) -> (batch, t, s)
	return query.BatchMatMul(bank.Transpose(1, 2))
}

// scoreAdditive implements the Bahdanau-style score
// v^T tanh(W_q q + W_c h), broadcast over every (step, position) pair.
func (a *Attention[B]) scoreAdditive(query, bank *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	qShape, bShape := query.Shape(), bank.Shape()
	batch, tgtLen, dim := qShape[0], qShape[1], qShape[2]
	sourceLen := bShape[1]

	wq := a.linearQuery.Forward(query.Reshape(tensor.Shape{batch * tgtLen, dim})).
		Reshape(tensor.Shape{batch, tgtLen, 1, dim})
	uh := a.linearContext.Forward(bank.Reshape(tensor.Shape{batch * sourceLen, dim})).
		Reshape(tensor.Shape{batch, 1, sourceLen, dim})

	// (batch, t, 1, d) + (batch, 1, s, d) -> (batch, t, s, d)
	wquh := wq.Add(uh).Tanh()

	scores := a.v.Forward(wquh.Reshape(tensor.Shape{batch * tgtLen * sourceLen, dim}))
	return scores.Reshape(tensor.Shape{batch, tgtLen, sourceLen})
}

// normalize masks invalid source positions and turns each row of
// scores into a distribution. Fully masked rows (zero-length sources)
// come back all-zero; see the normalization kernels for that contract.
func (a *Attention[B]) normalize(
	scores *tensor.Tensor[float32, B],
	lengths *tensor.Tensor[int32, B],
	sourceLen int,
) *tensor.Tensor[float32, B] {
	// (batch, source_len) -> (batch, 1, source_len), broadcastable over
	// target steps.
	mask := SequenceMask(lengths, sourceLen).Unsqueeze(1)
	negInf := tensor.Full(tensor.Shape{1}, float32(math.Inf(-1)), a.backend)
	masked := tensor.Where(mask, scores, negInf)

	if a.cfg.Norm == NormSparsemax {
		return masked.Sparsemax(-1)
	}
	return masked.Softmax(-1)
}

// rescale multiplies each word weight by the coarse weight of its unit
// and renormalizes the rows.
func (a *Attention[B]) rescale(
	op string,
	align, coarse *tensor.Tensor[float32, B],
	units *UnitAssignment[B],
	lengths *tensor.Tensor[int32, B],
	batch, tgtLen, sourceLen int,
) *tensor.Tensor[float32, B] {
	checkDim(op, "coarse alignment rank", 3, len(coarse.Shape()))
	checkDim(op, "coarse alignment batch", batch, coarse.Shape()[0])
	checkDim(op, "coarse alignment steps", tgtLen, coarse.Shape()[1])

	idsShape := units.IDs.Shape()
	checkDim(op, "unit ids rank", 2, len(idsShape))
	checkDim(op, "unit ids batch", batch, idsShape[0])
	checkDim(op, "unit ids positions", sourceLen, idsShape[1])
	checkDim(op, "unit lengths rank", 1, len(units.Lengths.Shape()))
	checkDim(op, "unit lengths batch", batch, units.Lengths.Shape()[0])

	// The assignment carries its own length vector; it must agree with
	// the source lengths exactly.
	ld, ud := lengths.Data(), units.Lengths.Data()
	for b := range ld {
		if ld[b] != ud[b] {
			failConsistency(op, fmt.Sprintf(
				"unit assignment lengths disagree with source lengths at batch %d: %d vs %d",
				b, ud[b], ld[b]))
		}
	}

	// ids (batch, s) -> (batch, t, s), then pull each position's unit
	// weight out of the coarse distribution. Padded positions gather
	// unit 0's weight, but their word weight is already exactly zero,
	// so they stay zero through the multiply.
	ids := units.IDs.Unsqueeze(1).Expand(tensor.Shape{batch, tgtLen, sourceLen})
	unitWeights := coarse.Gather(ids, -1)

	rescaled := align.Mul(unitWeights)

	// Renormalize. A row that lost all mass keeps its zeros instead of
	// dividing by zero; that matches the zero-length contract.
	sums := rescaled.SumDim(-1, true)
	sd := sums.Data()
	for i, s := range sd {
		if s == 0 {
			sd[i] = 1
			metrics.RecordRescaleEmptyRow()
		}
	}
	return rescaled.Div(sums)
}

// injectCoverage folds the accumulated coverage vector into a fresh
// copy of the source bank: bank' = tanh(bank + linear_cover(coverage)).
func (a *Attention[B]) injectCoverage(
	bank, coverage *tensor.Tensor[float32, B],
	batch, sourceLen int,
) *tensor.Tensor[float32, B] {
	cover := coverage.Reshape(tensor.Shape{batch * sourceLen, 1})
	adjust := a.linearCover.Forward(cover).Reshape(tensor.Shape{batch, sourceLen, a.cfg.Dim})
	return bank.Add(adjust).Tanh()
}

// project combines context and query into the attentional hidden
// state: tanh?(linear_out([context; query])). The tanh is skipped for
// the additive strategy.
func (a *Attention[B]) project(
	context, query *tensor.Tensor[float32, B],
	batch, tgtLen int,
) *tensor.Tensor[float32, B] {
	dim := a.cfg.Dim
	concat := tensor.Cat([]*tensor.Tensor[float32, B]{context, query}, 2)
	hidden := a.linearOut.Forward(concat.Reshape(tensor.Shape{batch * tgtLen, 2 * dim})).
		Reshape(tensor.Shape{batch, tgtLen, dim})
	if a.cfg.Score != ScoreMLP {
		hidden = hidden.Tanh()
	}
	return hidden
}

// namedLayer pairs a sublayer with its state-dict prefix.
type namedLayer[B tensor.Backend] struct {
	name  string
	layer *Linear[B]
}

// layers enumerates the allocated sublayers in a fixed order.
func (a *Attention[B]) layers() []namedLayer[B] {
	var ls []namedLayer[B]
	add := func(name string, l *Linear[B]) {
		if l != nil {
			ls = append(ls, namedLayer[B]{name, l})
		}
	}
	add("linear_in", a.linearIn)
	add("linear_query", a.linearQuery)
	add("linear_context", a.linearContext)
	add("v", a.v)
	add("linear_out", a.linearOut)
	add("linear_cover", a.linearCover)
	return ls
}

// Parameters returns the parameters of every allocated layer.
func (a *Attention[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, nl := range a.layers() {
		params = append(params, nl.layer.Parameters()...)
	}
	return params
}

// StateDict returns every parameter keyed by "<layer>.<param>".
func (a *Attention[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for _, nl := range a.layers() {
		for name, raw := range nl.layer.StateDict() {
			stateDict[nl.name+"."+name] = raw
		}
	}
	return stateDict
}

// LoadStateDict restores every allocated layer from a flat state
// dictionary produced by StateDict.
func (a *Attention[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for _, nl := range a.layers() {
		sub := make(map[string]*tensor.RawTensor)
		prefix := nl.name + "."
		for name, raw := range stateDict {
			if strings.HasPrefix(name, prefix) {
				sub[strings.TrimPrefix(name, prefix)] = raw
			}
		}
		if err := nl.layer.LoadStateDict(sub); err != nil {
			return fmt.Errorf("%s: %w", nl.name, err)
		}
	}
	return nil
}
