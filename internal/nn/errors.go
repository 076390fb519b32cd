package nn

import (
	"fmt"

	"github.com/strata-ml/strata/internal/metrics"
)

// ConfigError reports an invalid module configuration. Constructors
// return it; nothing panics with it.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "attention config: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ShapeError reports a call argument whose dimensions disagree with the
// module configuration or with a companion argument. Forward paths
// panic with *ShapeError before any numeric work happens.
type ShapeError struct {
	Op   string // operation that rejected the input
	What string // the dimension or argument at fault
	Want int
	Got  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s mismatch: expected %d, got %d", e.Op, e.What, e.Want, e.Got)
}

// MissingInputError reports a required input that was not provided for
// the configured mode, such as a missing coarse alignment on a unit
// built with rescaling.
type MissingInputError struct {
	Op    string
	Input string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s: required input %q is missing", e.Op, e.Input)
}

// ConsistencyError reports auxiliary inputs that contradict each other,
// such as a unit assignment whose lengths disagree with the source
// lengths.
type ConsistencyError struct {
	Op     string
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// checkDim panics with a *ShapeError when got differs from want. The
// validation metric is incremented first so misuse is visible in
// monitoring even though the panic unwinds the caller.
func checkDim(op, what string, want, got int) {
	if want == got {
		return
	}
	metrics.RecordValidationError(op, "shape")
	panic(&ShapeError{Op: op, What: what, Want: want, Got: got})
}

func failMissing(op, input string) {
	metrics.RecordValidationError(op, "missing_input")
	panic(&MissingInputError{Op: op, Input: input})
}

func failConsistency(op, detail string) {
	metrics.RecordValidationError(op, "consistency")
	panic(&ConsistencyError{Op: op, Detail: detail})
}
