// Package metrics exposes Prometheus collectors for the attention
// pipeline. Collectors are registered on the default registry at init
// time; embedding applications serve them with promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttentionForwards counts forward passes by score strategy and
	// normalizer.
	AttentionForwards = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_attention_forward_total",
		Help: "Total attention forward passes, labelled by score strategy and normalizer.",
	}, []string{"score", "norm"})

	// ForwardDuration tracks wall time of forward passes.
	ForwardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "strata_attention_forward_seconds",
		Help:    "Duration of attention forward passes in seconds.",
		Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
	})

	// MaskedRows counts normalization rows that were fully masked and
	// took the all-zero output path.
	MaskedRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_softmax_masked_rows_total",
		Help: "Normalization rows with no valid positions (all-zero output contract).",
	})

	// RescaleEmptyRows counts hierarchical-rescale rows whose reweighted
	// mass summed to zero and were left as zero rows.
	RescaleEmptyRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "strata_rescale_empty_rows_total",
		Help: "Hierarchical rescale rows with zero mass after reweighting.",
	})

	// ValidationErrors counts fatal input-validation failures by
	// operation and error type.
	ValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strata_validation_errors_total",
		Help: "Input validation failures, labelled by operation and error type.",
	}, []string{"operation", "error_type"})
)

// RecordForward records one completed forward pass.
func RecordForward(score, norm string, seconds float64) {
	AttentionForwards.WithLabelValues(score, norm).Inc()
	ForwardDuration.Observe(seconds)
}

// RecordMaskedRow records a fully masked normalization row.
func RecordMaskedRow() {
	MaskedRows.Inc()
}

// RecordRescaleEmptyRow records a rescale row with zero reweighted mass.
func RecordRescaleEmptyRow() {
	RescaleEmptyRows.Inc()
}

// RecordValidationError records a fatal validation failure just before it
// propagates.
func RecordValidationError(operation, errorType string) {
	ValidationErrors.WithLabelValues(operation, errorType).Inc()
}
