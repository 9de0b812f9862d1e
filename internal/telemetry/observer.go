// Package telemetry records a span and metrics around each atomic ledger step.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/tracing"
)

const tracerName = "github.com/utafrali/storefront/internal/telemetry"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Outcome classifies the result of a ledger operation. Business rule
// violations are "rejected", concurrency failures "conflict", everything
// unexpected "error".
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, apperrors.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrInsufficientStock),
		errors.Is(err, apperrors.ErrInsufficientFunds),
		errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrAlreadyExists),
		errors.Is(err, apperrors.ErrForbidden),
		errors.Is(err, apperrors.ErrUnauthorized):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// LedgerObserver emits an OpenTelemetry span plus a counter and a latency
// histogram for every observed operation.
type LedgerObserver struct {
	tracer     trace.Tracer
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewLedgerObserver creates the collectors and registers them with reg.
func NewLedgerObserver(reg prometheus.Registerer) *LedgerObserver {
	f := promauto.With(reg)
	return &LedgerObserver{
		tracer: tracing.Tracer(tracerName),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger operations by outcome",
		}, []string{"operation", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Duration of ledger operations in seconds, including lock waits",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
}

// Observe runs fn inside a span named "ledger.<operation>" and records its
// outcome and duration. fn's error is returned unchanged.
func (o *LedgerObserver) Observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "ledger."+operation,
		trace.WithAttributes(attribute.String("ledger.operation", operation)),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	outcome := Outcome(err)

	o.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	o.operations.WithLabelValues(operation, outcome).Inc()

	span.SetAttributes(attribute.String("ledger.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		if outcome == OutcomeError {
			span.SetStatus(codes.Error, err.Error())
		}
	}

	return err
}

// Noop runs fn without recording anything.
type Noop struct{}

// Observe calls fn.
func (Noop) Observe(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
