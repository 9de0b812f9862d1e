package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrBreakerOpen is returned when the breaker rejects a call.
var ErrBreakerOpen = gobreaker.ErrOpenState

// BreakerConfig configures the circuit breaker guarding the producer.
type BreakerConfig struct {
	Name string

	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// FailureRatio of MinRequests or more calls that trips the breaker.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig trips after half of at least five calls fail and
// tries the broker again after 30 seconds.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Breaker stops the service from blocking request handlers on an
// unreachable broker: once open, publishes fail fast until Timeout elapses.
type Breaker struct {
	cb      *gobreaker.CircuitBreaker[struct{}]
	name    string
	metrics *Metrics
}

// NewBreaker creates a Breaker reporting state changes to logger and metrics.
func NewBreaker(cfg BreakerConfig, metrics *Metrics, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		// A caller giving up says nothing about broker health.
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	}

	metrics.BreakerState.WithLabelValues(cfg.Name).Set(0)

	return &Breaker{
		cb:      gobreaker.NewCircuitBreaker[struct{}](settings),
		name:    cfg.Name,
		metrics: metrics,
	}
}

// Do runs fn through the breaker.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.metrics.BreakerRejected.WithLabelValues(b.name).Inc()
	}
	return err
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
