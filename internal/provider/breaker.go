package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"snaketunes-srv/internal/logging"
	"snaketunes-srv/internal/metrics"
	"snaketunes-srv/internal/models"
)

// BreakerSettings configures the circuit breaker around a provider.
type BreakerSettings struct {
	MaxRequests  uint32        // probes allowed while half-open
	Interval     time.Duration // closed-state counter reset
	Timeout      time.Duration // open -> half-open delay
	MinRequests  uint32
	FailureRatio float64
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  2,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  6,
		FailureRatio: 0.6,
	}
}

// Breaker decorates a Provider with a circuit breaker and call metrics. Once
// the upstream keeps failing (quota exhausted, outage) calls fail fast with
// ErrCircuitOpen instead of waiting out their timeouts.
type Breaker struct {
	next Provider
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreaker(next Provider, s BreakerSettings) *Breaker {
	name := next.Name() + "-api"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		// A caller walking away is not an upstream failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrUnsupported)
		},
	})

	return &Breaker{next: next, cb: cb}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// State exposes the breaker state, mostly for health reporting.
func (b *Breaker) State() string { return b.cb.State().String() }

func (b *Breaker) Name() string          { return b.next.Name() }
func (b *Breaker) MusicCategory() string { return b.next.MusicCategory() }
func (b *Breaker) MaxBatchSize() int     { return b.next.MaxBatchSize() }

func (b *Breaker) execute(op string, fn func() (any, error)) (any, error) {
	start := time.Now()
	res, err := b.cb.Execute(fn)
	metrics.ProviderLatency.WithLabelValues(b.next.Name(), op).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.ProviderRequests.WithLabelValues(b.next.Name(), op, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ProviderRequests.WithLabelValues(b.next.Name(), op, "rejected").Inc()
		return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, op, err)
	default:
		metrics.ProviderRequests.WithLabelValues(b.next.Name(), op, "failure").Inc()
	}
	return res, err
}

func (b *Breaker) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	res, err := b.execute("search", func() (any, error) { return b.next.Search(ctx, q) })
	if err != nil {
		return nil, err
	}
	return res.(*SearchResult), nil
}

func (b *Breaker) GetDetails(ctx context.Context, ids []string) ([]models.RawCatalogItem, error) {
	res, err := b.execute("details", func() (any, error) { return b.next.GetDetails(ctx, ids) })
	if err != nil {
		return nil, err
	}
	return res.([]models.RawCatalogItem), nil
}

func (b *Breaker) ListCatalog(ctx context.Context, handle, cursor string) (*CatalogPage, error) {
	res, err := b.execute("list", func() (any, error) { return b.next.ListCatalog(ctx, handle, cursor) })
	if err != nil {
		return nil, err
	}
	return res.(*CatalogPage), nil
}
