package fetch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// EnrichFunc performs one enrichment attempt for a single item.
// It must be safe to call concurrently and repeatedly for the same item.
type EnrichFunc[T, U any] func(ctx context.Context, item T) (U, error)

// FallbackFunc builds the degraded value for an item whose attempts are
// exhausted. It must depend on the item only.
type FallbackFunc[T, U any] func(item T) U

// Outcome is the result for one input item.
type Outcome[U any] struct {
	// Value is the enrichment output, or the fallback value when Degraded.
	Value U

	// Attempts is the number of times the enrichment operation was invoked.
	Attempts int

	// Degraded is true when Value came from the fallback builder.
	Degraded bool

	// Err is the last attempt error of a degraded item.
	Err error
}

// Fetcher runs an enrichment operation over batches of items.
// A Fetcher holds no per-batch state and may be shared across requests.
type Fetcher[T, U any] struct {
	enrich   EnrichFunc[T, U]
	fallback FallbackFunc[T, U]
	config   Config
	logger   zerolog.Logger
}

// New creates a fetcher. It fails fast on a missing operation or invalid limits.
func New[T, U any](enrich EnrichFunc[T, U], fallback FallbackFunc[T, U], cfg Config) (*Fetcher[T, U], error) {
	if enrich == nil {
		return nil, ErrNilEnrich
	}
	if fallback == nil {
		return nil, ErrNilFallback
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Fetcher[T, U]{
		enrich:   enrich,
		fallback: fallback,
		config:   cfg,
		logger:   cfg.logger(),
	}, nil
}

// Run is shorthand for New followed by Fetcher.Run.
func Run[T, U any](ctx context.Context, items []T, enrich EnrichFunc[T, U], fallback FallbackFunc[T, U], cfg Config) ([]Outcome[U], error) {
	f, err := New(enrich, fallback, cfg)
	if err != nil {
		return nil, err
	}
	return f.Run(ctx, items)
}

// Run enriches every item and returns one outcome per item, in input order.
//
// Items are admitted left to right; an item keeps its slot until it either
// succeeds or runs out of attempts. When ctx ends, no further items are
// admitted, in-flight items stop retrying, and every unfinished item gets its
// fallback. The full outcome list is returned along with ErrCancelled.
func (f *Fetcher[T, U]) Run(ctx context.Context, items []T) ([]Outcome[U], error) {
	results := make([]Outcome[U], len(items))
	if len(items) == 0 {
		return results, nil
	}

	start := time.Now()
	fetchBatchItems.Observe(float64(len(items)))

	var interrupted atomic.Bool
	var g errgroup.Group
	g.SetLimit(f.config.ConcurrencyLimit)

	admitted := 0
	for i := range items {
		if ctx.Err() != nil {
			interrupted.Store(true)
			break
		}
		// Blocks until a slot is free.
		g.Go(func() error {
			results[i] = f.process(ctx, i, items[i], &interrupted)
			return nil
		})
		admitted++
	}
	_ = g.Wait()

	for i := admitted; i < len(items); i++ {
		results[i] = Outcome[U]{
			Value:    f.fallback(items[i]),
			Degraded: true,
			Err:      ctx.Err(),
		}
	}

	degraded := 0
	for _, r := range results {
		if r.Degraded {
			degraded++
		}
	}

	duration := time.Since(start)
	fetchBatchDuration.Observe(duration.Seconds())

	if interrupted.Load() {
		f.logger.Warn().
			Err(ctx.Err()).
			Int("items", len(items)).
			Int("admitted", admitted).
			Int("degraded", degraded).
			Dur("duration", duration).
			Msg("Batch cancelled")
		return results, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}

	f.logger.Debug().
		Int("items", len(items)).
		Int("degraded", degraded).
		Int("concurrency_limit", f.config.ConcurrencyLimit).
		Dur("duration", duration).
		Msg("Batch complete")

	return results, nil
}

// process runs the retry loop for one item.
func (f *Fetcher[T, U]) process(ctx context.Context, idx int, item T, interrupted *atomic.Bool) Outcome[U] {
	var lastErr error
	attempts := 0

	for attempts < f.config.RetryLimit {
		if err := ctx.Err(); err != nil {
			interrupted.Store(true)
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		attempts++
		value, err := f.attempt(ctx, item)
		if err == nil {
			fetchAttemptsTotal.WithLabelValues("success").Inc()
			if attempts > 1 {
				f.logger.Debug().
					Int("index", idx).
					Int("attempt", attempts).
					Msg("Enrichment succeeded after retry")
			}
			return Outcome[U]{Value: value, Attempts: attempts}
		}

		fetchAttemptsTotal.WithLabelValues("failure").Inc()
		lastErr = err

		if attempts < f.config.RetryLimit {
			fetchRetriesTotal.Inc()
			f.logger.Warn().
				Err(err).
				Int("index", idx).
				Int("attempt", attempts).
				Int("retry_limit", f.config.RetryLimit).
				Msg("Enrichment attempt failed, retrying")
		}
	}

	// Cancellation can land during the final attempt.
	if ctx.Err() != nil {
		interrupted.Store(true)
	}

	if attempts == f.config.RetryLimit {
		fetchExhaustedTotal.Inc()
		f.logger.Warn().
			Err(lastErr).
			Int("index", idx).
			Int("attempts", attempts).
			Msg("Enrichment attempts exhausted, using fallback")
	}

	return Outcome[U]{
		Value:    f.fallback(item),
		Attempts: attempts,
		Degraded: true,
		Err:      lastErr,
	}
}

// attempt invokes the enrichment operation once. A panic counts as a failure.
func (f *Fetcher[T, U]) attempt(ctx context.Context, item T) (value U, err error) {
	fetchInflight.Inc()
	defer fetchInflight.Dec()
	defer func() {
		if r := recover(); r != nil {
			var zero U
			value, err = zero, fmt.Errorf("%w: %v", ErrEnrichPanic, r)
		}
	}()
	return f.enrich(ctx, item)
}

// Values returns the value of every outcome, in order.
func Values[U any](outcomes []Outcome[U]) []U {
	values := make([]U, len(outcomes))
	for i, o := range outcomes {
		values[i] = o.Value
	}
	return values
}
