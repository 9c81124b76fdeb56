package fetch

import "errors"

var (
	// ErrInvalidConfig is returned when a concurrency or retry limit is below 1.
	ErrInvalidConfig = errors.New("invalid fetch config")

	// ErrNilEnrich is returned by New when no enrichment operation is given.
	ErrNilEnrich = errors.New("enrich function is required")

	// ErrNilFallback is returned by New when no fallback builder is given.
	ErrNilFallback = errors.New("fallback function is required")

	// ErrEnrichPanic marks an attempt whose enrichment operation panicked.
	ErrEnrichPanic = errors.New("enrich function panicked")

	// ErrCancelled is returned by Run when the context ended before every
	// item finished its attempts.
	ErrCancelled = errors.New("batch cancelled")
)
