package fetch

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Config holds the limits for one batch.
type Config struct {
	// ConcurrencyLimit is the maximum number of items in flight at once.
	ConcurrencyLimit int

	// RetryLimit is the maximum number of attempts per item, including the first.
	RetryLimit int

	// Logger receives per-item and per-batch events. Nil discards them.
	Logger *zerolog.Logger
}

// DefaultConfig returns the limits the search service runs with.
func DefaultConfig() Config {
	return Config{
		ConcurrencyLimit: 3,
		RetryLimit:       3,
	}
}

// Validate checks both limits. Values below 1 are rejected, never clamped.
func (c Config) Validate() error {
	if c.ConcurrencyLimit < 1 {
		return fmt.Errorf("%w: concurrency limit must be >= 1 (got %d)", ErrInvalidConfig, c.ConcurrencyLimit)
	}
	if c.RetryLimit < 1 {
		return fmt.Errorf("%w: retry limit must be >= 1 (got %d)", ErrInvalidConfig, c.RetryLimit)
	}
	return nil
}

func (c Config) logger() zerolog.Logger {
	if c.Logger == nil {
		return zerolog.Nop()
	}
	return c.Logger.With().Str("component", "fetch").Logger()
}
