// Package search aggregates catalog results: one list lookup, then one detail
// lookup per candidate through the bounded fetcher, then normalization.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/music-search-api/pkg/catalog"
	"github.com/Sternrassler/music-search-api/pkg/fetch"
)

var (
	// ErrNotFound is returned when the catalog list is empty.
	ErrNotFound = errors.New("no matching songs")

	// ErrUpstream wraps a failed list lookup.
	ErrUpstream = errors.New("catalog lookup failed")
)

// Catalog is the upstream the service reads from. *catalog.Client implements it.
type Catalog interface {
	Search(ctx context.Context, q catalog.Query) ([]catalog.Candidate, error)
	Detail(ctx context.Context, q catalog.Query, c catalog.Candidate) (catalog.Detail, error)
}

// ServiceConfig holds the service configuration.
type ServiceConfig struct {
	// Fetch bounds the per-candidate detail lookups.
	Fetch fetch.Config

	// Defaults fill empty response fields.
	Defaults Defaults

	// Logger is handed to the fetcher when Fetch.Logger is unset. Nil discards.
	Logger *zerolog.Logger
}

// DefaultServiceConfig returns the stock service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Fetch:    fetch.DefaultConfig(),
		Defaults: DefaultValues(),
	}
}

// Request is one search call.
type Request struct {
	Query catalog.Query

	// PlayableOnly drops songs without a stream URL after normalization.
	PlayableOnly bool
}

// Result is the normalized outcome of a search.
type Result struct {
	Songs []Song

	// Degraded counts songs built from fallback details.
	Degraded int
}

// Service runs searches.
type Service struct {
	catalog Catalog
	config  ServiceConfig
	logger  zerolog.Logger
}

// NewService creates a search service.
func NewService(c Catalog, cfg ServiceConfig) (*Service, error) {
	if c == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if err := cfg.Fetch.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "search").Logger()
		if cfg.Fetch.Logger == nil {
			cfg.Fetch.Logger = cfg.Logger
		}
	}

	return &Service{
		catalog: c,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Search looks up the candidate list and enriches every candidate.
//
// Detail failures degrade single songs and never fail the call. Errors are
// ErrUpstream for a failed list lookup, ErrNotFound for an empty list, and
// fetch errors for cancellation.
func (s *Service) Search(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	candidates, err := s.catalog.Search(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}

	enrich := func(ctx context.Context, c catalog.Candidate) (Track, error) {
		detail, err := s.catalog.Detail(ctx, req.Query, c)
		if err != nil {
			return Track{}, err
		}
		return Track{Candidate: c, Detail: detail}, nil
	}

	outcomes, err := fetch.Run(ctx, candidates, enrich, FallbackTrack, s.config.Fetch)
	if err != nil {
		return nil, fmt.Errorf("enrich candidates: %w", err)
	}

	tracks := make([]Track, len(outcomes))
	degraded := 0
	for i, o := range outcomes {
		tracks[i] = o.Value
		tracks[i].Degraded = o.Degraded
		tracks[i].Attempts = o.Attempts
		if o.Degraded {
			degraded++
		}
	}

	songs := Normalize(tracks, s.config.Defaults)
	if req.PlayableOnly {
		songs = PlayableOnly(songs)
	}

	s.logger.Info().
		Str("term", req.Query.Term).
		Str("quality", string(req.Query.Quality)).
		Int("candidates", len(candidates)).
		Int("degraded", degraded).
		Int("returned", len(songs)).
		Dur("duration", time.Since(start)).
		Msg("Search complete")

	return &Result{Songs: songs, Degraded: degraded}, nil
}
