// Package api serves the search endpoint and the usage page.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/hlog"

	"github.com/Sternrassler/music-search-api/pkg/catalog"
	"github.com/Sternrassler/music-search-api/pkg/search"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "search_http_requests_total",
	Help: "Total search API responses by status code",
}, []string{"code"})

// Searcher runs one search. *search.Service implements it.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Result, error)
}

// Config holds request defaults and bounds.
type Config struct {
	// DefaultNum is used when num is absent.
	DefaultNum int

	// MaxNum is the largest accepted num.
	MaxNum int

	// DefaultQuality is used when quality is absent.
	DefaultQuality catalog.Quality
}

// DefaultConfig returns the documented request defaults.
func DefaultConfig() Config {
	return Config{
		DefaultNum:     30,
		MaxNum:         60,
		DefaultQuality: catalog.DefaultQuality,
	}
}

// Envelope is the JSON body of every search response.
type Envelope struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Total   int           `json:"total"`
	Data    []search.Song `json:"data"`
}

// Handler serves the API routes.
type Handler struct {
	searcher Searcher
	config   Config
	mux      *http.ServeMux
}

// NewHandler creates the API handler with routes:
//
//	GET  /        usage page
//	GET  /search  search with query parameters
//	POST /search  search with a JSON or form body
func NewHandler(searcher Searcher, cfg Config) *Handler {
	h := &Handler{
		searcher: searcher,
		config:   cfg,
		mux:      http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /{$}", h.index)
	h.mux.HandleFunc("GET /search", h.search)
	h.mux.HandleFunc("POST /search", h.search)
	h.mux.HandleFunc("OPTIONS /search", h.preflight)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	p, err := readParams(w, r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := p.toRequest(h.config)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.searcher.Search(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, search.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "no matching songs")
		return
	case errors.Is(err, search.ErrUpstream):
		logger.Error().Err(err).Str("term", req.Query.Term).Msg("Catalog lookup failed")
		h.writeError(w, http.StatusInternalServerError, "catalog lookup failed")
		return
	default:
		logger.Error().Err(err).Str("term", req.Query.Term).Msg("Search failed")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, Envelope{
		Code:    http.StatusOK,
		Message: "success",
		Total:   len(result.Songs),
		Data:    result.Songs,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, Envelope{
		Code:    status,
		Message: message,
		Data:    []search.Song{},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, env Envelope) {
	httpRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(env)
}
