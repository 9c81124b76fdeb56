// Package catalog provides the HTTP client for the upstream music catalog.
//
// The catalog serves two kinds of lookups from the same endpoint: a search
// list (n empty) and a per-candidate detail record (n set to the candidate's
// position key).
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the public catalog endpoint.
	DefaultBaseURL = "https://www.hhlqilongzhu.cn/api/dg_kugouSQ.php"

	// DefaultUserAgent mimics a desktop browser; the catalog rejects bare clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

	// DefaultReferer is sent with every request.
	DefaultReferer = "https://www.hhlqilongzhu.cn/"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 4 << 20

	opSearch = "search"
	opDetail = "detail"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Config holds the client configuration.
type Config struct {
	// BaseURL is the catalog endpoint. Query parameters are replaced per call.
	BaseURL string

	// UserAgent header (REQUIRED by the catalog).
	UserAgent string

	// Referer header, optional.
	Referer string

	// Timeout bounds each individual call. Zero disables the per-call bound.
	Timeout time.Duration

	// HTTPClient overrides the transport (for testing).
	HTTPClient *http.Client
}

// DefaultConfig returns the configuration used against the public catalog.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: DefaultUserAgent,
		Referer:   DefaultReferer,
		Timeout:   15 * time.Second,
	}
}

// Validate checks the configuration without creating a client.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base url must be an absolute http(s) url (got %q)", c.BaseURL)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user-agent is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0 (got %s)", c.Timeout)
	}
	return nil
}

// Client talks to the catalog.
// It is safe for concurrent use; Detail may be called repeatedly for the same candidate.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL, _ := url.Parse(cfg.BaseURL)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		config:     cfg,
		logger:     log.With().Str("component", "catalog").Logger(),
	}, nil
}

// Search fetches the candidate list for a query.
// A response without a data array yields an empty list, not an error.
func (c *Client) Search(ctx context.Context, q Query) ([]Candidate, error) {
	params := c.baseParams(q)
	params.Set("n", "")
	if q.Num > 0 {
		params.Set("num", strconv.Itoa(q.Num))
	}

	var body listResponse
	if err := c.get(ctx, opSearch, params, &body); err != nil {
		return nil, err
	}

	candidates, err := body.candidates()
	if err != nil {
		return nil, c.fail(opSearch, &UpstreamError{
			Op:         opSearch,
			StatusCode: http.StatusOK,
			Class:      ErrorClassMalformed,
			Message:    "decode candidate list",
			Err:        fmt.Errorf("%w: %v", ErrMalformedResponse, err),
		})
	}

	c.logger.Debug().
		Str("term", q.Term).
		Int("candidates", len(candidates)).
		Msg("Catalog search complete")

	return candidates, nil
}

// Detail fetches artwork, stream location and lyrics for one candidate.
// Transport errors, non-200 statuses and malformed bodies are all returned
// as *UpstreamError.
func (c *Client) Detail(ctx context.Context, q Query, cand Candidate) (Detail, error) {
	params := c.baseParams(q)
	params.Set("n", cand.N.String())

	var body detailFields
	if err := c.get(ctx, opDetail, params, &body); err != nil {
		return Detail{}, err
	}

	if body.Code != nil && *body.Code != http.StatusOK {
		return Detail{}, c.fail(opDetail, &UpstreamError{
			Op:         opDetail,
			StatusCode: http.StatusOK,
			Class:      ErrorClassMalformed,
			Message:    fmt.Sprintf("catalog code %d: %s", int(*body.Code), body.Msg),
			Err:        ErrMalformedResponse,
		})
	}

	detail, err := body.detail()
	if err != nil {
		return Detail{}, c.fail(opDetail, &UpstreamError{
			Op:         opDetail,
			StatusCode: http.StatusOK,
			Class:      ErrorClassMalformed,
			Message:    "decode detail",
			Err:        fmt.Errorf("%w: %v", ErrMalformedResponse, err),
		})
	}
	return detail, nil
}

func (c *Client) baseParams(q Query) url.Values {
	quality := q.Quality
	if quality == "" {
		quality = DefaultQuality
	}
	params := url.Values{}
	params.Set("msg", q.Term)
	params.Set("type", "json")
	params.Set("quality", string(quality))
	return params
}

// get performs one GET against the catalog and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op string, params url.Values, out any) error {
	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
	}()

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	u := *c.baseURL
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if c.config.Referer != "" {
		req.Header.Set("Referer", c.config.Referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamRequestsTotal.WithLabelValues(op, "network_error").Inc()
		return c.fail(op, &UpstreamError{
			Op:      op,
			Class:   ErrorClassNetwork,
			Message: "request failed",
			Err:     err,
		})
	}
	defer resp.Body.Close()
	upstreamRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.fail(op, &UpstreamError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Message:    "read body",
			Err:        err,
		})
	}

	if resp.StatusCode != http.StatusOK {
		return c.fail(op, &UpstreamError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Class:      classifyStatus(resp.StatusCode),
			Message:    resp.Status,
		})
	}

	body = bytes.TrimPrefix(bytes.TrimSpace(body), utf8BOM)
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(op, &UpstreamError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassMalformed,
			Message:    "decode body",
			Err:        fmt.Errorf("%w: %v", ErrMalformedResponse, err),
		})
	}

	return nil
}

// fail records the error metric and a log line for a failed call and returns err.
func (c *Client) fail(op string, err *UpstreamError) error {
	upstreamErrorsTotal.WithLabelValues(op, string(err.Class)).Inc()

	c.logger.Warn().
		Err(err).
		Str("op", op).
		Int("status", err.StatusCode).
		Str("error_class", string(err.Class)).
		Msg("Catalog request error")

	return err
}

// listResponse is the search list body.
type listResponse struct {
	Data json.RawMessage `json:"data"`
}

func (r listResponse) candidates() ([]Candidate, error) {
	data := bytes.TrimSpace(r.Data)
	if len(data) == 0 || data[0] != '[' {
		return []Candidate{}, nil
	}
	var candidates []Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// detailFields covers both detail shapes the catalog returns: the fields at
// the top level, or nested under data as an object or a one-element array.
type detailFields struct {
	Code       *FlexInt        `json:"code"`
	Msg        string          `json:"msg"`
	Cover      string          `json:"cover"`
	AlbumCover string          `json:"album_cover"`
	URL        string          `json:"url"`
	MusicURL   string          `json:"music_url"`
	Lyrics     string          `json:"lyrics"`
	SongLyrics string          `json:"song_lyrics"`
	Data       json.RawMessage `json:"data"`
}

func (d detailFields) flat() Detail {
	return Detail{
		Cover:    firstNonEmpty(d.Cover, d.AlbumCover),
		MusicURL: firstNonEmpty(d.URL, d.MusicURL),
		Lyrics:   firstNonEmpty(d.Lyrics, d.SongLyrics),
	}
}

func (d detailFields) detail() (Detail, error) {
	top := d.flat()

	data := bytes.TrimSpace(d.Data)
	if len(data) == 0 {
		return top, nil
	}

	var nested detailFields
	switch data[0] {
	case '[':
		var list []detailFields
		if err := json.Unmarshal(data, &list); err != nil {
			return Detail{}, err
		}
		if len(list) > 0 {
			nested = list[0]
		}
	case '{':
		if err := json.Unmarshal(data, &nested); err != nil {
			return Detail{}, err
		}
	default:
		return top, nil
	}

	inner := nested.flat()
	return Detail{
		Cover:    firstNonEmpty(inner.Cover, top.Cover),
		MusicURL: firstNonEmpty(inner.MusicURL, top.MusicURL),
		Lyrics:   firstNonEmpty(inner.Lyrics, top.Lyrics),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
