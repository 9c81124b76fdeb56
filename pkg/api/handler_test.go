package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/music-search-api/internal/testutil"
	"github.com/Sternrassler/music-search-api/pkg/api"
	"github.com/Sternrassler/music-search-api/pkg/catalog"
	"github.com/Sternrassler/music-search-api/pkg/fetch"
	"github.com/Sternrassler/music-search-api/pkg/search"
)

// stubSearcher records the last request and returns a canned result.
type stubSearcher struct {
	last   search.Request
	called bool
	result *search.Result
	err    error
}

func (s *stubSearcher) Search(ctx context.Context, req search.Request) (*search.Result, error) {
	s.last = req
	s.called = true
	return s.result, s.err
}

func do(t *testing.T, h http.Handler, req *http.Request) (*http.Response, api.Envelope) {
	t.Helper()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	resp := w.Result()

	var env api.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestSearch_Success(t *testing.T) {
	stub := &stubSearcher{result: &search.Result{Songs: []search.Song{
		{ID: 1, Title: "a", MusicURL: "https://x/a.flac"},
		{ID: 2, Title: "b"},
	}}}
	h := api.NewHandler(stub, api.DefaultConfig())

	resp, env := do(t, h, httptest.NewRequest(http.MethodGet, "/search?msg=jay&num=10&quality=320", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 200, env.Code)
	assert.Equal(t, "success", env.Message)
	assert.Equal(t, 2, env.Total)
	assert.Equal(t, stub.result.Songs, env.Data)

	assert.Equal(t, search.Request{Query: catalog.Query{Term: "jay", Num: 10, Quality: catalog.Quality320}}, stub.last)
}

func TestSearch_Defaults(t *testing.T) {
	stub := &stubSearcher{result: &search.Result{Songs: []search.Song{{ID: 1}}}}
	h := api.NewHandler(stub, api.DefaultConfig())

	resp, _ := do(t, h, httptest.NewRequest(http.MethodGet, "/search?msg=%20jay%20", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/search?msg=jay&type=JSON", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, "type=json is accepted")

	assert.Equal(t, catalog.Query{Term: "jay", Num: 30, Quality: catalog.QualityFLAC}, stub.last.Query)
	assert.False(t, stub.last.PlayableOnly)
}

func TestSearch_InvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		message string
	}{
		{name: "missing msg", query: "", message: "bad request: msg is required"},
		{name: "blank msg", query: "msg=%20%20", message: "bad request: msg is required"},
		{name: "num not integer", query: "msg=a&num=ten", message: `bad request: num must be an integer (got "ten")`},
		{name: "num zero", query: "msg=a&num=0", message: "bad request: num must be between 1 and 60 (got 0)"},
		{name: "num too large", query: "msg=a&num=61", message: "bad request: num must be between 1 and 60 (got 61)"},
		{name: "bad quality", query: "msg=a&quality=999", message: `bad request: unsupported quality "999" (want one of 128, 320, flac)`},
		{name: "bad type", query: "msg=a&type=xml", message: `bad request: unsupported type "xml" (only json is supported)`},
		{name: "bad playable", query: "msg=a&playable=maybe", message: `bad request: playable must be a boolean (got "maybe")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubSearcher{}
			h := api.NewHandler(stub, api.DefaultConfig())

			resp, env := do(t, h, httptest.NewRequest(http.MethodGet, "/search?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, 400, env.Code)
			assert.Equal(t, tt.message, env.Message)
			assert.Zero(t, env.Total)
			assert.Empty(t, env.Data)
			assert.False(t, stub.called)
		})
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "not found", err: search.ErrNotFound, status: http.StatusNotFound, message: "no matching songs"},
		{name: "upstream", err: fmt.Errorf("%w: timeout", search.ErrUpstream), status: http.StatusInternalServerError, message: "catalog lookup failed"},
		{name: "structural", err: fmt.Errorf("enrich candidates: %w", fetch.ErrInvalidConfig), status: http.StatusInternalServerError, message: "internal server error"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, message: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := api.NewHandler(&stubSearcher{err: tt.err}, api.DefaultConfig())

			resp, env := do(t, h, httptest.NewRequest(http.MethodGet, "/search?msg=a", nil))

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.status, env.Code)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}

func TestSearch_Post(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		stub := &stubSearcher{result: &search.Result{}}
		h := api.NewHandler(stub, api.DefaultConfig())

		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"msg":"jay","num":5,"quality":128,"playable":true}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := do(t, h, req)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, search.Request{
			Query:        catalog.Query{Term: "jay", Num: 5, Quality: catalog.Quality128},
			PlayableOnly: true,
		}, stub.last)
	})

	t.Run("form body", func(t *testing.T) {
		stub := &stubSearcher{result: &search.Result{}}
		h := api.NewHandler(stub, api.DefaultConfig())

		form := url.Values{"msg": {"jay"}, "num": {"7"}}
		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, _ := do(t, h, req)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, catalog.Query{Term: "jay", Num: 7, Quality: catalog.QualityFLAC}, stub.last.Query)
	})

	t.Run("invalid json", func(t *testing.T) {
		h := api.NewHandler(&stubSearcher{}, api.DefaultConfig())

		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"msg":`))
		req.Header.Set("Content-Type", "application/json")
		resp, env := do(t, h, req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, env.Message, "invalid JSON body")
	})

	t.Run("nested value", func(t *testing.T) {
		h := api.NewHandler(&stubSearcher{}, api.DefaultConfig())

		req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"msg":["a"]}`))
		req.Header.Set("Content-Type", "application/json")
		resp, env := do(t, h, req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, `bad request: parameter "msg" must be a scalar`, env.Message)
	})
}

func TestPreflight(t *testing.T) {
	h := api.NewHandler(&stubSearcher{}, api.DefaultConfig())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/search", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestIndex(t *testing.T) {
	h := api.NewHandler(&stubSearcher{}, api.DefaultConfig())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "Music Search API")
	assert.Contains(t, string(body), "128 / 320 / flac (default flac)")
	assert.Contains(t, string(body), "default 30, max 60")
	assert.Contains(t, string(body), "json only (default json)")
}

func TestUnknownRoute(t *testing.T) {
	h := api.NewHandler(&stubSearcher{}, api.DefaultConfig())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearch_EndToEnd(t *testing.T) {
	mock := testutil.NewMockCatalog(testutil.Songs(5)...)
	defer mock.Close()
	mock.FailDetail("2", -1)

	cfg := catalog.DefaultConfig()
	cfg.BaseURL = mock.URL()
	client, err := catalog.New(cfg)
	require.NoError(t, err)

	svc, err := search.NewService(client, search.DefaultServiceConfig())
	require.NoError(t, err)
	h := api.NewHandler(svc, api.DefaultConfig())

	resp, env := do(t, h, httptest.NewRequest(http.MethodGet, "/search?msg=x&num=5", nil))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, env.Total)
	require.Len(t, env.Data, 5)
	assert.Equal(t, search.Song{
		ID:       1,
		Title:    "Song 1",
		Singer:   "Singer 1",
		Duration: "03:21",
		Cover:    "https://img.example.com/1.jpg",
		MusicURL: "https://audio.example.com/1.flac",
		Lyrics:   "[00:00.00] lyrics 1",
	}, env.Data[0])
	assert.Empty(t, env.Data[1].MusicURL)
	assert.Equal(t, search.FallbackLyrics, env.Data[1].Lyrics)
	assert.Equal(t, 3, mock.DetailRequests("2"))

	t.Run("empty list is 404", func(t *testing.T) {
		mock.SetListResponse(http.StatusOK, `{"data":[]}`)
		resp, env := do(t, h, httptest.NewRequest(http.MethodGet, "/search?msg=x", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, 404, env.Code)
	})

	t.Run("list failure is 500", func(t *testing.T) {
		mock.SetListResponse(http.StatusServiceUnavailable, "down")
		resp, env := do(t, h, httptest.NewRequest(http.MethodGet, "/search?msg=x", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "catalog lookup failed", env.Message)
	})
}
