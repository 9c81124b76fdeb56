package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/music-search-api/internal/testutil"
	"github.com/Sternrassler/music-search-api/pkg/catalog"
)

func newClient(t *testing.T, baseURL string) *catalog.Client {
	t.Helper()

	cfg := catalog.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second

	c, err := catalog.New(cfg)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*catalog.Config)
		errorMsg string
	}{
		{
			name:   "valid config",
			mutate: func(*catalog.Config) {},
		},
		{
			name:     "empty base url",
			mutate:   func(c *catalog.Config) { c.BaseURL = "" },
			errorMsg: "base url is required",
		},
		{
			name:     "relative base url",
			mutate:   func(c *catalog.Config) { c.BaseURL = "/api/search" },
			errorMsg: `base url must be an absolute http(s) url (got "/api/search")`,
		},
		{
			name:     "empty user agent",
			mutate:   func(c *catalog.Config) { c.UserAgent = "" },
			errorMsg: "user-agent is required",
		},
		{
			name:     "negative timeout",
			mutate:   func(c *catalog.Config) { c.Timeout = -time.Second },
			errorMsg: "timeout must be >= 0 (got -1s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := catalog.DefaultConfig()
			tt.mutate(&cfg)

			c, err := catalog.New(cfg)
			if tt.errorMsg != "" {
				require.EqualError(t, err, tt.errorMsg)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestSearch(t *testing.T) {
	mock := testutil.NewMockCatalog(testutil.Songs(3)...)
	defer mock.Close()

	c := newClient(t, mock.URL())
	candidates, err := c.Search(context.Background(), catalog.Query{Term: "jay", Num: 3, Quality: catalog.Quality320})
	require.NoError(t, err)

	require.Len(t, candidates, 3)
	assert.Equal(t, catalog.Candidate{N: 1, Title: "Song 1", Singer: "Singer 1", Duration: "03:21"}, candidates[0])
	assert.Equal(t, catalog.FlexInt(3), candidates[2].N)
	assert.Equal(t, 1, mock.ListRequests())

	header := mock.LastHeader()
	assert.Equal(t, catalog.DefaultUserAgent, header.Get("User-Agent"))
	assert.Equal(t, catalog.DefaultReferer, header.Get("Referer"))
}

func TestSearch_QueryParameters(t *testing.T) {
	queries := make(chan url.Values, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.Query()
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c := newClient(t, server.URL)
	_, err := c.Search(context.Background(), catalog.Query{Term: "周杰伦", Num: 10})
	require.NoError(t, err)

	got := <-queries

	assert.Equal(t, []string{"周杰伦"}, got["msg"])
	assert.Equal(t, []string{""}, got["n"])
	assert.Equal(t, []string{"10"}, got["num"])
	assert.Equal(t, []string{"json"}, got["type"])
	assert.Equal(t, []string{"flac"}, got["quality"])
}

func TestSearch_EmptyAndOddBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty array", body: `{"data":[]}`},
		{name: "missing data", body: `{"code":200}`},
		{name: "data is a message", body: `{"code":201,"data":"no results"}`},
		{name: "null data", body: `{"data":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockCatalog()
			defer mock.Close()
			mock.SetListResponse(http.StatusOK, tt.body)

			candidates, err := newClient(t, mock.URL()).Search(context.Background(), catalog.Query{Term: "x"})
			require.NoError(t, err)
			assert.Empty(t, candidates)
		})
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		class  catalog.ErrorClass
	}{
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", class: catalog.ErrorClassServer},
		{name: "client error", status: http.StatusForbidden, body: "forbidden", class: catalog.ErrorClassClient},
		{name: "html body", status: http.StatusOK, body: "<html>maintenance</html>", class: catalog.ErrorClassMalformed},
		{name: "bad candidate", status: http.StatusOK, body: `{"data":[{"n":"first"}]}`, class: catalog.ErrorClassMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockCatalog()
			defer mock.Close()
			mock.SetListResponse(tt.status, tt.body)

			_, err := newClient(t, mock.URL()).Search(context.Background(), catalog.Query{Term: "x"})
			require.Error(t, err)

			var ue *catalog.UpstreamError
			require.True(t, errors.As(err, &ue))
			assert.Equal(t, tt.class, ue.Class)
			assert.Equal(t, tt.class, catalog.Classify(err))
			if tt.class == catalog.ErrorClassMalformed {
				assert.ErrorIs(t, err, catalog.ErrMalformedResponse)
			}
		})
	}
}

func TestSearch_StripsBOM(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetListResponse(http.StatusOK, "\xef\xbb\xbf"+`{"data":[{"n":"7","title":"t","singer":"s","Duration":"01:00"}]}`)

	candidates, err := newClient(t, mock.URL()).Search(context.Background(), catalog.Query{Term: "x"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, catalog.FlexInt(7), candidates[0].N)
}

func TestDetail(t *testing.T) {
	for _, nested := range []bool{false, true} {
		name := "top_level"
		if nested {
			name = "nested"
		}
		t.Run(name, func(t *testing.T) {
			mock := testutil.NewMockCatalog(testutil.Songs(2)...)
			defer mock.Close()
			mock.SetNested(nested)

			d, err := newClient(t, mock.URL()).Detail(context.Background(), catalog.Query{Term: "x"}, catalog.Candidate{N: 2})
			require.NoError(t, err)
			assert.Equal(t, catalog.Detail{
				Cover:    "https://img.example.com/2.jpg",
				MusicURL: "https://audio.example.com/2.flac",
				Lyrics:   "[00:00.00] lyrics 2",
			}, d)
			assert.Equal(t, 1, mock.DetailRequests("2"))
		})
	}
}

func TestDetail_AlternateFieldNames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("n"))
		_, _ = w.Write([]byte(`{"album_cover":"c.jpg","url":"u.mp3","song_lyrics":"la la"}`))
	}))
	defer server.Close()

	d, err := newClient(t, server.URL).Detail(context.Background(), catalog.Query{Term: "x"}, catalog.Candidate{N: 5})
	require.NoError(t, err)
	assert.Equal(t, catalog.Detail{Cover: "c.jpg", MusicURL: "u.mp3", Lyrics: "la la"}, d)
}

func TestDetail_Errors(t *testing.T) {
	mock := testutil.NewMockCatalog(testutil.Songs(1)...)
	defer mock.Close()
	c := newClient(t, mock.URL())

	t.Run("server error", func(t *testing.T) {
		mock.FailDetail("1", 1)
		_, err := c.Detail(context.Background(), catalog.Query{Term: "x"}, catalog.Candidate{N: 1})
		assert.Equal(t, catalog.ErrorClassServer, catalog.Classify(err))

		// The scripted failure is used up.
		_, err = c.Detail(context.Background(), catalog.Query{Term: "x"}, catalog.Candidate{N: 1})
		assert.NoError(t, err)
	})

	t.Run("failure code in body", func(t *testing.T) {
		_, err := c.Detail(context.Background(), catalog.Query{Term: "x"}, catalog.Candidate{N: 99})
		require.ErrorIs(t, err, catalog.ErrMalformedResponse)
		assert.Contains(t, err.Error(), "catalog code 404: song not found")
	})
}

func TestDetail_Timeout(t *testing.T) {
	mock := testutil.NewMockCatalog(testutil.Songs(1)...)
	defer mock.Close()
	mock.SetDelay(200 * time.Millisecond)

	cfg := catalog.DefaultConfig()
	cfg.BaseURL = mock.URL()
	cfg.Timeout = 20 * time.Millisecond
	c, err := catalog.New(cfg)
	require.NoError(t, err)

	_, err = c.Detail(context.Background(), catalog.Query{Term: "x"}, catalog.Candidate{N: 1})
	require.Error(t, err)
	assert.Equal(t, catalog.ErrorClassNetwork, catalog.Classify(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
