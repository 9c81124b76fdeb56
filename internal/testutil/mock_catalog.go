// Package testutil provides testing utilities for the music search service.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Song is one catalog entry served by MockCatalog.
type Song struct {
	N        int
	Title    string
	Singer   string
	Duration string
	Cover    string
	MusicURL string
	Lyrics   string
}

// MockCatalog is a configurable mock catalog server for testing.
//
// Requests with an empty n return the configured list; requests with n set
// return that song's detail. Detail failures can be scripted per song.
type MockCatalog struct {
	server *httptest.Server

	mu        sync.Mutex
	songs     []Song
	listCode  int
	listBody  string
	failures  map[string]int
	delay     time.Duration
	nested    bool
	active    int
	maxActive int

	// Tracking
	listRequests   int
	detailRequests map[string]int
	lastHeader     http.Header
}

// NewMockCatalog creates a new mock catalog server.
func NewMockCatalog(songs ...Song) *MockCatalog {
	mock := &MockCatalog{
		songs:          songs,
		listCode:       http.StatusOK,
		failures:       make(map[string]int),
		detailRequests: make(map[string]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// SetListResponse replaces the list response with a raw status and body.
func (m *MockCatalog) SetListResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCode = status
	m.listBody = body
}

// FailDetail makes the next times detail requests for n answer 500.
// A negative times fails every request.
func (m *MockCatalog) FailDetail(n string, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[n] = times
}

// SetDelay holds every detail response for d.
func (m *MockCatalog) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetNested serves detail fields under data[0] instead of the top level.
func (m *MockCatalog) SetNested(nested bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nested = nested
}

// ListRequests returns the number of list requests served.
func (m *MockCatalog) ListRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listRequests
}

// DetailRequests returns the number of detail requests served for n.
func (m *MockCatalog) DetailRequests(n string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detailRequests[n]
}

// MaxActiveDetails returns the peak number of concurrent detail requests.
func (m *MockCatalog) MaxActiveDetails() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

// LastHeader returns the headers of the most recent request.
func (m *MockCatalog) LastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader
}

func (m *MockCatalog) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n := strings.TrimSpace(q.Get("n"))

	m.mu.Lock()
	m.lastHeader = r.Header.Clone()
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if n == "" {
		m.handleList(w)
		return
	}
	m.handleDetail(w, n)
}

func (m *MockCatalog) handleList(w http.ResponseWriter) {
	m.mu.Lock()
	m.listRequests++
	status, raw := m.listCode, m.listBody
	songs := append([]Song(nil), m.songs...)
	m.mu.Unlock()

	if raw != "" || status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(raw))
		return
	}

	entries := make([]map[string]any, 0, len(songs))
	for _, s := range songs {
		entries = append(entries, map[string]any{
			"n":        s.N,
			"title":    s.Title,
			"singer":   s.Singer,
			"Duration": s.Duration,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": entries})
}

func (m *MockCatalog) handleDetail(w http.ResponseWriter, n string) {
	m.mu.Lock()
	m.detailRequests[n]++
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	delay := m.delay
	nested := m.nested
	fail := false
	if left, ok := m.failures[n]; ok && left != 0 {
		fail = true
		if left > 0 {
			m.failures[n] = left - 1
		}
	}
	var song *Song
	for i := range m.songs {
		if strconv.Itoa(m.songs[i].N) == n {
			song = &m.songs[i]
			break
		}
	}
	var found Song
	if song != nil {
		found = *song
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}

	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"code": 500, "msg": "internal error"})
		return
	}
	if song == nil {
		writeJSON(w, http.StatusOK, map[string]any{"code": 404, "msg": "song not found"})
		return
	}

	fields := map[string]any{
		"title":     found.Title,
		"singer":    found.Singer,
		"cover":     found.Cover,
		"music_url": found.MusicURL,
		"lyrics":    found.Lyrics,
	}
	if nested {
		writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": []any{fields}})
		return
	}
	fields["code"] = 200
	writeJSON(w, http.StatusOK, fields)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Songs returns n sample songs numbered from 1, each with detail fields.
func Songs(n int) []Song {
	songs := make([]Song, n)
	for i := range songs {
		num := i + 1
		songs[i] = Song{
			N:        num,
			Title:    "Song " + strconv.Itoa(num),
			Singer:   "Singer " + strconv.Itoa(num),
			Duration: "03:2" + strconv.Itoa(num%10),
			Cover:    "https://img.example.com/" + strconv.Itoa(num) + ".jpg",
			MusicURL: "https://audio.example.com/" + strconv.Itoa(num) + ".flac",
			Lyrics:   "[00:00.00] lyrics " + strconv.Itoa(num),
		}
	}
	return songs
}
