package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sternrassler/music-search-api/pkg/catalog"
	"github.com/Sternrassler/music-search-api/pkg/search"
)

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 64 << 10

// errBadRequest marks parameter errors; they map to 400.
var errBadRequest = errors.New("bad request")

// params is the raw, string-typed view of a search request.
type params map[string]string

func (p params) get(key string) string {
	return strings.TrimSpace(p[key])
}

// readParams collects parameters from the query string and, for POST, from a
// JSON or form body. Body values override query values.
func readParams(w http.ResponseWriter, r *http.Request) (params, error) {
	p := params{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			p[key] = values[0]
		}
	}

	if r.Method != http.MethodPost || r.Body == nil {
		return p, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body map[string]any
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
		}
		for key, v := range body {
			switch v := v.(type) {
			case nil:
			case string:
				p[key] = v
			case json.Number:
				p[key] = v.String()
			case bool:
				p[key] = strconv.FormatBool(v)
			default:
				return nil, fmt.Errorf("%w: parameter %q must be a scalar", errBadRequest, key)
			}
		}
	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: invalid form body: %v", errBadRequest, err)
		}
		for key, values := range r.PostForm {
			if len(values) > 0 {
				p[key] = values[0]
			}
		}
	}

	return p, nil
}

// toRequest validates parameters and builds a search request.
func (p params) toRequest(cfg Config) (search.Request, error) {
	term := p.get("msg")
	if term == "" {
		return search.Request{}, fmt.Errorf("%w: msg is required", errBadRequest)
	}

	num := cfg.DefaultNum
	if raw := p.get("num"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return search.Request{}, fmt.Errorf("%w: num must be an integer (got %q)", errBadRequest, raw)
		}
		if n < 1 || n > cfg.MaxNum {
			return search.Request{}, fmt.Errorf("%w: num must be between 1 and %d (got %d)", errBadRequest, cfg.MaxNum, n)
		}
		num = n
	}

	quality := cfg.DefaultQuality
	if raw := p.get("quality"); raw != "" {
		q, err := catalog.ParseQuality(raw)
		if err != nil {
			return search.Request{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		quality = q
	}

	// The catalog is always asked for JSON; type is accepted for compatibility.
	if raw := p.get("type"); raw != "" && !strings.EqualFold(raw, "json") {
		return search.Request{}, fmt.Errorf("%w: unsupported type %q (only json is supported)", errBadRequest, raw)
	}

	playable := false
	if raw := p.get("playable"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return search.Request{}, fmt.Errorf("%w: playable must be a boolean (got %q)", errBadRequest, raw)
		}
		playable = b
	}

	return search.Request{
		Query: catalog.Query{
			Term:    term,
			Num:     num,
			Quality: quality,
		},
		PlayableOnly: playable,
	}, nil
}
