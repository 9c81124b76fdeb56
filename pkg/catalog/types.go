package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Quality selects the stream format requested from the catalog.
type Quality string

const (
	// Quality128 is 128 kbps MP3.
	Quality128 Quality = "128"

	// Quality320 is 320 kbps MP3.
	Quality320 Quality = "320"

	// QualityFLAC is lossless FLAC.
	QualityFLAC Quality = "flac"

	// DefaultQuality is used when a request does not name one.
	DefaultQuality = QualityFLAC
)

// Qualities lists every accepted quality value.
var Qualities = []Quality{Quality128, Quality320, QualityFLAC}

// ParseQuality validates a quality selector. An empty string yields DefaultQuality.
func ParseQuality(s string) (Quality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultQuality, nil
	}
	for _, q := range Qualities {
		if string(q) == s {
			return q, nil
		}
	}
	return "", fmt.Errorf("unsupported quality %q (want one of 128, 320, flac)", s)
}

// Query is one catalog search.
type Query struct {
	// Term is the search keyword.
	Term string

	// Num bounds the number of candidates returned.
	Num int

	// Quality is the requested stream format.
	Quality Quality
}

// Candidate is one entry of a search list.
type Candidate struct {
	// N is the position key the catalog uses to address the detail record.
	N        FlexInt `json:"n"`
	Title    string  `json:"title"`
	Singer   string  `json:"singer"`
	Duration string  `json:"Duration"`
}

// Detail holds the per-candidate attributes that need a second call.
type Detail struct {
	Cover    string `json:"cover"`
	MusicURL string `json:"music_url"`
	Lyrics   string `json:"lyrics"`
}

// FlexInt decodes an integer sent either as a JSON number or a numeric string.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("parse integer %q: %w", s, err)
		}
		*f = FlexInt(n)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		return fmt.Errorf("parse integer %s: %w", n, err)
	}
	*f = FlexInt(i)
	return nil
}

// String returns the decimal form used in catalog requests.
func (f FlexInt) String() string {
	return strconv.Itoa(int(f))
}
