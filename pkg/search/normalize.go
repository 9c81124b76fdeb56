package search

import "github.com/Sternrassler/music-search-api/pkg/catalog"

// FallbackLyrics marks a track whose detail lookup ran out of attempts.
const FallbackLyrics = "Lyrics unavailable: detail lookup failed"

// Track pairs a candidate with its detail record, or with the fallback
// detail when every attempt failed.
type Track struct {
	catalog.Candidate
	Detail catalog.Detail

	// Degraded is true when Detail is the fallback.
	Degraded bool

	// Attempts is the number of detail calls made for this track.
	Attempts int
}

// FallbackTrack builds the degraded track for a candidate. It depends only
// on the candidate.
func FallbackTrack(c catalog.Candidate) Track {
	return Track{
		Candidate: c,
		Detail:    catalog.Detail{Lyrics: FallbackLyrics},
		Degraded:  true,
	}
}

// Song is the public response record.
type Song struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Singer   string `json:"singer"`
	Duration string `json:"duration"`
	Cover    string `json:"cover"`
	MusicURL string `json:"music_url"`
	Lyrics   string `json:"lyrics"`
}

// Defaults are substituted for empty textual fields.
type Defaults struct {
	Title    string `yaml:"title"`
	Singer   string `yaml:"singer"`
	Duration string `yaml:"duration"`
	Cover    string `yaml:"cover"`
	Lyrics   string `yaml:"lyrics"`
}

// DefaultValues returns the stock placeholders.
func DefaultValues() Defaults {
	return Defaults{
		Title:    "Unknown title",
		Singer:   "Unknown artist",
		Duration: "00:00",
		Cover:    "https://via.placeholder.com/300?text=No+Cover",
		Lyrics:   "No lyrics available",
	}
}

// Normalize maps tracks to the public schema. The stream URL is never
// defaulted; an empty music_url is how callers spot an unplayable entry.
func Normalize(tracks []Track, d Defaults) []Song {
	songs := make([]Song, len(tracks))
	for i, t := range tracks {
		songs[i] = Song{
			ID:       int(t.N),
			Title:    orDefault(t.Title, d.Title),
			Singer:   orDefault(t.Singer, d.Singer),
			Duration: orDefault(t.Duration, d.Duration),
			Cover:    orDefault(t.Detail.Cover, d.Cover),
			MusicURL: t.Detail.MusicURL,
			Lyrics:   orDefault(t.Detail.Lyrics, d.Lyrics),
		}
	}
	return songs
}

// PlayableOnly drops songs without a stream URL, keeping order.
func PlayableOnly(songs []Song) []Song {
	out := make([]Song, 0, len(songs))
	for _, s := range songs {
		if s.MusicURL != "" {
			out = append(out, s)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
