package api

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/Sternrassler/music-search-api/pkg/catalog"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8"/>
    <title>Music Search API</title>
    <style>
      body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,"Helvetica Neue",Arial; padding: 2rem; background:#fafafa; }
      a { color:#1677ff; text-decoration:none; }
    </style>
  </head>
  <body>
    <h1>Music Search API</h1>
    <p>Examples:</p>
    <ul>
      {{- range .Examples}}
      <li><a href="{{.URL}}">{{.Label}}</a></li>
      {{- end}}
    </ul>
    <p>Parameters (GET query string, or POST JSON / form body):</p>
    <pre>{
  msg      : search keyword (required)
  num      : number of results (default {{.DefaultNum}}, max {{.MaxNum}})
  quality  : {{range $i, $q := .Qualities}}{{if $i}} / {{end}}{{$q}}{{end}} (default {{.DefaultQuality}})
  type     : response format, json only (default json)
  playable : true to drop songs without a stream url (default false)
}</pre>
  </body>
</html>
`))

type indexExample struct {
	URL   string
	Label string
}

type indexData struct {
	Examples       []indexExample
	DefaultNum     int
	MaxNum         int
	DefaultQuality catalog.Quality
	Qualities      []catalog.Quality
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Examples: []indexExample{
			{URL: "/search?msg=周杰伦&num=10&quality=flac", Label: "周杰伦 / lossless"},
			{URL: "/search?msg=邓紫棋&num=20&quality=128", Label: "邓紫棋 / standard"},
		},
		DefaultNum:     h.config.DefaultNum,
		MaxNum:         h.config.MaxNum,
		DefaultQuality: h.config.DefaultQuality,
		Qualities:      catalog.Qualities,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to render index page")
	}
}
