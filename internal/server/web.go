package srv

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/box1bs/spyglass/internal/app/searcher"
	"github.com/box1bs/spyglass/pkg/logger"
)

var indexPage = template.Must(template.New("index").Funcs(template.FuncMap{
	"date": func(h *searcher.Hit) string { return h.Document.LastModified.Format("2006-01-02 15:04:05") },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>spyglass</title></head>
<body>
<form method="get" action="/">
  <input type="text" name="q" value="{{.Query}}" size="60" autofocus>
  <input type="submit" value="Search">
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Searched}}<p>{{len .Hits}} result(s)</p>{{end}}
{{range .Hits}}
<div class="hit">
  <p><b>{{printf "%.4f" .Score}}</b> <a href="{{.Document.URL}}">{{if .Document.Title}}{{.Document.Title}}{{else}}{{.Document.URL}}{{end}}</a></p>
  <p>{{.Document.URL}}<br>{{date .}}, {{.Document.Size}} bytes</p>
  <p>{{range $i, $k := .Keywords}}{{if $i}}; {{end}}{{$k.Stem}} {{$k.Frequency}}{{end}}</p>
  {{if .Parents}}<p>Parents:{{range .Parents}}<br><a href="{{.}}">{{.}}</a>{{end}}</p>{{end}}
  {{if .Children}}<p>Children:{{range .Children}}<br><a href="{{.}}">{{.}}</a>{{end}}</p>{{end}}
</div>
<hr>
{{end}}
</body>
</html>
`))

type indexPageData struct {
	Query    string
	Searched bool
	Error    string
	Hits     []*searcher.Hit
}

func (s *server) indexPageHandler(w http.ResponseWriter, r *http.Request) {
	data := indexPageData{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	if data.Query != "" {
		data.Searched = true
		if err := s.queryValidator.ValidateQuery(data.Query); err != nil {
			data.Error = err.Error()
		} else if hits, err := s.search(data.Query, 0); err != nil {
			data.Error = err.Error()
		} else {
			data.Hits = hits
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, data); err != nil {
		s.log.Write(logger.NewMessage(logger.SERVER_LAYER, logger.ERROR, "error rendering index page: %v", err))
	}
}
