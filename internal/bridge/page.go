package bridge

import (
	_ "embed"
	"html/template"
	"net/http"
)

//go:embed recognizer.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("recognizer").Parse(pageSource))

type pageData struct {
	Language string
}

// handlePage renders the recognizer. The locale is read on every load so a
// reload picks up the current configuration.
func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, pageData{Language: s.config.Language}); err != nil {
		s.logger.Error("render recognizer page", "error", err)
	}
}
