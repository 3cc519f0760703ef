package portal

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed web/index.html.tmpl
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html.tmpl"))

type pageData struct {
	APName    string
	AuthReset bool
}

func renderPage(w http.ResponseWriter, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}
