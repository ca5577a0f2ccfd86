package server

import (
	"embed"
	"html/template"
	"net/http"
	"sort"

	"github.com/meridianhq/portal/internal/log"
)

//go:embed templates/login.html
var templateFS embed.FS

var loginTemplate = template.Must(template.ParseFS(templateFS, "templates/login.html"))

// loginLink is one provider entry on the chooser page
type loginLink struct {
	Name string
	URL  string
}

func sortLoginLinks(links []loginLink) {
	sort.Slice(links, func(i, j int) bool {
		return links[i].Name < links[j].Name
	})
}

func renderLoginPage(w http.ResponseWriter, links []loginLink) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginTemplate.Execute(w, map[string]any{"Providers": links}); err != nil {
		log.LogError("Failed to render login page: %v", err)
	}
}
