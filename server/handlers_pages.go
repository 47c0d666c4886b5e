package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/thriftyclothings/storefront/users"
)

const contentTypeHTML = "text/html; charset=utf-8"

// PageData is what every template renders from
type PageData struct {
	AppName        string
	Title          string
	Path           string
	User           *users.User
	Error          string
	Notice         string
	Email          string // Preserved on form errors
	Name           string // Preserved on form errors
	RefreshSeconds int    // Set on the loading placeholder only
}

func (s *Server) pageData(r *http.Request, title string) PageData {
	return PageData{
		AppName: s.appName,
		Title:   title,
		Path:    r.URL.Path,
		User:    s.session.Snapshot().CurrentUser,
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data PageData) {
	tmpl, ok := s.templates[name]
	if !ok {
		log.Error().Str("template", name).Msg("unknown template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	if err := tmpl.Execute(w, data); err != nil {
		log.Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// renderLoading shows the placeholder while the session is resolving
func (s *Server) renderLoading(w http.ResponseWriter, r *http.Request) {
	data := s.pageData(r, "Loading")
	data.RefreshSeconds = s.refresh
	w.Header().Set("Cache-Control", "no-store")
	s.render(w, "loading.html", data)
}

// PageHandler renders the named placeholder for a storefront page
func (s *Server) PageHandler(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, "page.html", s.pageData(r, title))
	}
}

// NotFoundHandler is only reached when the catch-all guard renders, which
// it never does once initialized.
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}
}
