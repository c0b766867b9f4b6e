// Package site serves the public HTML pages: the current grade
// overview and the grade archive.
package site

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ksicht/ksicht/internal/adapters/repository"
	service "github.com/ksicht/ksicht/internal/app"
	"github.com/ksicht/ksicht/internal/domain/model"
	"github.com/ksicht/ksicht/pkg/logger"
)

//go:embed templates/*.html
var templates embed.FS

// Server renders the public pages.
type Server struct {
	svc    *service.Service
	tmpl   *template.Template
	logger logger.Logger
}

// NewServer creates the site server.
func NewServer(svc *service.Service) *Server {
	return &Server{
		svc:    svc,
		tmpl:   template.Must(template.ParseFS(templates, "templates/*.html")),
		logger: logger.Get().Named("site"),
	}
}

// Register attaches the page routes to the router.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/archive", s.handleArchive).Methods(http.MethodGet)
}

type homePage struct {
	Grade *model.Grade
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	page := homePage{}
	grade, err := s.svc.CurrentGrade(r.Context())
	switch {
	case err == nil:
		page.Grade = &grade
	case errors.Is(err, service.ErrNoCurrentGrade):
		// Rendered with the "between grades" fallback.
	default:
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, "home.html", page)
}

type archivePage struct {
	Grades []model.Grade
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	grades, err := s.svc.ArchivedGrades(r.Context(), repository.Page{})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, "archive.html", archivePage{Grades: grades})
}

// render executes the template into a buffer first so a failure never
// leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), "page render failed",
		logger.String("path", r.URL.Path), logger.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
