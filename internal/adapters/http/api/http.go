// Package api exposes the seminar operations over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	service "github.com/ksicht/ksicht/internal/app"
	"github.com/ksicht/ksicht/pkg/logger"
)

const (
	defaultMaxUploadBytes = 20 << 20
	timeFormat            = time.RFC3339
)

// Server wires HTTP routes for the seminar API.
type Server struct {
	svc            *service.Service
	maxUploadBytes int64
	logger         logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxUploadBytes caps multipart upload size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewServer creates the API server.
func NewServer(svc *service.Service, opts ...Option) *Server {
	s := &Server{
		svc:            svc,
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all API routes to the router.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.handleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.handleStats, "stats")).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/register", MetricsMiddleware(s.handleRegister, "register")).Methods(http.MethodPost)
	api.HandleFunc("/login", MetricsMiddleware(s.handleLogin, "login")).Methods(http.MethodPost)
	api.HandleFunc("/logout", MetricsMiddleware(s.handleLogout, "logout")).Methods(http.MethodPost)
	api.HandleFunc("/profile", MetricsMiddleware(s.withUser(s.handleGetProfile), "profile")).Methods(http.MethodGet)
	api.HandleFunc("/profile", MetricsMiddleware(s.withUser(s.handleSaveProfile), "profile")).Methods(http.MethodPut)

	api.HandleFunc("/grades", MetricsMiddleware(s.handleListGrades, "grades")).Methods(http.MethodGet)
	api.HandleFunc("/grades", MetricsMiddleware(s.withOrganizer(s.handleCreateGrade), "grades")).Methods(http.MethodPost)
	api.HandleFunc("/grades/current", MetricsMiddleware(s.handleCurrentGrade, "grades_current")).Methods(http.MethodGet)
	api.HandleFunc("/grades/year", MetricsMiddleware(s.handleGradeBySchoolYear, "grade_by_year")).Methods(http.MethodGet)
	api.HandleFunc("/grades/{id}", MetricsMiddleware(s.handleGradeDetail, "grade_detail")).Methods(http.MethodGet)
	api.HandleFunc("/grades/{id}", MetricsMiddleware(s.withOrganizer(s.handleUpdateGrade), "grade_detail")).Methods(http.MethodPut)
	api.HandleFunc("/grades/{id}/series/current", MetricsMiddleware(s.handleCurrentSeries, "grade_series_current")).Methods(http.MethodGet)
	api.HandleFunc("/grades/{id}/apply", MetricsMiddleware(s.withUser(s.handleApply), "grade_apply")).Methods(http.MethodPost)
	api.HandleFunc("/grades/{id}/submissions", MetricsMiddleware(s.withUser(s.handleOwnSubmissions), "grade_submissions")).Methods(http.MethodGet)
	api.HandleFunc("/grades/{id}/results/{series:[0-9]+}", MetricsMiddleware(s.handleResults, "grade_results")).Methods(http.MethodGet)
	api.HandleFunc("/grades/{id}/active", MetricsMiddleware(s.withOrganizer(s.handleActiveApplications), "grade_active")).Methods(http.MethodGet)

	api.HandleFunc("/series", MetricsMiddleware(s.withOrganizer(s.handleCreateSeries), "series")).Methods(http.MethodPost)
	api.HandleFunc("/series/{id}", MetricsMiddleware(s.handleSeriesDetail, "series_detail")).Methods(http.MethodGet)
	api.HandleFunc("/series/{id}/booklet", MetricsMiddleware(s.withOrganizer(s.handleUploadBooklet), "series_booklet")).Methods(http.MethodPut)
	api.HandleFunc("/series/{id}/booklet", MetricsMiddleware(s.handleDownloadBooklet, "series_booklet")).Methods(http.MethodGet)
	api.HandleFunc("/series/{id}/attachments", MetricsMiddleware(s.withOrganizer(s.handleAddAttachment), "series_attachments")).Methods(http.MethodPost)
	api.HandleFunc("/series/{id}/attachments/{attachmentID}", MetricsMiddleware(s.handleDownloadAttachment, "series_attachments")).Methods(http.MethodGet)
	api.HandleFunc("/series/{id}/tasks", MetricsMiddleware(s.withOrganizer(s.handleCreateTask), "series_tasks")).Methods(http.MethodPost)
	api.HandleFunc("/series/{id}/publish", MetricsMiddleware(s.withOrganizer(s.handlePublishResults), "series_publish")).Methods(http.MethodPost)
	api.HandleFunc("/series/{id}/exports", MetricsMiddleware(s.withOrganizer(s.handleSeriesExports), "series_exports")).Methods(http.MethodGet)

	api.HandleFunc("/tasks/{id}/submission", MetricsMiddleware(s.withUser(s.handleSubmitSolution), "task_submission")).Methods(http.MethodPost)
	api.HandleFunc("/submissions/{id}", MetricsMiddleware(s.withUser(s.handleDeleteSubmission), "submission")).Methods(http.MethodDelete)
	api.HandleFunc("/submissions/{id}/score", MetricsMiddleware(s.withOrganizer(s.handleScoreSubmission), "submission_score")).Methods(http.MethodPost)
	api.HandleFunc("/submissions/{id}/export/{variant}", MetricsMiddleware(s.withOrganizer(s.handleDownloadExport), "submission_export")).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/postal/{taskID}", MetricsMiddleware(s.withOrganizer(s.handlePostalSubmission), "application_postal")).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/postal/{taskID}", MetricsMiddleware(s.withOrganizer(s.handleUnmarkPostal), "application_postal")).Methods(http.MethodDelete)

	api.HandleFunc("/stickers", MetricsMiddleware(s.handleListStickers, "stickers")).Methods(http.MethodGet)
	api.HandleFunc("/stickers", MetricsMiddleware(s.withOrganizer(s.handleCreateSticker), "stickers")).Methods(http.MethodPost)
	api.HandleFunc("/submissions/{id}/stickers/{stickerID}", MetricsMiddleware(s.withOrganizer(s.handleAwardSticker), "submission_stickers")).Methods(http.MethodPost)

	api.HandleFunc("/events", MetricsMiddleware(s.handleListEvents, "events")).Methods(http.MethodGet)
	api.HandleFunc("/events", MetricsMiddleware(s.withOrganizer(s.handleCreateEvent), "events")).Methods(http.MethodPost)
	api.HandleFunc("/events/{id}", MetricsMiddleware(s.handleEventDetail, "event_detail")).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}/enlist", MetricsMiddleware(s.withUser(s.handleEnlist), "event_enlist")).Methods(http.MethodPost)
	api.HandleFunc("/events/{id}/roster", MetricsMiddleware(s.withOrganizer(s.handleRoster), "event_roster")).Methods(http.MethodGet)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps a service error onto an HTTP response.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
