package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ksicht/ksicht/internal/domain/model"
	"github.com/ksicht/ksicht/pkg/metrics"
)

// MetricsMiddleware wraps a handler to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		status := strconv.Itoa(wrapped.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, durationMs)
		if wrapped.statusCode >= http.StatusBadRequest {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType(wrapped.statusCode))
		}
	}
}

func errorType(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return "server_error"
	case statusCode == http.StatusNotFound:
		return "not_found"
	default:
		return "client_error"
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// authedHandler receives the authenticated user alongside the request.
type authedHandler func(w http.ResponseWriter, r *http.Request, user model.User)

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// withUser requires a valid session.
func (s *Server) withUser(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.svc.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		next(w, r, user)
	}
}

// withOrganizer requires a valid session with the organizer flag.
func (s *Server) withOrganizer(next authedHandler) http.HandlerFunc {
	return s.withUser(func(w http.ResponseWriter, r *http.Request, user model.User) {
		if !user.IsOrganizer {
			writeError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
		next(w, r, user)
	})
}

// viewer resolves the optional session on public endpoints so
// organizers get their extended view. Anonymous callers yield nil.
func (s *Server) viewer(r *http.Request) *model.User {
	token := bearerToken(r)
	if token == "" {
		return nil
	}
	user, err := s.svc.Authenticate(r.Context(), token)
	if err != nil {
		return nil
	}
	return &user
}
