package api

import (
	"errors"
	"net/http"

	"github.com/ksicht/ksicht/internal/adapters/repository"
	"github.com/ksicht/ksicht/internal/adapters/storage"
	service "github.com/ksicht/ksicht/internal/app"
	"github.com/ksicht/ksicht/internal/auth"
	"github.com/ksicht/ksicht/internal/domain/enrollment"
	"github.com/ksicht/ksicht/internal/domain/model"
)

// statusFor translates domain and service sentinels into an HTTP
// status and machine-readable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, storage.ErrObjectNotFound),
		errors.Is(err, service.ErrNoCurrentGrade):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, enrollment.ErrAlreadyEnlisted):
		return http.StatusConflict, "conflict"

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrSessionExpired):
		return http.StatusUnauthorized, "unauthorized"

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrResultsNotPublic),
		errors.Is(err, service.ErrNotApplied):
		return http.StatusForbidden, "forbidden"

	case errors.Is(err, service.ErrSeriesClosed),
		errors.Is(err, enrollment.ErrEnlistmentClosed):
		return http.StatusConflict, "closed"

	case errors.Is(err, model.ErrInvalid),
		errors.Is(err, service.ErrProfileIncomplete),
		errors.Is(err, enrollment.ErrMissingProfileField):
		return http.StatusUnprocessableEntity, "invalid"

	case errors.Is(err, service.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"

	default:
		return http.StatusInternalServerError, "internal"
	}
}
