package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/attendance-tracker/internal/application"
)

var (
	errBadRequestBody      = errors.New("the request body is not valid JSON")
	errInvalidSubjectID    = errors.New("a subject id is required in the path")
	errInvalidScheduleID   = errors.New("a schedule id is required in the path")
	errInvalidOccurrenceID = errors.New("an occurrence id is required in the path")
	errMissingUserID       = errors.New("the X-User-ID header is required")
	errInvalidTimezone     = errors.New("the X-Timezone header is not a known IANA zone")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application errors to status codes: validation
// failures carry their field errors at 422, not-found (including foreign
// ownership) is 404, anything else is a 500 the caller may retry.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "the request contains invalid fields",
			Errors:  vErr.FieldErrors,
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}
