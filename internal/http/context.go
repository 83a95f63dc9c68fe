package http

import (
	"context"
	"log/slog"

	"github.com/example/attendance-tracker/internal/application"
	"github.com/example/attendance-tracker/internal/logging"
)

type contextKey string

const (
	principalContextKey    contextKey = "principal"
	subjectIDContextKey    contextKey = "subject_id"
	scheduleIDContextKey   contextKey = "schedule_id"
	occurrenceIDContextKey contextKey = "occurrence_id"
)

// ContextWithPrincipal returns a derived context containing the acting user.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the acting user from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithSubjectID injects the subject identifier resolved from the request path.
func ContextWithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectIDContextKey, subjectID)
}

// SubjectIDFromContext extracts a subject identifier previously associated with the context.
func SubjectIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(subjectIDContextKey).(string)
	return id, ok
}

// ContextWithScheduleID injects the time-slot identifier resolved from the request path.
func ContextWithScheduleID(ctx context.Context, scheduleID string) context.Context {
	return context.WithValue(ctx, scheduleIDContextKey, scheduleID)
}

// ScheduleIDFromContext extracts a time-slot identifier previously associated with the context.
func ScheduleIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(scheduleIDContextKey).(string)
	return id, ok
}

// ContextWithOccurrenceID injects the occurrence identifier resolved from the request path.
func ContextWithOccurrenceID(ctx context.Context, occurrenceID string) context.Context {
	return context.WithValue(ctx, occurrenceIDContextKey, occurrenceID)
}

// OccurrenceIDFromContext extracts an occurrence identifier previously associated with the context.
func OccurrenceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(occurrenceIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger so application services
// can pick it up downstream.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts a logger previously attached to the context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
