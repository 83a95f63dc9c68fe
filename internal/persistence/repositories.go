package persistence

import (
	"context"
	"time"

	"github.com/example/attendance-tracker/internal/attendance"
)

// SubjectRepository exposes CRUD operations for subjects.
type SubjectRepository interface {
	CreateSubject(ctx context.Context, subject Subject) error
	GetSubject(ctx context.Context, userID, id string) (Subject, error)
	ListSubjects(ctx context.Context, userID string) ([]Subject, error)
	// DeleteSubject removes the subject together with its rules and all of
	// its occurrences.
	DeleteSubject(ctx context.Context, userID, id string) error
}

// RuleRepository stores weekly schedule rules.
type RuleRepository interface {
	CreateRule(ctx context.Context, rule ScheduleRule) error
	UpdateRule(ctx context.Context, rule ScheduleRule) error
	GetRule(ctx context.Context, userID, id string) (ScheduleRule, error)
	ListRules(ctx context.Context, userID string) ([]ScheduleRule, error)
	ListRulesForSubject(ctx context.Context, userID, subjectID string) ([]ScheduleRule, error)
	DeleteRule(ctx context.Context, userID, id string) error
}

// OccurrenceFilter narrows occurrence queries. Zero-valued fields are
// ignored. From and To bound the civil date, both inclusive.
type OccurrenceFilter struct {
	UserID    string
	SubjectID string
	RuleID    string
	From      *time.Time
	To        *time.Time
	Statuses  []attendance.Status
}

// OccurrenceRepository stores materialized class occurrences.
type OccurrenceRepository interface {
	// InsertOccurrences bulk-inserts candidates, silently skipping rows
	// that collide with the (user, subject, date, start time) uniqueness
	// constraint. It returns the number of rows actually created.
	InsertOccurrences(ctx context.Context, occurrences []ClassOccurrence) (int, error)
	GetOccurrence(ctx context.Context, userID, id string) (ClassOccurrence, error)
	// ListOccurrences returns matches ordered by date, then start time.
	ListOccurrences(ctx context.Context, filter OccurrenceFilter) ([]ClassOccurrence, error)
	UpdateOccurrenceStatus(ctx context.Context, userID, id string, status attendance.Status, markedAt *time.Time, updatedAt time.Time) (ClassOccurrence, error)
	// DeletePendingFromDate removes the rule's pending occurrences dated on
	// or after from, returning the number of rows deleted. Marked
	// occurrences are never touched.
	DeletePendingFromDate(ctx context.Context, userID, ruleID string, from time.Time) (int, error)
}
