package application

import (
	"time"

	"github.com/example/attendance-tracker/internal/attendance"
)

// Principal represents the authenticated user invoking a service method.
// Authentication itself happens outside this service; callers arrive with a
// resolved user identifier.
type Principal struct {
	UserID string
}

// SubjectInput captures caller provided subject fields.
type SubjectInput struct {
	Name  string
	Color string
}

// Subject represents a tracked course.
type Subject struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateSubjectParams wraps the data required to create a subject.
type CreateSubjectParams struct {
	Principal Principal
	Input     SubjectInput
}

// ScheduleInput captures caller provided fields for one weekly time-slot.
// Weekdays are three-letter tags (Mon..Sun). RuleID is optional: when set,
// the named slot is reshaped in place; when empty a new slot is created for
// the subject.
type ScheduleInput struct {
	SubjectID string
	RuleID    string
	Weekdays  []string
	StartTime string
	EndTime   string
}

// ScheduleRule represents a persisted weekly time-slot.
type ScheduleRule struct {
	ID        string
	SubjectID string
	Weekdays  []string
	StartTime string
	EndTime   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReconcileResult reports how a schedule change affected materialized
// occurrences.
type ReconcileResult struct {
	DeletedCount int
	CreatedCount int
}

// ScheduleResult is the outcome of creating or reshaping a time-slot.
type ScheduleResult struct {
	Rule           ScheduleRule
	Reconciliation ReconcileResult
}

// CreateOrUpdateScheduleParams wraps the data required to create or reshape
// a time-slot. ReferenceToday anchors materialization and decides which
// pending occurrences count as future.
type CreateOrUpdateScheduleParams struct {
	Principal      Principal
	Input          ScheduleInput
	ReferenceToday time.Time
}

// DeleteScheduleParams wraps the data required to remove a time-slot.
type DeleteScheduleParams struct {
	Principal      Principal
	RuleID         string
	ReferenceToday time.Time
}

// RegenerateParams wraps the data required to re-materialize every rule of
// the acting user.
type RegenerateParams struct {
	Principal      Principal
	ReferenceToday time.Time
}

// Occurrence represents one materialized class instance. Date is rendered
// as YYYY-MM-DD.
type Occurrence struct {
	ID        string
	SubjectID string
	RuleID    string
	Date      string
	StartTime string
	EndTime   string
	Status    attendance.Status
	MarkedAt  *time.Time
}

// ListOccurrencesParams wraps the data required to list occurrences within
// an inclusive date window.
type ListOccurrencesParams struct {
	Principal Principal
	SubjectID string
	From      *time.Time
	To        *time.Time
}

// MarkOccurrenceParams wraps the data required to record attendance for one
// occurrence.
type MarkOccurrenceParams struct {
	Principal      Principal
	OccurrenceID   string
	Status         attendance.Status
	ReferenceToday time.Time
}

// SubjectSummary pairs a subject with its attendance aggregate and the
// dashboard indicator color.
type SubjectSummary struct {
	SubjectID   string
	SubjectName string
	Summary     attendance.Summary
	Indicator   string
}

// MarkResult is the outcome of marking an occurrence: the updated
// occurrence plus the fresh summary of its subject.
type MarkResult struct {
	Occurrence Occurrence
	Summary    SubjectSummary
}

// SummaryParams wraps the data required to compute attendance summaries.
// Occurrences dated after ReferenceToday are excluded. SubjectID optionally
// restricts the report to one subject.
type SummaryParams struct {
	Principal      Principal
	SubjectID      string
	ReferenceToday time.Time
}

// SummaryReport aggregates attendance over the considered occurrences, both
// overall and per subject.
type SummaryReport struct {
	Overall   attendance.Summary
	Indicator string
	Subjects  []SubjectSummary
}

// TodayParams wraps the data required for the today view.
type TodayParams struct {
	Principal      Principal
	ReferenceToday time.Time
}

// TodayItem is one of today's classes together with its subject summary.
type TodayItem struct {
	Occurrence Occurrence
	Summary    SubjectSummary
}

// TodayView lists today's classes ordered by start time.
type TodayView struct {
	Date  string
	Items []TodayItem
}
