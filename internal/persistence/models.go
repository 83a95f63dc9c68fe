package persistence

import (
	"time"

	"github.com/example/attendance-tracker/internal/attendance"
)

// Subject represents a course a user tracks attendance for.
type Subject struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ScheduleRule represents one weekly time-slot of a subject. A subject may
// own several rules, each with its own weekday set and start/end times.
type ScheduleRule struct {
	ID        string
	UserID    string
	SubjectID string
	Weekdays  []time.Weekday
	StartTime string
	EndTime   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClassOccurrence represents one materialized class on a concrete date.
// Date is a zone-less UTC-midnight marker; StartTime and EndTime are civil
// HH:MM strings frozen at materialization time. MarkedAt is set the first
// time Status leaves pending and preserved afterwards.
type ClassOccurrence struct {
	ID        string
	UserID    string
	SubjectID string
	RuleID    string
	Date      time.Time
	StartTime string
	EndTime   string
	Status    attendance.Status
	MarkedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
