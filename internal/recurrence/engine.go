// Package recurrence expands weekly schedule rules into dated class
// occurrence candidates. Expansion is pure: the caller supplies the civil
// reference day and the horizon, and the engine never touches a clock or a
// store.
package recurrence

import (
	"sort"
	"time"

	"github.com/example/attendance-tracker/internal/calendar"
)

// Rule describes one weekly time-slot for a subject.
type Rule struct {
	ID        string
	UserID    string
	SubjectID string
	Weekdays  []time.Weekday
	StartTime string
	EndTime   string
}

// Occurrence is a single dated candidate implied by a rule. Date is a
// zone-less UTC-midnight marker; StartTime and EndTime are civil HH:MM
// strings copied from the rule at expansion time.
type Occurrence struct {
	UserID    string
	SubjectID string
	RuleID    string
	Date      time.Time
	StartTime string
	EndTime   string
}

// Key identifies the candidate within one user and subject, matching the
// storage uniqueness components (date, start time).
func (o Occurrence) Key() string {
	return calendar.FormatDate(o.Date) + "@" + o.StartTime
}

// Expand computes every occurrence a rule implies in the window
// [referenceToday, referenceToday + horizonWeeks*7), lower bound inclusive,
// upper bound exclusive. Each weekday therefore contributes exactly
// horizonWeeks candidates.
//
// For each weekday in the rule the first candidate is the next matching date
// on or after referenceToday; subsequent candidates step forward exactly
// seven days. An empty weekday set or a non-positive horizon yields no
// candidates rather than an error. Duplicate weekday entries are collapsed.
// Results are ordered by date, then start time.
func Expand(rule Rule, horizonWeeks int, referenceToday time.Time) []Occurrence {
	if len(rule.Weekdays) == 0 || horizonWeeks <= 0 {
		return nil
	}

	today := calendar.ToStorageDate(referenceToday)
	horizon := today.AddDate(0, 0, horizonWeeks*7)

	seen := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	occurrences := make([]Occurrence, 0, len(rule.Weekdays)*horizonWeeks)

	for _, day := range rule.Weekdays {
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}

		for date := calendar.NextOccurrenceOnOrAfter(day, today); date.Before(horizon); date = date.AddDate(0, 0, 7) {
			occurrences = append(occurrences, Occurrence{
				UserID:    rule.UserID,
				SubjectID: rule.SubjectID,
				RuleID:    rule.ID,
				Date:      date,
				StartTime: rule.StartTime,
				EndTime:   rule.EndTime,
			})
		}
	}

	sort.Slice(occurrences, func(i, j int) bool {
		if occurrences[i].Date.Equal(occurrences[j].Date) {
			return occurrences[i].StartTime < occurrences[j].StartTime
		}
		return occurrences[i].Date.Before(occurrences[j].Date)
	})

	return occurrences
}
