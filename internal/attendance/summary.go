// Package attendance defines occurrence statuses and the pure aggregation
// used to compute attendance percentages.
package attendance

import "math"

// Status is the lifecycle state of a class occurrence.
type Status string

const (
	// StatusPending marks an occurrence whose outcome is not yet recorded.
	StatusPending Status = "pending"
	// StatusAttended marks an occurrence the student attended.
	StatusAttended Status = "attended"
	// StatusMissed marks an occurrence the student missed.
	StatusMissed Status = "missed"
	// StatusCancelled marks an occurrence whose class did not take place.
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAttended, StatusMissed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Marked reports whether the status has left the initial pending state.
// Marked occurrences are immune to deletion by reconciliation.
func (s Status) Marked() bool {
	return s.Valid() && s != StatusPending
}

// CanTransition reports whether an occurrence may move from one status to
// another. Pending may move to any terminal state, terminal states may move
// between each other, and nothing returns to pending.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == StatusPending {
		return false
	}
	return from != to
}

// Summary aggregates occurrence counts per status together with the derived
// attendance percentage.
type Summary struct {
	Total      int `json:"total"`
	Attended   int `json:"attended"`
	Missed     int `json:"missed"`
	Cancelled  int `json:"cancelled"`
	Pending    int `json:"pending"`
	Percentage int `json:"percentage"`
}

// DenominatorPolicy selects which occurrences count as the base of the
// attendance percentage. The policy is configurable because the product has
// shipped with divergent definitions over time.
type DenominatorPolicy func(Summary) int

// ConductedClasses counts only occurrences whose outcome is known and whose
// class actually took place: total minus cancelled minus pending. This is
// the default policy.
func ConductedClasses(s Summary) int {
	return s.Total - s.Cancelled - s.Pending
}

// ScheduledClasses counts every non-cancelled occurrence, pending included.
// An earlier product variant used this denominator.
func ScheduledClasses(s Summary) int {
	return s.Total - s.Cancelled
}

// Summarize tallies statuses and computes the percentage under the supplied
// policy. A nil policy falls back to ConductedClasses. The percentage is 0
// when the denominator is not positive.
func Summarize(statuses []Status, policy DenominatorPolicy) Summary {
	if policy == nil {
		policy = ConductedClasses
	}

	var summary Summary
	for _, status := range statuses {
		if !status.Valid() {
			continue
		}
		summary.Total++
		switch status {
		case StatusAttended:
			summary.Attended++
		case StatusMissed:
			summary.Missed++
		case StatusCancelled:
			summary.Cancelled++
		case StatusPending:
			summary.Pending++
		}
	}

	denominator := policy(summary)
	if denominator > 0 {
		summary.Percentage = int(math.Round(float64(summary.Attended) / float64(denominator) * 100))
	}

	return summary
}

// Indicator buckets a percentage into the dashboard traffic-light colors:
// green at 75 or above, yellow at 65 or above, red below.
func Indicator(percentage int) string {
	switch {
	case percentage >= 75:
		return "green"
	case percentage >= 65:
		return "yellow"
	default:
		return "red"
	}
}
