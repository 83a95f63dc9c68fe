package recurrence

import (
	"testing"
	"time"

	"github.com/example/attendance-tracker/internal/calendar"
)

// monday2025 is a known Monday used as the civil anchor for expansion tests.
var monday2025 = time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

func TestExpand(t *testing.T) {
	t.Parallel()

	rule := Rule{
		ID:        "rule-1",
		UserID:    "user-1",
		SubjectID: "subject-1",
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		StartTime: "09:00",
		EndTime:   "10:30",
	}

	t.Run("three weekdays over four weeks yield twelve occurrences", func(t *testing.T) {
		t.Parallel()

		occurrences := Expand(rule, 4, monday2025)
		if len(occurrences) != 12 {
			t.Fatalf("expected 12 occurrences, got %d", len(occurrences))
		}
		for i, occ := range occurrences {
			if occ.UserID != rule.UserID || occ.SubjectID != rule.SubjectID || occ.RuleID != rule.ID {
				t.Fatalf("occurrence %d lost rule identity: %#v", i, occ)
			}
			if occ.StartTime != "09:00" || occ.EndTime != "10:30" {
				t.Fatalf("occurrence %d carries wrong times: %#v", i, occ)
			}
			if i > 0 && !occurrences[i-1].Date.Before(occ.Date) {
				t.Fatalf("occurrences not strictly increasing at index %d: %s then %s",
					i, calendar.FormatDate(occurrences[i-1].Date), calendar.FormatDate(occ.Date))
			}
		}
		if got := calendar.FormatDate(occurrences[0].Date); got != "2025-09-01" {
			t.Fatalf("first occurrence: expected 2025-09-01, got %s", got)
		}
		if got := calendar.FormatDate(occurrences[len(occurrences)-1].Date); got != "2025-09-26" {
			t.Fatalf("last occurrence: expected 2025-09-26, got %s", got)
		}
	})

	t.Run("reference day counts when its weekday matches", func(t *testing.T) {
		t.Parallel()

		wednesday := monday2025.AddDate(0, 0, 2)
		occurrences := Expand(Rule{
			Weekdays:  []time.Weekday{time.Wednesday},
			StartTime: "09:00",
			EndTime:   "10:00",
		}, 1, wednesday)

		if len(occurrences) != 1 {
			t.Fatalf("expected 1 occurrence, got %d", len(occurrences))
		}
		if got := calendar.FormatDate(occurrences[0].Date); got != "2025-09-03" {
			t.Fatalf("expected same-day first occurrence, got %s", got)
		}
	})

	t.Run("horizon end is exclusive", func(t *testing.T) {
		t.Parallel()

		// A weekday matching the anchor must yield exactly horizonWeeks
		// occurrences, never an extra one on day horizonWeeks*7.
		occurrences := Expand(Rule{
			Weekdays:  []time.Weekday{time.Monday},
			StartTime: "09:00",
			EndTime:   "10:00",
		}, 4, monday2025)

		if len(occurrences) != 4 {
			t.Fatalf("expected 4 occurrences, got %d", len(occurrences))
		}
		if got := calendar.FormatDate(occurrences[len(occurrences)-1].Date); got != "2025-09-22" {
			t.Fatalf("last occurrence: expected 2025-09-22, got %s", got)
		}
	})

	t.Run("target weekday before reference rolls into next week", func(t *testing.T) {
		t.Parallel()

		wednesday := monday2025.AddDate(0, 0, 2)
		occurrences := Expand(Rule{
			Weekdays:  []time.Weekday{time.Monday},
			StartTime: "09:00",
			EndTime:   "10:00",
		}, 1, wednesday)

		if len(occurrences) != 1 {
			t.Fatalf("expected 1 occurrence, got %d", len(occurrences))
		}
		if got := calendar.FormatDate(occurrences[0].Date); got != "2025-09-08" {
			t.Fatalf("expected next Monday 2025-09-08, got %s", got)
		}
	})

	t.Run("duplicate weekday entries collapse", func(t *testing.T) {
		t.Parallel()

		occurrences := Expand(Rule{
			Weekdays:  []time.Weekday{time.Monday, time.Monday, time.Monday},
			StartTime: "09:00",
			EndTime:   "10:00",
		}, 2, monday2025)

		if len(occurrences) != 2 {
			t.Fatalf("expected 2 occurrences, got %d", len(occurrences))
		}
	})

	t.Run("ordering breaks date ties by start time", func(t *testing.T) {
		t.Parallel()

		morning := Expand(Rule{
			ID:        "slot-am",
			Weekdays:  []time.Weekday{time.Monday},
			StartTime: "09:00",
			EndTime:   "10:00",
		}, 1, monday2025)
		evening := Expand(Rule{
			ID:        "slot-pm",
			Weekdays:  []time.Weekday{time.Monday},
			StartTime: "18:00",
			EndTime:   "19:00",
		}, 1, monday2025)

		if morning[0].Key() == evening[0].Key() {
			t.Fatalf("distinct slots on the same day must have distinct keys: %s", morning[0].Key())
		}
	})

	t.Run("empty weekday set yields nothing", func(t *testing.T) {
		t.Parallel()

		if got := Expand(Rule{StartTime: "09:00", EndTime: "10:00"}, 4, monday2025); got != nil {
			t.Fatalf("expected nil, got %#v", got)
		}
	})

	t.Run("non-positive horizon yields nothing", func(t *testing.T) {
		t.Parallel()

		for _, weeks := range []int{0, -1} {
			if got := Expand(rule, weeks, monday2025); got != nil {
				t.Fatalf("horizon %d: expected nil, got %#v", weeks, got)
			}
		}
	})

	t.Run("reference timestamp is normalized to its civil day", func(t *testing.T) {
		t.Parallel()

		lateEvening := time.Date(2025, time.September, 1, 23, 45, 0, 0, time.FixedZone("JST", 9*60*60))
		occurrences := Expand(rule, 1, lateEvening)
		if len(occurrences) == 0 {
			t.Fatal("expected occurrences")
		}
		if got := calendar.FormatDate(occurrences[0].Date); got != "2025-09-01" {
			t.Fatalf("expected civil day 2025-09-01, got %s", got)
		}
		if loc := occurrences[0].Date.Location(); loc != time.UTC {
			t.Fatalf("expected UTC day marker, got %v", loc)
		}
	})
}

func TestOccurrenceKey(t *testing.T) {
	t.Parallel()

	occ := Occurrence{Date: monday2025, StartTime: "07:30"}
	if got := occ.Key(); got != "2025-09-01@07:30" {
		t.Fatalf("unexpected key %q", got)
	}
}
