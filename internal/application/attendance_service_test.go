package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/attendance-tracker/internal/attendance"
	"github.com/example/attendance-tracker/internal/persistence"
)

type materializerStub struct {
	calls   int
	horizon int
	err     error
}

func (m *materializerStub) MaterializeAll(_ context.Context, _ Principal, _ time.Time, horizonWeeks int) (int, error) {
	m.calls++
	m.horizon = horizonWeeks
	return 0, m.err
}

func newAttendanceFixture(t *testing.T) (*AttendanceService, *storeStub) {
	t.Helper()

	store := newStoreStub()
	store.subjects["subject-1"] = persistence.Subject{
		ID: "subject-1", UserID: "user-1", Name: "Physics", Color: "#ff6600",
	}
	svc := NewAttendanceService(store, store, nil, nil, fixedClock, nil)
	return svc, store
}

func seedOccurrence(store *storeStub, id, date, start string, status attendance.Status) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	store.occurrences[id] = persistence.ClassOccurrence{
		ID: id, UserID: "user-1", SubjectID: "subject-1", RuleID: "rule-1",
		Date: day.UTC(), StartTime: start, EndTime: "23:59", Status: status,
	}
}

func TestAttendanceService_MarkOccurrence(t *testing.T) {
	t.Parallel()

	svc, store := newAttendanceFixture(t)
	seedOccurrence(store, "occ-1", "2025-09-01", "09:00", attendance.StatusPending)

	result, err := svc.MarkOccurrence(context.Background(), MarkOccurrenceParams{
		Principal:      Principal{UserID: "user-1"},
		OccurrenceID:   "occ-1",
		Status:         attendance.StatusAttended,
		ReferenceToday: refMonday,
	})
	if err != nil {
		t.Fatalf("MarkOccurrence failed: %v", err)
	}
	if result.Occurrence.Status != attendance.StatusAttended {
		t.Fatalf("expected attended, got %q", result.Occurrence.Status)
	}
	if result.Occurrence.MarkedAt == nil || !result.Occurrence.MarkedAt.Equal(testNow) {
		t.Fatalf("expected marked_at from injected clock, got %v", result.Occurrence.MarkedAt)
	}
	if result.Summary.SubjectID != "subject-1" || result.Summary.SubjectName != "Physics" {
		t.Fatalf("unexpected summary subject: %#v", result.Summary)
	}
	if result.Summary.Summary.Attended != 1 || result.Summary.Summary.Percentage != 100 {
		t.Fatalf("unexpected summary: %#v", result.Summary.Summary)
	}
	if result.Summary.Indicator != "green" {
		t.Fatalf("expected green indicator, got %q", result.Summary.Indicator)
	}
}

func TestAttendanceService_MarkOccurrence_CorrectionKeepsStamp(t *testing.T) {
	t.Parallel()

	svc, store := newAttendanceFixture(t)
	earlier := testNow.Add(-48 * time.Hour)
	seedOccurrence(store, "occ-1", "2025-09-01", "09:00", attendance.StatusAttended)
	occ := store.occurrences["occ-1"]
	occ.MarkedAt = &earlier
	store.occurrences["occ-1"] = occ

	result, err := svc.MarkOccurrence(context.Background(), MarkOccurrenceParams{
		Principal:      Principal{UserID: "user-1"},
		OccurrenceID:   "occ-1",
		Status:         attendance.StatusMissed,
		ReferenceToday: refMonday,
	})
	if err != nil {
		t.Fatalf("MarkOccurrence failed: %v", err)
	}
	if result.Occurrence.Status != attendance.StatusMissed {
		t.Fatalf("expected missed, got %q", result.Occurrence.Status)
	}
	if result.Occurrence.MarkedAt == nil || !result.Occurrence.MarkedAt.Equal(earlier) {
		t.Fatalf("correction must keep the original stamp, got %v", result.Occurrence.MarkedAt)
	}
}

func TestAttendanceService_MarkOccurrence_SameStatusIsNoOp(t *testing.T) {
	t.Parallel()

	svc, store := newAttendanceFixture(t)
	seedOccurrence(store, "occ-1", "2025-09-01", "09:00", attendance.StatusAttended)

	result, err := svc.MarkOccurrence(context.Background(), MarkOccurrenceParams{
		Principal:      Principal{UserID: "user-1"},
		OccurrenceID:   "occ-1",
		Status:         attendance.StatusAttended,
		ReferenceToday: refMonday,
	})
	if err != nil {
		t.Fatalf("MarkOccurrence failed: %v", err)
	}
	if result.Occurrence.Status != attendance.StatusAttended {
		t.Fatalf("unexpected status %q", result.Occurrence.Status)
	}
	// No stamp is invented for a no-op.
	if result.Occurrence.MarkedAt != nil {
		t.Fatalf("no-op must not stamp marked_at, got %v", result.Occurrence.MarkedAt)
	}
}

func TestAttendanceService_MarkOccurrence_RejectsBackToPending(t *testing.T) {
	t.Parallel()

	svc, store := newAttendanceFixture(t)
	seedOccurrence(store, "occ-1", "2025-09-01", "09:00", attendance.StatusAttended)

	_, err := svc.MarkOccurrence(context.Background(), MarkOccurrenceParams{
		Principal:      Principal{UserID: "user-1"},
		OccurrenceID:   "occ-1",
		Status:         attendance.StatusPending,
		ReferenceToday: refMonday,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAttendanceService_MarkOccurrence_InvalidStatus(t *testing.T) {
	t.Parallel()

	svc, store := newAttendanceFixture(t)
	seedOccurrence(store, "occ-1", "2025-09-01", "09:00", attendance.StatusPending)

	_, err := svc.MarkOccurrence(context.Background(), MarkOccurrenceParams{
		Principal:      Principal{UserID: "user-1"},
		OccurrenceID:   "occ-1",
		Status:         attendance.Status("done"),
		ReferenceToday: refMonday,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAttendanceService_MarkOccurrence_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newAttendanceFixture(t)
	_, err := svc.MarkOccurrence(context.Background(), MarkOccurrenceParams{
		Principal:      Principal{UserID: "user-1"},
		OccurrenceID:   "missing",
		Status:         attendance.StatusAttended,
		ReferenceToday: refMonday,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAttendanceService_ListOccurrences_WindowValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newAttendanceFixture(t)
	from := refMonday
	to := refMonday.AddDate(0, 0, -7)

	_, err := svc.ListOccurrences(context.Background(), ListOccurrencesParams{
		Principal: Principal{UserID: "user-1"},
		From:      &from,
		To:        &to,
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAttendanceService_GetSummary_CutoffExcludesFuture(t *testing.T) {
	t.Parallel()

	svc, store := newAttendanceFixture(t)
	seedOccurrence(store, "occ-1", "2025-08-25", "09:00", attendance.StatusAttended)
	seedOccurrence(store, "occ-2", "2025-08-27", "09:00", attendance.StatusMissed)
	seedOccurrence(store, "occ-3", "2025-09-01", "09:00", attendance.StatusAttended)
	// Future occurrences do not count, whatever their status.
	seedOccurrence(store, "occ-4", "2025-09-03", "09:00", attendance.StatusPending)
	seedOccurrence(store, "occ-5", "2025-09-05", "09:00", attendance.StatusAttended)

	report, err := svc.GetSummary(context.Background(), SummaryParams{
		Principal:      Principal{UserID: "user-1"},
		ReferenceToday: refMonday,
	})
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if report.Overall.Total != 3 {
		t.Fatalf("expected 3 considered occurrences, got %d", report.Overall.Total)
	}
	if report.Overall.Percentage != 67 {
		t.Fatalf("expected 67%%, got %d", report.Overall.Percentage)
	}
	if report.Indicator != "yellow" {
		t.Fatalf("expected yellow, got %q", report.Indicator)
	}
	if len(report.Subjects) != 1 || report.Subjects[0].SubjectName != "Physics" {
		t.Fatalf("unexpected subject breakdown: %#v", report.Subjects)
	}
}

func TestAttendanceService_GetSummary_SingleSubject(t *testing.T) {
	t.Parallel()

	svc, store := newAttendanceFixture(t)
	seedOccurrence(store, "occ-1", "2025-08-25", "09:00", attendance.StatusAttended)

	report, err := svc.GetSummary(context.Background(), SummaryParams{
		Principal:      Principal{UserID: "user-1"},
		SubjectID:      "subject-1",
		ReferenceToday: refMonday,
	})
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if len(report.Subjects) != 1 || report.Subjects[0].SubjectID != "subject-1" {
		t.Fatalf("unexpected report: %#v", report)
	}

	_, err = svc.GetSummary(context.Background(), SummaryParams{
		Principal:      Principal{UserID: "user-1"},
		SubjectID:      "missing",
		ReferenceToday: refMonday,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown subject, got %v", err)
	}
}

func TestAttendanceService_GetSummary_ScheduledPolicy(t *testing.T) {
	t.Parallel()

	store := newStoreStub()
	store.subjects["subject-1"] = persistence.Subject{ID: "subject-1", UserID: "user-1", Name: "Physics"}
	svc := NewAttendanceService(store, store, nil, attendance.ScheduledClasses, fixedClock, nil)

	seedOccurrence(store, "occ-1", "2025-08-25", "09:00", attendance.StatusAttended)
	seedOccurrence(store, "occ-2", "2025-08-27", "09:00", attendance.StatusPending)

	report, err := svc.GetSummary(context.Background(), SummaryParams{
		Principal:      Principal{UserID: "user-1"},
		ReferenceToday: refMonday,
	})
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	// Pending counts in the base under the scheduled-classes policy.
	if report.Overall.Percentage != 50 {
		t.Fatalf("expected 50%%, got %d", report.Overall.Percentage)
	}
}

func TestAttendanceService_Today(t *testing.T) {
	t.Parallel()

	store := newStoreStub()
	store.subjects["subject-1"] = persistence.Subject{ID: "subject-1", UserID: "user-1", Name: "Physics"}
	materializer := &materializerStub{}
	svc := NewAttendanceService(store, store, materializer, nil, fixedClock, nil)

	seedOccurrence(store, "occ-pm", "2025-09-01", "18:00", attendance.StatusPending)
	seedOccurrence(store, "occ-am", "2025-09-01", "09:00", attendance.StatusPending)
	seedOccurrence(store, "occ-other-day", "2025-09-02", "09:00", attendance.StatusPending)

	view, err := svc.Today(context.Background(), TodayParams{
		Principal:      Principal{UserID: "user-1"},
		ReferenceToday: refMonday,
	})
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}

	if materializer.calls != 1 || materializer.horizon != 1 {
		t.Fatalf("expected a one week materialization pass, got calls=%d horizon=%d",
			materializer.calls, materializer.horizon)
	}
	if view.Date != "2025-09-01" {
		t.Fatalf("unexpected date %q", view.Date)
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(view.Items))
	}
	if view.Items[0].Occurrence.StartTime != "09:00" || view.Items[1].Occurrence.StartTime != "18:00" {
		t.Fatalf("items not ordered by start time: %#v", view.Items)
	}
	if view.Items[0].Summary.SubjectName != "Physics" {
		t.Fatalf("expected subject summary attached, got %#v", view.Items[0].Summary)
	}
}
