package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/attendance-tracker/internal/attendance"
	"github.com/example/attendance-tracker/internal/calendar"
	"github.com/example/attendance-tracker/internal/persistence"
)

// Materializer ensures occurrences exist ahead of a reference day. The
// schedule service satisfies it.
type Materializer interface {
	MaterializeAll(ctx context.Context, principal Principal, referenceToday time.Time, horizonWeeks int) (int, error)
}

// AttendanceService reads occurrences, records attendance and computes
// summaries.
type AttendanceService struct {
	subjects     persistence.SubjectRepository
	occurrences  persistence.OccurrenceRepository
	materializer Materializer
	policy       attendance.DenominatorPolicy
	now          func() time.Time
	logger       *slog.Logger
	cache        *summaryCache
}

// NewAttendanceService wires dependencies for attendance operations. A nil
// policy falls back to attendance.ConductedClasses.
func NewAttendanceService(subjects persistence.SubjectRepository, occurrences persistence.OccurrenceRepository, materializer Materializer, policy attendance.DenominatorPolicy, now func() time.Time, logger *slog.Logger) *AttendanceService {
	if policy == nil {
		policy = attendance.ConductedClasses
	}
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		subjects:     subjects,
		occurrences:  occurrences,
		materializer: materializer,
		policy:       policy,
		now:          now,
		logger:       defaultLogger(logger),
		cache:        newSummaryCache(30*time.Second, 256, now),
	}
}

// ListOccurrences returns occurrences within the inclusive [From, To]
// window, ordered by date then start time.
func (s *AttendanceService) ListOccurrences(ctx context.Context, params ListOccurrencesParams) ([]Occurrence, error) {
	if s == nil {
		return nil, fmt.Errorf("AttendanceService is nil")
	}

	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		vErr := &ValidationError{}
		vErr.add("to", "to must not be before from")
		return nil, vErr
	}

	records, err := s.occurrences.ListOccurrences(ctx, persistence.OccurrenceFilter{
		UserID:    params.Principal.UserID,
		SubjectID: params.SubjectID,
		From:      params.From,
		To:        params.To,
	})
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}

	occurrences := make([]Occurrence, 0, len(records))
	for _, record := range records {
		occurrences = append(occurrences, toOccurrenceView(record))
	}
	return occurrences, nil
}

// MarkOccurrence records attendance for one occurrence and returns the
// updated occurrence together with the fresh summary of its subject.
//
// Pending may move to any terminal state and terminal states may be
// corrected into each other, but nothing returns to pending. Re-marking the
// current status is a no-op. The first transition away from pending stamps
// MarkedAt; corrections keep the original stamp.
func (s *AttendanceService) MarkOccurrence(ctx context.Context, params MarkOccurrenceParams) (MarkResult, error) {
	if s == nil {
		return MarkResult{}, fmt.Errorf("AttendanceService is nil")
	}
	principal := params.Principal

	if !params.Status.Valid() {
		vErr := &ValidationError{}
		vErr.add("status", "status must be one of attended, missed, cancelled")
		return MarkResult{}, vErr
	}

	existing, err := s.occurrences.GetOccurrence(ctx, principal.UserID, params.OccurrenceID)
	if err != nil {
		return MarkResult{}, mapRepoError(err)
	}

	updated := existing
	if params.Status != existing.Status {
		if !attendance.CanTransition(existing.Status, params.Status) {
			vErr := &ValidationError{}
			vErr.add("status", "an occurrence cannot return to pending")
			return MarkResult{}, vErr
		}

		stamp := s.now()
		var markedAt *time.Time
		if existing.MarkedAt == nil {
			markedAt = &stamp
		}
		updated, err = s.occurrences.UpdateOccurrenceStatus(ctx, principal.UserID, existing.ID, params.Status, markedAt, stamp)
		if err != nil {
			return MarkResult{}, mapRepoError(err)
		}
		s.cache.InvalidateUser(principal.UserID)

		serviceLogger(ctx, s.logger, "attendance", "mark", "occurrence_id", existing.ID).Info(
			"attendance recorded", "from", string(existing.Status), "to", string(params.Status))
	}

	summary, err := s.subjectSummary(ctx, principal, updated.SubjectID, params.ReferenceToday)
	if err != nil {
		return MarkResult{}, err
	}

	return MarkResult{
		Occurrence: toOccurrenceView(updated),
		Summary:    summary,
	}, nil
}

// GetSummary aggregates attendance over occurrences dated on or before
// ReferenceToday, overall and per subject. SubjectID optionally restricts
// the report to one subject.
func (s *AttendanceService) GetSummary(ctx context.Context, params SummaryParams) (SummaryReport, error) {
	if s == nil {
		return SummaryReport{}, fmt.Errorf("AttendanceService is nil")
	}
	principal := params.Principal
	cutoff := calendar.ToStorageDate(params.ReferenceToday)

	cacheKey := buildSummaryCacheKey(principal, params.SubjectID, cutoff)
	if report, ok := s.cache.Get(cacheKey); ok {
		return report, nil
	}

	if params.SubjectID != "" {
		summary, err := s.subjectSummary(ctx, principal, params.SubjectID, params.ReferenceToday)
		if err != nil {
			return SummaryReport{}, err
		}
		report := SummaryReport{
			Overall:   summary.Summary,
			Indicator: summary.Indicator,
			Subjects:  []SubjectSummary{summary},
		}
		s.cache.Store(cacheKey, report)
		return report, nil
	}

	subjects, err := s.subjects.ListSubjects(ctx, principal.UserID)
	if err != nil {
		return SummaryReport{}, fmt.Errorf("list subjects: %w", err)
	}

	records, err := s.occurrences.ListOccurrences(ctx, persistence.OccurrenceFilter{
		UserID: principal.UserID,
		To:     &cutoff,
	})
	if err != nil {
		return SummaryReport{}, fmt.Errorf("list occurrences: %w", err)
	}

	statusesBySubject := make(map[string][]attendance.Status)
	var allStatuses []attendance.Status
	for _, record := range records {
		statusesBySubject[record.SubjectID] = append(statusesBySubject[record.SubjectID], record.Status)
		allStatuses = append(allStatuses, record.Status)
	}

	report := SummaryReport{
		Subjects: make([]SubjectSummary, 0, len(subjects)),
	}
	report.Overall = attendance.Summarize(allStatuses, s.policy)
	report.Indicator = attendance.Indicator(report.Overall.Percentage)
	for _, subject := range subjects {
		summary := attendance.Summarize(statusesBySubject[subject.ID], s.policy)
		report.Subjects = append(report.Subjects, SubjectSummary{
			SubjectID:   subject.ID,
			SubjectName: subject.Name,
			Summary:     summary,
			Indicator:   attendance.Indicator(summary.Percentage),
		})
	}
	s.cache.Store(cacheKey, report)
	return report, nil
}

// Today lists today's classes ordered by start time, each paired with its
// subject summary. Before reading, materialization is re-run for a one week
// horizon so a rule created or reshaped elsewhere still shows today's
// classes.
func (s *AttendanceService) Today(ctx context.Context, params TodayParams) (TodayView, error) {
	if s == nil {
		return TodayView{}, fmt.Errorf("AttendanceService is nil")
	}
	principal := params.Principal
	today := calendar.ToStorageDate(params.ReferenceToday)

	if s.materializer != nil {
		if _, err := s.materializer.MaterializeAll(ctx, principal, today, 1); err != nil {
			return TodayView{}, fmt.Errorf("ensure upcoming occurrences: %w", err)
		}
	}

	records, err := s.occurrences.ListOccurrences(ctx, persistence.OccurrenceFilter{
		UserID: principal.UserID,
		From:   &today,
		To:     &today,
	})
	if err != nil {
		return TodayView{}, fmt.Errorf("list occurrences: %w", err)
	}

	view := TodayView{Date: calendar.FormatDate(today)}
	summaries := make(map[string]SubjectSummary)
	for _, record := range records {
		summary, ok := summaries[record.SubjectID]
		if !ok {
			summary, err = s.subjectSummary(ctx, principal, record.SubjectID, today)
			if err != nil {
				return TodayView{}, err
			}
			summaries[record.SubjectID] = summary
		}
		view.Items = append(view.Items, TodayItem{
			Occurrence: toOccurrenceView(record),
			Summary:    summary,
		})
	}
	return view, nil
}

func (s *AttendanceService) subjectSummary(ctx context.Context, principal Principal, subjectID string, referenceToday time.Time) (SubjectSummary, error) {
	subject, err := s.subjects.GetSubject(ctx, principal.UserID, subjectID)
	if err != nil {
		return SubjectSummary{}, mapRepoError(err)
	}

	cutoff := calendar.ToStorageDate(referenceToday)
	records, err := s.occurrences.ListOccurrences(ctx, persistence.OccurrenceFilter{
		UserID:    principal.UserID,
		SubjectID: subjectID,
		To:        &cutoff,
	})
	if err != nil {
		return SubjectSummary{}, fmt.Errorf("list occurrences: %w", err)
	}

	statuses := make([]attendance.Status, 0, len(records))
	for _, record := range records {
		statuses = append(statuses, record.Status)
	}
	summary := attendance.Summarize(statuses, s.policy)

	return SubjectSummary{
		SubjectID:   subject.ID,
		SubjectName: subject.Name,
		Summary:     summary,
		Indicator:   attendance.Indicator(summary.Percentage),
	}, nil
}

func toOccurrenceView(record persistence.ClassOccurrence) Occurrence {
	return Occurrence{
		ID:        record.ID,
		SubjectID: record.SubjectID,
		RuleID:    record.RuleID,
		Date:      calendar.FormatDate(record.Date),
		StartTime: record.StartTime,
		EndTime:   record.EndTime,
		Status:    record.Status,
		MarkedAt:  record.MarkedAt,
	}
}
