package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/attendance-tracker/internal/attendance"
	"github.com/example/attendance-tracker/internal/calendar"
	"github.com/example/attendance-tracker/internal/persistence"
	"github.com/example/attendance-tracker/internal/recurrence"
)

// DefaultHorizonWeeks is how far ahead occurrences are materialized when the
// caller does not choose a horizon.
const DefaultHorizonWeeks = 4

// ScheduleService orchestrates time-slot rules and occurrence
// materialization.
type ScheduleService struct {
	subjects     persistence.SubjectRepository
	rules        persistence.RuleRepository
	occurrences  persistence.OccurrenceRepository
	horizonWeeks int
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewScheduleService wires dependencies for schedule operations.
// horizonWeeks falls back to DefaultHorizonWeeks when non-positive.
func NewScheduleService(subjects persistence.SubjectRepository, rules persistence.RuleRepository, occurrences persistence.OccurrenceRepository, horizonWeeks int, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if horizonWeeks <= 0 {
		horizonWeeks = DefaultHorizonWeeks
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		subjects:     subjects,
		rules:        rules,
		occurrences:  occurrences,
		horizonWeeks: horizonWeeks,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// CreateOrUpdateSchedule creates a new time-slot for a subject, or reshapes
// an existing one when Input.RuleID is set.
//
// Reshaping reconciles materialized state: pending occurrences of the old
// shape dated on or after ReferenceToday are deleted first, then the new
// shape is persisted and re-materialized. Occurrences that have been marked
// are never touched, and past pending occurrences are left for the user to
// resolve. The steps are not atomic; a failure between them leaves a state
// that the next successful call repairs, because materialization is
// idempotent.
func (s *ScheduleService) CreateOrUpdateSchedule(ctx context.Context, params CreateOrUpdateScheduleParams) (ScheduleResult, error) {
	if s == nil {
		return ScheduleResult{}, fmt.Errorf("ScheduleService is nil")
	}
	principal := params.Principal
	input := params.Input

	weekdays, vErr := validateScheduleShape(input)
	if vErr.HasErrors() {
		return ScheduleResult{}, vErr
	}

	if input.RuleID != "" {
		return s.reshapeRule(ctx, principal, input, weekdays, params.ReferenceToday)
	}

	if input.SubjectID == "" {
		vErr := &ValidationError{}
		vErr.add("subject_id", "subject_id is required")
		return ScheduleResult{}, vErr
	}
	if _, err := s.subjects.GetSubject(ctx, principal.UserID, input.SubjectID); err != nil {
		return ScheduleResult{}, mapRepoError(err)
	}

	createdAt := s.now()
	rule := persistence.ScheduleRule{
		ID:        s.idGenerator(),
		UserID:    principal.UserID,
		SubjectID: input.SubjectID,
		Weekdays:  weekdays,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := s.rules.CreateRule(ctx, rule); err != nil {
		return ScheduleResult{}, mapRepoError(err)
	}

	created, err := s.materializeRule(ctx, rule, s.horizonWeeks, params.ReferenceToday)
	if err != nil {
		return ScheduleResult{}, err
	}

	serviceLogger(ctx, s.logger, "schedule", "create", "rule_id", rule.ID).Info(
		"time-slot created", "created_occurrences", created)

	return ScheduleResult{
		Rule:           toRuleView(rule),
		Reconciliation: ReconcileResult{CreatedCount: created},
	}, nil
}

func (s *ScheduleService) reshapeRule(ctx context.Context, principal Principal, input ScheduleInput, weekdays []time.Weekday, referenceToday time.Time) (ScheduleResult, error) {
	rule, err := s.rules.GetRule(ctx, principal.UserID, input.RuleID)
	if err != nil {
		return ScheduleResult{}, mapRepoError(err)
	}
	if input.SubjectID != "" && input.SubjectID != rule.SubjectID {
		vErr := &ValidationError{}
		vErr.add("subject_id", "a time-slot cannot move to another subject")
		return ScheduleResult{}, vErr
	}

	deleted, err := s.occurrences.DeletePendingFromDate(ctx, principal.UserID, rule.ID, referenceToday)
	if err != nil {
		return ScheduleResult{}, mapRepoError(err)
	}

	rule.Weekdays = weekdays
	rule.StartTime = input.StartTime
	rule.EndTime = input.EndTime
	rule.UpdatedAt = s.now()
	if err := s.rules.UpdateRule(ctx, rule); err != nil {
		return ScheduleResult{}, mapRepoError(err)
	}

	created, err := s.materializeRule(ctx, rule, s.horizonWeeks, referenceToday)
	if err != nil {
		return ScheduleResult{}, err
	}

	serviceLogger(ctx, s.logger, "schedule", "reshape", "rule_id", rule.ID).Info(
		"time-slot reshaped", "deleted_occurrences", deleted, "created_occurrences", created)

	return ScheduleResult{
		Rule:           toRuleView(rule),
		Reconciliation: ReconcileResult{DeletedCount: deleted, CreatedCount: created},
	}, nil
}

// ListSchedules returns the user's time-slots ordered by creation time.
func (s *ScheduleService) ListSchedules(ctx context.Context, principal Principal) ([]ScheduleRule, error) {
	if s == nil {
		return nil, fmt.Errorf("ScheduleService is nil")
	}

	records, err := s.rules.ListRules(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	rules := make([]ScheduleRule, 0, len(records))
	for _, record := range records {
		rules = append(rules, toRuleView(record))
	}
	return rules, nil
}

// DeleteSchedule removes a time-slot. Future pending occurrences of the
// slot are deleted and their count returned; marked and past occurrences
// stay as history.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, params DeleteScheduleParams) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("ScheduleService is nil")
	}

	rule, err := s.rules.GetRule(ctx, params.Principal.UserID, params.RuleID)
	if err != nil {
		return 0, mapRepoError(err)
	}

	deleted, err := s.occurrences.DeletePendingFromDate(ctx, params.Principal.UserID, rule.ID, params.ReferenceToday)
	if err != nil {
		return 0, mapRepoError(err)
	}
	if err := s.rules.DeleteRule(ctx, params.Principal.UserID, rule.ID); err != nil {
		return 0, mapRepoError(err)
	}

	serviceLogger(ctx, s.logger, "schedule", "delete", "rule_id", rule.ID).Info(
		"time-slot deleted", "deleted_occurrences", deleted)
	return deleted, nil
}

// RegenerateAll re-materializes every rule of the acting user with the
// default horizon and returns the number of occurrences created. Existing
// rows absorb repeated runs, so the operation is idempotent.
func (s *ScheduleService) RegenerateAll(ctx context.Context, params RegenerateParams) (int, error) {
	return s.MaterializeAll(ctx, params.Principal, params.ReferenceToday, s.horizonWeeks)
}

// MaterializeAll expands every rule of the user over the given horizon and
// persists the missing occurrences.
func (s *ScheduleService) MaterializeAll(ctx context.Context, principal Principal, referenceToday time.Time, horizonWeeks int) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("ScheduleService is nil")
	}

	records, err := s.rules.ListRules(ctx, principal.UserID)
	if err != nil {
		return 0, fmt.Errorf("list rules: %w", err)
	}

	total := 0
	for _, rule := range records {
		created, err := s.materializeRule(ctx, rule, horizonWeeks, referenceToday)
		if err != nil {
			return total, err
		}
		total += created
	}
	return total, nil
}

// materializeRule expands the rule from referenceToday over the horizon and
// inserts the occurrences that do not exist yet. Candidates already present
// are filtered out up front; rows racing in between are absorbed by the
// store's unique index, so concurrent materializations stay safe without
// locks.
func (s *ScheduleService) materializeRule(ctx context.Context, rule persistence.ScheduleRule, horizonWeeks int, referenceToday time.Time) (int, error) {
	candidates := recurrence.Expand(recurrence.Rule{
		ID:        rule.ID,
		UserID:    rule.UserID,
		SubjectID: rule.SubjectID,
		Weekdays:  rule.Weekdays,
		StartTime: rule.StartTime,
		EndTime:   rule.EndTime,
	}, horizonWeeks, referenceToday)
	if len(candidates) == 0 {
		return 0, nil
	}

	from := calendar.ToStorageDate(referenceToday)
	to := from.AddDate(0, 0, horizonWeeks*7)
	existing, err := s.occurrences.ListOccurrences(ctx, persistence.OccurrenceFilter{
		UserID:    rule.UserID,
		SubjectID: rule.SubjectID,
		From:      &from,
		To:        &to,
	})
	if err != nil {
		return 0, fmt.Errorf("list existing occurrences: %w", err)
	}

	taken := make(map[string]struct{}, len(existing))
	for _, occ := range existing {
		taken[calendar.FormatDate(occ.Date)+"@"+occ.StartTime] = struct{}{}
	}

	now := s.now()
	batch := make([]persistence.ClassOccurrence, 0, len(candidates))
	for _, candidate := range candidates {
		if _, ok := taken[candidate.Key()]; ok {
			continue
		}
		batch = append(batch, persistence.ClassOccurrence{
			ID:        s.idGenerator(),
			UserID:    candidate.UserID,
			SubjectID: candidate.SubjectID,
			RuleID:    candidate.RuleID,
			Date:      candidate.Date,
			StartTime: candidate.StartTime,
			EndTime:   candidate.EndTime,
			Status:    attendance.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if len(batch) == 0 {
		return 0, nil
	}

	created, err := s.occurrences.InsertOccurrences(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("insert occurrences: %w", err)
	}
	if created < len(batch) {
		serviceLogger(ctx, s.logger, "schedule", "materialize", "rule_id", rule.ID).Debug(
			"skipped occurrences taken by a concurrent run",
			"requested", len(batch), "created", created)
	}
	return created, nil
}

// validateScheduleShape checks the weekday tags and the HH:MM time pair.
func validateScheduleShape(input ScheduleInput) ([]time.Weekday, *ValidationError) {
	vErr := &ValidationError{}

	var weekdays []time.Weekday
	if len(input.Weekdays) == 0 {
		vErr.add("weekdays", "at least one weekday is required")
	} else {
		seen := make(map[time.Weekday]struct{}, len(input.Weekdays))
		for _, tag := range input.Weekdays {
			day, err := calendar.ParseWeekday(tag)
			if err != nil {
				vErr.add("weekdays", fmt.Sprintf("unknown weekday %q", tag))
				break
			}
			if _, ok := seen[day]; ok {
				continue
			}
			seen[day] = struct{}{}
			weekdays = append(weekdays, day)
		}
	}

	startMinutes, err := calendar.ParseClockTime(input.StartTime)
	if err != nil {
		vErr.add("start_time", "start_time must be HH:MM")
	}
	endMinutes, err := calendar.ParseClockTime(input.EndTime)
	if err != nil {
		vErr.add("end_time", "end_time must be HH:MM")
	} else if startMinutes >= endMinutes {
		vErr.add("end_time", "end_time must be after start_time")
	}

	return weekdays, vErr
}

func toRuleView(rule persistence.ScheduleRule) ScheduleRule {
	tags := make([]string, 0, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		tags = append(tags, calendar.WeekdayTag(day))
	}
	return ScheduleRule{
		ID:        rule.ID,
		SubjectID: rule.SubjectID,
		Weekdays:  tags,
		StartTime: rule.StartTime,
		EndTime:   rule.EndTime,
		CreatedAt: rule.CreatedAt,
		UpdatedAt: rule.UpdatedAt,
	}
}

// mapRepoError translates persistence sentinels to application errors.
// Foreign key failures surface as not-found: the referenced record
// disappeared between validation and the write.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound),
		errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	default:
		return err
	}
}
