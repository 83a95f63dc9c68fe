package application

import (
	"context"
	"sort"
	"time"

	"github.com/example/attendance-tracker/internal/attendance"
	"github.com/example/attendance-tracker/internal/calendar"
	"github.com/example/attendance-tracker/internal/persistence"
)

// storeStub is an in-memory implementation of the persistence repositories
// used by the service tests. It mirrors the store's ordering and the
// conflict-absorbing insert semantics.
type storeStub struct {
	subjects    map[string]persistence.Subject
	rules       map[string]persistence.ScheduleRule
	occurrences map[string]persistence.ClassOccurrence

	insertErr error
	listErr   error
}

func newStoreStub() *storeStub {
	return &storeStub{
		subjects:    make(map[string]persistence.Subject),
		rules:       make(map[string]persistence.ScheduleRule),
		occurrences: make(map[string]persistence.ClassOccurrence),
	}
}

func (s *storeStub) CreateSubject(_ context.Context, subject persistence.Subject) error {
	for _, existing := range s.subjects {
		if existing.UserID == subject.UserID && existing.Name == subject.Name {
			return persistence.ErrDuplicate
		}
	}
	s.subjects[subject.ID] = subject
	return nil
}

func (s *storeStub) GetSubject(_ context.Context, userID, id string) (persistence.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok || subject.UserID != userID {
		return persistence.Subject{}, persistence.ErrNotFound
	}
	return subject, nil
}

func (s *storeStub) ListSubjects(_ context.Context, userID string) ([]persistence.Subject, error) {
	var subjects []persistence.Subject
	for _, subject := range s.subjects {
		if subject.UserID == userID {
			subjects = append(subjects, subject)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (s *storeStub) DeleteSubject(_ context.Context, userID, id string) error {
	subject, ok := s.subjects[id]
	if !ok || subject.UserID != userID {
		return persistence.ErrNotFound
	}
	delete(s.subjects, id)
	for ruleID, rule := range s.rules {
		if rule.SubjectID == id {
			delete(s.rules, ruleID)
		}
	}
	for occID, occ := range s.occurrences {
		if occ.SubjectID == id {
			delete(s.occurrences, occID)
		}
	}
	return nil
}

func (s *storeStub) CreateRule(_ context.Context, rule persistence.ScheduleRule) error {
	if _, ok := s.subjects[rule.SubjectID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	s.rules[rule.ID] = rule
	return nil
}

func (s *storeStub) UpdateRule(_ context.Context, rule persistence.ScheduleRule) error {
	existing, ok := s.rules[rule.ID]
	if !ok || existing.UserID != rule.UserID {
		return persistence.ErrNotFound
	}
	rule.SubjectID = existing.SubjectID
	rule.CreatedAt = existing.CreatedAt
	s.rules[rule.ID] = rule
	return nil
}

func (s *storeStub) GetRule(_ context.Context, userID, id string) (persistence.ScheduleRule, error) {
	rule, ok := s.rules[id]
	if !ok || rule.UserID != userID {
		return persistence.ScheduleRule{}, persistence.ErrNotFound
	}
	return rule, nil
}

func (s *storeStub) ListRules(_ context.Context, userID string) ([]persistence.ScheduleRule, error) {
	var rules []persistence.ScheduleRule
	for _, rule := range s.rules {
		if rule.UserID == userID {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

func (s *storeStub) ListRulesForSubject(_ context.Context, userID, subjectID string) ([]persistence.ScheduleRule, error) {
	var rules []persistence.ScheduleRule
	for _, rule := range s.rules {
		if rule.UserID == userID && rule.SubjectID == subjectID {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

func (s *storeStub) DeleteRule(_ context.Context, userID, id string) error {
	rule, ok := s.rules[id]
	if !ok || rule.UserID != userID {
		return persistence.ErrNotFound
	}
	delete(s.rules, id)
	for occID, occ := range s.occurrences {
		if occ.RuleID == id {
			occ.RuleID = ""
			s.occurrences[occID] = occ
		}
	}
	return nil
}

func (s *storeStub) InsertOccurrences(_ context.Context, batch []persistence.ClassOccurrence) (int, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	created := 0
	for _, occ := range batch {
		if s.slotTaken(occ) {
			continue
		}
		s.occurrences[occ.ID] = occ
		created++
	}
	return created, nil
}

func (s *storeStub) slotTaken(candidate persistence.ClassOccurrence) bool {
	for _, occ := range s.occurrences {
		if occ.UserID == candidate.UserID &&
			occ.SubjectID == candidate.SubjectID &&
			occ.Date.Equal(candidate.Date) &&
			occ.StartTime == candidate.StartTime {
			return true
		}
	}
	return false
}

func (s *storeStub) GetOccurrence(_ context.Context, userID, id string) (persistence.ClassOccurrence, error) {
	occ, ok := s.occurrences[id]
	if !ok || occ.UserID != userID {
		return persistence.ClassOccurrence{}, persistence.ErrNotFound
	}
	return occ, nil
}

func (s *storeStub) ListOccurrences(_ context.Context, filter persistence.OccurrenceFilter) ([]persistence.ClassOccurrence, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var matches []persistence.ClassOccurrence
	for _, occ := range s.occurrences {
		if occ.UserID != filter.UserID {
			continue
		}
		if filter.SubjectID != "" && occ.SubjectID != filter.SubjectID {
			continue
		}
		if filter.RuleID != "" && occ.RuleID != filter.RuleID {
			continue
		}
		if filter.From != nil && occ.Date.Before(calendar.ToStorageDate(*filter.From)) {
			continue
		}
		if filter.To != nil && occ.Date.After(calendar.ToStorageDate(*filter.To)) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, occ.Status) {
			continue
		}
		matches = append(matches, occ)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Date.Equal(matches[j].Date) {
			return matches[i].StartTime < matches[j].StartTime
		}
		return matches[i].Date.Before(matches[j].Date)
	})
	return matches, nil
}

func (s *storeStub) UpdateOccurrenceStatus(_ context.Context, userID, id string, status attendance.Status, markedAt *time.Time, updatedAt time.Time) (persistence.ClassOccurrence, error) {
	occ, ok := s.occurrences[id]
	if !ok || occ.UserID != userID {
		return persistence.ClassOccurrence{}, persistence.ErrNotFound
	}
	occ.Status = status
	if markedAt != nil {
		occ.MarkedAt = markedAt
	}
	occ.UpdatedAt = updatedAt
	s.occurrences[id] = occ
	return occ, nil
}

func (s *storeStub) DeletePendingFromDate(_ context.Context, userID, ruleID string, from time.Time) (int, error) {
	cutoff := calendar.ToStorageDate(from)
	deleted := 0
	for id, occ := range s.occurrences {
		if occ.UserID != userID || occ.RuleID != ruleID {
			continue
		}
		if occ.Status != attendance.StatusPending || occ.Date.Before(cutoff) {
			continue
		}
		delete(s.occurrences, id)
		deleted++
	}
	return deleted, nil
}

func containsStatus(statuses []attendance.Status, status attendance.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
