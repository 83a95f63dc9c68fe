package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/example/attendance-tracker/internal/persistence"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// SubjectService orchestrates validation and persistence for subjects.
type SubjectService struct {
	subjects    persistence.SubjectRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSubjectService wires dependencies for subject operations.
func NewSubjectService(subjects persistence.SubjectRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SubjectService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SubjectService{
		subjects:    subjects,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateSubject validates the request before delegating to persistence.
// Subject names are unique per user.
func (s *SubjectService) CreateSubject(ctx context.Context, params CreateSubjectParams) (Subject, error) {
	if s == nil {
		return Subject{}, fmt.Errorf("SubjectService is nil")
	}
	input := params.Input

	vErr := &ValidationError{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.add("name", "name is required")
	} else if len(name) > 100 {
		vErr.add("name", "name must be at most 100 characters")
	}
	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = "#3b82f6"
	} else if !hexColorPattern.MatchString(color) {
		vErr.add("color", "color must be a hex value like #3b82f6")
	}
	if vErr.HasErrors() {
		return Subject{}, vErr
	}

	createdAt := s.now()
	record := persistence.Subject{
		ID:        s.idGenerator(),
		UserID:    params.Principal.UserID,
		Name:      name,
		Color:     color,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	if err := s.subjects.CreateSubject(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			dup := &ValidationError{}
			dup.add("name", "a subject with this name already exists")
			return Subject{}, dup
		}
		serviceLogger(ctx, s.logger, "subject", "create").Error("failed to create subject",
			"error", err, "error_kind", ErrorKind(err))
		return Subject{}, fmt.Errorf("create subject: %w", err)
	}

	return toSubjectView(record), nil
}

// ListSubjects returns the user's subjects ordered by name.
func (s *SubjectService) ListSubjects(ctx context.Context, principal Principal) ([]Subject, error) {
	if s == nil {
		return nil, fmt.Errorf("SubjectService is nil")
	}

	records, err := s.subjects.ListSubjects(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}

	subjects := make([]Subject, 0, len(records))
	for _, record := range records {
		subjects = append(subjects, toSubjectView(record))
	}
	return subjects, nil
}

// DeleteSubject removes a subject together with its rules and occurrences.
func (s *SubjectService) DeleteSubject(ctx context.Context, principal Principal, subjectID string) error {
	if s == nil {
		return fmt.Errorf("SubjectService is nil")
	}

	if err := s.subjects.DeleteSubject(ctx, principal.UserID, subjectID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		serviceLogger(ctx, s.logger, "subject", "delete", "subject_id", subjectID).Error(
			"failed to delete subject", "error", err, "error_kind", ErrorKind(err))
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

func toSubjectView(record persistence.Subject) Subject {
	return Subject{
		ID:        record.ID,
		Name:      record.Name,
		Color:     record.Color,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
