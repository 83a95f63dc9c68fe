package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/attendance-tracker/internal/persistence"
)

// SubjectRepository implements persistence.SubjectRepository using SQLite.
type SubjectRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewSubjectRepository creates a new SQLite subject repository.
func NewSubjectRepository(pool *ConnectionPool) *SubjectRepository {
	return &SubjectRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreateSubject inserts a new subject.
func (r *SubjectRepository) CreateSubject(ctx context.Context, subject persistence.Subject) error {
	if subject.ID == "" || subject.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO subjects (id, user_id, name, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.DB().ExecContext(ctx, query,
		subject.ID,
		subject.UserID,
		subject.Name,
		subject.Color,
		subject.CreatedAt.UTC().Format(time.RFC3339),
		subject.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetSubject retrieves a subject owned by the user.
func (r *SubjectRepository) GetSubject(ctx context.Context, userID, id string) (persistence.Subject, error) {
	if userID == "" || id == "" {
		return persistence.Subject{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, user_id, name, color, created_at, updated_at
		FROM subjects
		WHERE id = ? AND user_id = ?
	`
	subject, err := scanSubject(r.pool.DB().QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Subject{}, persistence.ErrNotFound
		}
		return persistence.Subject{}, r.mapper.MapError(err)
	}
	return subject, nil
}

// ListSubjects returns the user's subjects ordered by name.
func (r *SubjectRepository) ListSubjects(ctx context.Context, userID string) ([]persistence.Subject, error) {
	query := `
		SELECT id, user_id, name, color, created_at, updated_at
		FROM subjects
		WHERE user_id = ?
		ORDER BY name ASC, id ASC
	`
	rows, err := r.pool.DB().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var subjects []persistence.Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return subjects, nil
}

// DeleteSubject removes a subject; its rules and occurrences are removed by
// the ON DELETE CASCADE foreign keys.
func (r *SubjectRepository) DeleteSubject(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx,
		"DELETE FROM subjects WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (persistence.Subject, error) {
	var subject persistence.Subject
	var createdAtStr, updatedAtStr string

	if err := row.Scan(
		&subject.ID,
		&subject.UserID,
		&subject.Name,
		&subject.Color,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Subject{}, err
	}

	var err error
	if subject.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Subject{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if subject.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Subject{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return subject, nil
}
