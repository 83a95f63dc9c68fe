package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/attendance-tracker/internal/attendance"
	"github.com/example/attendance-tracker/internal/calendar"
	"github.com/example/attendance-tracker/internal/persistence"
)

// OccurrenceRepository implements persistence.OccurrenceRepository using SQLite.
type OccurrenceRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewOccurrenceRepository creates a new SQLite occurrence repository.
func NewOccurrenceRepository(pool *ConnectionPool) *OccurrenceRepository {
	return &OccurrenceRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// InsertOccurrences bulk-inserts occurrence rows. Rows colliding with the
// (user_id, subject_id, date, start_time) unique index are skipped by
// ON CONFLICT DO NOTHING rather than failing the batch, which makes
// materialization idempotent and safe under concurrent runs. The returned
// count covers only rows actually created.
func (r *OccurrenceRepository) InsertOccurrences(ctx context.Context, occurrences []persistence.ClassOccurrence) (int, error) {
	if len(occurrences) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO class_occurrences (id, user_id, subject_id, rule_id, date, start_time, end_time, status, marked_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, subject_id, date, start_time) DO NOTHING
	`

	created := 0
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return r.mapper.MapError(err)
		}
		defer stmt.Close()

		for _, occ := range occurrences {
			if occ.ID == "" || occ.UserID == "" || occ.SubjectID == "" || occ.RuleID == "" {
				return persistence.ErrConstraintViolation
			}

			result, err := stmt.Exec(
				occ.ID,
				occ.UserID,
				occ.SubjectID,
				occ.RuleID,
				calendar.FormatDate(occ.Date),
				occ.StartTime,
				occ.EndTime,
				string(occ.Status),
				nullableTime(occ.MarkedAt),
				occ.CreatedAt.UTC().Format(time.RFC3339),
				occ.UpdatedAt.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return r.mapper.MapError(err)
			}

			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			created += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// GetOccurrence retrieves an occurrence owned by the user.
func (r *OccurrenceRepository) GetOccurrence(ctx context.Context, userID, id string) (persistence.ClassOccurrence, error) {
	if userID == "" || id == "" {
		return persistence.ClassOccurrence{}, persistence.ErrNotFound
	}

	query := occurrenceSelect + " WHERE id = ? AND user_id = ?"
	occ, err := scanOccurrence(r.pool.DB().QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ClassOccurrence{}, persistence.ErrNotFound
		}
		return persistence.ClassOccurrence{}, r.mapper.MapError(err)
	}
	return occ, nil
}

// ListOccurrences returns matches ordered by date, then start time.
func (r *OccurrenceRepository) ListOccurrences(ctx context.Context, filter persistence.OccurrenceFilter) ([]persistence.ClassOccurrence, error) {
	query, args := buildOccurrenceQuery(filter)

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var occurrences []persistence.ClassOccurrence
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		occurrences = append(occurrences, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return occurrences, nil
}

// UpdateOccurrenceStatus sets the occurrence's status. markedAt is only
// written when non-nil, preserving the original marking time across later
// corrections. updatedAt comes from the caller so the repository never reads
// a clock of its own.
func (r *OccurrenceRepository) UpdateOccurrenceStatus(ctx context.Context, userID, id string, status attendance.Status, markedAt *time.Time, updatedAt time.Time) (persistence.ClassOccurrence, error) {
	if userID == "" || id == "" {
		return persistence.ClassOccurrence{}, persistence.ErrNotFound
	}

	var query string
	args := []any{string(status)}
	if markedAt != nil {
		query = `UPDATE class_occurrences SET status = ?, marked_at = ?, updated_at = ? WHERE id = ? AND user_id = ?`
		args = append(args, markedAt.UTC().Format(time.RFC3339))
	} else {
		query = `UPDATE class_occurrences SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?`
	}
	args = append(args, updatedAt.UTC().Format(time.RFC3339), id, userID)

	result, err := r.pool.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return persistence.ClassOccurrence{}, r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.ClassOccurrence{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ClassOccurrence{}, persistence.ErrNotFound
	}

	return r.GetOccurrence(ctx, userID, id)
}

// DeletePendingFromDate removes the rule's pending occurrences dated on or
// after from. Marked occurrences survive, preserving history.
func (r *OccurrenceRepository) DeletePendingFromDate(ctx context.Context, userID, ruleID string, from time.Time) (int, error) {
	if userID == "" || ruleID == "" {
		return 0, persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx, `
		DELETE FROM class_occurrences
		WHERE user_id = ? AND rule_id = ? AND status = ? AND date >= ?
	`, userID, ruleID, string(attendance.StatusPending), calendar.FormatDate(from))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

const occurrenceSelect = `
	SELECT id, user_id, subject_id, rule_id, date, start_time, end_time, status, marked_at, created_at, updated_at
	FROM class_occurrences
`

func buildOccurrenceQuery(filter persistence.OccurrenceFilter) (string, []any) {
	conditions := []string{"user_id = ?"}
	args := []any{filter.UserID}

	if filter.SubjectID != "" {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.RuleID != "" {
		conditions = append(conditions, "rule_id = ?")
		args = append(args, filter.RuleID)
	}
	if filter.From != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, calendar.FormatDate(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, calendar.FormatDate(*filter.To))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := occurrenceSelect + " WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY date ASC, start_time ASC, id ASC"
	return query, args
}

func scanOccurrence(row rowScanner) (persistence.ClassOccurrence, error) {
	var occ persistence.ClassOccurrence
	var dateStr, statusStr, createdAtStr, updatedAtStr string
	var ruleID, markedAtStr sql.NullString

	if err := row.Scan(
		&occ.ID,
		&occ.UserID,
		&occ.SubjectID,
		&ruleID,
		&dateStr,
		&occ.StartTime,
		&occ.EndTime,
		&statusStr,
		&markedAtStr,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.ClassOccurrence{}, err
	}

	// rule_id is NULL after its rule was deleted; the occurrence itself is
	// kept as attendance history.
	occ.RuleID = ruleID.String

	date, err := calendar.ParseDate(dateStr)
	if err != nil {
		return persistence.ClassOccurrence{}, err
	}
	occ.Date = date
	occ.Status = attendance.Status(statusStr)

	if markedAtStr.Valid {
		markedAt, err := time.Parse(time.RFC3339, markedAtStr.String)
		if err != nil {
			return persistence.ClassOccurrence{}, fmt.Errorf("failed to parse marked_at: %w", err)
		}
		occ.MarkedAt = &markedAt
	}
	if occ.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.ClassOccurrence{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if occ.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.ClassOccurrence{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return occ, nil
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
