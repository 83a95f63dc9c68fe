package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/attendance-tracker/internal/persistence"
)

// RuleRepository implements persistence.RuleRepository using SQLite.
type RuleRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewRuleRepository creates a new SQLite rule repository.
func NewRuleRepository(pool *ConnectionPool) *RuleRepository {
	return &RuleRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

// CreateRule inserts a new weekly schedule rule.
func (r *RuleRepository) CreateRule(ctx context.Context, rule persistence.ScheduleRule) error {
	if rule.ID == "" || rule.UserID == "" || rule.SubjectID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO schedule_rules (id, user_id, subject_id, weekdays, start_time, end_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.DB().ExecContext(ctx, query,
		rule.ID,
		rule.UserID,
		rule.SubjectID,
		encodeWeekdays(rule.Weekdays),
		rule.StartTime,
		rule.EndTime,
		rule.CreatedAt.UTC().Format(time.RFC3339),
		rule.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateRule rewrites the rule's shape. The subject association is fixed at
// creation and never changes.
func (r *RuleRepository) UpdateRule(ctx context.Context, rule persistence.ScheduleRule) error {
	if rule.ID == "" || rule.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE schedule_rules
		SET weekdays = ?, start_time = ?, end_time = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	result, err := r.pool.DB().ExecContext(ctx, query,
		encodeWeekdays(rule.Weekdays),
		rule.StartTime,
		rule.EndTime,
		rule.UpdatedAt.UTC().Format(time.RFC3339),
		rule.ID,
		rule.UserID,
	)
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

// GetRule retrieves a rule owned by the user.
func (r *RuleRepository) GetRule(ctx context.Context, userID, id string) (persistence.ScheduleRule, error) {
	if userID == "" || id == "" {
		return persistence.ScheduleRule{}, persistence.ErrNotFound
	}

	query := ruleSelect + " WHERE id = ? AND user_id = ?"
	rule, err := scanRule(r.pool.DB().QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ScheduleRule{}, persistence.ErrNotFound
		}
		return persistence.ScheduleRule{}, r.mapper.MapError(err)
	}
	return rule, nil
}

// ListRules returns all of the user's rules ordered by creation time.
func (r *RuleRepository) ListRules(ctx context.Context, userID string) ([]persistence.ScheduleRule, error) {
	query := ruleSelect + " WHERE user_id = ? ORDER BY created_at ASC, id ASC"
	return r.queryRules(ctx, query, userID)
}

// ListRulesForSubject returns the subject's rules ordered by creation time.
func (r *RuleRepository) ListRulesForSubject(ctx context.Context, userID, subjectID string) ([]persistence.ScheduleRule, error) {
	query := ruleSelect + " WHERE user_id = ? AND subject_id = ? ORDER BY created_at ASC, id ASC"
	return r.queryRules(ctx, query, userID, subjectID)
}

// DeleteRule removes a rule. Its occurrences are kept with rule_id cleared
// by ON DELETE SET NULL, preserving attendance history.
func (r *RuleRepository) DeleteRule(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx,
		"DELETE FROM schedule_rules WHERE id = ? AND user_id = ?", id, userID)
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

const ruleSelect = `
	SELECT id, user_id, subject_id, weekdays, start_time, end_time, created_at, updated_at
	FROM schedule_rules
`

func (r *RuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]persistence.ScheduleRule, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rules []persistence.ScheduleRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rules, nil
}

func scanRule(row rowScanner) (persistence.ScheduleRule, error) {
	var rule persistence.ScheduleRule
	var weekdaysStr, createdAtStr, updatedAtStr string

	if err := row.Scan(
		&rule.ID,
		&rule.UserID,
		&rule.SubjectID,
		&weekdaysStr,
		&rule.StartTime,
		&rule.EndTime,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.ScheduleRule{}, err
	}

	weekdays, err := decodeWeekdays(weekdaysStr)
	if err != nil {
		return persistence.ScheduleRule{}, err
	}
	rule.Weekdays = weekdays

	if rule.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.ScheduleRule{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rule.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.ScheduleRule{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return rule, nil
}

// encodeWeekdays stores a weekday set as a comma-joined list of integers
// (0=Sunday .. 6=Saturday).
func encodeWeekdays(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, day := range days {
		parts = append(parts, strconv.Itoa(int(day)))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(value string) ([]time.Weekday, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < int(time.Sunday) || n > int(time.Saturday) {
			return nil, fmt.Errorf("failed to parse weekdays %q: invalid entry %q", value, part)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}
