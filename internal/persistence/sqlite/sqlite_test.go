package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/attendance-tracker/internal/attendance"
	"github.com/example/attendance-tracker/internal/calendar"
	"github.com/example/attendance-tracker/internal/persistence"
)

func setupTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	path := filepath.Join(t.TempDir(), "attendance.db")
	pool, err := NewConnectionPool(path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	if err := Migrate(context.Background(), pool); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return pool
}

func TestMigrateIsIdempotent(t *testing.T) {
	pool := setupTestPool(t)

	// A second run must skip already applied versions.
	if err := Migrate(context.Background(), pool); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var count int
	err := pool.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Fatalf("expected %d applied migrations, got %d", len(migrations), count)
	}
}

func TestErrorMapper(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()

	subjects := NewSubjectRepository(pool)
	now := time.Now().UTC()

	subject := persistence.Subject{
		ID: "subject-1", UserID: "user-1", Name: "Algebra", Color: "#ff0000",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := subjects.CreateSubject(ctx, subject); err != nil {
		t.Fatalf("CreateSubject failed: %v", err)
	}

	t.Run("unique violation maps to ErrDuplicate", func(t *testing.T) {
		dup := subject
		dup.ID = "subject-2"
		err := subjects.CreateSubject(ctx, dup)
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("missing parent maps to ErrForeignKeyViolation", func(t *testing.T) {
		rules := NewRuleRepository(pool)
		err := rules.CreateRule(ctx, persistence.ScheduleRule{
			ID: "rule-1", UserID: "user-1", SubjectID: "no-such-subject",
			Weekdays: []time.Weekday{time.Monday}, StartTime: "09:00", EndTime: "10:00",
			CreatedAt: now, UpdatedAt: now,
		})
		if !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("invalid status maps to ErrConstraintViolation", func(t *testing.T) {
		seedRule(t, pool, "rule-ck", "user-1", "subject-1")
		occurrences := NewOccurrenceRepository(pool)
		_, err := occurrences.InsertOccurrences(ctx, []persistence.ClassOccurrence{{
			ID: "occ-ck", UserID: "user-1", SubjectID: "subject-1", RuleID: "rule-ck",
			Date:      mustDate(t, "2025-09-01"),
			StartTime: "09:00", EndTime: "10:00",
			Status:    attendance.Status("done"),
			CreatedAt: now, UpdatedAt: now,
		}})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	date, err := calendar.ParseDate(value)
	if err != nil {
		t.Fatalf("failed to parse date %q: %v", value, err)
	}
	return date
}

func seedSubject(t *testing.T, pool *ConnectionPool, id, userID, name string) {
	t.Helper()
	now := time.Now().UTC()
	err := NewSubjectRepository(pool).CreateSubject(context.Background(), persistence.Subject{
		ID: id, UserID: userID, Name: name, Color: "#3366ff",
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("failed to seed subject %s: %v", id, err)
	}
}

func seedRule(t *testing.T, pool *ConnectionPool, id, userID, subjectID string) {
	t.Helper()
	now := time.Now().UTC()
	err := NewRuleRepository(pool).CreateRule(context.Background(), persistence.ScheduleRule{
		ID: id, UserID: userID, SubjectID: subjectID,
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
		StartTime: "09:00", EndTime: "10:30",
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("failed to seed rule %s: %v", id, err)
	}
}
