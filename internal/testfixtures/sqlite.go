package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/attendance-tracker/internal/persistence"
	"github.com/example/attendance-tracker/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Subjects    persistence.SubjectRepository
	Rules       persistence.RuleRepository
	Occurrences persistence.OccurrenceRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "attendance.db")

	pool, err := sqlite.NewConnectionPool(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Subjects:    sqlite.NewSubjectRepository(pool),
		Rules:       sqlite.NewRuleRepository(pool),
		Occurrences: sqlite.NewOccurrenceRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
