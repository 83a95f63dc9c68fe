package application

import (
	"strings"
	"sync"
	"time"

	"github.com/example/attendance-tracker/internal/calendar"
)

// summaryCache stores recently computed summary reports to avoid repeated
// aggregation for identical queries while attendance remains unchanged.
// Entries are invalidated per user whenever a mark is recorded.
type summaryCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]summaryCacheEntry
}

type summaryCacheEntry struct {
	report    SummaryReport
	expiresAt time.Time
}

func newSummaryCache(ttl time.Duration, maxEntries int, now func() time.Time) *summaryCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &summaryCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]summaryCacheEntry),
	}
}

func (c *summaryCache) Get(key string) (SummaryReport, bool) {
	if c == nil {
		return SummaryReport{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return SummaryReport{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return SummaryReport{}, false
	}
	return cloneReport(entry.report), true
}

func (c *summaryCache) Store(key string, report SummaryReport) {
	if c == nil {
		return
	}
	cloned := cloneReport(report)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = summaryCacheEntry{report: cloned, expiresAt: expiry}
}

// InvalidateUser drops every cached report belonging to the user.
func (c *summaryCache) InvalidateUser(userID string) {
	if c == nil {
		return
	}
	prefix := userID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *summaryCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *summaryCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneReport(report SummaryReport) SummaryReport {
	out := report
	if len(report.Subjects) > 0 {
		out.Subjects = make([]SubjectSummary, len(report.Subjects))
		copy(out.Subjects, report.Subjects)
	}
	return out
}

func buildSummaryCacheKey(principal Principal, subjectID string, cutoff time.Time) string {
	builder := strings.Builder{}
	builder.WriteString(principal.UserID)
	builder.WriteString("|")
	builder.WriteString(subjectID)
	builder.WriteString("|")
	builder.WriteString(calendar.FormatDate(cutoff))
	return builder.String()
}
