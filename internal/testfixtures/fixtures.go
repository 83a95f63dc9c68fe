package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/attendance-tracker/internal/application"
	"github.com/example/attendance-tracker/internal/attendance"
	"github.com/example/attendance-tracker/internal/calendar"
	"github.com/example/attendance-tracker/internal/persistence"
	"github.com/example/attendance-tracker/internal/recurrence"
)

var (
	subjectCounter    uint64
	ruleCounter       uint64
	occurrenceCounter uint64
)

// referenceTime is a Monday, which keeps weekday arithmetic in rule and
// occurrence fixtures easy to reason about.
var referenceTime = time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the zone-less day marker of ReferenceTime.
func ReferenceDate() time.Time {
	return calendar.ToStorageDate(referenceTime)
}

// ---------------------------- Subject fixtures ----------------------------

// SubjectFixture represents a deterministic subject record that can be
// materialised for application or persistence tests.
type SubjectFixture struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubjectOption configures the generated subject fixture.
type SubjectOption func(*SubjectFixture)

// NewSubjectFixture returns a deterministic subject fixture with optional overrides.
func NewSubjectFixture(opts ...SubjectOption) SubjectFixture {
	idx := atomic.AddUint64(&subjectCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := SubjectFixture{
		ID:        fmt.Sprintf("subject-%03d", idx),
		UserID:    "user-001",
		Name:      fmt.Sprintf("Subject %03d", idx),
		Color:     "#3b82f6",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSubjectID overrides the generated subject ID.
func WithSubjectID(id string) SubjectOption {
	return func(f *SubjectFixture) {
		f.ID = id
	}
}

// WithSubjectUser sets the owning user ID.
func WithSubjectUser(userID string) SubjectOption {
	return func(f *SubjectFixture) {
		f.UserID = userID
	}
}

// WithSubjectName overrides the generated subject name.
func WithSubjectName(name string) SubjectOption {
	return func(f *SubjectFixture) {
		f.Name = name
	}
}

// WithSubjectColor overrides the generated color.
func WithSubjectColor(color string) SubjectOption {
	return func(f *SubjectFixture) {
		f.Color = color
	}
}

// WithSubjectTimestamps sets both created and updated timestamps.
func WithSubjectTimestamps(created, updated time.Time) SubjectOption {
	return func(f *SubjectFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence returns the fixture as a persistence.Subject value.
func (f SubjectFixture) Persistence() persistence.Subject {
	return persistence.Subject{
		ID:        f.ID,
		UserID:    f.UserID,
		Name:      f.Name,
		Color:     f.Color,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.SubjectInput.
func (f SubjectFixture) Input() application.SubjectInput {
	return application.SubjectInput{
		Name:  f.Name,
		Color: f.Color,
	}
}

// Principal returns the owning user as an application.Principal.
func (f SubjectFixture) Principal() application.Principal {
	return application.Principal{UserID: f.UserID}
}

// ------------------------------ Rule fixtures -----------------------------

// RuleFixture represents a deterministic weekly time-slot record.
type RuleFixture struct {
	ID        string
	UserID    string
	SubjectID string
	Weekdays  []time.Weekday
	StartTime string
	EndTime   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RuleOption configures the generated rule fixture.
type RuleOption func(*RuleFixture)

// NewRuleFixture returns a deterministic rule fixture with optional overrides.
func NewRuleFixture(opts ...RuleOption) RuleFixture {
	idx := atomic.AddUint64(&ruleCounter, 1)
	fixture := RuleFixture{
		ID:        fmt.Sprintf("rule-%03d", idx),
		UserID:    "user-001",
		SubjectID: fmt.Sprintf("subject-%03d", idx),
		Weekdays:  []time.Weekday{time.Monday},
		StartTime: "09:00",
		EndTime:   "10:30",
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRuleID overrides the generated rule ID.
func WithRuleID(id string) RuleOption {
	return func(f *RuleFixture) {
		f.ID = id
	}
}

// WithRuleUser sets the owning user ID.
func WithRuleUser(userID string) RuleOption {
	return func(f *RuleFixture) {
		f.UserID = userID
	}
}

// WithRuleSubject sets the associated subject ID.
func WithRuleSubject(subjectID string) RuleOption {
	return func(f *RuleFixture) {
		f.SubjectID = subjectID
	}
}

// WithRuleWeekdays sets the rule weekdays.
func WithRuleWeekdays(days ...time.Weekday) RuleOption {
	return func(f *RuleFixture) {
		f.Weekdays = append([]time.Weekday(nil), days...)
	}
}

// WithRuleTimes sets the start and end clock times.
func WithRuleTimes(start, end string) RuleOption {
	return func(f *RuleFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithRuleTimestamps sets both created and updated timestamps.
func WithRuleTimestamps(created, updated time.Time) RuleOption {
	return func(f *RuleFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence returns the fixture as a persistence.ScheduleRule value.
func (f RuleFixture) Persistence() persistence.ScheduleRule {
	return persistence.ScheduleRule{
		ID:        f.ID,
		UserID:    f.UserID,
		SubjectID: f.SubjectID,
		Weekdays:  append([]time.Weekday(nil), f.Weekdays...),
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Recurrence returns the fixture as a recurrence.Rule value.
func (f RuleFixture) Recurrence() recurrence.Rule {
	return recurrence.Rule{
		ID:        f.ID,
		UserID:    f.UserID,
		SubjectID: f.SubjectID,
		Weekdays:  append([]time.Weekday(nil), f.Weekdays...),
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
	}
}

// Input returns the fixture as an application.ScheduleInput with weekday tags.
func (f RuleFixture) Input() application.ScheduleInput {
	tags := make([]string, 0, len(f.Weekdays))
	for _, day := range f.Weekdays {
		tags = append(tags, calendar.WeekdayTag(day))
	}
	return application.ScheduleInput{
		SubjectID: f.SubjectID,
		Weekdays:  tags,
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
	}
}

// --------------------------- Occurrence fixtures --------------------------

// OccurrenceFixture represents a deterministic materialized class instance.
type OccurrenceFixture struct {
	ID        string
	UserID    string
	SubjectID string
	RuleID    string
	Date      time.Time
	StartTime string
	EndTime   string
	Status    attendance.Status
	MarkedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OccurrenceOption configures the generated occurrence fixture.
type OccurrenceOption func(*OccurrenceFixture)

// NewOccurrenceFixture returns a deterministic occurrence fixture with
// optional overrides. Successive fixtures land on successive days so they
// never collide on the storage unique key.
func NewOccurrenceFixture(opts ...OccurrenceOption) OccurrenceFixture {
	idx := atomic.AddUint64(&occurrenceCounter, 1)
	fixture := OccurrenceFixture{
		ID:        fmt.Sprintf("occurrence-%03d", idx),
		UserID:    "user-001",
		SubjectID: fmt.Sprintf("subject-%03d", idx),
		RuleID:    fmt.Sprintf("rule-%03d", idx),
		Date:      ReferenceDate().AddDate(0, 0, int(idx)),
		StartTime: "09:00",
		EndTime:   "10:30",
		Status:    attendance.StatusPending,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOccurrenceID overrides the generated occurrence ID.
func WithOccurrenceID(id string) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.ID = id
	}
}

// WithOccurrenceUser sets the owning user ID.
func WithOccurrenceUser(userID string) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.UserID = userID
	}
}

// WithOccurrenceSubject sets the associated subject ID.
func WithOccurrenceSubject(subjectID string) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.SubjectID = subjectID
	}
}

// WithOccurrenceRule sets the originating rule ID.
func WithOccurrenceRule(ruleID string) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.RuleID = ruleID
	}
}

// WithOccurrenceDate sets the civil date of the occurrence.
func WithOccurrenceDate(date time.Time) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.Date = calendar.ToStorageDate(date)
	}
}

// WithOccurrenceTimes sets the start and end clock times.
func WithOccurrenceTimes(start, end string) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithOccurrenceStatus sets the attendance status.
func WithOccurrenceStatus(status attendance.Status) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.Status = status
	}
}

// WithOccurrenceMarkedAt sets the optional marked timestamp.
func WithOccurrenceMarkedAt(t time.Time) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		marked := t
		f.MarkedAt = &marked
	}
}

// WithoutOccurrenceMark clears any marked timestamp.
func WithoutOccurrenceMark() OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.MarkedAt = nil
	}
}

// Persistence returns the fixture as a persistence.ClassOccurrence value.
func (f OccurrenceFixture) Persistence() persistence.ClassOccurrence {
	var marked *time.Time
	if f.MarkedAt != nil {
		t := *f.MarkedAt
		marked = &t
	}
	return persistence.ClassOccurrence{
		ID:        f.ID,
		UserID:    f.UserID,
		SubjectID: f.SubjectID,
		RuleID:    f.RuleID,
		Date:      f.Date,
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
		Status:    f.Status,
		MarkedAt:  marked,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}
