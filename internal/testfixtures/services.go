package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/attendance-tracker/internal/application"
	"github.com/example/attendance-tracker/internal/attendance"
	"github.com/example/attendance-tracker/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// SubjectServiceDeps captures dependencies for constructing a subject service.
type SubjectServiceDeps struct {
	Subjects    persistence.SubjectRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewSubjectService builds a subject service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewSubjectService(deps SubjectServiceDeps) *application.SubjectService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewSubjectService(
		deps.Subjects,
		idGen,
		now,
		deps.Logger,
	)
}

// ScheduleServiceDeps captures dependencies for constructing a schedule service.
type ScheduleServiceDeps struct {
	Subjects     persistence.SubjectRepository
	Rules        persistence.RuleRepository
	Occurrences  persistence.OccurrenceRepository
	HorizonWeeks int
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewScheduleService builds a schedule service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewScheduleService(deps ScheduleServiceDeps) *application.ScheduleService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewScheduleService(
		deps.Subjects,
		deps.Rules,
		deps.Occurrences,
		deps.HorizonWeeks,
		idGen,
		now,
		deps.Logger,
	)
}

// AttendanceServiceDeps captures dependencies for constructing an attendance
// service.
type AttendanceServiceDeps struct {
	Subjects     persistence.SubjectRepository
	Occurrences  persistence.OccurrenceRepository
	Materializer application.Materializer
	Policy       attendance.DenominatorPolicy
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewAttendanceService builds an attendance service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewAttendanceService(deps AttendanceServiceDeps) *application.AttendanceService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAttendanceService(
		deps.Subjects,
		deps.Occurrences,
		deps.Materializer,
		deps.Policy,
		now,
		deps.Logger,
	)
}
