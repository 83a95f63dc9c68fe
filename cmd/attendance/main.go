package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/attendance-tracker/internal/application"
	"github.com/example/attendance-tracker/internal/attendance"
	"github.com/example/attendance-tracker/internal/config"
	httptransport "github.com/example/attendance-tracker/internal/http"
	"github.com/example/attendance-tracker/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	location, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		logger.Error("failed to load default timezone", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	subjectRepo := sqlite.NewSubjectRepository(pool)
	ruleRepo := sqlite.NewRuleRepository(pool)
	occurrenceRepo := sqlite.NewOccurrenceRepository(pool)

	subjectService := application.NewSubjectService(subjectRepo, idGenerator, now, logger)
	scheduleService := application.NewScheduleService(subjectRepo, ruleRepo, occurrenceRepo, cfg.HorizonWeeks, idGenerator, now, logger)
	attendanceService := application.NewAttendanceService(subjectRepo, occurrenceRepo, scheduleService, denominatorPolicy(cfg.DenominatorPolicy), now, logger)

	clock := httptransport.NewRequestClock(now, location)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Subjects:    httptransport.NewSubjectHandler(subjectService, logger),
		Schedules:   httptransport.NewScheduleHandler(scheduleService, clock, logger),
		Occurrences: httptransport.NewOccurrenceHandler(attendanceService, clock, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireUser(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("attendance API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// denominatorPolicy maps the configured policy name to its aggregation
// strategy. Unknown names fall back to the conducted-classes default, but
// config validation rejects them before this point.
func denominatorPolicy(name string) attendance.DenominatorPolicy {
	if name == "scheduled" {
		return attendance.ScheduledClasses
	}
	return attendance.ConductedClasses
}
