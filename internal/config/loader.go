package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config captures environment driven configuration values for the attendance service.
type Config struct {
	HTTPPort          int           `env:"ATTENDANCE_HTTP_PORT" env-default:"8080"`
	SQLiteDSN         string        `env:"ATTENDANCE_SQLITE_DSN" env-default:"file:attendance.db?_foreign_keys=on"`
	HorizonWeeks      int           `env:"ATTENDANCE_HORIZON_WEEKS" env-default:"4"`
	DefaultTimezone   string        `env:"ATTENDANCE_DEFAULT_TZ" env-default:"UTC"`
	ShutdownTimeout   time.Duration `env:"ATTENDANCE_SHUTDOWN_TIMEOUT" env-default:"10s"`
	DenominatorPolicy string        `env:"ATTENDANCE_DENOMINATOR_POLICY" env-default:"conducted"`
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// value ranges and reporting every offending variable in one error.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	invalid := make([]string, 0, 2)

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, "ATTENDANCE_HTTP_PORT")
	}
	if strings.TrimSpace(cfg.SQLiteDSN) == "" {
		invalid = append(invalid, "ATTENDANCE_SQLITE_DSN")
	}
	if cfg.HorizonWeeks <= 0 || cfg.HorizonWeeks > 52 {
		invalid = append(invalid, "ATTENDANCE_HORIZON_WEEKS")
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		invalid = append(invalid, "ATTENDANCE_DEFAULT_TZ")
	}
	if cfg.ShutdownTimeout <= 0 {
		invalid = append(invalid, "ATTENDANCE_SHUTDOWN_TIMEOUT")
	}
	switch cfg.DenominatorPolicy {
	case "conducted", "scheduled":
	default:
		invalid = append(invalid, "ATTENDANCE_DENOMINATOR_POLICY")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
