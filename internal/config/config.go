package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration, sourced from the environment.
type Config struct {
	Addr          string `env:"VENDOREVAL_ADDR" envDefault:":8080"`
	JWTSecret     string `env:"VENDOREVAL_JWT_SECRET" envDefault:"vendoreval-dev-secret"`
	SQLitePath    string `env:"VENDOREVAL_SQLITE_PATH"`
	MigrationsDir string `env:"VENDOREVAL_MIGRATIONS_DIR"`
	Debug         bool   `env:"VENDOREVAL_DEBUG"`

	// Department score ceilings used to normalize raw evaluation totals.
	// The defaults match the current questionnaire weights per department.
	DepartmentMaxScores map[string]float64 `env:"VENDOREVAL_DEPT_MAX_SCORES" envDefault:"finance:30,both:25,IT:35"`

	// Departments averaging below this percentage are flagged in reports.
	LowScoreThreshold float64 `env:"VENDOREVAL_LOW_SCORE_THRESHOLD" envDefault:"60"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if len(cfg.DepartmentMaxScores) == 0 {
		return nil, fmt.Errorf("at least one department max score is required")
	}
	for dept, max := range cfg.DepartmentMaxScores {
		if max <= 0 {
			return nil, fmt.Errorf("department %q max score must be positive", dept)
		}
	}
	return cfg, nil
}
