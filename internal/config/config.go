// Package config loads DreamBuilder settings from viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // timezone names must resolve on hosts without zoneinfo

	"github.com/Veraticus/dreambuilder/internal/affordability"
	"github.com/Veraticus/dreambuilder/internal/common"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all runtime settings.
type Config struct {
	Logging       Logging
	Database      Database
	Calendar      Calendar
	Server        Server
	User          string
	Simulation    Simulation
	Affordability affordability.Params
}

// Logging selects the slog handler.
type Logging struct {
	Level  string
	Format string
}

// Database locates the SQLite state file.
type Database struct {
	Path string
}

// Simulation configures the month simulator. A zero seed means time-seeded.
type Simulation struct {
	Seed uint64
}

// Calendar configures the clock's time zone. Empty means the local zone.
type Calendar struct {
	Timezone string
}

// Server configures the HTTP API and the recurring-transaction scheduler.
// With TLS set the API serves HTTPS using a self-signed localhost
// certificate kept in a certs directory beside the database.
type Server struct {
	Addr              string
	RecurringSchedule string
	TLS               bool
}

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "$HOME/.local/share/dreambuilder/dreambuilder.db"

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	params := affordability.DefaultParams()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("calendar.timezone", "")
	v.SetDefault("affordability.debt_to_income", params.DebtToIncome)
	v.SetDefault("affordability.annual_interest_rate", params.AnnualInterestRate)
	v.SetDefault("affordability.loan_term_years", params.LoanTermYears)
	v.SetDefault("affordability.equity_ratio", params.EquityRatio)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.recurring_schedule", "@daily")
	v.SetDefault("server.tls", false)
	v.SetDefault("user", "default")
}

// Load reads the configuration from v, or from the global viper when v is nil.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)

	cfg := &Config{
		Logging: Logging{
			Level:  strings.ToLower(v.GetString("logging.level")),
			Format: strings.ToLower(v.GetString("logging.format")),
		},
		Database: Database{Path: ExpandPath(v.GetString("database.path"))},
		Simulation: Simulation{
			Seed: v.GetUint64("simulation.seed"),
		},
		Calendar: Calendar{Timezone: v.GetString("calendar.timezone")},
		Affordability: affordability.Params{
			DebtToIncome:       v.GetFloat64("affordability.debt_to_income"),
			AnnualInterestRate: v.GetFloat64("affordability.annual_interest_rate"),
			LoanTermYears:      v.GetInt("affordability.loan_term_years"),
			EquityRatio:        v.GetFloat64("affordability.equity_ratio"),
		},
		Server: Server{
			Addr:              v.GetString("server.addr"),
			RecurringSchedule: v.GetString("server.recurring_schedule"),
			TLS:               v.GetBool("server.tls"),
		},
		User: v.GetString("user"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("invalid log format: %s", c.Logging.Format))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: database.path", common.ErrMissingConfig))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Affordability.Validate(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.User) == "" {
		errs = append(errs, fmt.Errorf("%w: user", common.ErrMissingConfig))
	}
	if c.Server.RecurringSchedule != "" {
		if _, err := cron.ParseStandard(c.Server.RecurringSchedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid server.recurring_schedule %q: %w", c.Server.RecurringSchedule, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Calendar.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar.timezone %q: %w", c.Calendar.Timezone, err)
	}
	return loc, nil
}
