package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// Storage backends selectable with STORE.
const (
	StorePostgres = "postgres"
	// StoreMemory keeps everything in process memory; data is lost on exit.
	StoreMemory = "memory"
)

// Config is the process configuration.
type Config struct {
	Environment string
	HTTPPort    string
	Store       string
	Timezone    string
	Location    *time.Location
	Bot         BotConfig
	Mail        MailConfig
	Database    DatabaseConfig
	Jobs        JobsConfig
}

type BotConfig struct {
	Token    string
	Debug    bool
	AdminIDs []int64
}

type MailConfig struct {
	APIKey string
	From   string
}

// JobsConfig holds the Jalali days of month on which periodic jobs fire.
type JobsConfig struct {
	Enabled                bool
	InvoiceDay             int
	DebtorDay              int
	ReminderDay            int
	InsuranceThresholdDays int
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := getEnv("APP_ENV", "development")
	cfg := &Config{
		Environment: env,
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		Store:       getEnv("STORE", StorePostgres),
		Timezone:    getEnv("TIMEZONE", "Asia/Tehran"),
		Bot: BotConfig{
			Token:    getEnv("BOT_TOKEN", ""),
			Debug:    getEnvAsBool("BOT_DEBUG", env != "production"),
			AdminIDs: parseAdminIDs(getEnv("ADMIN_IDS", "")),
		},
		Mail: MailConfig{
			APIKey: getEnv("RESEND_API_KEY", ""),
			From:   getEnv("MAIL_FROM", "Futsal Club <noreply@futsal-club.ir>"),
		},
		Database: loadDatabase(env),
		Jobs: JobsConfig{
			Enabled:                getEnvAsBool("JOBS_ENABLED", true),
			InvoiceDay:             getEnvAsInt("INVOICE_DAY", 1),
			DebtorDay:              getEnvAsInt("DEBTOR_DAY", 15),
			ReminderDay:            getEnvAsInt("REMINDER_DAY", 20),
			InsuranceThresholdDays: getEnvAsInt("INSURANCE_THRESHOLD_DAYS", 30),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks required settings and resolves the location.
func (c *Config) validate() error {
	var err error

	loc, locErr := time.LoadLocation(c.Timezone)
	if locErr != nil {
		err = multierr.Append(err, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, locErr))
	}
	c.Location = loc

	if _, portErr := strconv.Atoi(c.HTTPPort); portErr != nil {
		err = multierr.Append(err, fmt.Errorf("HTTP_PORT must be numeric, got %q", c.HTTPPort))
	}

	switch c.Store {
	case StorePostgres:
		err = multierr.Append(err, c.Database.validate(c.IsProduction()))
	case StoreMemory:
		if c.IsProduction() {
			err = multierr.Append(err, errors.New("STORE=memory is not allowed in production"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store))
	}

	for name, day := range map[string]int{
		"INVOICE_DAY":  c.Jobs.InvoiceDay,
		"DEBTOR_DAY":   c.Jobs.DebtorDay,
		"REMINDER_DAY": c.Jobs.ReminderDay,
	} {
		// Esfand may have 29 days.
		if day < 1 || day > 29 {
			err = multierr.Append(err, fmt.Errorf("%s must be within 1..29, got %d", name, day))
		}
	}
	if c.Jobs.InsuranceThresholdDays < 0 {
		err = multierr.Append(err, errors.New("INSURANCE_THRESHOLD_DAYS must not be negative"))
	}
	if c.Mail.APIKey != "" && c.Mail.From == "" {
		err = multierr.Append(err, errors.New("MAIL_FROM is required when RESEND_API_KEY is set"))
	}

	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// parseAdminIDs reads a comma-separated list of Telegram ids, skipping bad entries.
func parseAdminIDs(ids string) []int64 {
	if ids == "" {
		return []int64{}
	}

	var result []int64
	for _, idStr := range strings.Split(ids, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64); err == nil {
			result = append(result, id)
		}
	}
	return result
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}
