package config

import (
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/multierr"
)

// DatabaseConfig locates the Postgres database.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	Username string
	Password string
	Name     string
	SSLMode  string
}

func loadDatabase(env string) DatabaseConfig {
	return DatabaseConfig{
		URL:      getEnv("DATABASE_URL", ""),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		Username: getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "futsal"),
		SSLMode:  getSSLMode(env),
	}
}

// DSN returns DATABASE_URL when set, otherwise a postgres URL built from the parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

func (d DatabaseConfig) validate(production bool) error {
	if d.URL != "" {
		return nil
	}
	var err error
	if d.Username == "" {
		err = multierr.Append(err, errors.New("DB_USER is required"))
	}
	if d.Password == "" && production {
		err = multierr.Append(err, errors.New("DB_PASSWORD is required in production"))
	}
	return err
}

// getSSLMode requires TLS in production only.
func getSSLMode(env string) string {
	if env == "production" {
		return "require"
	}
	return "disable"
}
