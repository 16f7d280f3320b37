package database

import (
	"fmt"
	"time"

	"futsal-club/internal/models/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/xo/dburl"
	"go.uber.org/zap"
)

func NewPostgres(cfg config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	u, err := dburl.Parse(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if u.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported database driver %q", u.Driver)
	}

	db, err := sqlx.Connect(u.Driver, u.DSN)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("connected to postgres", zap.String("host", u.Host), zap.String("database", u.Path))
	return db, nil
}
