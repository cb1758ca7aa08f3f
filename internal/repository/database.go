package repository

import (
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PoolConfig tunes the database/sql connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectTimeout bounds how long Open keeps retrying the first ping.
	ConnectTimeout time.Duration
}

// Open connects to PostgreSQL, retrying the initial ping with exponential
// backoff until cfg.ConnectTimeout elapses.
func Open(dsn string, cfg PoolConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(defaultInt(cfg.MaxOpenConns, 25))
	db.SetMaxIdleConns(defaultInt(cfg.MaxIdleConns, 25))
	db.SetConnMaxLifetime(defaultDuration(cfg.ConnMaxLifetime, 5*time.Minute))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = defaultDuration(cfg.ConnectTimeout, 30*time.Second)

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		if err := db.Ping(); err != nil {
			logger.Warn("Database not ready", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}, policy)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable after %d attempts: %w", attempt, err)
	}

	logger.Info("Successfully connected to database", "attempts", attempt)
	return db, nil
}

// Migrate applies the embedded schema migrations. databaseURL is a
// postgres:// URL; migrate opens and closes its own connection.
func Migrate(databaseURL string, logger *slog.Logger) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, _ := m.Version()
	logger.Info("Database migrations applied", "version", version, "dirty", dirty)
	return nil
}

func defaultDuration(v, d time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return d
}

func defaultInt(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}
