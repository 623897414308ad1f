// Package storage provides PostgreSQL-backed persistence for alerts.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/pmarren/alertline/internal/models"
)

// Store is the alert persistence contract shared by the ingestion endpoint
// and the command interface.
type Store interface {
	// InsertAlert persists one alert and returns the assigned ID.
	InsertAlert(ctx context.Context, in models.AlertInput) (int64, error)
	// FindByCategory returns all alerts whose category contains needle as a
	// substring. An empty needle matches every alert.
	FindByCategory(ctx context.Context, needle string) ([]models.Alert, error)
}

// Config holds the database connection parameters. The password is kept out
// of the config file and comes from the secrets service.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ConnString builds a lib/pq connection string.
func (c Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Postgres implements Store on top of a PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// New opens a connection pool, verifies connectivity, and bootstraps the
// schema. The returned store is safe for concurrent use.
func New(ctx context.Context, cfg Config) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Postgres{db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}

func (s *Postgres) createTables(ctx context.Context) error {
	// "interval" is a reserved word in PostgreSQL, hence the quoting.
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS alerts (
			id         BIGSERIAL PRIMARY KEY,
			ticker     TEXT NOT NULL,
			signal     TEXT NOT NULL,
			category   TEXT NOT NULL,
			ts         TIMESTAMPTZ NOT NULL,
			"interval" TEXT NOT NULL
		)`)
	return err
}

// InsertAlert stores one alert. Timestamps are normalized to UTC so no
// offset information is lost between submission and storage.
func (s *Postgres) InsertAlert(ctx context.Context, in models.AlertInput) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO alerts (ticker, signal, category, ts, "interval")
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		in.Ticker, in.Signal, in.Category, in.Timestamp.UTC(), in.Interval,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert alert: %w", err)
	}
	return id, nil
}

// FindByCategory matches by substring. POSITION('' IN x) is 1, so an empty
// needle returns every alert, which is exactly the substring semantics.
func (s *Postgres) FindByCategory(ctx context.Context, needle string) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticker, signal, category, ts, "interval"
		FROM alerts
		WHERE POSITION($1 IN category) > 0`,
		needle,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.Ticker, &a.Signal, &a.Category, &a.Timestamp, &a.Interval); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts, rows.Err()
}
