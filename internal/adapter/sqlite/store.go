// Package sqlite persists daily fire-code state in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS fire_code_state (
	location   TEXT NOT NULL,
	day        TEXT NOT NULL,
	ffmc       REAL NOT NULL,
	dmc        REAL NOT NULL,
	dc         REAL NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (location, day)
);
CREATE INDEX IF NOT EXISTS idx_fire_code_state_location_day ON fire_code_state(location, day DESC);`

// Store implements domain.FireCodeStore.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load returns the most recent state stored for the location on a day before
// before. Re-running a day therefore starts from the same prior state.
func (s *Store) Load(ctx context.Context, location string, before time.Time) (domain.FireCodeState, bool, error) {
	var st domain.FireCodeState
	err := s.db.QueryRowContext(ctx, `
		SELECT ffmc, dmc, dc FROM fire_code_state
		WHERE location = ? AND day < ?
		ORDER BY day DESC
		LIMIT 1`, location, before.Format(time.DateOnly)).Scan(&st.FFMC, &st.DMC, &st.DC)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FireCodeState{}, false, nil
	}
	if err != nil {
		return domain.FireCodeState{}, false, fmt.Errorf("load state for %s: %w", location, err)
	}
	return st, true, nil
}

// Save upserts the state for the location and calendar day of day.
func (s *Store) Save(ctx context.Context, location string, day time.Time, state domain.FireCodeState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fire_code_state (location, day, ffmc, dmc, dc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(location, day) DO UPDATE SET
			ffmc = excluded.ffmc,
			dmc = excluded.dmc,
			dc = excluded.dc,
			updated_at = CURRENT_TIMESTAMP`,
		location, day.Format(time.DateOnly), state.FFMC, state.DMC, state.DC)
	if err != nil {
		return fmt.Errorf("save state for %s: %w", location, err)
	}
	return nil
}

// History returns up to limit of the most recent daily states, newest first.
func (s *Store) History(ctx context.Context, location string, limit int) ([]domain.DailyState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, ffmc, dmc, dc FROM fire_code_state
		WHERE location = ?
		ORDER BY day DESC
		LIMIT ?`, location, limit)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", location, err)
	}
	defer rows.Close()

	var out []domain.DailyState
	for rows.Next() {
		var d domain.DailyState
		if err := rows.Scan(&d.Day, &d.State.FFMC, &d.State.DMC, &d.State.DC); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
