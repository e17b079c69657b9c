// Package autopilot persists autopilot system state per category in SQLite
// and serves it to the nav mode resolver.
package autopilot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/signalsfoundry/efis-adapter/model"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS autopilot_state (
	category TEXT PRIMARY KEY,
	engaged INTEGER NOT NULL,
	nav_mode INTEGER NOT NULL,
	vertical_deviation INTEGER NOT NULL DEFAULT 0,
	vertical_guidance_valid INTEGER NOT NULL DEFAULT 0,
	updated_unix_nano INTEGER NOT NULL
);`

// Store is a SQLite-backed autopilot state store.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the autopilot database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("autopilot database path is required")
	}
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create autopilot directory: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open autopilot database: %w", err)
	}
	// A single connection keeps in-memory databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize autopilot schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Upsert stores st as the current state for st.Category.
func (s *Store) Upsert(ctx context.Context, st model.APSystemState) error {
	if st.Category == "" {
		return errors.New("autopilot state has no category")
	}
	if st.Updated.IsZero() {
		st.Updated = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO autopilot_state (category, engaged, nav_mode, vertical_deviation, vertical_guidance_valid, updated_unix_nano)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			engaged = excluded.engaged,
			nav_mode = excluded.nav_mode,
			vertical_deviation = excluded.vertical_deviation,
			vertical_guidance_valid = excluded.vertical_guidance_valid,
			updated_unix_nano = excluded.updated_unix_nano`,
		st.Category, boolInt(st.Engaged), int(st.NavMode), st.VerticalDeviationRaw,
		boolInt(st.VerticalGuidanceValid), st.Updated.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert autopilot state: %w", err)
	}
	return nil
}

// Delete removes the state for categoryID.
func (s *Store) Delete(ctx context.Context, categoryID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM autopilot_state WHERE category = ?`, categoryID); err != nil {
		return fmt.Errorf("delete autopilot state: %w", err)
	}
	return nil
}

// ReadAutopilot implements core.AutopilotReader. A category without a row
// reads as absent.
func (s *Store) ReadAutopilot(ctx context.Context, cat model.Category) (model.APSystemState, bool, error) {
	var (
		engaged, valid int
		mode           int
		dev            int32
		updated        int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT engaged, nav_mode, vertical_deviation, vertical_guidance_valid, updated_unix_nano
		FROM autopilot_state WHERE category = ?`, cat.ID).
		Scan(&engaged, &mode, &dev, &valid, &updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.APSystemState{}, false, nil
	case err != nil:
		return model.APSystemState{}, false, fmt.Errorf("query autopilot state: %w", err)
	}
	return model.APSystemState{
		Category:              cat.ID,
		Engaged:               engaged != 0,
		NavMode:               model.NavMode(mode),
		VerticalDeviationRaw:  dev,
		VerticalGuidanceValid: valid != 0,
		Updated:               time.Unix(0, updated),
	}, true, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
