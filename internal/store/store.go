// Package store persists reference-data snapshots so a restarted process has
// stale fallback material before its first successful upstream fetch.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection. The snapshot store
// is optional; callers skip it entirely when no DATABASE_URL is configured.
func Open(databaseURL string) (*sql.DB, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
