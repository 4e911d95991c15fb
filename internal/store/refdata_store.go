package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/jagriti"
)

const (
	statesSnapshotKey       = "states"
	commissionsSnapshotKey  = "commissions:"
	snapshotUpsertSQL       = `INSERT INTO refdata_snapshots (key, payload, fetched_at) VALUES ($1, $2, NOW()) ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at`
	snapshotSelectSQL       = `SELECT payload, fetched_at FROM refdata_snapshots WHERE key = $1`
	snapshotSelectPrefixSQL = `SELECT key, payload, fetched_at FROM refdata_snapshots WHERE key LIKE $1`
)

// RefDataStore reads and writes reference-data snapshots. It satisfies
// refdata.SnapshotStore.
type RefDataStore struct {
	db *sql.DB
}

func NewRefDataStore(db *sql.DB) *RefDataStore {
	return &RefDataStore{db: db}
}

func (s *RefDataStore) SaveStates(ctx context.Context, states []jagriti.State) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("refdata store is not configured")
	}
	payload, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("encode states snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, snapshotUpsertSQL, statesSnapshotKey, payload); err != nil {
		return fmt.Errorf("save states snapshot: %w", err)
	}
	return nil
}

func (s *RefDataStore) SaveCommissions(ctx context.Context, stateID string, commissions []jagriti.Commission) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("refdata store is not configured")
	}
	stateID = strings.TrimSpace(stateID)
	if stateID == "" {
		return fmt.Errorf("state id is required")
	}
	payload, err := json.Marshal(commissions)
	if err != nil {
		return fmt.Errorf("encode commissions snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, snapshotUpsertSQL, commissionsSnapshotKey+stateID, payload); err != nil {
		return fmt.Errorf("save commissions snapshot: %w", err)
	}
	return nil
}

// LoadStates returns the persisted state list and when it was fetched, or a
// zero time when no snapshot exists.
func (s *RefDataStore) LoadStates(ctx context.Context) ([]jagriti.State, time.Time, error) {
	if s == nil || s.db == nil {
		return nil, time.Time{}, fmt.Errorf("refdata store is not configured")
	}

	var payload []byte
	var fetchedAt time.Time
	err := s.db.QueryRowContext(ctx, snapshotSelectSQL, statesSnapshotKey).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load states snapshot: %w", err)
	}

	var states []jagriti.State
	if err := json.Unmarshal(payload, &states); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode states snapshot: %w", err)
	}
	return states, fetchedAt, nil
}

// CommissionsSnapshot is one persisted commissions list.
type CommissionsSnapshot struct {
	StateID     string
	Commissions []jagriti.Commission
	FetchedAt   time.Time
}

// LoadCommissions returns every persisted commissions snapshot.
func (s *RefDataStore) LoadCommissions(ctx context.Context) ([]CommissionsSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("refdata store is not configured")
	}

	rows, err := s.db.QueryContext(ctx, snapshotSelectPrefixSQL, commissionsSnapshotKey+"%")
	if err != nil {
		return nil, fmt.Errorf("load commissions snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []CommissionsSnapshot
	for rows.Next() {
		var key string
		var payload []byte
		var fetchedAt time.Time
		if err := rows.Scan(&key, &payload, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan commissions snapshot: %w", err)
		}

		var commissions []jagriti.Commission
		if err := json.Unmarshal(payload, &commissions); err != nil {
			return nil, fmt.Errorf("decode commissions snapshot %s: %w", key, err)
		}
		snapshots = append(snapshots, CommissionsSnapshot{
			StateID:     strings.TrimPrefix(key, commissionsSnapshotKey),
			Commissions: commissions,
			FetchedAt:   fetchedAt,
		})
	}
	return snapshots, rows.Err()
}
