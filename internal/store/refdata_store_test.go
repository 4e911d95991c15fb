package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/jagriti"
)

const testDBURLKey = "LEXI_TEST_DATABASE_URL"

func getTestDatabaseURL(t *testing.T) string {
	t.Helper()
	connStr := os.Getenv(testDBURLKey)
	if connStr == "" {
		t.Skipf("set %s to a dedicated test database", testDBURLKey)
	}
	return connStr
}

func setupTestDatabase(t *testing.T, connStr string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)

	m, err := migrate.New("file://"+dir, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = m.Close() })

	err = m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}

	return db
}

func TestRefDataStoreStatesRoundTrip(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	refDataStore := NewRefDataStore(db)
	ctx := context.Background()

	states := []jagriti.State{
		{StateText: "DELHI", StateID: "10290000"},
		{StateText: "KARNATAKA", StateID: "11290000"},
	}
	require.NoError(t, refDataStore.SaveStates(ctx, states))

	loaded, fetchedAt, err := refDataStore.LoadStates(ctx)
	require.NoError(t, err)
	require.Equal(t, states, loaded)
	require.False(t, fetchedAt.IsZero())
}

func TestRefDataStoreStatesUpsert(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	refDataStore := NewRefDataStore(db)
	ctx := context.Background()

	require.NoError(t, refDataStore.SaveStates(ctx, []jagriti.State{{StateText: "OLD", StateID: "1"}}))
	require.NoError(t, refDataStore.SaveStates(ctx, []jagriti.State{{StateText: "NEW", StateID: "2"}}))

	loaded, _, err := refDataStore.LoadStates(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "NEW", loaded[0].StateText)
}

func TestRefDataStoreLoadStatesEmpty(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	refDataStore := NewRefDataStore(db)

	loaded, fetchedAt, err := refDataStore.LoadStates(context.Background())
	require.NoError(t, err)
	require.Nil(t, loaded)
	require.True(t, fetchedAt.IsZero())
}

func TestRefDataStoreCommissionsRoundTrip(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	refDataStore := NewRefDataStore(db)
	ctx := context.Background()

	karnataka := []jagriti.Commission{
		{CommissionText: "Bangalore Urban", CommissionID: "11290525", StateID: "11290000"},
	}
	delhi := []jagriti.Commission{
		{CommissionText: "New Delhi", CommissionID: "10290501", StateID: "10290000"},
	}
	require.NoError(t, refDataStore.SaveCommissions(ctx, "11290000", karnataka))
	require.NoError(t, refDataStore.SaveCommissions(ctx, "10290000", delhi))

	snapshots, err := refDataStore.LoadCommissions(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	byState := make(map[string][]jagriti.Commission, len(snapshots))
	for _, snapshot := range snapshots {
		require.False(t, snapshot.FetchedAt.IsZero())
		byState[snapshot.StateID] = snapshot.Commissions
	}
	require.Equal(t, karnataka, byState["11290000"])
	require.Equal(t, delhi, byState["10290000"])
}

func TestRefDataStoreSaveCommissionsRequiresStateID(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	refDataStore := NewRefDataStore(db)

	err := refDataStore.SaveCommissions(context.Background(), "  ", nil)
	require.Error(t, err)
}
