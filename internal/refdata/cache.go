// Package refdata caches the portal's slowly-changing reference data:
// states and the commissions under each state.
package refdata

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/jagriti"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/metrics"
)

const (
	defaultStatesTTL      = 24 * time.Hour
	defaultCommissionsTTL = 24 * time.Hour

	statesKey             = "states"
	commissionsKeyPrefix  = "commissions:"
	statesMetricsKey      = "states"
	commissionsMetricsKey = "commissions"
)

// Fetcher is the upstream source for reference data.
type Fetcher interface {
	FetchStates(ctx context.Context) ([]jagriti.State, error)
	FetchCommissions(ctx context.Context, stateID string) ([]jagriti.Commission, error)
}

// SnapshotStore persists fetched reference data so a restarted process can
// fall back to a stale copy before its first successful upstream fetch.
// Implementations must tolerate being called concurrently.
type SnapshotStore interface {
	SaveStates(ctx context.Context, states []jagriti.State) error
	SaveCommissions(ctx context.Context, stateID string, commissions []jagriti.Commission) error
}

type statesEntry struct {
	states    []jagriti.State
	fetchedAt time.Time
}

type commissionsEntry struct {
	commissions []jagriti.Commission
	fetchedAt   time.Time
}

type CacheOption func(*Cache)

// Cache is the process-wide reference-data cache. States and each state's
// commissions expire independently; a failed refresh falls back to the stale
// copy instead of failing the caller.
type Cache struct {
	fetcher        Fetcher
	snapshots      SnapshotStore
	statesTTL      time.Duration
	commissionsTTL time.Duration
	now            func() time.Time

	group singleflight.Group

	mu          sync.RWMutex
	states      *statesEntry
	commissions map[string]*commissionsEntry
}

func NewCache(fetcher Fetcher, options ...CacheOption) *Cache {
	cache := &Cache{
		fetcher:        fetcher,
		statesTTL:      defaultStatesTTL,
		commissionsTTL: defaultCommissionsTTL,
		now:            time.Now,
		commissions:    make(map[string]*commissionsEntry),
	}
	for _, option := range options {
		option(cache)
	}
	return cache
}

func WithTTLs(statesTTL, commissionsTTL time.Duration) CacheOption {
	return func(cache *Cache) {
		if statesTTL > 0 {
			cache.statesTTL = statesTTL
		}
		if commissionsTTL > 0 {
			cache.commissionsTTL = commissionsTTL
		}
	}
}

func WithClock(now func() time.Time) CacheOption {
	return func(cache *Cache) {
		if now != nil {
			cache.now = now
		}
	}
}

func WithSnapshotStore(store SnapshotStore) CacheOption {
	return func(cache *Cache) {
		cache.snapshots = store
	}
}

// Seed preloads an entry, typically from a persisted snapshot. Entries seeded
// with an old fetchedAt are stale on arrival and serve only as fallback
// material until the first successful refresh.
func (c *Cache) SeedStates(states []jagriti.State, fetchedAt time.Time) {
	if len(states) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = &statesEntry{states: states, fetchedAt: fetchedAt}
}

func (c *Cache) SeedCommissions(stateID string, commissions []jagriti.Commission, fetchedAt time.Time) {
	stateID = strings.TrimSpace(stateID)
	if stateID == "" || len(commissions) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commissions[stateID] = &commissionsEntry{commissions: commissions, fetchedAt: fetchedAt}
}

// GetStates returns the cached state list, refreshing it when expired.
// Concurrent cold-cache callers share a single upstream fetch.
func (c *Cache) GetStates(ctx context.Context) ([]jagriti.State, error) {
	c.mu.RLock()
	entry := c.states
	c.mu.RUnlock()

	if entry != nil && c.fresh(entry.fetchedAt, c.statesTTL) {
		metrics.RecordCacheHit(statesMetricsKey)
		return entry.states, nil
	}
	metrics.RecordCacheMiss(statesMetricsKey)

	result, err := c.shared(ctx, statesKey, func(fetchCtx context.Context) (any, error) {
		return c.refreshStates(fetchCtx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]jagriti.State), nil
}

// GetCommissions returns the commissions for one state, keyed and expired
// independently of every other state.
func (c *Cache) GetCommissions(ctx context.Context, stateID string) ([]jagriti.Commission, error) {
	stateID = strings.TrimSpace(stateID)
	if stateID == "" {
		return nil, fmt.Errorf("state id is required")
	}

	c.mu.RLock()
	entry := c.commissions[stateID]
	c.mu.RUnlock()

	if entry != nil && c.fresh(entry.fetchedAt, c.commissionsTTL) {
		metrics.RecordCacheHit(commissionsMetricsKey)
		return entry.commissions, nil
	}
	metrics.RecordCacheMiss(commissionsMetricsKey)

	result, err := c.shared(ctx, commissionsKeyPrefix+stateID, func(fetchCtx context.Context) (any, error) {
		return c.refreshCommissions(fetchCtx, stateID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]jagriti.Commission), nil
}

// Resolve maps state and commission display names to upstream identifiers.
// Matching is case-insensitive and whitespace-normalized; the returned error
// says which side failed so the API can answer precisely.
func (c *Cache) Resolve(ctx context.Context, stateName, commissionName string) (string, string, error) {
	states, err := c.GetStates(ctx)
	if err != nil {
		return "", "", err
	}

	wantState := normalizeName(stateName)
	var stateID string
	for _, state := range states {
		if normalizeName(state.StateText) == wantState {
			stateID = state.StateID
			break
		}
	}
	if stateID == "" {
		return "", "", &jagriti.NotFoundError{Entity: "state", Value: strings.TrimSpace(stateName)}
	}

	commissions, err := c.GetCommissions(ctx, stateID)
	if err != nil {
		return "", "", err
	}

	wantCommission := normalizeName(commissionName)
	for _, commission := range commissions {
		if normalizeName(commission.CommissionText) == wantCommission {
			return stateID, commission.CommissionID, nil
		}
	}
	return "", "", &jagriti.NotFoundError{Entity: "commission", Value: strings.TrimSpace(commissionName)}
}

// CachedStateIDs lists states whose commissions are currently cached, for the
// background refresh job.
func (c *Cache) CachedStateIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.commissions))
	for stateID := range c.commissions {
		ids = append(ids, stateID)
	}
	return ids
}

// RefreshStates re-fetches the state list regardless of freshness. Unlike the
// read path it reports the fetch error instead of falling back to a stale
// copy, so the background job can log it.
func (c *Cache) RefreshStates(ctx context.Context) error {
	_, err := c.shared(ctx, statesKey, func(fetchCtx context.Context) (any, error) {
		states, err := c.fetcher.FetchStates(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.storeStates(fetchCtx, states)
		return states, nil
	})
	return err
}

// RefreshCommissions re-fetches one state's commissions regardless of
// freshness.
func (c *Cache) RefreshCommissions(ctx context.Context, stateID string) error {
	stateID = strings.TrimSpace(stateID)
	if stateID == "" {
		return fmt.Errorf("state id is required")
	}
	_, err := c.shared(ctx, commissionsKeyPrefix+stateID, func(fetchCtx context.Context) (any, error) {
		commissions, err := c.fetcher.FetchCommissions(fetchCtx, stateID)
		if err != nil {
			return nil, err
		}
		c.storeCommissions(fetchCtx, stateID, commissions)
		return commissions, nil
	})
	return err
}

// shared funnels concurrent refreshes of one key through a single in-flight
// fetch. The fetch runs on a context detached from the initiating caller so
// one caller disconnecting does not fail everyone awaiting the result; the
// upstream client applies its own overall deadline.
func (c *Cache) shared(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-ch:
		return result.Val, result.Err
	}
}

func (c *Cache) refreshStates(ctx context.Context) ([]jagriti.State, error) {
	// Another caller may have refreshed while we waited on the flight.
	c.mu.RLock()
	entry := c.states
	c.mu.RUnlock()
	if entry != nil && c.fresh(entry.fetchedAt, c.statesTTL) {
		return entry.states, nil
	}

	states, err := c.fetcher.FetchStates(ctx)
	if err != nil {
		if entry != nil {
			// Availability over freshness: serve the expired copy.
			log.Printf("refdata: states refresh failed, serving stale copy from %s: %v", entry.fetchedAt.Format(time.RFC3339), err)
			metrics.RecordCacheStaleFallback(statesMetricsKey)
			return entry.states, nil
		}
		return nil, err
	}

	c.storeStates(ctx, states)
	return states, nil
}

func (c *Cache) storeStates(ctx context.Context, states []jagriti.State) {
	c.mu.Lock()
	c.states = &statesEntry{states: states, fetchedAt: c.now()}
	c.mu.Unlock()
	metrics.RecordCacheRefresh(statesMetricsKey)

	if c.snapshots != nil {
		if err := c.snapshots.SaveStates(ctx, states); err != nil {
			log.Printf("refdata: persisting states snapshot failed: %v", err)
		}
	}
}

func (c *Cache) refreshCommissions(ctx context.Context, stateID string) ([]jagriti.Commission, error) {
	c.mu.RLock()
	entry := c.commissions[stateID]
	c.mu.RUnlock()
	if entry != nil && c.fresh(entry.fetchedAt, c.commissionsTTL) {
		return entry.commissions, nil
	}

	commissions, err := c.fetcher.FetchCommissions(ctx, stateID)
	if err != nil {
		if entry != nil {
			log.Printf("refdata: commissions refresh failed for state %s, serving stale copy from %s: %v", stateID, entry.fetchedAt.Format(time.RFC3339), err)
			metrics.RecordCacheStaleFallback(commissionsMetricsKey)
			return entry.commissions, nil
		}
		return nil, err
	}

	c.storeCommissions(ctx, stateID, commissions)
	return commissions, nil
}

func (c *Cache) storeCommissions(ctx context.Context, stateID string, commissions []jagriti.Commission) {
	c.mu.Lock()
	c.commissions[stateID] = &commissionsEntry{commissions: commissions, fetchedAt: c.now()}
	c.mu.Unlock()
	metrics.RecordCacheRefresh(commissionsMetricsKey)

	if c.snapshots != nil {
		if err := c.snapshots.SaveCommissions(ctx, stateID, commissions); err != nil {
			log.Printf("refdata: persisting commissions snapshot failed for state %s: %v", stateID, err)
		}
	}
}

func (c *Cache) fresh(fetchedAt time.Time, ttl time.Duration) bool {
	return !fetchedAt.IsZero() && c.now().Sub(fetchedAt) <= ttl
}

func normalizeName(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}
