package refdata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/jagriti"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/metrics"
)

type stubFetcher struct {
	mu               sync.Mutex
	states           []jagriti.State
	statesErr        error
	statesCalls      int32
	commissions      map[string][]jagriti.Commission
	commissionsErr   error
	commissionsCalls int32
	delay            time.Duration
}

func (f *stubFetcher) FetchStates(ctx context.Context) ([]jagriti.State, error) {
	atomic.AddInt32(&f.statesCalls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statesErr != nil {
		return nil, f.statesErr
	}
	return f.states, nil
}

func (f *stubFetcher) FetchCommissions(ctx context.Context, stateID string) ([]jagriti.Commission, error) {
	atomic.AddInt32(&f.commissionsCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commissionsErr != nil {
		return nil, f.commissionsErr
	}
	return f.commissions[stateID], nil
}

func (f *stubFetcher) setStatesErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statesErr = err
}

var testStates = []jagriti.State{
	{StateText: "DELHI", StateID: "10290000"},
	{StateText: "KARNATAKA", StateID: "11290000"},
}

var testCommissions = map[string][]jagriti.Commission{
	"11290000": {
		{CommissionText: "Bangalore Urban", CommissionID: "11290525", StateID: "11290000"},
	},
}

func TestGetStatesCachesUntilExpiry(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{states: testStates}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCache(fetcher,
		WithTTLs(time.Hour, time.Hour),
		WithClock(func() time.Time { return now }),
	)

	for i := 0; i < 3; i++ {
		states, err := cache.GetStates(context.Background())
		require.NoError(t, err)
		require.Equal(t, testStates, states)
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&fetcher.statesCalls))

	// Past the TTL the next read refreshes.
	now = now.Add(2 * time.Hour)
	_, err := cache.GetStates(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&fetcher.statesCalls))
}

func TestConcurrentColdReadsShareOneFetch(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{states: testStates, delay: 50 * time.Millisecond}
	cache := NewCache(fetcher)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.GetStates(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&fetcher.statesCalls))
}

func TestExpiredEntryServedStaleWhenRefreshFails(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{states: testStates}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCache(fetcher,
		WithTTLs(time.Hour, time.Hour),
		WithClock(func() time.Time { return now }),
	)

	_, err := cache.GetStates(context.Background())
	require.NoError(t, err)

	fetcher.setStatesErr(&jagriti.UpstreamError{StatusCode: 503, Detail: "down"})
	now = now.Add(2 * time.Hour)

	states, err := cache.GetStates(context.Background())
	require.NoError(t, err, "stale data should be served when the refresh fails")
	require.Equal(t, testStates, states)

	snapshot := metrics.SnapshotNow()
	require.EqualValues(t, 1, snapshot.Cache["states"].StaleFallbacks)
}

func TestColdCacheFailurePropagates(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{statesErr: &jagriti.CaptchaError{Marker: "captcha"}}
	cache := NewCache(fetcher)

	_, err := cache.GetStates(context.Background())

	var captchaErr *jagriti.CaptchaError
	require.ErrorAs(t, err, &captchaErr)
}

func TestGetCommissionsKeyedByState(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{commissions: testCommissions}
	cache := NewCache(fetcher)

	commissions, err := cache.GetCommissions(context.Background(), "11290000")
	require.NoError(t, err)
	require.Len(t, commissions, 1)

	// Second state misses independently.
	_, err = cache.GetCommissions(context.Background(), "10290000")
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&fetcher.commissionsCalls))

	// Both now cached.
	_, err = cache.GetCommissions(context.Background(), "11290000")
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&fetcher.commissionsCalls))

	require.ElementsMatch(t, []string{"10290000", "11290000"}, cache.CachedStateIDs())
}

func TestGetCommissionsRequiresStateID(t *testing.T) {
	cache := NewCache(&stubFetcher{})

	_, err := cache.GetCommissions(context.Background(), "   ")
	require.Error(t, err)
}

func TestResolveNormalizesNames(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{states: testStates, commissions: testCommissions}
	cache := NewCache(fetcher)

	tests := []struct {
		name       string
		state      string
		commission string
	}{
		{"exact", "KARNATAKA", "Bangalore Urban"},
		{"lowercase", "karnataka", "bangalore urban"},
		{"extra whitespace", "  Karnataka  ", " Bangalore   Urban "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stateID, commissionID, err := cache.Resolve(context.Background(), tt.state, tt.commission)
			require.NoError(t, err)
			require.Equal(t, "11290000", stateID)
			require.Equal(t, "11290525", commissionID)
		})
	}
}

func TestResolveReportsWhichSideFailed(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{states: testStates, commissions: testCommissions}
	cache := NewCache(fetcher)

	_, _, err := cache.Resolve(context.Background(), "Atlantis", "Bangalore Urban")
	var notFound *jagriti.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "state", notFound.Entity)
	require.Equal(t, "Atlantis", notFound.Value)

	_, _, err = cache.Resolve(context.Background(), "Karnataka", "Nowhere District")
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "commission", notFound.Entity)
	require.Equal(t, "Nowhere District", notFound.Value)
}

func TestSeededEntriesServeWithoutFetch(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{statesErr: errors.New("upstream should not be called")}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCache(fetcher,
		WithTTLs(time.Hour, time.Hour),
		WithClock(func() time.Time { return now }),
	)
	cache.SeedStates(testStates, now.Add(-30*time.Minute))

	states, err := cache.GetStates(context.Background())
	require.NoError(t, err)
	require.Equal(t, testStates, states)
	require.EqualValues(t, 0, atomic.LoadInt32(&fetcher.statesCalls))
}

func TestSeededStaleEntryIsFallbackOnly(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{statesErr: errors.New("still down")}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCache(fetcher,
		WithTTLs(time.Hour, time.Hour),
		WithClock(func() time.Time { return now }),
	)
	cache.SeedStates(testStates, now.Add(-48*time.Hour))

	states, err := cache.GetStates(context.Background())
	require.NoError(t, err)
	require.Equal(t, testStates, states)
	require.EqualValues(t, 1, atomic.LoadInt32(&fetcher.statesCalls), "a stale seed still triggers a refresh attempt")
}

type recordingSnapshots struct {
	mu          sync.Mutex
	states      []jagriti.State
	commissions map[string][]jagriti.Commission
}

func (s *recordingSnapshots) SaveStates(ctx context.Context, states []jagriti.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = states
	return nil
}

func (s *recordingSnapshots) SaveCommissions(ctx context.Context, stateID string, commissions []jagriti.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commissions == nil {
		s.commissions = make(map[string][]jagriti.Commission)
	}
	s.commissions[stateID] = commissions
	return nil
}

func TestSuccessfulRefreshPersistsSnapshot(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{states: testStates, commissions: testCommissions}
	snapshots := &recordingSnapshots{}
	cache := NewCache(fetcher, WithSnapshotStore(snapshots))

	_, err := cache.GetStates(context.Background())
	require.NoError(t, err)
	_, err = cache.GetCommissions(context.Background(), "11290000")
	require.NoError(t, err)

	snapshots.mu.Lock()
	defer snapshots.mu.Unlock()
	require.Equal(t, testStates, snapshots.states)
	require.Equal(t, testCommissions["11290000"], snapshots.commissions["11290000"])
}

func TestForcedRefreshBypassesTTL(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{states: testStates, commissions: testCommissions}
	cache := NewCache(fetcher)

	_, err := cache.GetStates(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&fetcher.statesCalls))

	require.NoError(t, cache.RefreshStates(context.Background()))
	require.EqualValues(t, 2, atomic.LoadInt32(&fetcher.statesCalls))

	require.NoError(t, cache.RefreshCommissions(context.Background(), "11290000"))
	require.EqualValues(t, 1, atomic.LoadInt32(&fetcher.commissionsCalls))
}

func TestForcedRefreshReportsFetchError(t *testing.T) {
	metrics.ResetForTests()
	fetcher := &stubFetcher{statesErr: errors.New("down")}
	cache := NewCache(fetcher)

	err := cache.RefreshStates(context.Background())
	require.Error(t, err)
}
