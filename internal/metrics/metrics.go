package metrics

import (
	"strings"
	"sync"
	"time"
)

type UpstreamMetrics struct {
	RequestsTotal      int64 `json:"requests_total"`
	SuccessTotal       int64 `json:"success_total"`
	FailureTotal       int64 `json:"failure_total"`
	RetryTotal         int64 `json:"retry_total"`
	CaptchaTotal       int64 `json:"captcha_total"`
	TimeoutTotal       int64 `json:"timeout_total"`
	TotalLatencyMillis int64 `json:"total_latency_millis"`
}

type CacheMetrics struct {
	Hits           int64     `json:"hits"`
	Misses         int64     `json:"misses"`
	Refreshes      int64     `json:"refreshes"`
	StaleFallbacks int64     `json:"stale_fallbacks"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Snapshot struct {
	Upstream    map[string]UpstreamMetrics `json:"upstream"`
	Cache       map[string]CacheMetrics    `json:"cache"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

type registry struct {
	mu       sync.RWMutex
	upstream map[string]*UpstreamMetrics
	cache    map[string]*CacheMetrics
}

var globalRegistry = newRegistry()

func newRegistry() *registry {
	return &registry{
		upstream: make(map[string]*UpstreamMetrics),
		cache:    make(map[string]*CacheMetrics),
	}
}

func ResetForTests() {
	globalRegistry = newRegistry()
}

func RecordUpstreamRequest(endpoint string) {
	globalRegistry.updateUpstream(endpoint, func(m *UpstreamMetrics) {
		m.RequestsTotal++
	})
}

func RecordUpstreamSuccess(endpoint string, latency time.Duration) {
	globalRegistry.updateUpstream(endpoint, func(m *UpstreamMetrics) {
		m.SuccessTotal++
		if latency > 0 {
			m.TotalLatencyMillis += latency.Milliseconds()
		}
	})
}

func RecordUpstreamFailure(endpoint string) {
	globalRegistry.updateUpstream(endpoint, func(m *UpstreamMetrics) {
		m.FailureTotal++
	})
}

func RecordUpstreamRetry(endpoint string) {
	globalRegistry.updateUpstream(endpoint, func(m *UpstreamMetrics) {
		m.RetryTotal++
	})
}

func RecordUpstreamTimeout(endpoint string) {
	globalRegistry.updateUpstream(endpoint, func(m *UpstreamMetrics) {
		m.TimeoutTotal++
	})
}

func RecordCaptchaDetected(endpoint string) {
	globalRegistry.updateUpstream(endpoint, func(m *UpstreamMetrics) {
		m.CaptchaTotal++
	})
}

func RecordCacheHit(key string) {
	globalRegistry.updateCache(key, func(m *CacheMetrics) {
		m.Hits++
	})
}

func RecordCacheMiss(key string) {
	globalRegistry.updateCache(key, func(m *CacheMetrics) {
		m.Misses++
	})
}

func RecordCacheRefresh(key string) {
	globalRegistry.updateCache(key, func(m *CacheMetrics) {
		m.Refreshes++
	})
}

func RecordCacheStaleFallback(key string) {
	globalRegistry.updateCache(key, func(m *CacheMetrics) {
		m.StaleFallbacks++
	})
}

func SnapshotNow() Snapshot {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	snapshot := Snapshot{
		Upstream:    make(map[string]UpstreamMetrics, len(globalRegistry.upstream)),
		Cache:       make(map[string]CacheMetrics, len(globalRegistry.cache)),
		GeneratedAt: time.Now().UTC(),
	}

	for key, m := range globalRegistry.upstream {
		snapshot.Upstream[key] = *m
	}
	for key, m := range globalRegistry.cache {
		snapshot.Cache[key] = *m
	}

	return snapshot
}

func (r *registry) updateUpstream(endpoint string, update func(*UpstreamMetrics)) {
	key := normalizeKey(endpoint)
	if key == "" {
		key = "unknown"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.upstream[key]
	if !ok {
		m = &UpstreamMetrics{}
		r.upstream[key] = m
	}
	update(m)
}

func (r *registry) updateCache(key string, update func(*CacheMetrics)) {
	normalized := normalizeKey(key)
	if normalized == "" {
		normalized = "unknown"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.cache[normalized]
	if !ok {
		m = &CacheMetrics{}
		r.cache[normalized] = m
	}
	update(m)
	m.UpdatedAt = time.Now().UTC()
}

func normalizeKey(raw string) string {
	return strings.TrimSpace(strings.ToLower(raw))
}
