package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestSnapshotCapturesUpstreamAndCacheMetrics(t *testing.T) {
	ResetForTests()

	RecordUpstreamRequest("getCaseDetailsBySearchType")
	RecordUpstreamRetry("getCaseDetailsBySearchType")
	RecordUpstreamRequest("getCaseDetailsBySearchType")
	RecordUpstreamSuccess("getCaseDetailsBySearchType", 180*time.Millisecond)
	RecordUpstreamFailure("getCaseDetailsBySearchType")
	RecordCaptchaDetected("getCaseDetailsBySearchType")
	RecordUpstreamTimeout("getCaseDetailsBySearchType")

	RecordCacheMiss("states")
	RecordCacheRefresh("states")
	RecordCacheHit("states")
	RecordCacheHit("states")
	RecordCacheStaleFallback("states")

	snapshot := SnapshotNow()

	upstream, ok := snapshot.Upstream["getcasedetailsbysearchtype"]
	if !ok {
		t.Fatalf("expected upstream metrics for the search endpoint")
	}
	if upstream.RequestsTotal != 2 {
		t.Fatalf("expected requests_total=2, got %d", upstream.RequestsTotal)
	}
	if upstream.SuccessTotal != 1 {
		t.Fatalf("expected success_total=1, got %d", upstream.SuccessTotal)
	}
	if upstream.FailureTotal != 1 {
		t.Fatalf("expected failure_total=1, got %d", upstream.FailureTotal)
	}
	if upstream.RetryTotal != 1 {
		t.Fatalf("expected retry_total=1, got %d", upstream.RetryTotal)
	}
	if upstream.CaptchaTotal != 1 {
		t.Fatalf("expected captcha_total=1, got %d", upstream.CaptchaTotal)
	}
	if upstream.TimeoutTotal != 1 {
		t.Fatalf("expected timeout_total=1, got %d", upstream.TimeoutTotal)
	}
	if upstream.TotalLatencyMillis != 180 {
		t.Fatalf("expected latency=180ms, got %d", upstream.TotalLatencyMillis)
	}

	cache, ok := snapshot.Cache["states"]
	if !ok {
		t.Fatalf("expected cache metrics for states")
	}
	if cache.Hits != 2 || cache.Misses != 1 || cache.Refreshes != 1 || cache.StaleFallbacks != 1 {
		t.Fatalf("unexpected cache metrics: %+v", cache)
	}
	if cache.UpdatedAt.IsZero() {
		t.Fatalf("expected updated_at to be stamped")
	}
	if snapshot.GeneratedAt.IsZero() {
		t.Fatalf("expected generated_at to be stamped")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	ResetForTests()

	RecordCacheHit("commissions")
	before := SnapshotNow()
	RecordCacheHit("commissions")

	if before.Cache["commissions"].Hits != 1 {
		t.Fatalf("snapshot must not track later updates, got %d hits", before.Cache["commissions"].Hits)
	}
}

func TestConcurrentRecording(t *testing.T) {
	ResetForTests()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RecordUpstreamRequest("getStateCommissionAndCircuitBench")
			RecordCacheHit("states")
		}()
	}
	wg.Wait()

	snapshot := SnapshotNow()
	if got := snapshot.Upstream["getstatecommissionandcircuitbench"].RequestsTotal; got != 50 {
		t.Fatalf("expected 50 requests, got %d", got)
	}
	if got := snapshot.Cache["states"].Hits; got != 50 {
		t.Fatalf("expected 50 hits, got %d", got)
	}
}
