package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	m.RecordLoad("file", OutcomeSuccess, 10*time.Millisecond)
	m.RecordLoad("file", OutcomeError, time.Millisecond)
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)
	m.RecordAggregation("calidad-mes", time.Millisecond)
	m.RecordUpload(OutcomeSuccess, 2048)
	m.RecordUpload(OutcomeError, 99)

	if got := testutil.ToFloat64(m.loadsTotal.WithLabelValues("file", OutcomeSuccess)); got != 1 {
		t.Fatalf("expected 1 successful load, got %v", got)
	}
	if got := testutil.ToFloat64(m.cacheRequestsTotal.WithLabelValues("miss")); got != 2 {
		t.Fatalf("expected 2 misses, got %v", got)
	}
	if got := testutil.ToFloat64(m.uploadBytesTotal); got != 2048 {
		t.Fatalf("failed uploads must not count bytes, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatal(err)
	}
	m.RecordCache(true)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "analizador_dataset_cache_requests_total") {
		t.Fatalf("metrics output missing cache counter")
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("runtime collector not registered")
	}
}

func TestHTTPCollectors(t *testing.T) {
	m, err := New()
	if err != nil {
		t.Fatal(err)
	}
	m.ObserveRequest("GET", 200, 3*time.Millisecond)
	m.ObserveRequest("GET", 200, time.Millisecond)
	m.ObserveRequest("POST", 422, time.Millisecond)
	m.RecordRejected("rate_limit")

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "200")); got != 2 {
		t.Fatalf("expected 2 GET 200, got %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "422")); got != 1 {
		t.Fatalf("expected 1 POST 422, got %v", got)
	}
	if got := testutil.ToFloat64(m.rejectedTotal.WithLabelValues("rate_limit")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
}
