package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetrics tests that observations reach the collectors.
func TestMetrics(t *testing.T) {
	t.Parallel()

	t.Run("fetch outcomes", func(t *testing.T) {
		t.Parallel()
		m := New()
		m.ObserveFetch(nil)
		m.ObserveFetch(nil)
		m.ObserveFetch(errors.New("boom"))

		if got := testutil.ToFloat64(m.ListingsFetched.WithLabelValues(OutcomeSuccess)); got != 2 {
			t.Errorf("expected 2 successful fetches, got %v", got)
		}
		if got := testutil.ToFloat64(m.ListingsFetched.WithLabelValues(OutcomeError)); got != 1 {
			t.Errorf("expected 1 failed fetch, got %v", got)
		}
	})

	t.Run("store writes", func(t *testing.T) {
		t.Parallel()
		m := New()
		m.ObserveStore(3, nil)
		m.ObserveStore(0, errors.New("locked"))

		if got := testutil.ToFloat64(m.LinksStored); got != 3 {
			t.Errorf("expected 3 stored links, got %v", got)
		}
		if got := testutil.ToFloat64(m.StoreErrors); got != 1 {
			t.Errorf("expected 1 store error, got %v", got)
		}
	})

	t.Run("discovered links ignore zero counts", func(t *testing.T) {
		t.Parallel()
		m := New()
		m.AddDiscovered("video", 2)
		m.AddDiscovered("audio", 0)

		if got := testutil.ToFloat64(m.LinksDiscovered.WithLabelValues("video")); got != 2 {
			t.Errorf("expected 2 video links, got %v", got)
		}
		if got := testutil.CollectAndCount(m.LinksDiscovered); got != 1 {
			t.Errorf("expected 1 label set, got %d", got)
		}
	})

	t.Run("custom registerer", func(t *testing.T) {
		t.Parallel()
		reg := prometheus.NewRegistry()
		m := NewWithRegisterer(reg)
		m.ObserveSearch("video")

		if got := testutil.ToFloat64(m.SearchRequests.WithLabelValues("video")); got != 1 {
			t.Errorf("expected 1 video search, got %v", got)
		}
		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("Gather() error = %v", err)
		}
		if len(families) == 0 {
			t.Error("expected collectors on the custom registry")
		}
	})

	t.Run("nil metrics are a no-op", func(t *testing.T) {
		t.Parallel()
		var m *Metrics
		m.ObserveFetch(nil)
		m.AddDiscovered("video", 1)
		m.ObserveStore(1, nil)
		m.ObserveCrawl("completed", 1, time.Second)
		m.ObserveSearch("all")
	})
}

// TestHandler tests the exposition endpoint.
func TestHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveCrawl("completed", 4, 2*time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `opendir_crawls_total{result="completed"} 1`) {
		t.Errorf("expected crawl counter in output, got:\n%s", body)
	}
	if !strings.Contains(body, "opendir_crawl_duration_seconds_count 1") {
		t.Error("expected crawl duration histogram in output")
	}
}
