package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// The registry is process-wide, so the whole lifecycle runs in one test.
func TestRegistryLifecycle(t *testing.T) {
	if IsEnabled() {
		t.Fatal("registry enabled before InitRegistry")
	}
	if GetRegistry() != nil {
		t.Fatal("expected nil registry before InitRegistry")
	}

	InitRegistry()

	if !IsEnabled() {
		t.Fatal("registry not enabled after InitRegistry")
	}
	first := GetRegistry()
	if first == nil {
		t.Fatal("expected registry after InitRegistry")
	}

	// A second call must not replace the registry.
	InitRegistry()
	if GetRegistry() != first {
		t.Error("InitRegistry replaced an existing registry")
	}
}

func TestServerServesMetrics(t *testing.T) {
	InitRegistry()

	counter := promauto.With(GetRegistry()).NewCounter(prometheus.CounterOpts{
		Name: "zkauth_test_events_total",
		Help: "Test counter.",
	})
	counter.Add(3)

	srv := NewServer(9090)
	if srv.Port() != 9090 {
		t.Errorf("Port() = %d, want 9090", srv.Port())
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "zkauth_test_events_total 3") {
		t.Errorf("scrape output missing test counter:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("scrape output missing Go runtime collector")
	}
}

func TestServerNotFoundOutsideMetricsPath(t *testing.T) {
	InitRegistry()
	srv := NewServer(9090)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("GET / = %d, want 404", rec.Code)
	}
}
