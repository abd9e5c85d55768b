package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	m := New()

	m.LoginAttempt("success")
	m.LoginAttempt("invalid_credentials")
	m.LoginAttempt("invalid_credentials")
	m.SessionResolved("expired")

	if got := testutil.ToFloat64(m.loginAttempts.WithLabelValues("invalid_credentials")); got != 2 {
		t.Errorf("invalid_credentials = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.loginAttempts.WithLabelValues("success")); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sessionResolutions.WithLabelValues("expired")); got != 1 {
		t.Errorf("expired = %v, want 1", got)
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.LoginAttempt("success")

	if got := testutil.ToFloat64(b.loginAttempts.WithLabelValues("success")); got != 0 {
		t.Errorf("second instance saw %v attempts, want 0", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/map/objects/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/api/map/objects/1", "/api/map/objects/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/map/objects/{id}", "404")); got != 2 {
		t.Errorf("route counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched counter = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.LoginAttempt("success")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`mapgame_login_attempts_total{outcome="success"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
