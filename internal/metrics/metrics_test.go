package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.Registry() == nil {
		t.Error("Registry() returned nil")
	}
	if m.EmailsSentTotal == nil || m.SignupsTotal == nil || m.APIRequestsTotal == nil {
		t.Error("metrics should be initialized")
	}
}

func TestGlobalHelpers(t *testing.T) {
	// Helpers are no-ops without a global instance
	SetGlobal(nil)
	IncEmailsSent("welcome")
	IncSignups("newsletter", "created")

	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	if Global() != m {
		t.Fatal("Global() did not return the set metrics")
	}

	IncEmailsSent("welcome")
	IncEmailsSent("welcome")
	IncEmailsFailed("notification")
	IncSignups("waitlist", "conflict")
	IncUnsubscribes("newsletter", "unsubscribed")
	IncRateLimitExceeded("signup")
	IncGeoCache("hit")
	ObserveBroadcast("newsletter", 3, 0.5)

	if got := testutil.ToFloat64(m.EmailsSentTotal.WithLabelValues("welcome")); got != 2 {
		t.Errorf("emails sent = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EmailsFailedTotal.WithLabelValues("notification")); got != 1 {
		t.Errorf("emails failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SignupsTotal.WithLabelValues("waitlist", "conflict")); got != 1 {
		t.Errorf("signups = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BroadcastsTotal.WithLabelValues("newsletter")); got != 1 {
		t.Errorf("broadcasts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RateLimitExceededTotal.WithLabelValues("signup")); got != 1 {
		t.Errorf("rate limited = %v, want 1", got)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	r := chi.NewRouter()
	r.Use(HTTPMiddleware)
	r.Get("/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	for _, path := range []string{"/posts/a", "/posts/b", "/health"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("GET", "/posts/{id}", "404")); got != 2 {
		t.Errorf("requests for /posts/{id} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("GET", "/health", "200")); got != 1 {
		t.Errorf("requests for /health = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.APIErrorsTotal.WithLabelValues("not_found")); got != 2 {
		t.Errorf("not_found errors = %v, want 2", got)
	}
}

func TestCategorizeStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{500, "server_error"},
		{503, "server_error"},
		{429, "rate_limited"},
		{401, "auth_error"},
		{403, "auth_error"},
		{404, "not_found"},
		{400, "bad_request"},
		{409, "client_error"},
		{200, "unknown"},
	}
	for _, tt := range tests {
		if got := categorizeStatus(tt.status); got != tt.want {
			t.Errorf("categorizeStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestServer_IPFilter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New()
	m.EmailsSentTotal.WithLabelValues("welcome").Inc()

	srv := NewServer(m, ":0", "/metrics", []string{"10.0.0.0/8", "192.168.1.5", "bogus"}, logger)
	h := srv.Handler()

	tests := []struct {
		remote string
		want   int
	}{
		{"10.1.2.3:5000", http.StatusOK},
		{"192.168.1.5:5000", http.StatusOK},
		{"192.168.1.6:5000", http.StatusForbidden},
		{"garbage", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			req.RemoteAddr = tt.remote
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && !strings.Contains(w.Body.String(), "journey_emails_sent_total") {
				t.Error("metrics output missing journey_emails_sent_total")
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "8.8.8.8:1"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", w.Code)
	}
}
