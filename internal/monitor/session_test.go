package monitor_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vintedwatch/monitor-service/internal/monitor"
)

// Pacing tuned so tests finish in milliseconds. The cookie TTL is long enough
// that only the first request performs the handshake.
func testSessionConfig() monitor.SessionConfig {
	return monitor.SessionConfig{
		RequestSpacing:   time.Millisecond,
		BackoffBase:      10 * time.Millisecond,
		BackoffMax:       40 * time.Millisecond,
		FailureThreshold: 100,
		Timeout:          2 * time.Second,
		CookieTTL:        time.Hour,
	}
}

func newRequest(t *testing.T, domain string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, domain+"/api/test", nil)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestSessionManager_SharesSessionPerDomain(t *testing.T) {
	m := monitor.NewSessionManager(testSessionConfig())
	a := m.Acquire("https://www.vinted.hu")
	b := m.Acquire("https://www.vinted.hu")
	c := m.Acquire("https://www.vinted.de")

	if a != b {
		t.Error("two Acquire calls for one domain must return the same session")
	}
	if a == c {
		t.Error("different domains must not share a session")
	}
}

func TestSession_BackoffDoublesAndResets(t *testing.T) {
	var throttle atomic.Bool
	throttle.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			return // handshake
		}
		if throttle.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sess := monitor.NewSessionManager(testSessionConfig()).Acquire(srv.URL)
	if got := sess.Backoff(); got != 10*time.Millisecond {
		t.Fatalf("initial backoff = %s, want 10ms", got)
	}

	// Each throttled response doubles the backoff up to the cap.
	wantSteps := []time.Duration{20 * time.Millisecond, 40 * time.Millisecond, 40 * time.Millisecond}
	for i, want := range wantSteps {
		_, err := sess.Execute(context.Background(), newRequest(t, srv.URL))
		if !errors.Is(err, monitor.ErrRateLimited) {
			t.Fatalf("throttled request %d: err = %v, want ErrRateLimited", i+1, err)
		}
		if got := sess.Backoff(); got != want {
			t.Errorf("backoff after %d throttles = %s, want %s", i+1, got, want)
		}
	}

	// A successful response resets backoff to the base.
	throttle.Store(false)
	body, err := sess.Execute(context.Background(), newRequest(t, srv.URL))
	if err != nil {
		t.Fatalf("request after recovery: %v", err)
	}
	if string(body) != `{}` {
		t.Errorf("body = %q", body)
	}
	if got := sess.Backoff(); got != 10*time.Millisecond {
		t.Errorf("backoff after success = %s, want 10ms", got)
	}
}

func TestSession_CooldownShortCircuits(t *testing.T) {
	var apiCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			return
		}
		apiCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testSessionConfig()
	cfg.FailureThreshold = 2
	cfg.BackoffBase = 30 * time.Second
	cfg.BackoffMax = time.Minute
	sess := monitor.NewSessionManager(cfg).Acquire(srv.URL)

	for i := 0; i < 2; i++ {
		_, err := sess.Execute(context.Background(), newRequest(t, srv.URL))
		if !errors.Is(err, monitor.ErrNetwork) {
			t.Fatalf("failing request %d: err = %v, want ErrNetwork", i+1, err)
		}
	}

	// The threshold was crossed, so the next call must fail fast as
	// ErrRateLimited without reaching the server.
	_, err := sess.Execute(context.Background(), newRequest(t, srv.URL))
	if !errors.Is(err, monitor.ErrRateLimited) {
		t.Fatalf("cooldown request: err = %v, want ErrRateLimited", err)
	}
	if n := apiCalls.Load(); n != 2 {
		t.Errorf("server saw %d api requests during cooldown, want 2", n)
	}
}

func TestSession_RefreshesOnUnauthorized(t *testing.T) {
	var handshakes, apiCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			handshakes.Add(1)
			return
		}
		apiCalls.Add(1)
		// Reject until the session has performed a second handshake.
		if handshakes.Load() < 2 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sess := monitor.NewSessionManager(testSessionConfig()).Acquire(srv.URL)
	body, err := sess.Execute(context.Background(), newRequest(t, srv.URL))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %q", body)
	}
	if n := handshakes.Load(); n != 2 {
		t.Errorf("handshakes = %d, want 2 (startup + refresh)", n)
	}
	if n := apiCalls.Load(); n != 2 {
		t.Errorf("api calls = %d, want 2 (rejected + retried)", n)
	}
}

func TestSession_UnauthorizedSurvivingRefresh(t *testing.T) {
	var handshakes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			handshakes.Add(1)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess := monitor.NewSessionManager(testSessionConfig()).Acquire(srv.URL)
	_, err := sess.Execute(context.Background(), newRequest(t, srv.URL))
	if !errors.Is(err, monitor.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	// Exactly one repair attempt before giving up.
	if n := handshakes.Load(); n != 2 {
		t.Errorf("handshakes = %d, want 2", n)
	}
}

func TestSession_AppliesJitterBetweenRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testSessionConfig()
	cfg.Jitter = 150 * time.Millisecond
	sess := monitor.NewSessionManager(cfg).Acquire(srv.URL)

	// Jitter is uniform in [0, 150ms) per request, so seven paced requests
	// after the first one land below 60ms total with negligible probability.
	start := time.Now()
	for i := 0; i < 8; i++ {
		if _, err := sess.Execute(context.Background(), newRequest(t, srv.URL)); err != nil {
			t.Fatalf("Execute %d: %v", i+1, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("8 requests took %s with 150ms jitter configured", elapsed)
	}
}

func TestSession_SerializesRequests(t *testing.T) {
	var inflight atomic.Int32
	var overlapped atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inflight.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(20 * time.Millisecond)
		inflight.Add(-1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	sess := monitor.NewSessionManager(testSessionConfig()).Acquire(srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sess.Execute(context.Background(), newRequest(t, srv.URL)); err != nil {
				t.Errorf("Execute: %v", err)
			}
		}()
	}
	wg.Wait()

	if overlapped.Load() {
		t.Error("domain saw two in-flight requests from one session")
	}
}
