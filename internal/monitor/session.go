package monitor

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Desktop browser identities rotated per domain session.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/119.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
}

// SessionConfig tunes the per-domain request pacing and failure handling.
type SessionConfig struct {
	RequestSpacing   time.Duration // minimum gap between two requests to one domain
	Jitter           time.Duration // extra random pre-request delay; 0 disables
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	FailureThreshold int // consecutive failures before the cooldown short-circuit
	Timeout          time.Duration
	CookieTTL        time.Duration // handshake again when cookies are older than this
}

// DefaultSessionConfig returns the pacing used in production.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		RequestSpacing:   2 * time.Second,
		Jitter:           750 * time.Millisecond,
		BackoffBase:      5 * time.Second,
		BackoffMax:       5 * time.Minute,
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		CookieTTL:        time.Minute,
	}
}

// SessionManager hands out one Session per marketplace domain. All profiles
// targeting a domain share its session, so cookie, spacing and backoff state
// is maintained once per domain rather than per profile.
type SessionManager struct {
	cfg SessionConfig

	mu      sync.Mutex
	domains map[string]*Session
}

// NewSessionManager creates a manager. Zero config fields fall back to the
// defaults.
func NewSessionManager(cfg SessionConfig) *SessionManager {
	def := DefaultSessionConfig()
	if cfg.RequestSpacing <= 0 {
		cfg.RequestSpacing = def.RequestSpacing
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = def.BackoffMax
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CookieTTL <= 0 {
		cfg.CookieTTL = def.CookieTTL
	}
	return &SessionManager{cfg: cfg, domains: make(map[string]*Session)}
}

// Acquire returns the shared session for a domain, creating it on first use.
// domain is the scheme+host base URL, e.g. "https://www.vinted.hu".
func (m *SessionManager) Acquire(domain string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.domains[domain]; ok {
		return s
	}
	jar, _ := cookiejar.New(nil)
	s := &Session{
		domain:    domain,
		cfg:       m.cfg,
		client:    &http.Client{Timeout: m.cfg.Timeout, Jar: jar},
		limiter:   rate.NewLimiter(rate.Every(m.cfg.RequestSpacing), 1),
		userAgent: userAgents[rand.Intn(len(userAgents))],
		backoff:   m.cfg.BackoffBase,
	}
	m.domains[domain] = s
	return s
}

// Session is the authenticated, rate-limited HTTP context for one marketplace
// domain. Execute serializes on s.mu, so the domain never sees two in-flight
// requests from this process at once.
type Session struct {
	domain    string
	cfg       SessionConfig
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string

	mu            sync.Mutex // serializes Execute and the cookie handshake
	backoff       time.Duration
	failures      int
	notBefore     time.Time // backoff gate armed after a throttle signal
	cooldownUntil time.Time
	lastRefresh   time.Time
}

// Execute performs one request through the session. It delays the caller
// until the per-domain spacing and any active backoff are satisfied, keeps
// the session cookie fresh, and classifies failures as ErrRateLimited or
// ErrNetwork. An authorization failure is repaired in place with a single
// serialized handshake and the request retried once; Execute never retries a
// throttled request — that policy belongs to the scheduler.
func (s *Session) Execute(ctx context.Context, req *http.Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if wait := time.Until(s.cooldownUntil); wait > 0 {
		return nil, fmt.Errorf("%s cooling down for %s: %w",
			s.domain, wait.Round(time.Second), ErrRateLimited)
	}
	if err := s.pace(ctx); err != nil {
		return nil, err
	}
	if time.Since(s.lastRefresh) > s.cfg.CookieTTL {
		if err := s.refresh(ctx); err != nil {
			return nil, s.fail(fmt.Errorf("session handshake: %v: %w", err, ErrNetwork))
		}
	}

	body, status, err := s.do(ctx, req)
	if err != nil {
		return nil, s.fail(fmt.Errorf("%s: %v: %w", s.domain, err, ErrNetwork))
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		log.Printf("[session] %s returned %d — refreshing session", s.domain, status)
		if err := s.refresh(ctx); err != nil {
			return nil, s.fail(fmt.Errorf("session refresh: %v: %w", err, ErrNetwork))
		}
		body, status, err = s.do(ctx, req)
		if err != nil {
			return nil, s.fail(fmt.Errorf("%s: %v: %w", s.domain, err, ErrNetwork))
		}
	}

	switch status {
	case http.StatusOK:
		s.succeed()
		return body, nil
	case http.StatusTooManyRequests:
		return nil, s.throttled()
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, s.fail(fmt.Errorf("%s returned %d after session refresh: %w",
			s.domain, status, ErrUnauthorized))
	default:
		return nil, s.fail(fmt.Errorf("%s returned %d: %w", s.domain, status, ErrNetwork))
	}
}

// Backoff returns the current backoff duration for the domain.
func (s *Session) Backoff() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backoff
}

// pace blocks until the spacing limiter and any armed backoff gate allow the
// next request. All waits are cancellable through ctx.
func (s *Session) pace(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("spacing wait: %v: %w", err, ErrNetwork)
	}
	wait := time.Until(s.notBefore)
	if wait < 0 {
		wait = 0
	}
	if s.cfg.Jitter > 0 {
		wait += time.Duration(rand.Int63n(int64(s.cfg.Jitter)))
	}
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff wait: %v: %w", ctx.Err(), ErrNetwork)
	case <-t.C:
		return nil
	}
}

// refresh performs the cookie handshake against the site root. Callers hold
// s.mu, so concurrent profiles never trigger parallel handshakes — whoever
// arrives second finds the session already fresh.
func (s *Session) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.domain+"/", nil)
	if err != nil {
		return err
	}
	s.decorate(req)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("handshake returned %d", resp.StatusCode)
	}
	s.lastRefresh = time.Now()
	log.Printf("[session] %s: session refreshed", s.domain)
	return nil
}

func (s *Session) do(ctx context.Context, req *http.Request) ([]byte, int, error) {
	r := req.Clone(ctx)
	s.decorate(r)
	resp, err := s.client.Do(r)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// decorate applies the browser-like header set shared by every request.
func (s *Session) decorate(r *http.Request) {
	r.Header.Set("User-Agent", s.userAgent)
	r.Header.Set("Accept", "application/json, text/plain, */*")
	r.Header.Set("Accept-Language", "en-US,en;q=0.9")
	r.Header.Set("Connection", "keep-alive")
	r.Header.Set("Sec-Fetch-Dest", "empty")
	r.Header.Set("Sec-Fetch-Mode", "cors")
	r.Header.Set("Sec-Fetch-Site", "same-origin")
}

// succeed resets backoff and the failure counter after a good response.
func (s *Session) succeed() {
	s.backoff = s.cfg.BackoffBase
	s.failures = 0
	s.notBefore = time.Time{}
}

// throttled doubles the backoff (capped), arms the gate for the next request
// and counts the failure.
func (s *Session) throttled() error {
	s.backoff *= 2
	if s.backoff > s.cfg.BackoffMax {
		s.backoff = s.cfg.BackoffMax
	}
	s.notBefore = time.Now().Add(s.backoff)
	log.Printf("[session] %s: throttled — backing off %s", s.domain, s.backoff)
	return s.fail(fmt.Errorf("%s throttled the request: %w", s.domain, ErrRateLimited))
}

// fail counts a consecutive failure and arms the cooldown short-circuit once
// the threshold is crossed.
func (s *Session) fail(err error) error {
	s.failures++
	if s.failures >= s.cfg.FailureThreshold {
		s.cooldownUntil = time.Now().Add(s.backoff)
		log.Printf("[session] %s: %d consecutive failures — cooling down until %s",
			s.domain, s.failures, s.cooldownUntil.Format("15:04:05"))
	}
	return err
}
