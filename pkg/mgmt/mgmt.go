// Package mgmt exposes a local, read-only HTTP surface over the running
// daemon's topology and statistics, and accepts ALME-style management
// requests. Grounded on the teacher's pkg/api.Server: a per-IP rate
// limiter backed by golang.org/x/time/rate with a stale-entry janitor, a
// standard net/http ServeMux, consistent security headers, and a single
// writeJSON helper, trimmed from the teacher's broad device-simulation
// control surface down to the handful of endpoints a 1905 AL daemon's
// management boundary actually needs.
package mgmt

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/krisarmstrong/al1905d/pkg/logging"
	"github.com/krisarmstrong/al1905d/pkg/stats"
	"github.com/krisarmstrong/al1905d/pkg/store"
)

// DefaultRateLimit and DefaultBurst bound how many requests per second a
// single client IP may issue before 429s start.
const (
	DefaultRateLimit rate.Limit = 20
	DefaultBurst                = 40

	staleLimiterThreshold = time.Hour
)

// AlmeSubmitter accepts an ALME request on behalf of the event loop and
// blocks until a reply is available, the HTTP-facing counterpart of
// pkg/agent.AlmeHandler.
type AlmeSubmitter interface {
	SubmitAlme(ctx context.Context, request []byte) ([]byte, error)
}

// Server is the management HTTP surface. The topology database has no
// internal lock of its own — it is single-owner state the event loop
// goroutine alone may touch (see pkg/agent) — so Server never reads it
// directly. Instead the loop pushes a store.Snapshot through SetSnapshot
// after handling each event, and handleTopology serves the most recent one
// under Server's own mutex.
type Server struct {
	Stats *stats.Counters
	Store *store.Store
	Alme  AlmeSubmitter

	mu       sync.RWMutex
	snapshot store.Snapshot

	limiter *ipRateLimiter
	http    *http.Server
}

// New creates a management server; the listen address is given to Start.
// That address may be empty, in which case Start is a no-op (the CLI's
// --management-listen-address disables the surface by passing "").
func New(st *stats.Counters, db *store.Store, alme AlmeSubmitter) *Server {
	return &Server{Stats: st, Store: db, Alme: alme, limiter: newIPRateLimiter(DefaultRateLimit, DefaultBurst)}
}

// SetSnapshot replaces the snapshot handleTopology serves. Safe to call
// from any goroutine; intended caller is the event loop, once per event
// handled.
func (s *Server) SetSnapshot(snap store.Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

// Start begins serving on addr in a background goroutine. Empty addr is a
// no-op.
func (s *Server) Start(addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/topology", s.withMiddleware(s.handleTopology))
	mux.HandleFunc("/stats", s.withMiddleware(s.handleStats))
	mux.HandleFunc("/alme", s.withMiddleware(s.handleAlme))

	s.http = &http.Server{Addr: addr, Handler: mux, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}
	go s.limiter.janitor()
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Warningf("mgmt: server stopped: %v", err)
		}
	}()
	logging.Infof("mgmt: listening on %s", addr)
	return nil
}

// Shutdown gracefully stops the server, if it was started.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addSecurityHeaders(w)
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	writeJSON(w, snap)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.Stats.Update()
	writeJSON(w, s.Stats.Snapshot())
}

func (s *Server) handleAlme(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Alme == nil {
		http.Error(w, "alme boundary not configured", http.StatusServiceUnavailable)
		return
	}
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	defer body.Close()
	req, err := io.ReadAll(body)
	if err != nil {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}
	reply, err := s.Alme.SubmitAlme(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(reply)
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func addSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ipRateLimiter hands out a golang.org/x/time/rate.Limiter per client IP,
// with a background janitor that evicts entries unused for over an hour
// so the map does not grow unbounded against a scanning client.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	r        rate.Limit
	b        int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(r rate.Limit, b int) *ipRateLimiter {
	return &ipRateLimiter{limiters: make(map[string]*limiterEntry), r: r, b: b}
}

func (rl *ipRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.r, rl.b)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	limiter := entry.limiter
	rl.mu.Unlock()
	return limiter.Allow()
}

func (rl *ipRateLimiter) janitor() {
	t := time.NewTicker(10 * time.Minute)
	defer t.Stop()
	for range t.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, e := range rl.limiters {
			if now.Sub(e.lastSeen) > staleLimiterThreshold {
				delete(rl.limiters, ip)
			}
		}
		rl.mu.Unlock()
	}
}
