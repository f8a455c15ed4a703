package auth

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Throttle is a per-IP sliding-window limiter for the credential endpoints
// (login, signup). It is in-memory and per-process; the persisted lockout
// concerns of the account itself live elsewhere.
type Throttle struct {
	mu       sync.Mutex
	maxHits  int
	window   time.Duration
	hits     map[string][]time.Time
	maxedIPs int
}

// NewThrottle builds a limiter allowing maxHits per window per client IP.
func NewThrottle(maxHits int, window time.Duration) *Throttle {
	if maxHits <= 0 {
		maxHits = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Throttle{
		maxHits:  maxHits,
		window:   window,
		hits:     make(map[string][]time.Time),
		maxedIPs: 5000,
	}
}

// Middleware rejects over-limit clients with 429 and a Retry-After hint.
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := t.allow(clientIP(r), time.Now().UTC())
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			writeError(w, http.StatusTooManyRequests, "too many attempts")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *Throttle) allow(ip string, now time.Time) (bool, time.Duration) {
	threshold := now.Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	recent := t.hits[ip][:0]
	for _, hit := range t.hits[ip] {
		if hit.After(threshold) {
			recent = append(recent, hit)
		}
	}

	if len(recent) >= t.maxHits {
		t.hits[ip] = recent
		retryAfter := recent[0].Add(t.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return false, retryAfter
	}

	t.hits[ip] = append(recent, now)
	t.pruneLocked(threshold)
	return true, 0
}

// pruneLocked drops idle IPs once the map grows past the cap, bounding
// memory under address-spread abuse.
func (t *Throttle) pruneLocked(threshold time.Time) {
	if len(t.hits) <= t.maxedIPs {
		return
	}
	for ip, hits := range t.hits {
		if len(hits) == 0 || hits[len(hits)-1].Before(threshold) {
			delete(t.hits, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		if ip := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0]); ip != "" {
			return ip
		}
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
