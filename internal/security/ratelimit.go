package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Login throttling: a small steady rate with a burst, tracked per client IP.
const (
	loginRatePerMinute = 5
	loginBurst         = 5
	limiterIdleExpiry  = 30 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// loginLimiter tracks a token-bucket limiter per client IP.
type loginLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
}

func newLoginLimiter() *loginLimiter {
	return &loginLimiter{entries: make(map[string]*limiterEntry)}
}

// allow reports whether another login attempt from ip is permitted now.
func (ll *loginLimiter) allow(ip string) bool {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	ll.evictIdleLocked()

	entry, ok := ll.entries[ip]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/loginRatePerMinute), loginBurst),
		}
		ll.entries[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// reset clears the limiter state for ip after a successful login.
func (ll *loginLimiter) reset(ip string) {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	delete(ll.entries, ip)
}

// evictIdleLocked drops limiters that have not been touched recently so the
// map does not grow unboundedly. Caller must hold the mutex.
func (ll *loginLimiter) evictIdleLocked() {
	cutoff := time.Now().Add(-limiterIdleExpiry)
	for ip, entry := range ll.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(ll.entries, ip)
		}
	}
}
