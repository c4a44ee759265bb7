package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/toolinger/toolinger/internal/logging"
)

// SlidingWindowRateLimiter allows at most maxRequests within any window of
// windowDuration. Repeated violations extend an exponential backoff so a
// client cannot burst again right at the window boundary.
type SlidingWindowRateLimiter struct {
	maxRequests    int
	windowDuration time.Duration
	timestamps     []time.Time
	violations     int
	lastViolation  time.Time
	backoffUntil   time.Time
	lastSeen       time.Time
	mutex          sync.Mutex

	baseBackoff       time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
}

// NewSlidingWindowRateLimiter creates a limiter for a single client.
func NewSlidingWindowRateLimiter(maxRequests int, windowDuration time.Duration) *SlidingWindowRateLimiter {
	return &SlidingWindowRateLimiter{
		maxRequests:       maxRequests,
		windowDuration:    windowDuration,
		timestamps:        make([]time.Time, 0, maxRequests),
		baseBackoff:       time.Second,
		maxBackoff:        5 * time.Minute,
		backoffMultiplier: 2.0,
	}
}

// Allow records a request at now and reports whether it is within the limit.
// When it is not, the returned duration says how long the client should wait.
func (rl *SlidingWindowRateLimiter) Allow(now time.Time) (bool, time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.lastSeen = now

	if now.Before(rl.backoffUntil) {
		rl.recordViolation(now)
		return false, rl.backoffUntil.Sub(now)
	}

	rl.cleanOldTimestamps(now)

	if len(rl.timestamps) >= rl.maxRequests {
		rl.recordViolation(now)
		retry := rl.timestamps[0].Add(rl.windowDuration).Sub(now)
		if backoff := rl.backoffUntil.Sub(now); backoff > retry {
			retry = backoff
		}
		return false, retry
	}

	// Forgive clients that behaved for two full windows.
	if rl.violations > 0 && now.Sub(rl.lastViolation) > 2*rl.windowDuration {
		rl.violations = 0
		rl.lastViolation = time.Time{}
		rl.backoffUntil = time.Time{}
	}

	rl.timestamps = append(rl.timestamps, now)
	return true, 0
}

// Count returns the number of requests inside the window ending at now.
func (rl *SlidingWindowRateLimiter) Count(now time.Time) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.cleanOldTimestamps(now)
	return len(rl.timestamps)
}

func (rl *SlidingWindowRateLimiter) idleSince(now time.Time) time.Duration {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	return now.Sub(rl.lastSeen)
}

// recordViolation must be called with the mutex held.
func (rl *SlidingWindowRateLimiter) recordViolation(now time.Time) {
	rl.violations++
	rl.lastViolation = now

	backoff := rl.baseBackoff
	for i := 1; i < rl.violations; i++ {
		backoff = time.Duration(float64(backoff) * rl.backoffMultiplier)
		if backoff > rl.maxBackoff {
			backoff = rl.maxBackoff
			break
		}
	}

	rl.backoffUntil = now.Add(backoff)
}

// cleanOldTimestamps must be called with the mutex held.
func (rl *SlidingWindowRateLimiter) cleanOldTimestamps(now time.Time) {
	cutoff := now.Add(-rl.windowDuration)

	valid := 0
	for valid < len(rl.timestamps) && !rl.timestamps[valid].After(cutoff) {
		valid++
	}

	if valid > 0 {
		n := copy(rl.timestamps, rl.timestamps[valid:])
		rl.timestamps = rl.timestamps[:n]
	}
}

// ClientRateLimiter keeps one sliding window per client address.
type ClientRateLimiter struct {
	maxRequests int
	window      time.Duration
	limiters    map[string]*SlidingWindowRateLimiter
	mutex       sync.Mutex
	now         func() time.Time
	logger      logging.Logger
}

// NewClientRateLimiter allows requestsPerMinute requests per client.
func NewClientRateLimiter(requestsPerMinute int, logger logging.Logger) *ClientRateLimiter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ClientRateLimiter{
		maxRequests: requestsPerMinute,
		window:      time.Minute,
		limiters:    make(map[string]*SlidingWindowRateLimiter),
		now:         time.Now,
		logger:      logger,
	}
}

// Allow checks the window of client.
func (c *ClientRateLimiter) Allow(client string) (bool, time.Duration) {
	c.mutex.Lock()
	limiter, ok := c.limiters[client]
	if !ok {
		limiter = NewSlidingWindowRateLimiter(c.maxRequests, c.window)
		c.limiters[client] = limiter
	}
	c.mutex.Unlock()

	return limiter.Allow(c.now())
}

// Cleanup drops clients idle for longer than two windows.
func (c *ClientRateLimiter) Cleanup() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for client, limiter := range c.limiters {
		if limiter.idleSince(now) > 2*c.window {
			delete(c.limiters, client)
			removed++
		}
	}
	return removed
}

// Run removes idle clients once per window until ctx is done.
func (c *ClientRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(c.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Cleanup(); n > 0 {
				c.logger.Debug(ctx, "Expired rate limit windows", "clients", n)
			}
		}
	}
}

// Middleware rejects requests over the limit with 429 and a JSON error.
func (c *ClientRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)
		allowed, retry := c.Allow(client)
		if !allowed {
			seconds := int(retry.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			logging.LogSecurityEvent(r.Context(), c.logger, "rate_limit_exceeded", map[string]interface{}{
				"client": client,
				"path":   r.URL.Path,
			})
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr is the peer IP. Forwarding headers are ignored because they
// are client controlled.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
