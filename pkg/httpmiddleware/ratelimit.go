package httpmiddleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per Window. Zero disables
	// the limiter.
	Max int
	// Window is the sliding window size. Defaults to one minute.
	Window time.Duration
	// KeyFunc extracts the client key from a request. Defaults to the
	// remote address without port.
	KeyFunc func(*http.Request) string
}

// rateCounter tracks a client's request counts across two adjacent
// windows. The effective count weights the previous window by how much
// of it still overlaps the sliding window ending now.
type rateCounter struct {
	prev      float64
	curr      float64
	prevStart time.Time
	currStart time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateCounter
	max     float64
	window  time.Duration
	now     func() time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string]*rateCounter),
		max:     float64(max),
		window:  window,
		now:     time.Now,
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &rateCounter{currStart: now}
		l.clients[key] = c
	}

	if now.Sub(c.currStart) >= l.window {
		c.prev, c.prevStart = c.curr, c.currStart
		c.curr = 0
		c.currStart = now.Truncate(l.window)
		if now.Sub(c.prevStart) >= 2*l.window {
			c.prev = 0
		}
	}

	overlap := 1 - now.Sub(c.currStart).Seconds()/l.window.Seconds()
	if overlap < 0 {
		overlap = 0
	}
	if c.prev*overlap+c.curr >= l.max {
		return false
	}
	c.curr++
	return true
}

// cleanup evicts clients whose both windows have fully expired.
func (l *rateLimiter) cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.clients {
		if now.Sub(c.currStart) >= 2*l.window {
			delete(l.clients, key)
		}
	}
}

func (l *rateLimiter) startCleanup(ctx context.Context) {
	go func() {
		t := time.NewTicker(2 * l.window)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.cleanup()
			}
		}
	}()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit returns a middleware rejecting clients that exceed cfg.Max
// requests per sliding cfg.Window with 429. No background eviction runs;
// use RateLimitWithCleanup for long-lived servers.
func RateLimit(cfg RateLimitConfig) Middleware {
	_, mw := buildRateLimit(cfg)
	return mw
}

// RateLimitWithCleanup is RateLimit plus a background sweep evicting
// stale client counters. The sweep stops when ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l, mw := buildRateLimit(cfg)
	if l != nil {
		l.startCleanup(ctx)
	}
	return mw
}

func buildRateLimit(cfg RateLimitConfig) (*rateLimiter, Middleware) {
	if cfg.Max <= 0 {
		return nil, func(next http.Handler) http.Handler { return next }
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}

	l := newRateLimiter(cfg.Max, cfg.Window)

	return l, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(cfg.KeyFunc(r)) {
				w.Header().Set("Retry-After", cfg.Window.String())
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
