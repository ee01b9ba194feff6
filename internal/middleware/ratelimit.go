package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"foundation/internal/metrics"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter keeps one token bucket per client. A bucket holds limit
// tokens and refills one every per/limit.
type keyedLimiter struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	idle      time.Duration
	limiters  map[string]*clientLimiter
	lastSweep time.Time
}

func newKeyedLimiter(limit int, per time.Duration) *keyedLimiter {
	return &keyedLimiter{
		every:    rate.Every(per / time.Duration(limit)),
		burst:    limit,
		idle:     per,
		limiters: make(map[string]*clientLimiter),
	}
}

// allow takes a token for key at now. When none is left, the returned
// duration is how long until the next one.
func (k *keyedLimiter) allow(key string, now time.Time) (bool, time.Duration) {
	k.mu.Lock()
	if now.Sub(k.lastSweep) > k.idle {
		// An idle bucket has refilled completely, so forgetting it is lossless.
		for key, c := range k.limiters {
			if now.Sub(c.lastSeen) > k.idle {
				delete(k.limiters, key)
			}
		}
		k.lastSweep = now
	}
	c, ok := k.limiters[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(k.every, k.burst)}
		k.limiters[key] = c
	}
	c.lastSeen = now
	k.mu.Unlock()

	res := c.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, k.idle
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// RateLimit allows limit requests per client in each period per, refilled
// evenly. Rejected requests get 429 with Retry-After. A non-positive limit
// disables the check.
//
// Clients are keyed by the connection address. Forwarding headers are not
// consulted here; chi's RealIP must run first when behind a trusted proxy.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		kl := newKeyedLimiter(limit, per)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := kl.allow(clientIPForRateLimit(r), time.Now())
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			metrics.RateLimited.WithLabelValues(route).Inc()

			retry := int(math.Ceil(wait.Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"too many requests"}}`))
		})
	}
}

// clientIPForRateLimit is the host part of the connection address.
func clientIPForRateLimit(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
