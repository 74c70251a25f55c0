package main

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// sslExempt paths are probed over plain HTTP by the platform.
var sslExempt = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// sslRedirect redirects plain HTTP requests to https outside development.
// secure's own redirect cannot exempt the health check, so it is done here.
func (a *App) sslRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.IsDev() || sslExempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		ssl := strings.EqualFold(r.URL.Scheme, "https") || r.TLS != nil ||
			r.Header.Get("X-Forwarded-Proto") == "https"
		if !ssl {
			url := *r.URL
			url.Scheme = "https"
			url.Host = r.Host

			http.Redirect(w, r, url.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ipRateLimiter keeps a token bucket per client address.
type ipRateLimiter struct {
	limit rate.Limit
	burst int

	limiters sync.Map // string -> *visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// newIPRateLimiter allows perMinute requests per address with the given
// burst. A non-positive perMinute disables limiting.
func newIPRateLimiter(perMinute, burst int) *ipRateLimiter {
	l := &ipRateLimiter{limit: rate.Inf, burst: burst}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if l.burst <= 0 {
		l.burst = 1
	}

	return l
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	v, _ := l.limiters.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(l.limit, l.burst)})
	vis := v.(*visitor)
	vis.lastSeen.Store(time.Now().UnixNano())

	return vis.limiter
}

// Allow reports whether ip may make another request now.
func (l *ipRateLimiter) Allow(ip string) bool {
	return l.get(ip).Allow()
}

// Prune forgets addresses not seen for longer than idle.
func (l *ipRateLimiter) Prune(idle time.Duration) {
	cutoff := time.Now().Add(-idle).UnixNano()
	l.limiters.Range(func(k, v any) bool {
		if v.(*visitor).lastSeen.Load() < cutoff {
			l.limiters.Delete(k)
		}
		return true
	})
}

// Middleware answers 429 once a client runs out of tokens.
func (l *ipRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			renderError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP is the request address without its port. middleware.RealIP has
// already applied any proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
