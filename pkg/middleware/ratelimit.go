package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/logger"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(r *http.Request) string

// PathValueKey charges requests to the named path wildcard, so every
// collection gets its own bucket.
func PathValueKey(name string) KeyFunc {
	return func(r *http.Request) string {
		return r.PathValue(name)
	}
}

// RateLimit rejects requests with 429 once a key's token bucket is empty.
// Buckets refill at perSecond tokens per second up to burst. A non-positive
// perSecond disables limiting.
func RateLimit(perSecond float64, burst int, key KeyFunc) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	limiterFor := func(k string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[k]
		if !ok {
			l = rate.NewLimiter(rate.Limit(perSecond), burst)
			limiters[k] = l
		}
		return l
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if !limiterFor(k).Allow() {
				logger.FromContext(r.Context()).Warn("rate limit exceeded", "key", k, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
