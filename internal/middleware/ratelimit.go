package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"taskcolab/pkg/logger"
)

// RateLimit limits requests per client IP using a Redis counter per
// window. INCR and EXPIRE run in one pipeline so the counter and its TTL
// stay together.
func RateLimit(redisClient *redis.Client, maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	if redisClient == nil {
		panic("Redis client cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 || window <= 0 {
		panic("maxRequests and window must be positive for RateLimit middleware")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + clientIP(r)

			pipe := redisClient.Pipeline()
			incrCmd := pipe.Incr(r.Context(), key)
			pipe.Expire(r.Context(), key, window)
			if _, err := pipe.Exec(r.Context()); err != nil {
				logger.Error("RateLimit: Redis pipeline failed: %v", err)
				http.Error(w, "rate limiting error", http.StatusInternalServerError)
				return
			}

			if incrCmd.Val() > int64(maxRequests) {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// Behind a reverse proxy the real client is in X-Forwarded-For.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
