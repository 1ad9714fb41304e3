package middleware

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/todo-backend/pkg/clientip"
)

const (
	// RateLimitKeyPrefix is the Redis key prefix for per-IP request counters
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
)

// BlockedIPDuration is how long an IP stays blocked after exceeding the limit.
var BlockedIPDuration = 15 * time.Minute

// RedisRateLimit allows max requests per window for each client IP, counted in Redis so
// the limit holds across instances. An IP that goes over is blocked for BlockedIPDuration.
// Redis failures let the request through.
func RedisRateLimit(rdb *redis.Client, max int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientip.RealClientIP(r)
			blockedKey := BlockedIPKeyPrefix + ip

			blocked, err := rdb.Exists(ctx, blockedKey).Result()
			if err != nil {
				log.Printf("rate limit: redis unavailable, allowing %s: %v", ip, err)
				next.ServeHTTP(w, r)
				return
			}
			if blocked > 0 {
				tooManyRequests(w, BlockedIPDuration)
				return
			}

			key := RateLimitKeyPrefix + ip
			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				log.Printf("rate limit: redis unavailable, allowing %s: %v", ip, err)
				next.ServeHTTP(w, r)
				return
			}
			// The first hit opens the window.
			if count == 1 {
				rdb.Expire(ctx, key, window)
			}

			ttl, err := rdb.TTL(ctx, key).Result()
			if err != nil || ttl < 0 {
				ttl = window
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(max))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

			if count > int64(max) {
				if err := rdb.Set(ctx, blockedKey, "1", BlockedIPDuration).Err(); err != nil {
					log.Printf("rate limit: failed to block %s: %v", ip, err)
				}
				w.Header().Set("X-RateLimit-Remaining", "0")
				tooManyRequests(w, BlockedIPDuration)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(max)-count, 10))
			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(retryAfter.Seconds())
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
		"error":       "Too many requests. Please try again later.",
		"retry_after": seconds,
	})
}
