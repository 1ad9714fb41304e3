package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AnshRaj112/todo-backend/pkg/clientip"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerXXSSProtection          = "X-XSS-Protection"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerXXSSProtection, "1; mode=block")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'self'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// limiterSet keeps one token bucket per client IP and forgets idle ones.
type limiterSet struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time

	cleanupOnce sync.Once
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		entries: make(map[string]*limiterEntry),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

func (s *limiterSet) get(ip string) *rate.Limiter {
	s.cleanupOnce.Do(func() { go s.cleanupLoop() })

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[ip] = e
	}
	e.lastUse = s.now()
	return e.limiter
}

func (s *limiterSet) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		s.evictIdle()
	}
}

func (s *limiterSet) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for ip, e := range s.entries {
		if now.Sub(e.lastUse) > limiterTTL {
			delete(s.entries, ip)
		}
	}
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *limiterSet) middleware(match func(*http.Request) bool, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if match != nil && !match(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !s.get(clientip.RealClientIP(r)).Allow() {
				writeError(w, http.StatusTooManyRequests, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Global limit: 5 req/s per IP, burst 20.
const (
	globalRateLimitRPS   = 5
	globalRateLimitBurst = 20
)

// Auth limit: 1 req/5s per IP, burst 5, on login and register only.
const (
	authRateLimitEvery = 5 * time.Second
	authRateLimitBurst = 5
)

var authPaths = map[string]bool{
	"/api/auth/login":    true,
	"/api/auth/register": true,
}

// GlobalRateLimit limits every route per client IP. Returns 429 when exceeded.
func GlobalRateLimit() func(http.Handler) http.Handler {
	return newLimiterSet(rate.Limit(globalRateLimitRPS), globalRateLimitBurst).
		middleware(nil, "Too many requests. Please slow down.")
}

// AuthRateLimit applies a stricter limit to login and register. Use after GlobalRateLimit.
func AuthRateLimit() func(http.Handler) http.Handler {
	return newLimiterSet(rate.Every(authRateLimitEvery), authRateLimitBurst).
		middleware(func(r *http.Request) bool { return authPaths[r.URL.Path] },
			"Too many login attempts. Please try again later.")
}

// ProductionSecurity returns middlewares for production: SecurityHeaders → GlobalRateLimit → AuthRateLimit.
func ProductionSecurity() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		GlobalRateLimit(),
		AuthRateLimit(),
	}
}
