package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client's bucket is kept.
const visitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	r         rate.Limit
	b         int
	now       func() time.Time
	lastPrune time.Time
}

// NewIPRateLimiter creates a new IPRateLimiter.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors:  make(map[string]*visitor),
		r:         r,
		b:         b,
		now:       time.Now,
		lastPrune: time.Now(),
	}
}

// GetLimiter returns the bucket for ip, creating it on first sight.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	v, ok := i.visitors[ip]
	if !ok {
		if now.Sub(i.lastPrune) > visitorTTL {
			i.pruneLocked(now, visitorTTL)
		}
		v = &visitor{limiter: rate.NewLimiter(i.r, i.b)}
		i.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Prune forgets clients not seen for maxIdle and returns how many remain.
func (i *IPRateLimiter) Prune(maxIdle time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pruneLocked(i.now(), maxIdle)
}

func (i *IPRateLimiter) pruneLocked(now time.Time, maxIdle time.Duration) int {
	i.lastPrune = now
	cutoff := now.Add(-maxIdle)
	for ip, v := range i.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(i.visitors, ip)
		}
	}
	return len(i.visitors)
}

// Middleware rejects requests over the client's rate with 429.
func (i *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !i.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return NewIPRateLimiter(r, b).Middleware()
}
