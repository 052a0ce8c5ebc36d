package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/borealisconf/borealis-backend/internal/platform/envutil"
)

// RateLimiter applies a per-client-IP token bucket to public write
// endpoints (cart mutations, event ingest, auth). Entries idle past
// the expiry are dropped on the next sweep.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateClient
	rps     rate.Limit
	burst   int
	expiry  time.Duration
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter() *RateLimiter {
	perMinute := envutil.Int("RATE_LIMIT_PER_MINUTE", 120)
	if perMinute < 1 {
		perMinute = 1
	}
	rl := &RateLimiter{
		clients: make(map[string]*rateClient),
		rps:     rate.Limit(float64(perMinute) / 60.0),
		burst:   envutil.Int("RATE_LIMIT_BURST", 30),
		expiry:  5 * time.Minute,
	}
	return rl
}

func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[ip]
	if !ok {
		cl = &rateClient{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = now

	if len(rl.clients) > 1024 {
		for key, c := range rl.clients {
			if now.Sub(c.lastSeen) > rl.expiry {
				delete(rl.clients, key)
			}
		}
	}
	return cl.limiter.Allow()
}

func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := clientIP(c)
		if !rl.allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"message": "too many requests", "code": "rate_limited"},
			})
			return
		}
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
