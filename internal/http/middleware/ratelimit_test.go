package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func newTestLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*rateClient),
		rps:     rate.Limit(perSecond),
		burst:   burst,
		expiry:  time.Minute,
	}
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := newTestLimiter(0.0001, 2)
	r := gin.New()
	r.Use(rl.Limit())
	r.POST("/api/events", func(c *gin.Context) { c.Status(http.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/events", nil)
		req.RemoteAddr = "10.0.0.1:55555"
		r.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("first two requests should pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", statuses[2])
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := newTestLimiter(0.0001, 1)
	r := gin.New()
	r.Use(rl.Limit())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := hit("10.0.0.1:1000"); code != http.StatusOK {
		t.Fatalf("first client first hit = %d", code)
	}
	if code := hit("10.0.0.1:1000"); code != http.StatusTooManyRequests {
		t.Fatalf("first client second hit = %d, want 429", code)
	}
	if code := hit("10.0.0.2:1000"); code != http.StatusOK {
		t.Fatalf("second client should have its own bucket, got %d", code)
	}
}
