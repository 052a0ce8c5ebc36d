package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/borealisconf/borealis-backend/internal/platform/ctxutil"
)

func TestTraceContextKeepsIncomingHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())

	var seen *ctxutil.TraceData
	r.GET("/ping", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerTraceID, "trace-abc")
	req.Header.Set(headerRequestID, "req-123")
	r.ServeHTTP(w, req)

	if seen == nil || seen.TraceID != "trace-abc" || seen.RequestID != "req-123" {
		t.Fatalf("trace data = %+v, want incoming header values", seen)
	}
	if got := w.Header().Get(headerTraceID); got != "trace-abc" {
		t.Errorf("response %s = %q", headerTraceID, got)
	}
	if got := w.Header().Get(headerRequestID); got != "req-123" {
		t.Errorf("response %s = %q", headerRequestID, got)
	}
}

func TestTraceContextMintsMissingIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Header().Get(headerTraceID) == "" {
		t.Error("trace id header not set")
	}
	if w.Header().Get(headerRequestID) == "" {
		t.Error("request id header not set")
	}
}
