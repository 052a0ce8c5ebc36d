package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
)

func performJSON(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", handler)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)

	var env ErrorEnvelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode body %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func TestRespondCarriesAPIErrorStatus(t *testing.T) {
	w, env := performJSON(t, func(c *gin.Context) {
		Respond(c, apierr.Conflict("cart_locked", fmt.Errorf("cart is locked for payment")))
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if env.Error.Code != "cart_locked" {
		t.Fatalf("code = %q, want cart_locked", env.Error.Code)
	}
	if env.Error.Message != "cart is locked for payment" {
		t.Fatalf("message = %q", env.Error.Message)
	}
}

func TestRespondWrappedAPIError(t *testing.T) {
	wrapped := fmt.Errorf("apply code: %w", apierr.BadRequest("code_expired", fmt.Errorf("code expired")))
	w, env := performJSON(t, func(c *gin.Context) {
		Respond(c, wrapped)
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if env.Error.Code != "code_expired" {
		t.Fatalf("code = %q, want code_expired", env.Error.Code)
	}
}

func TestRespondPlainErrorIs500(t *testing.T) {
	w, env := performJSON(t, func(c *gin.Context) {
		Respond(c, fmt.Errorf("db went away"))
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if env.Error.Code != "internal_error" {
		t.Fatalf("code = %q, want internal_error", env.Error.Code)
	}
}
