package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type fakeCartService struct {
	views map[uuid.UUID]*services.CartView
}

func (f *fakeCartService) view(token uuid.UUID) (*services.CartView, error) {
	v, ok := f.views[token]
	if !ok {
		return nil, apierr.NotFound("cart_not_found", fmt.Errorf("no cart for token"))
	}
	return v, nil
}

func (f *fakeCartService) Create(ctx context.Context, accountID *uuid.UUID, email string) (*services.CartView, error) {
	token := uuid.New()
	v := &services.CartView{Cart: &types.Cart{Token: token, Status: types.CartOpen, Step: types.CartStepReview}}
	f.views[token] = v
	return v, nil
}

func (f *fakeCartService) Get(ctx context.Context, token uuid.UUID) (*services.CartView, error) {
	return f.view(token)
}

func (f *fakeCartService) SetItems(ctx context.Context, token uuid.UUID, items []services.CartItemInput) (*services.CartView, error) {
	return f.view(token)
}

func (f *fakeCartService) SetAttendees(ctx context.Context, token uuid.UUID, attendees []services.CartAttendeeInput) (*services.CartView, error) {
	return f.view(token)
}

func (f *fakeCartService) Advance(ctx context.Context, token uuid.UUID) (*services.CartView, error) {
	return f.view(token)
}

func (f *fakeCartService) Back(ctx context.Context, token uuid.UUID) (*services.CartView, error) {
	return f.view(token)
}

func (f *fakeCartService) ApplyCode(ctx context.Context, token uuid.UUID, code string) (*services.CartView, error) {
	return f.view(token)
}

func (f *fakeCartService) RemoveCode(ctx context.Context, token uuid.UUID) (*services.CartView, error) {
	return f.view(token)
}

func (f *fakeCartService) ExpireSweep(ctx context.Context) (int, error) { return 0, nil }

func newCartRig(t *testing.T) (*gin.Engine, *fakeCartService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fake := &fakeCartService{views: map[uuid.UUID]*services.CartView{}}
	ch := NewCartHandler(fake, &fakeCheckout{})
	r := gin.New()
	r.POST("/api/carts", ch.Create)
	r.GET("/api/carts/:token", ch.Get)
	r.PUT("/api/carts/:token/items", ch.SetItems)
	return r, fake
}

func TestCartCreateReturnsToken(t *testing.T) {
	r, _ := newCartRig(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/carts", strings.NewReader(`{"email":"a@b.example"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		Token uuid.UUID `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Token == uuid.Nil {
		t.Fatalf("expected a cart token in response: %s", w.Body.String())
	}
}

func TestCartGetRejectsMalformedToken(t *testing.T) {
	r, _ := newCartRig(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/carts/not-a-uuid", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_token") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestCartGetUnknownTokenIs404(t *testing.T) {
	r, _ := newCartRig(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/carts/"+uuid.New().String(), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "cart_not_found") {
		t.Fatalf("body = %s", w.Body.String())
	}
}
