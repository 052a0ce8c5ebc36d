package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"github.com/borealisconf/borealis-backend/internal/platform/stripe"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type fakeCheckout struct {
	finalized []string
	expired   []string
	failWith  error
}

func (f *fakeCheckout) Checkout(ctx context.Context, token uuid.UUID, email string) (*services.CheckoutResult, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeCheckout) FinalizeSession(ctx context.Context, sessionID, paymentIntentID, payerEmail string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.finalized = append(f.finalized, sessionID)
	return nil
}

func (f *fakeCheckout) ExpireSession(ctx context.Context, sessionID string) error {
	f.expired = append(f.expired, sessionID)
	return nil
}

const testWebhookSecret = "whsec_test"

func newWebhookRig(t *testing.T, checkout *fakeCheckout) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	wh := NewStripeWebhookHandler(logger.NewNop(), checkout, nil, testWebhookSecret)
	r := gin.New()
	r.POST("/api/webhooks/stripe", wh.Handle)
	return r
}

func postEvent(r *gin.Engine, payload []byte, sig string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", sig)
	r.ServeHTTP(w, req)
	return w
}

func sessionCompletedPayload(sessionID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"created": %d,
		"data": {"object": {"id": %q, "payment_intent": "pi_1", "payment_status": "paid", "customer_email": "buyer@example.com"}}
	}`, time.Now().Unix(), sessionID))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	checkout := &fakeCheckout{}
	r := newWebhookRig(t, checkout)

	payload := sessionCompletedPayload("cs_1")
	w := postEvent(r, payload, "t=123,v1=deadbeef")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(checkout.finalized) != 0 {
		t.Fatalf("finalize should not run on bad signature")
	}
}

func TestWebhookFinalizesCompletedSession(t *testing.T) {
	checkout := &fakeCheckout{}
	r := newWebhookRig(t, checkout)

	payload := sessionCompletedPayload("cs_42")
	sig := stripe.SignPayload(payload, testWebhookSecret, time.Now())
	w := postEvent(r, payload, sig)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(checkout.finalized) != 1 || checkout.finalized[0] != "cs_42" {
		t.Fatalf("finalized = %v", checkout.finalized)
	}
}

func TestWebhookExpiresSession(t *testing.T) {
	checkout := &fakeCheckout{}
	r := newWebhookRig(t, checkout)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_2",
		"type": "checkout.session.expired",
		"created": %d,
		"data": {"object": {"id": "cs_7"}}
	}`, time.Now().Unix()))
	sig := stripe.SignPayload(payload, testWebhookSecret, time.Now())
	w := postEvent(r, payload, sig)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(checkout.expired) != 1 || checkout.expired[0] != "cs_7" {
		t.Fatalf("expired = %v", checkout.expired)
	}
}

func TestWebhookIgnoresUnknownEventTypes(t *testing.T) {
	checkout := &fakeCheckout{}
	r := newWebhookRig(t, checkout)

	payload := []byte(fmt.Sprintf(`{"id": "evt_3", "type": "invoice.paid", "created": %d, "data": {"object": {}}}`, time.Now().Unix()))
	sig := stripe.SignPayload(payload, testWebhookSecret, time.Now())
	w := postEvent(r, payload, sig)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(checkout.finalized) != 0 || len(checkout.expired) != 0 {
		t.Fatalf("unknown event should not dispatch")
	}
}

func TestWebhookSurfacesFulfilmentConflict(t *testing.T) {
	checkout := &fakeCheckout{failWith: apierr.Conflict("sold_out", fmt.Errorf("capacity exhausted during fulfilment"))}
	r := newWebhookRig(t, checkout)

	payload := sessionCompletedPayload("cs_9")
	sig := stripe.SignPayload(payload, testWebhookSecret, time.Now())
	w := postEvent(r, payload, sig)
	// Non-2xx tells Stripe to retry delivery.
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}
