package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

func testClient(t *testing.T, handler http.Handler) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	c, err := New(log, Config{SecretKey: "sk_test", BaseURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 1})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func TestCreateCheckoutSession(t *testing.T) {
	var gotForm url.Values
	var gotAuth string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = r.ParseForm()
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_123","url":"https://checkout.test/cs_123","status":"open"}`))
	}))

	sess, err := c.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		SuccessURL:        "https://conf.test/done",
		CancelURL:         "https://conf.test/cancel",
		CustomerEmail:     "a@b.test",
		ClientReferenceID: "cart-token",
		Currency:          "EUR",
		LineItems: []LineItem{
			{Name: "Conference Ticket", UnitAmountCents: 39900, Quantity: 2},
			{Name: "Workshop", UnitAmountCents: 12900, Quantity: 1},
		},
		DiscountCoupon: "co_1",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if sess.ID != "cs_123" || sess.URL == "" {
		t.Fatalf("unexpected session %+v", sess)
	}
	if gotAuth != "Bearer sk_test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	checks := map[string]string{
		"mode":                                      "payment",
		"customer_email":                            "a@b.test",
		"client_reference_id":                       "cart-token",
		"line_items[0][quantity]":                   "2",
		"line_items[0][price_data][currency]":       "eur",
		"line_items[0][price_data][unit_amount]":    "39900",
		"line_items[1][price_data][product_data][name]": "Workshop",
		"discounts[0][coupon]":                      "co_1",
	}
	for k, want := range checks {
		if got := gotForm.Get(k); got != want {
			t.Errorf("form[%q] = %q, want %q", k, got, want)
		}
	}
}

func TestCreateCouponValidation(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"co_1","valid":true}`))
	}))
	pct := 20
	amt := int64(500)

	if _, err := c.CreateCoupon(context.Background(), CouponParams{}); err == nil {
		t.Fatal("expected error with neither percent nor amount")
	}
	if _, err := c.CreateCoupon(context.Background(), CouponParams{PercentOff: &pct, AmountOff: &amt}); err == nil {
		t.Fatal("expected error with both percent and amount")
	}
	if _, err := c.CreateCoupon(context.Background(), CouponParams{PercentOff: &pct}); err != nil {
		t.Fatalf("percent-only coupon: %v", err)
	}
}

func TestErrorBodyDecoded(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	}))
	_, err := c.CreateRefund(context.Background(), "pi_1")
	if err == nil {
		t.Fatal("expected error")
	}
	he, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if he.StatusCode != http.StatusPaymentRequired || he.Code != "card_declined" {
		t.Fatalf("unexpected error %+v", he)
	}
}

func TestRetriesOn500(t *testing.T) {
	attempts := 0
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"id":"re_1","status":"succeeded"}`))
	}))
	ref, err := c.CreateRefund(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("CreateRefund after retry: %v", err)
	}
	if attempts != 2 || ref.ID != "re_1" {
		t.Fatalf("expected one retry, got attempts=%d ref=%+v", attempts, ref)
	}
}
