package resend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

func testClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	c, err := New(log, Config{
		APIKey:      "re_test",
		BaseURL:     srv.URL,
		DefaultFrom: "Borealis Conf <hello@borealisconf.test>",
		Timeout:     5 * time.Second,
		MaxRetries:  1,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestSend(t *testing.T) {
	var got sendEmailWire
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer re_test" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))

	res, err := c.Send(context.Background(), SendEmailRequest{
		To:      []string{"attendee@example.com"},
		Subject: "Your tickets",
		HTML:    "<p>hi</p>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "msg_1" {
		t.Fatalf("unexpected message id %q", res.MessageID)
	}
	if got.From != "Borealis Conf <hello@borealisconf.test>" {
		t.Fatalf("default from not applied: %q", got.From)
	}
}

func TestSendValidation(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	cases := []struct {
		name string
		req  SendEmailRequest
	}{
		{"no recipients", SendEmailRequest{Subject: "s", Text: "t"}},
		{"no subject", SendEmailRequest{To: []string{"a@b.c"}, Text: "t"}},
		{"no content", SendEmailRequest{To: []string{"a@b.c"}, Subject: "s"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Send(context.Background(), tc.req); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSendRetriesOn429(t *testing.T) {
	attempts := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"msg_2"}`))
	}))
	res, err := c.Send(context.Background(), SendEmailRequest{
		To:      []string{"a@b.c"},
		Subject: "s",
		Text:    "t",
	})
	if err != nil {
		t.Fatalf("Send after retry: %v", err)
	}
	if attempts != 2 || res.MessageID != "msg_2" {
		t.Fatalf("expected retry, attempts=%d res=%+v", attempts, res)
	}
}
