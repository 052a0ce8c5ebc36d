package stripe

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Unix(1700000000, 0)

	t.Run("valid", func(t *testing.T) {
		header := SignPayload(payload, testSecret, now)
		if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now); err != nil {
			t.Fatalf("expected valid signature: %v", err)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := SignPayload(payload, testSecret, now)
		err := VerifySignature([]byte(`{"id":"evt_2"}`), header, testSecret, 5*time.Minute, now)
		var se *SignatureError
		if !errors.As(err, &se) {
			t.Fatalf("expected SignatureError, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := SignPayload(payload, "whsec_other", now)
		if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now); err == nil {
			t.Fatal("expected signature mismatch")
		}
	})

	t.Run("stale timestamp", func(t *testing.T) {
		header := SignPayload(payload, testSecret, now.Add(-10*time.Minute))
		if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now); err == nil {
			t.Fatal("expected tolerance failure")
		}
	})

	t.Run("future timestamp", func(t *testing.T) {
		header := SignPayload(payload, testSecret, now.Add(10*time.Minute))
		if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now); err == nil {
			t.Fatal("expected tolerance failure")
		}
	})

	t.Run("second v1 entry matches", func(t *testing.T) {
		header := "t=1700000000,v1=deadbeef," + SignPayload(payload, testSecret, now)[len("t=1700000000,"):]
		if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now); err != nil {
			t.Fatalf("expected any-match semantics: %v", err)
		}
	})

	t.Run("missing header parts", func(t *testing.T) {
		if err := VerifySignature(payload, "v1=abc", testSecret, 5*time.Minute, now); err == nil {
			t.Fatal("expected missing timestamp error")
		}
		if err := VerifySignature(payload, "t=1700000000", testSecret, 5*time.Minute, now); err == nil {
			t.Fatal("expected missing v1 error")
		}
	})
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","client_reference_id":"tok","payment_intent":"pi_1","amount_total":4200}}}`))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	sess, err := ParseCheckoutSession(ev)
	if err != nil {
		t.Fatalf("ParseCheckoutSession: %v", err)
	}
	if sess.ID != "cs_1" || sess.ClientReferenceID != "tok" || sess.PaymentIntent != "pi_1" || sess.AmountTotal != 4200 {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if _, err := ParseEvent([]byte(`{"type":"x"}`)); err == nil {
		t.Fatal("expected error for event without id")
	}
}
