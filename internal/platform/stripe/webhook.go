package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event is the envelope Stripe posts to webhook endpoints.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSessionObject is the data.object payload of
// checkout.session.* events, reduced to the fields we read.
type CheckoutSessionObject struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"client_reference_id"`
	PaymentIntent     string `json:"payment_intent"`
	PaymentStatus     string `json:"payment_status"`
	CustomerEmail     string `json:"customer_email"`
	AmountTotal       int64  `json:"amount_total"`
}

// SignatureError distinguishes a bad signature from a malformed body.
type SignatureError struct{ Reason string }

func (e *SignatureError) Error() string { return "stripe webhook signature: " + e.Reason }

// VerifySignature checks a Stripe-Signature header ("t=...,v1=...")
// against the raw payload. Multiple v1 entries are accepted if any
// matches. now is injectable for tests.
func VerifySignature(payload []byte, sigHeader, secret string, tolerance time.Duration, now time.Time) error {
	if strings.TrimSpace(secret) == "" {
		return &SignatureError{Reason: "no signing secret configured"}
	}
	var ts int64 = -1
	var candidates []string
	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return &SignatureError{Reason: "unparseable timestamp"}
			}
			ts = parsed
		case "v1":
			candidates = append(candidates, kv[1])
		}
	}
	if ts < 0 {
		return &SignatureError{Reason: "missing timestamp"}
	}
	if len(candidates) == 0 {
		return &SignatureError{Reason: "no v1 signatures"}
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return &SignatureError{Reason: "timestamp outside tolerance"}
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, cand := range candidates {
		if hmac.Equal([]byte(cand), []byte(expected)) {
			return nil
		}
	}
	return &SignatureError{Reason: "no matching v1 signature"}
}

// SignPayload produces a Stripe-Signature header value for payload.
// Used by tests and local tooling.
func SignPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

// ParseEvent unmarshals a verified webhook payload.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("stripe webhook: decode event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, fmt.Errorf("stripe webhook: event missing id or type")
	}
	return &ev, nil
}

// ParseCheckoutSession unmarshals the data.object of a checkout
// session event.
func ParseCheckoutSession(ev *Event) (*CheckoutSessionObject, error) {
	var obj CheckoutSessionObject
	if err := json.Unmarshal(ev.Data.Object, &obj); err != nil {
		return nil, fmt.Errorf("stripe webhook: decode checkout session: %w", err)
	}
	if obj.ID == "" {
		return nil, fmt.Errorf("stripe webhook: checkout session missing id")
	}
	return &obj, nil
}
