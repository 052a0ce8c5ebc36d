package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/borealisconf/borealis-backend/internal/platform/ctxutil"
	"github.com/borealisconf/borealis-backend/internal/platform/envutil"
	"github.com/borealisconf/borealis-backend/internal/platform/httpx"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

// Client is a typed wrapper over the handful of Stripe endpoints the
// checkout flow needs. Stripe speaks form-encoded requests and JSON
// responses.
type Client interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, sessionID string) error
	CreateRefund(ctx context.Context, paymentIntentID string) (*Refund, error)
	CreateCoupon(ctx context.Context, params CouponParams) (*Coupon, error)
	CreatePromotionCode(ctx context.Context, couponID, code string) (*PromotionCode, error)
}

type Config struct {
	SecretKey  string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		SecretKey:  strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		BaseURL:    strings.TrimSpace(os.Getenv("STRIPE_BASE_URL")),
		Timeout:    envutil.Duration("STRIPE_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries: envutil.Int("STRIPE_MAX_RETRIES", 3),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("missing STRIPE_SECRET_KEY")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &client{
		log:        log.With("client", "StripeClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

// --- public request/response types ---

type LineItem struct {
	Name            string
	UnitAmountCents int64
	Quantity        int
}

type CheckoutSessionParams struct {
	SuccessURL        string
	CancelURL         string
	CustomerEmail     string
	ClientReferenceID string
	Currency          string
	LineItems         []LineItem
	// DiscountCoupon, when set, is attached as a session-level discount.
	DiscountCoupon string
	ExpiresAt      *time.Time
	Metadata       map[string]string
}

type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
	Status        string `json:"status"`
	ExpiresAt     int64  `json:"expires_at"`
}

type Refund struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PaymentIntent string `json:"payment_intent"`
}

type CouponParams struct {
	Name        string
	PercentOff  *int
	AmountOff   *int64
	Currency    string
	DurationOnce bool
}

type Coupon struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	PercentOff float64 `json:"percent_off"`
	AmountOff  int64   `json:"amount_off"`
	Valid      bool    `json:"valid"`
}

type PromotionCode struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Active bool   `json:"active"`
}

func (c *client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	if len(params.LineItems) == 0 {
		return nil, fmt.Errorf("stripe: checkout session requires line items")
	}
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	if params.ClientReferenceID != "" {
		form.Set("client_reference_id", params.ClientReferenceID)
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "eur"
	}
	for i, li := range params.LineItems {
		p := fmt.Sprintf("line_items[%d]", i)
		form.Set(p+"[quantity]", strconv.Itoa(li.Quantity))
		form.Set(p+"[price_data][currency]", currency)
		form.Set(p+"[price_data][unit_amount]", strconv.FormatInt(li.UnitAmountCents, 10))
		form.Set(p+"[price_data][product_data][name]", li.Name)
	}
	if params.DiscountCoupon != "" {
		form.Set("discounts[0][coupon]", params.DiscountCoupon)
	}
	if params.ExpiresAt != nil {
		form.Set("expires_at", strconv.FormatInt(params.ExpiresAt.Unix(), 10))
	}
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var out CheckoutSession
	if err := c.do(ctx, "POST", "/v1/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("stripe: session id required")
	}
	var out CheckoutSession
	return c.do(ctx, "POST", "/v1/checkout/sessions/"+url.PathEscape(sessionID)+"/expire", url.Values{}, &out)
}

func (c *client) CreateRefund(ctx context.Context, paymentIntentID string) (*Refund, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, fmt.Errorf("stripe: payment intent id required")
	}
	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	var out Refund
	if err := c.do(ctx, "POST", "/v1/refunds", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) CreateCoupon(ctx context.Context, params CouponParams) (*Coupon, error) {
	if (params.PercentOff == nil) == (params.AmountOff == nil) {
		return nil, fmt.Errorf("stripe: coupon needs exactly one of percent_off / amount_off")
	}
	form := url.Values{}
	if params.Name != "" {
		form.Set("name", params.Name)
	}
	if params.PercentOff != nil {
		form.Set("percent_off", strconv.Itoa(*params.PercentOff))
	}
	if params.AmountOff != nil {
		form.Set("amount_off", strconv.FormatInt(*params.AmountOff, 10))
		currency := strings.ToLower(strings.TrimSpace(params.Currency))
		if currency == "" {
			currency = "eur"
		}
		form.Set("currency", currency)
	}
	if params.DurationOnce {
		form.Set("duration", "once")
	} else {
		form.Set("duration", "forever")
	}
	var out Coupon
	if err := c.do(ctx, "POST", "/v1/coupons", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) CreatePromotionCode(ctx context.Context, couponID, code string) (*PromotionCode, error) {
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return nil, fmt.Errorf("stripe: coupon id required")
	}
	form := url.Values{}
	form.Set("coupon", couponID)
	if code = strings.TrimSpace(code); code != "" {
		form.Set("code", code)
	}
	var out PromotionCode
	if err := c.do(ctx, "POST", "/v1/promotion_codes", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------- HTTP / retry helpers ----------

type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type HTTPError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "stripe: <nil error>"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "<empty body>"
	}
	return fmt.Sprintf("stripe http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) do(ctx context.Context, method, path string, form url.Values, dest any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, method, path, form)
		if err == nil {
			if dest == nil {
				return nil
			}
			return json.Unmarshal(raw, dest)
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)
		c.log.Warn("Stripe request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return errors.New("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, method, path string, form url.Values) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		he := &HTTPError{StatusCode: resp.StatusCode, Message: string(raw)}
		var body apiErrorBody
		if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
			he.Type = body.Error.Type
			he.Code = body.Error.Code
			he.Message = body.Error.Message
		}
		return resp, raw, he
	}
	return resp, raw, nil
}
