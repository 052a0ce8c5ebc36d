package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/borealisconf/borealis-backend/internal/http/response"
	"github.com/borealisconf/borealis-backend/internal/observability"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"github.com/borealisconf/borealis-backend/internal/platform/redcache"
	"github.com/borealisconf/borealis-backend/internal/platform/stripe"
	"github.com/borealisconf/borealis-backend/internal/services"
)

const (
	webhookMaxBody      = 1 << 20
	webhookTolerance    = 5 * time.Minute
	webhookDedupeTTL    = 24 * time.Hour
	webhookDedupePrefix = "stripe:event:"
)

// StripeWebhookHandler verifies, dedupes, and dispatches Stripe
// checkout session events. Anything else is acknowledged and ignored.
type StripeWebhookHandler struct {
	log             *logger.Logger
	checkoutService services.CheckoutService
	cache           *redcache.Cache
	secret          string
	now             func() time.Time
}

func NewStripeWebhookHandler(
	log *logger.Logger,
	checkoutService services.CheckoutService,
	cache *redcache.Cache,
	secret string,
) *StripeWebhookHandler {
	handlerLog := log.With("handler", "StripeWebhookHandler")
	return &StripeWebhookHandler{
		log:             handlerLog,
		checkoutService: checkoutService,
		cache:           cache,
		secret:          secret,
		now:             time.Now,
	}
}

func (wh *StripeWebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookMaxBody))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_body", err)
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if err := stripe.VerifySignature(payload, sig, wh.secret, webhookTolerance, wh.now()); err != nil {
		wh.log.Warn("webhook signature rejected", "error", err)
		observability.Current().IncWebhookEvent("unknown", "bad_signature")
		response.RespondError(c, http.StatusBadRequest, "invalid_signature", err)
		return
	}

	ev, err := stripe.ParseEvent(payload)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}

	// Stripe retries aggressively; claim the event ID before acting so
	// redeliveries become no-ops.
	if wh.cache != nil {
		fresh, err := wh.cache.SetNX(c.Request.Context(), webhookDedupePrefix+ev.ID, webhookDedupeTTL)
		if err != nil {
			wh.log.Warn("webhook dedupe check failed, processing anyway", "event_id", ev.ID, "error", err)
		} else if !fresh {
			observability.Current().IncWebhookEvent(ev.Type, "duplicate")
			response.RespondOK(c, gin.H{"received": true, "duplicate": true})
			return
		}
	}

	switch ev.Type {
	case "checkout.session.completed":
		obj, err := stripe.ParseCheckoutSession(ev)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
			return
		}
		if err := wh.checkoutService.FinalizeSession(c.Request.Context(), obj.ID, obj.PaymentIntent, obj.CustomerEmail); err != nil {
			wh.log.Error("webhook finalize failed", "event_id", ev.ID, "session_id", obj.ID, "error", err)
			observability.Current().IncWebhookEvent(ev.Type, "error")
			wh.releaseDedupe(c, ev.ID)
			response.Respond(c, err)
			return
		}
	case "checkout.session.expired":
		obj, err := stripe.ParseCheckoutSession(ev)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
			return
		}
		if err := wh.checkoutService.ExpireSession(c.Request.Context(), obj.ID); err != nil {
			wh.log.Error("webhook expire failed", "event_id", ev.ID, "session_id", obj.ID, "error", err)
			observability.Current().IncWebhookEvent(ev.Type, "error")
			wh.releaseDedupe(c, ev.ID)
			response.Respond(c, err)
			return
		}
	default:
		observability.Current().IncWebhookEvent(ev.Type, "ignored")
		response.RespondOK(c, gin.H{"received": true})
		return
	}

	observability.Current().IncWebhookEvent(ev.Type, "processed")
	response.RespondOK(c, gin.H{"received": true})
}

// releaseDedupe drops the claim on a failed event so Stripe's retry is
// not swallowed as a duplicate.
func (wh *StripeWebhookHandler) releaseDedupe(c *gin.Context, eventID string) {
	if wh.cache == nil {
		return
	}
	if err := wh.cache.Delete(c.Request.Context(), webhookDedupePrefix+eventID); err != nil {
		wh.log.Warn("webhook dedupe release failed", "event_id", eventID, "error", err)
	}
}
