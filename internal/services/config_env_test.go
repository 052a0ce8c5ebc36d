package services

import (
	"testing"
	"time"

	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

func TestCartTTLDefaultsToTwoDays(t *testing.T) {
	t.Setenv("CART_TTL", "")
	cs := NewCartService(nil, logger.NewNop(), nil, nil, nil, nil)
	if got := cs.(*cartService).ttl; got != 48*time.Hour {
		t.Fatalf("ttl = %v, want 48h", got)
	}
}

func TestCartTTLReadsEnvSeconds(t *testing.T) {
	t.Setenv("CART_TTL", "1800")
	cs := NewCartService(nil, logger.NewNop(), nil, nil, nil, nil)
	if got := cs.(*cartService).ttl; got != 30*time.Minute {
		t.Fatalf("ttl = %v, want 30m", got)
	}
}

func TestEnvTimeParsesRFC3339(t *testing.T) {
	t.Setenv("CFP_OPENS_AT", "2026-03-01T00:00:00Z")
	got := envTime(logger.NewNop(), "CFP_OPENS_AT")
	if got == nil || !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %v, want 2026-03-01T00:00:00Z", got)
	}
}

func TestEnvTimeTreatsMalformedAsUnset(t *testing.T) {
	t.Setenv("CFP_CLOSES_AT", "next tuesday")
	if got := envTime(logger.NewNop(), "CFP_CLOSES_AT"); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}
