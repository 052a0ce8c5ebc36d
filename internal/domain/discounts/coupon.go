package discounts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coupon carries exactly one of PercentOff / AmountOffCents.
type Coupon struct {
	ID   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code string    `gorm:"uniqueIndex;not null;column:code" json:"code"`

	PercentOff     *int   `gorm:"column:percent_off" json:"percent_off,omitempty"`
	AmountOffCents *int64 `gorm:"column:amount_off_cents" json:"amount_off_cents,omitempty"`

	StripeCouponID    string `gorm:"column:stripe_coupon_id" json:"-"`
	StripePromotionID string `gorm:"column:stripe_promotion_id" json:"-"`

	MaxRedemptions int        `gorm:"not null;default:0;column:max_redemptions" json:"max_redemptions"`
	Redeemed       int        `gorm:"not null;default:0;column:redeemed" json:"redeemed"`
	ExpiresAt      *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	Active         bool       `gorm:"not null;default:true;index;column:active" json:"active"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Coupon) TableName() string { return "coupon" }

// Usable reports whether the coupon can still be applied at now.
// MaxRedemptions == 0 means unlimited.
func (c *Coupon) Usable(now time.Time) (bool, string) {
	if !c.Active {
		return false, "code_invalid"
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false, "code_expired"
	}
	if c.MaxRedemptions > 0 && c.Redeemed >= c.MaxRedemptions {
		return false, "code_exhausted"
	}
	return true, ""
}
