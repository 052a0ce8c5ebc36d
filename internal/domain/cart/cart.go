package cart

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusOpen      = "open"
	StatusLocked    = "locked"
	StatusCompleted = "completed"
	StatusExpired   = "expired"
)

const (
	StepReview    = "review"
	StepAttendees = "attendees"
	StepUpsells   = "upsells"
	StepCheckout  = "checkout"
)

// Steps in wizard order. Advance/Back move one position at a time.
var Steps = []string{StepReview, StepAttendees, StepUpsells, StepCheckout}

type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Token     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null;column:token" json:"token"`
	AccountID *uuid.UUID `gorm:"type:uuid;index;column:account_id" json:"account_id,omitempty"`
	Email     string     `gorm:"column:email" json:"email"`
	Status    string     `gorm:"not null;default:open;index;column:status" json:"status"`
	Step      string     `gorm:"not null;default:review;column:step" json:"step"`

	CouponCode    *string `gorm:"column:coupon_code" json:"coupon_code,omitempty"`
	VoucherCode   *string `gorm:"column:voucher_code" json:"voucher_code,omitempty"`
	DiscountCents int64   `gorm:"not null;default:0;column:discount_cents" json:"discount_cents"`

	StripeSessionID string `gorm:"column:stripe_session_id" json:"-"`

	ExpiresAt time.Time `gorm:"not null;index;column:expires_at" json:"expires_at"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items     []CartItem     `gorm:"foreignKey:CartID" json:"items,omitempty"`
	Attendees []CartAttendee `gorm:"foreignKey:CartID" json:"attendees,omitempty"`
}

func (Cart) TableName() string { return "cart" }

type CartItem struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CartID       uuid.UUID `gorm:"type:uuid;not null;index;column:cart_id" json:"cart_id"`
	TicketTypeID uuid.UUID `gorm:"type:uuid;not null;column:ticket_type_id" json:"ticket_type_id"`
	Quantity     int       `gorm:"not null;column:quantity" json:"quantity"`
	// UnitPriceCents snapshots the catalog price at the moment the
	// item entered the cart.
	UnitPriceCents int64 `gorm:"not null;column:unit_price_cents" json:"unit_price_cents"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CartItem) TableName() string { return "cart_item" }

type CartAttendee struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CartID       uuid.UUID `gorm:"type:uuid;not null;index;column:cart_id" json:"cart_id"`
	TicketTypeID uuid.UUID `gorm:"type:uuid;not null;column:ticket_type_id" json:"ticket_type_id"`
	Idx          int       `gorm:"not null;column:idx" json:"idx"`
	Name         string    `gorm:"not null;column:name" json:"name"`
	Email        string    `gorm:"not null;column:email" json:"email"`
	Company      string    `gorm:"column:company" json:"company"`
	Dietary      string    `gorm:"column:dietary" json:"dietary"`
	TShirtSize   string    `gorm:"column:tshirt_size" json:"tshirt_size"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CartAttendee) TableName() string { return "cart_attendee" }

// StepIndex returns the wizard position of s, or -1.
func StepIndex(s string) int {
	for i, step := range Steps {
		if step == s {
			return i
		}
	}
	return -1
}
