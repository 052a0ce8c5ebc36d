package orders

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusRefunded = "refunded"
	StatusCanceled = "canceled"
)

type Order struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Number    string     `gorm:"uniqueIndex;not null;column:number" json:"number"`
	CartID    uuid.UUID  `gorm:"type:uuid;not null;index;column:cart_id" json:"cart_id"`
	AccountID *uuid.UUID `gorm:"type:uuid;index;column:account_id" json:"account_id,omitempty"`
	Email     string     `gorm:"not null;index;column:email" json:"email"`
	Status    string     `gorm:"not null;default:pending;index;column:status" json:"status"`

	SubtotalCents int64  `gorm:"not null;column:subtotal_cents" json:"subtotal_cents"`
	DiscountCents int64  `gorm:"not null;default:0;column:discount_cents" json:"discount_cents"`
	TotalCents    int64  `gorm:"not null;column:total_cents" json:"total_cents"`
	Currency      string `gorm:"not null;default:EUR;column:currency" json:"currency"`

	CouponCode  *string `gorm:"column:coupon_code" json:"coupon_code,omitempty"`
	VoucherCode *string `gorm:"column:voucher_code" json:"voucher_code,omitempty"`

	StripeSessionID       string `gorm:"uniqueIndex;column:stripe_session_id" json:"-"`
	StripePaymentIntentID string `gorm:"column:stripe_payment_intent_id" json:"-"`

	PaidAt *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Tickets []Ticket `gorm:"foreignKey:OrderID" json:"tickets,omitempty"`
}

func (Order) TableName() string { return "order" }
