package discounts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	VoucherComp    = "comp"
	VoucherSpeaker = "speaker"
	VoucherSponsor = "sponsor"
)

// Voucher comps matching ticket-type units entirely. A nil
// TicketTypeID matches any conference ticket.
type Voucher struct {
	ID   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code string    `gorm:"uniqueIndex;not null;column:code" json:"code"`
	Kind string    `gorm:"not null;default:comp;column:kind" json:"kind"`

	TicketTypeID *uuid.UUID `gorm:"type:uuid;column:ticket_type_id" json:"ticket_type_id,omitempty"`

	MaxRedemptions int        `gorm:"not null;default:1;column:max_redemptions" json:"max_redemptions"`
	Redeemed       int        `gorm:"not null;default:0;column:redeemed" json:"redeemed"`
	ExpiresAt      *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`

	CreatedBy *uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`
	Note      string     `gorm:"column:note" json:"note"`
	Active    bool       `gorm:"not null;default:true;index;column:active" json:"active"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Voucher) TableName() string { return "voucher" }

func (v *Voucher) Usable(now time.Time) (bool, string) {
	if !v.Active {
		return false, "code_invalid"
	}
	if v.ExpiresAt != nil && now.After(*v.ExpiresAt) {
		return false, "code_expired"
	}
	if v.MaxRedemptions > 0 && v.Redeemed >= v.MaxRedemptions {
		return false, "code_exhausted"
	}
	return true, ""
}

func ValidVoucherKind(k string) bool {
	switch k {
	case VoucherComp, VoucherSpeaker, VoucherSponsor:
		return true
	default:
		return false
	}
}
