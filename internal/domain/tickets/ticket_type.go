package tickets

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	KindConference = "conference"
	KindWorkshop   = "workshop"
	KindAddon      = "addon"
)

type TicketType struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name         string     `gorm:"not null;column:name" json:"name"`
	Slug         string     `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	Description  string     `gorm:"type:text;column:description" json:"description"`
	PriceCents   int64      `gorm:"not null;column:price_cents" json:"price_cents"`
	Currency     string     `gorm:"not null;default:EUR;column:currency" json:"currency"`
	Capacity     int        `gorm:"not null;column:capacity" json:"capacity"`
	Sold         int        `gorm:"not null;default:0;column:sold" json:"sold"`
	MaxPerOrder  int        `gorm:"not null;default:10;column:max_per_order" json:"max_per_order"`
	SalesOpenAt  *time.Time `gorm:"column:sales_open_at" json:"sales_open_at,omitempty"`
	SalesCloseAt *time.Time `gorm:"column:sales_close_at" json:"sales_close_at,omitempty"`
	Kind         string     `gorm:"not null;default:conference;column:kind" json:"kind"`
	Upsell       bool       `gorm:"not null;default:false;column:upsell" json:"upsell"`
	SortOrder    int        `gorm:"not null;default:0;column:sort_order" json:"sort_order"`
	Active       bool       `gorm:"not null;default:true;index;column:active" json:"active"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (TicketType) TableName() string { return "ticket_type" }

// Remaining never reports negative availability even if an oversell
// slipped through.
func (t *TicketType) Remaining() int {
	r := t.Capacity - t.Sold
	if r < 0 {
		return 0
	}
	return r
}

// InSalesWindow reports whether now falls inside the optional
// open/close bounds.
func (t *TicketType) InSalesWindow(now time.Time) bool {
	if t.SalesOpenAt != nil && now.Before(*t.SalesOpenAt) {
		return false
	}
	if t.SalesCloseAt != nil && now.After(*t.SalesCloseAt) {
		return false
	}
	return true
}

func ValidKind(k string) bool {
	switch k {
	case KindConference, KindWorkshop, KindAddon:
		return true
	default:
		return false
	}
}
