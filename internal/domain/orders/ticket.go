package orders

import (
	"time"

	"github.com/google/uuid"
)

const (
	TicketValid    = "valid"
	TicketCanceled = "canceled"
	TicketRefunded = "refunded"
)

// Ticket is an issued, named admission unit. Code is the value a
// door scanner reads.
type Ticket struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrderID      uuid.UUID `gorm:"type:uuid;not null;index;column:order_id" json:"order_id"`
	TicketTypeID uuid.UUID `gorm:"type:uuid;not null;index;column:ticket_type_id" json:"ticket_type_id"`

	AttendeeName  string `gorm:"not null;column:attendee_name" json:"attendee_name"`
	AttendeeEmail string `gorm:"not null;column:attendee_email" json:"attendee_email"`
	Company       string `gorm:"column:company" json:"company"`
	Dietary       string `gorm:"column:dietary" json:"dietary"`
	TShirtSize    string `gorm:"column:tshirt_size" json:"tshirt_size"`

	Code        uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null;column:code" json:"code"`
	Status      string     `gorm:"not null;default:valid;column:status" json:"status"`
	CheckedInAt *time.Time `gorm:"column:checked_in_at" json:"checked_in_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Ticket) TableName() string { return "ticket" }
