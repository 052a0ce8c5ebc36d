package mail

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusPending = "pending"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateOrderRefunded     = "order_refunded"
	TemplateCFPReceived       = "cfp_received"
	TemplateCFPAccepted       = "cfp_accepted"
	TemplateCFPRejected       = "cfp_rejected"
	TemplateAnnouncement      = "announcement"
)

// EmailOutbox rows are written inside the transaction that produced
// them and drained by the paced sender worker.
type EmailOutbox struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ToEmail string    `gorm:"not null;column:to_email" json:"to_email"`
	ToName  string    `gorm:"column:to_name" json:"to_name"`
	Subject string    `gorm:"not null;column:subject" json:"subject"`
	HTML    string    `gorm:"type:text;column:html" json:"-"`
	Text    string    `gorm:"type:text;column:text" json:"-"`

	Template string         `gorm:"column:template" json:"template"`
	Payload  datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`

	Status        string     `gorm:"not null;default:pending;index;column:status" json:"status"`
	Attempts      int        `gorm:"not null;default:0;column:attempts" json:"attempts"`
	NextAttemptAt time.Time  `gorm:"not null;index;column:next_attempt_at" json:"next_attempt_at"`
	SentAt        *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
	MessageID     string     `gorm:"column:message_id" json:"message_id"`
	LastError     string     `gorm:"type:text;column:last_error" json:"last_error,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (EmailOutbox) TableName() string { return "email_outbox" }
