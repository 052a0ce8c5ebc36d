package account

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAttendee = "attendee"
	RoleSpeaker  = "speaker"
	RoleAdmin    = "admin"
)

type Account struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash   string    `gorm:"not null;column:password_hash" json:"-"`
	Name           string    `gorm:"not null;column:name" json:"name"`
	Role           string    `gorm:"not null;default:attendee;column:role" json:"role"`
	AvatarColor    string    `gorm:"column:avatar_color" json:"avatar_color"`
	AvatarKey      string    `gorm:"column:avatar_key" json:"-"`
	AvatarURL      string    `gorm:"column:avatar_url" json:"avatar_url"`
	MarketingOptIn bool      `gorm:"not null;default:false;column:marketing_opt_in" json:"marketing_opt_in"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Account) TableName() string { return "account" }
