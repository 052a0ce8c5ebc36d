package account

import (
	"time"

	"github.com/google/uuid"
)

// AccountToken pairs an issued JWT access token with its opaque
// refresh token. Refresh rotation deletes the replaced row.
type AccountToken struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AccountID    uuid.UUID `gorm:"type:uuid;not null;index;column:account_id" json:"account_id"`
	AccessToken  string    `gorm:"not null;index;column:access_token" json:"-"`
	RefreshToken string    `gorm:"not null;uniqueIndex;column:refresh_token" json:"-"`
	ExpiresAt    time.Time `gorm:"not null;column:expires_at" json:"expires_at"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (AccountToken) TableName() string { return "account_token" }
