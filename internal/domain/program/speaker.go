package program

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Speaker struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AccountID *uuid.UUID `gorm:"type:uuid;index;column:account_id" json:"account_id,omitempty"`
	Name      string     `gorm:"not null;column:name" json:"name"`
	Slug      string     `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	Title     string     `gorm:"column:title" json:"title"`
	Company   string     `gorm:"column:company" json:"company"`
	Bio       string     `gorm:"type:text;column:bio" json:"bio"`
	PhotoKey  string     `gorm:"column:photo_key" json:"-"`
	PhotoURL  string     `gorm:"column:photo_url" json:"photo_url"`
	// Links holds social links as {"github": "...", "bluesky": "..."}.
	Links     datatypes.JSON `gorm:"column:links" json:"links"`
	Featured  bool           `gorm:"not null;default:false;column:featured" json:"featured"`
	Published bool           `gorm:"not null;default:false;index;column:published" json:"published"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Speaker) TableName() string { return "speaker" }
