package program

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FormatTalk      = "talk"
	FormatWorkshop  = "workshop"
	FormatLightning = "lightning"
)

type Session struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SpeakerID    uuid.UUID  `gorm:"type:uuid;not null;index;column:speaker_id" json:"speaker_id"`
	SubmissionID *uuid.UUID `gorm:"type:uuid;index;column:submission_id" json:"submission_id,omitempty"`
	Title        string     `gorm:"not null;column:title" json:"title"`
	Slug         string     `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	Abstract     string     `gorm:"type:text;column:abstract" json:"abstract"`
	Format       string     `gorm:"not null;default:talk;column:format" json:"format"`
	Track        string     `gorm:"column:track" json:"track"`
	Room         string     `gorm:"column:room" json:"room"`
	StartsAt     *time.Time `gorm:"index;column:starts_at" json:"starts_at,omitempty"`
	EndsAt       *time.Time `gorm:"column:ends_at" json:"ends_at,omitempty"`
	CardKey      string     `gorm:"column:card_key" json:"-"`
	CardURL      string     `gorm:"column:card_url" json:"card_url"`
	Published    bool       `gorm:"not null;default:false;index;column:published" json:"published"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Speaker *Speaker `gorm:"foreignKey:SpeakerID" json:"speaker,omitempty"`
}

func (Session) TableName() string { return "session" }

func ValidFormat(f string) bool {
	switch f {
	case FormatTalk, FormatWorkshop, FormatLightning:
		return true
	default:
		return false
	}
}
