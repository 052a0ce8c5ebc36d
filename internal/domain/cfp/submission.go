package cfp

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusDraft       = "draft"
	StatusSubmitted   = "submitted"
	StatusUnderReview = "under_review"
	StatusAccepted    = "accepted"
	StatusRejected    = "rejected"
	StatusWithdrawn   = "withdrawn"
)

type Submission struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index;column:account_id" json:"account_id"`
	Status    string    `gorm:"not null;default:draft;index;column:status" json:"status"`

	Title         string `gorm:"not null;column:title" json:"title"`
	Abstract      string `gorm:"type:text;column:abstract" json:"abstract"`
	Format        string `gorm:"column:format" json:"format"`
	Track         string `gorm:"column:track" json:"track"`
	AudienceLevel string `gorm:"column:audience_level" json:"audience_level"`
	SpeakerBio    string `gorm:"type:text;column:speaker_bio" json:"speaker_bio"`
	Notes         string `gorm:"type:text;column:notes" json:"notes"`
	SlideKey      string `gorm:"column:slide_key" json:"-"`

	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	DecidedAt   *time.Time `gorm:"column:decided_at" json:"decided_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Submission) TableName() string { return "cfp_submission" }

// CanTransition encodes the submission state machine. Decisions are
// explicit admin actions; there are no automatic transitions.
func CanTransition(from, to string) bool {
	switch from {
	case StatusDraft:
		return to == StatusSubmitted
	case StatusSubmitted:
		return to == StatusUnderReview || to == StatusWithdrawn
	case StatusUnderReview:
		return to == StatusAccepted || to == StatusRejected || to == StatusWithdrawn
	default:
		// accepted / rejected / withdrawn are terminal
		return false
	}
}

// Editable reports whether the owner may still change content.
func Editable(status string) bool {
	return status == StatusDraft || status == StatusSubmitted
}

// Reviewable reports whether reviewers may add or change reviews.
func Reviewable(status string) bool {
	return status == StatusSubmitted || status == StatusUnderReview
}
