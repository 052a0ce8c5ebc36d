package cfp

import (
	"time"

	"github.com/google/uuid"
)

// Review is one reviewer's take on a submission; the
// (submission, reviewer) pair is unique so re-reviewing upserts.
type Review struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubmissionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_submission_reviewer;column:submission_id" json:"submission_id"`
	ReviewerID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_submission_reviewer;column:reviewer_id" json:"reviewer_id"`
	Rating       int       `gorm:"not null;column:rating" json:"rating"`
	Comment      string    `gorm:"type:text;column:comment" json:"comment"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Review) TableName() string { return "cfp_review" }
