package analytics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Event struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name       string         `gorm:"not null;index;column:name" json:"name"`
	DistinctID string         `gorm:"index;column:distinct_id" json:"distinct_id"`
	SessionID  string         `gorm:"column:session_id" json:"session_id"`
	URL        string         `gorm:"column:url" json:"url"`
	Referrer   string         `gorm:"column:referrer" json:"referrer"`
	Props      datatypes.JSON `gorm:"column:props" json:"props,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (Event) TableName() string { return "analytics_event" }
