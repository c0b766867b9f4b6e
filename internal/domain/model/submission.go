package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Submission is one solution for a task under a grade application.
// A submission without a stored file arrived by post.
type Submission struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_application_task;not null" json:"application_id"`
	TaskID        uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_application_task;not null" json:"task_id"`

	// FileKey is the object storage key of the uploaded PDF; empty for
	// solutions submitted by post.
	FileKey string `gorm:"size:512" json:"file_key,omitempty"`
	// Export variants prepared by the background pipeline.
	ExportNormalKey string `gorm:"size:512" json:"export_normal_key,omitempty"`
	ExportDuplexKey string `gorm:"size:512" json:"export_duplex_key,omitempty"`

	// Score awarded by organizers; nil until scored. Two decimal places.
	Score       *float64  `gorm:"type:numeric(5,2)" json:"score,omitempty"`
	SubmittedAt time.Time `gorm:"index;not null" json:"submitted_at"`

	Stickers []Sticker `gorm:"many2many:submission_stickers" json:"stickers,omitempty"`
}

// ByPost reports whether the solution was sent on paper.
func (s *Submission) ByPost() bool {
	return s.FileKey == ""
}

// RoundScore normalizes a score to two decimal places.
func RoundScore(score float64) float64 {
	return math.Round(score*100) / 100
}

// Sticker is a numbered collectible awarded on submissions.
type Sticker struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Number      int       `gorm:"uniqueIndex;not null" json:"number"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	// Handpicked stickers are awarded manually by organizers.
	Handpicked bool `gorm:"index;not null;default:true" json:"handpicked"`
}
