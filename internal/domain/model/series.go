package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Bounds from the seminar format: four series per grade, five tasks each.
const (
	MaxSeriesPerGrade = 4
	MaxTasksPerSeries = 5
)

// Series is one round of tasks within a grade.
type Series struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GradeID            uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_grade_series;not null" json:"grade_id"`
	Number             int       `gorm:"uniqueIndex:idx_grade_series;not null" json:"number"`
	SubmissionDeadline time.Time `gorm:"not null" json:"submission_deadline"`
	// TaskFileKey is the object storage key of the task booklet PDF.
	// Empty means no booklet has been uploaded yet.
	TaskFileKey      string `gorm:"size:512" json:"task_file_key,omitempty"`
	ResultsPublished bool   `gorm:"index;not null;default:false" json:"results_published"`

	Tasks       []Task       `gorm:"foreignKey:SeriesID" json:"tasks,omitempty"`
	Attachments []Attachment `gorm:"foreignKey:SeriesID" json:"attachments,omitempty"`
}

// AcceptsSubmissions reports whether participants can still submit
// solutions: the booklet must be published and the deadline not passed.
func (s *Series) AcceptsSubmissions(now time.Time) bool {
	return s.TaskFileKey != "" && now.Before(s.SubmissionDeadline)
}

// Validate checks series invariants.
func (s *Series) Validate() error {
	if s.Number < 1 || s.Number > MaxSeriesPerGrade {
		return fmt.Errorf("%w: series number %d out of range 1..%d", ErrInvalid, s.Number, MaxSeriesPerGrade)
	}
	if s.SubmissionDeadline.IsZero() {
		return fmt.Errorf("%w: series submission deadline required", ErrInvalid)
	}
	return nil
}

// Task is a single graded problem within a series.
type Task struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SeriesID uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_series_task;not null" json:"series_id"`
	Number   int       `gorm:"uniqueIndex:idx_series_task;not null" json:"number"`
	Title    string    `gorm:"size:150;not null" json:"title"`
	Points   int       `gorm:"not null" json:"points"`
}

// Validate checks task invariants.
func (t *Task) Validate() error {
	if t.Number < 1 || t.Number > MaxTasksPerSeries {
		return fmt.Errorf("%w: task number %d out of range 1..%d", ErrInvalid, t.Number, MaxTasksPerSeries)
	}
	if t.Title == "" {
		return fmt.Errorf("%w: task title must not be empty", ErrInvalid)
	}
	if t.Points < 1 {
		return fmt.Errorf("%w: task points must be at least 1", ErrInvalid)
	}
	return nil
}

// Attachment is a supplementary file tied to a series.
type Attachment struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SeriesID uuid.UUID `gorm:"type:uuid;index;not null" json:"series_id"`
	Title    string    `gorm:"size:255;not null" json:"title"`
	FileKey  string    `gorm:"size:512;not null" json:"file_key"`
}
