// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Grade represents one yearly seminar cohort.
type Grade struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SchoolYear string    `gorm:"size:50;uniqueIndex;not null" json:"school_year"`
	Errata     string    `gorm:"type:text" json:"errata,omitempty"`
	StartDate  time.Time `gorm:"index;not null" json:"start_date"`
	EndDate    time.Time `gorm:"index;not null" json:"end_date"`

	Series []Series `gorm:"foreignKey:GradeID" json:"series,omitempty"`
}

// DefaultSchoolYear renders the "2024/2025" style label for a start date.
func DefaultSchoolYear(start time.Time) string {
	return fmt.Sprintf("%d/%d", start.Year(), start.Year()+1)
}

// IsInProgress reports whether the grade is running at the given time.
func (g *Grade) IsInProgress(now time.Time) bool {
	day := DateOnly(now)
	return !day.Before(DateOnly(g.StartDate)) && !day.After(DateOnly(g.EndDate))
}

// Validate checks internal grade consistency. Overlap with other grades
// is checked at the repository layer where the full set is visible.
func (g *Grade) Validate() error {
	if g.SchoolYear == "" {
		return fmt.Errorf("%w: school year must not be empty", ErrInvalid)
	}
	if g.EndDate.Before(g.StartDate) {
		return fmt.Errorf("%w: grade end date precedes start date", ErrInvalid)
	}
	return nil
}

// Overlaps reports whether two grade date ranges intersect.
func (g *Grade) Overlaps(other *Grade) bool {
	return !g.StartDate.After(other.EndDate) && !other.StartDate.After(g.EndDate)
}

// DateOnly truncates a time to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
