package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is an excursion, camp or other gathering outside the series.
type Event struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"size:150;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Place       string    `gorm:"size:150" json:"place,omitempty"`
	StartDate   time.Time `gorm:"index;not null" json:"start_date"`
	EndDate     time.Time `gorm:"index;not null" json:"end_date"`

	// Capacity is advisory; attendees beyond it become substitutes.
	Capacity          int    `json:"capacity,omitempty"`
	EnlistmentMessage string `gorm:"type:text" json:"enlistment_message,omitempty"`
	EnlistmentEnabled bool   `gorm:"not null;default:false" json:"enlistment_enabled"`

	RequireBirthDate   bool `gorm:"not null;default:false" json:"require_birth_date"`
	RequirePhoneNumber bool `gorm:"not null;default:false" json:"require_phone_number"`

	IsPublic         bool `gorm:"not null;default:true" json:"is_public"`
	PublishOccupancy bool `gorm:"not null;default:true" json:"publish_occupancy"`

	Attendees []EventAttendee `gorm:"foreignKey:EventID" json:"attendees,omitempty"`
	// VisibleTo lists users allowed to see a non-public event.
	VisibleTo []User `gorm:"many2many:event_visibility" json:"-"`
}

// IsAcceptingEnlistments reports whether users may still sign up.
func (e *Event) IsAcceptingEnlistments(now time.Time) bool {
	return e.EnlistmentEnabled && !DateOnly(now).After(DateOnly(e.EndDate))
}

// IsVisibleTo reports whether the user may see the event. A nil user
// stands for an anonymous caller.
func (e *Event) IsVisibleTo(user *User) bool {
	if e.IsPublic {
		return true
	}
	if user == nil {
		return false
	}
	if user.IsOrganizer {
		return true
	}
	for _, u := range e.VisibleTo {
		if u.ID == user.ID {
			return true
		}
	}
	return false
}

// EventAttendee records one signup, with profile values snapshotted at
// signup time so later profile edits do not lose them.
type EventAttendee struct {
	EventID    uuid.UUID  `gorm:"type:uuid;primaryKey" json:"event_id"`
	UserID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	SignupDate time.Time  `gorm:"index;not null" json:"signup_date"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Phone      string     `gorm:"size:20" json:"phone,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
