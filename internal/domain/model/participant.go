package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is an account holder; organizers carry the organizer flag.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	FirstName    string    `gorm:"size:100" json:"first_name"`
	LastName     string    `gorm:"size:100" json:"last_name"`
	IsOrganizer  bool      `gorm:"not null;default:false" json:"is_organizer"`
}

// FullName returns "First Last", falling back to the email address.
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	return u.FirstName + " " + u.LastName
}

// Participant is the solver profile attached to a user.
type Participant struct {
	UserID    uuid.UUID  `gorm:"type:uuid;primaryKey" json:"user_id"`
	Phone     string     `gorm:"size:20" json:"phone,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Street    string     `gorm:"size:100;not null" json:"street"`
	City      string     `gorm:"size:100;not null" json:"city"`
	ZipCode   string     `gorm:"size:10;not null" json:"zip_code"`
	Country   string     `gorm:"size:10;not null" json:"country"`

	School     string `gorm:"size:80;not null" json:"school"`
	SchoolYear string `gorm:"size:1;not null" json:"school_year"`

	// Free-form school fields used when the listed school is "other".
	SchoolAltName    string `gorm:"size:80" json:"school_alt_name,omitempty"`
	SchoolAltStreet  string `gorm:"size:100" json:"school_alt_street,omitempty"`
	SchoolAltCity    string `gorm:"size:100" json:"school_alt_city,omitempty"`
	SchoolAltZipCode string `gorm:"size:10" json:"school_alt_zip_code,omitempty"`

	BrochuresByMail bool `gorm:"not null;default:true" json:"brochures_by_mail"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// SchoolName resolves the display school name, preferring the listed
// school and falling back to the free-form one.
func (p *Participant) SchoolName() string {
	if p.School == SchoolOther && p.SchoolAltName != "" {
		return p.SchoolAltName
	}
	return p.School
}

// SchoolOther marks a school outside the listed choices.
const SchoolOther = "other"

// Validate checks the profile fields required for participation.
func (p *Participant) Validate() error {
	switch {
	case p.Street == "":
		return fmt.Errorf("%w: street must not be empty", ErrInvalid)
	case p.City == "":
		return fmt.Errorf("%w: city must not be empty", ErrInvalid)
	case p.ZipCode == "":
		return fmt.Errorf("%w: zip code must not be empty", ErrInvalid)
	case p.Country == "":
		return fmt.Errorf("%w: country must not be empty", ErrInvalid)
	case p.School == "":
		return fmt.Errorf("%w: school must not be empty", ErrInvalid)
	case p.SchoolYear == "":
		return fmt.Errorf("%w: school year must not be empty", ErrInvalid)
	}
	return nil
}

// Application is a participant's enrollment in a grade.
type Application struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GradeID       uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_grade_participant;not null" json:"grade_id"`
	ParticipantID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_grade_participant;not null" json:"participant_id"`
	// CurrentGrade is the school-year of study stated at application time.
	CurrentGrade string    `gorm:"size:10" json:"current_grade,omitempty"`
	CreatedAt    time.Time `gorm:"index;not null" json:"created_at"`

	Participant Participant `gorm:"foreignKey:ParticipantID" json:"participant,omitempty"`
}
