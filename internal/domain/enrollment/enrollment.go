// Package enrollment applies the rules for who counts as an active
// participant and who gets a seat at an event.
package enrollment

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ksicht/ksicht/internal/domain/model"
)

// ActiveApplications filters a grade's applications down to active
// participants: anyone who already submitted a solution in the grade,
// plus anyone who applied between the previous and current series
// deadlines. A nil previous deadline means the grade is in its first
// series, where only submitters count.
func ActiveApplications(applications []model.Application, submissions []model.Submission, previousDeadline *time.Time, currentDeadline time.Time) []model.Application {
	submitted := make(map[uuid.UUID]bool)
	for _, s := range submissions {
		submitted[s.ApplicationID] = true
	}

	out := make([]model.Application, 0, len(applications))
	for _, app := range applications {
		if submitted[app.ID] {
			out = append(out, app)
			continue
		}
		if previousDeadline == nil {
			continue
		}
		if app.CreatedAt.After(currentDeadline) {
			continue
		}
		if app.CreatedAt.After(*previousDeadline) {
			out = append(out, app)
		}
	}
	return out
}

// Roster splits event signups into seated attendees and substitutes.
type Roster struct {
	Attendees   []model.EventAttendee `json:"attendees"`
	Substitutes []model.EventAttendee `json:"substitutes"`
}

// SplitRoster seats attendees in signup order up to the event capacity;
// the rest wait as substitutes. Zero capacity means unlimited seats.
func SplitRoster(event *model.Event) Roster {
	signups := make([]model.EventAttendee, len(event.Attendees))
	copy(signups, event.Attendees)
	sort.Slice(signups, func(i, j int) bool {
		return signups[i].SignupDate.Before(signups[j].SignupDate)
	})

	if event.Capacity <= 0 || len(signups) <= event.Capacity {
		return Roster{Attendees: signups}
	}
	return Roster{
		Attendees:   signups[:event.Capacity],
		Substitutes: signups[event.Capacity:],
	}
}

// ValidateEnlistment checks that a signup may be accepted: enlistment
// must be open and the event's required profile fields present.
func ValidateEnlistment(event *model.Event, attendee *model.EventAttendee, now time.Time) error {
	if !event.IsAcceptingEnlistments(now) {
		return fmt.Errorf("%w: event %q", ErrEnlistmentClosed, event.Title)
	}
	for _, existing := range event.Attendees {
		if existing.UserID == attendee.UserID {
			return fmt.Errorf("%w: already enlisted for %q", ErrAlreadyEnlisted, event.Title)
		}
	}
	if event.RequireBirthDate && attendee.BirthDate == nil {
		return fmt.Errorf("%w: birth date", ErrMissingProfileField)
	}
	if event.RequirePhoneNumber && attendee.Phone == "" {
		return fmt.Errorf("%w: phone number", ErrMissingProfileField)
	}
	return nil
}
