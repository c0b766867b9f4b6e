package enrollment_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ksicht/ksicht/internal/domain/enrollment"
	"github.com/ksicht/ksicht/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestActiveApplications(t *testing.T) {
	Convey("Given applications around a series deadline window", t, func() {
		prev := time.Date(2025, time.November, 15, 23, 59, 0, 0, time.UTC)
		current := time.Date(2026, time.January, 15, 23, 59, 0, 0, time.UTC)

		veteran := model.Application{ID: uuid.New(), CreatedAt: prev.AddDate(0, -2, 0)}
		newcomer := model.Application{ID: uuid.New(), CreatedAt: prev.Add(24 * time.Hour)}
		dormant := model.Application{ID: uuid.New(), CreatedAt: prev.AddDate(0, -1, 0)}
		late := model.Application{ID: uuid.New(), CreatedAt: current.Add(time.Hour)}
		apps := []model.Application{veteran, newcomer, dormant, late}

		subs := []model.Submission{
			{ID: uuid.New(), ApplicationID: veteran.ID, TaskID: uuid.New()},
		}

		Convey("When filtering for the current series", func() {
			active := enrollment.ActiveApplications(apps, subs, &prev, current)

			Convey("Then submitters and fresh applicants are active", func() {
				ids := make(map[uuid.UUID]bool)
				for _, a := range active {
					ids[a.ID] = true
				}
				So(ids[veteran.ID], ShouldBeTrue)
				So(ids[newcomer.ID], ShouldBeTrue)
				So(ids[dormant.ID], ShouldBeFalse)
				So(ids[late.ID], ShouldBeFalse)
			})
		})

		Convey("When the grade is in its first series", func() {
			active := enrollment.ActiveApplications(apps, subs, nil, current)

			Convey("Then only submitters are active", func() {
				So(active, ShouldHaveLength, 1)
				So(active[0].ID, ShouldEqual, veteran.ID)
			})
		})

		Convey("When the grade is in its first series with no submissions", func() {
			active := enrollment.ActiveApplications(apps, nil, nil, current)

			Convey("Then nobody counts as active yet", func() {
				So(active, ShouldBeEmpty)
			})
		})
	})
}

func TestSplitRoster(t *testing.T) {
	Convey("Given an event with limited capacity", t, func() {
		base := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
		signup := func(offset time.Duration) model.EventAttendee {
			return model.EventAttendee{UserID: uuid.New(), SignupDate: base.Add(offset)}
		}
		first := signup(0)
		second := signup(time.Minute)
		third := signup(2 * time.Minute)

		event := &model.Event{
			Capacity: 2,
			// Stored out of order on purpose.
			Attendees: []model.EventAttendee{third, first, second},
		}

		Convey("Then seats go to the earliest signups", func() {
			roster := enrollment.SplitRoster(event)
			So(roster.Attendees, ShouldHaveLength, 2)
			So(roster.Attendees[0].UserID, ShouldEqual, first.UserID)
			So(roster.Attendees[1].UserID, ShouldEqual, second.UserID)
			So(roster.Substitutes, ShouldHaveLength, 1)
			So(roster.Substitutes[0].UserID, ShouldEqual, third.UserID)
		})

		Convey("Then zero capacity seats everyone", func() {
			event.Capacity = 0
			roster := enrollment.SplitRoster(event)
			So(roster.Attendees, ShouldHaveLength, 3)
			So(roster.Substitutes, ShouldBeEmpty)
		})
	})
}

func TestValidateEnlistment(t *testing.T) {
	Convey("Given an event requiring a birth date and phone", t, func() {
		now := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
		event := &model.Event{
			Title:              "Lab weekend",
			StartDate:          now.AddDate(0, 1, 0),
			EndDate:            now.AddDate(0, 1, 2),
			EnlistmentEnabled:  true,
			RequireBirthDate:   true,
			RequirePhoneNumber: true,
		}
		birth := time.Date(2008, time.March, 3, 0, 0, 0, 0, time.UTC)
		attendee := &model.EventAttendee{
			UserID:    uuid.New(),
			BirthDate: &birth,
			Phone:     "+420123456789",
		}

		Convey("Then a complete signup passes", func() {
			So(enrollment.ValidateEnlistment(event, attendee, now), ShouldBeNil)
		})

		Convey("Then a missing birth date is rejected", func() {
			attendee.BirthDate = nil
			err := enrollment.ValidateEnlistment(event, attendee, now)
			So(errors.Is(err, enrollment.ErrMissingProfileField), ShouldBeTrue)
		})

		Convey("Then a missing phone is rejected", func() {
			attendee.Phone = ""
			err := enrollment.ValidateEnlistment(event, attendee, now)
			So(errors.Is(err, enrollment.ErrMissingProfileField), ShouldBeTrue)
		})

		Convey("Then a duplicate signup is rejected", func() {
			event.Attendees = []model.EventAttendee{{UserID: attendee.UserID}}
			err := enrollment.ValidateEnlistment(event, attendee, now)
			So(errors.Is(err, enrollment.ErrAlreadyEnlisted), ShouldBeTrue)
		})

		Convey("Then a closed event is rejected", func() {
			event.EnlistmentEnabled = false
			err := enrollment.ValidateEnlistment(event, attendee, now)
			So(errors.Is(err, enrollment.ErrEnlistmentClosed), ShouldBeTrue)
		})
	})
}
