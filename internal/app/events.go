package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ksicht/ksicht/internal/adapters/repository"
	"github.com/ksicht/ksicht/internal/domain/enrollment"
	"github.com/ksicht/ksicht/internal/domain/model"
	"github.com/ksicht/ksicht/pkg/logger"
	"github.com/ksicht/ksicht/pkg/metrics"
)

// CreateEvent stores a new event.
func (s *Service) CreateEvent(ctx context.Context, event *model.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Title == "" {
		return fmt.Errorf("%w: event title must not be empty", model.ErrInvalid)
	}
	if event.EndDate.Before(event.StartDate) {
		return fmt.Errorf("%w: event end date precedes start date", model.ErrInvalid)
	}
	return s.store.CreateEvent(ctx, event)
}

// UpdateEvent stores event changes.
func (s *Service) UpdateEvent(ctx context.Context, event *model.Event) error {
	if event.EndDate.Before(event.StartDate) {
		return fmt.Errorf("%w: event end date precedes start date", model.ErrInvalid)
	}
	return s.store.UpdateEvent(ctx, event)
}

// ListEvents returns the events the viewer may see, newest first. A
// nil viewer stands for an anonymous caller.
func (s *Service) ListEvents(ctx context.Context, viewer *model.User, page repository.Page) ([]model.Event, error) {
	events, err := s.store.ListEvents(ctx, page)
	if err != nil {
		return nil, err
	}
	visible := make([]model.Event, 0, len(events))
	for _, event := range events {
		if event.IsVisibleTo(viewer) {
			visible = append(visible, event)
		}
	}
	return visible, nil
}

// EventByID loads one event, honoring visibility.
func (s *Service) EventByID(ctx context.Context, id uuid.UUID, viewer *model.User) (model.Event, error) {
	event, err := s.store.EventByID(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if !event.IsVisibleTo(viewer) {
		return model.Event{}, fmt.Errorf("%w: event %s", repository.ErrNotFound, id)
	}
	return event, nil
}

// Enlist signs a user up for an event, snapshotting the birth date and
// phone from the participant profile.
func (s *Service) Enlist(ctx context.Context, userID, eventID uuid.UUID) (model.EventAttendee, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return model.EventAttendee{}, err
	}
	event, err := s.EventByID(ctx, eventID, &user)
	if err != nil {
		return model.EventAttendee{}, err
	}

	attendee := model.EventAttendee{
		EventID:    eventID,
		UserID:     userID,
		SignupDate: s.now(),
	}
	if participant, err := s.store.ParticipantByUserID(ctx, userID); err == nil {
		attendee.BirthDate = participant.BirthDate
		attendee.Phone = participant.Phone
	}

	if err := enrollment.ValidateEnlistment(&event, &attendee, s.now()); err != nil {
		return model.EventAttendee{}, err
	}
	if err := s.store.AddAttendee(ctx, &attendee); err != nil {
		return model.EventAttendee{}, err
	}

	metrics.RecordEventEnlistment()
	s.logger.Info(ctx, "event enlistment",
		logger.String("event_id", eventID.String()),
		logger.String("user_id", userID.String()),
	)
	return attendee, nil
}

// Roster splits an event's signups into seated attendees and
// substitutes.
func (s *Service) Roster(ctx context.Context, eventID uuid.UUID, viewer *model.User) (enrollment.Roster, error) {
	event, err := s.EventByID(ctx, eventID, viewer)
	if err != nil {
		return enrollment.Roster{}, err
	}
	return enrollment.SplitRoster(&event), nil
}
