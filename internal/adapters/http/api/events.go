package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ksicht/ksicht/internal/domain/model"
)

type eventRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	Place              string `json:"place"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	Capacity           int    `json:"capacity"`
	EnlistmentMessage  string `json:"enlistment_message"`
	EnlistmentEnabled  bool   `json:"enlistment_enabled"`
	RequireBirthDate   bool   `json:"require_birth_date"`
	RequirePhoneNumber bool   `json:"require_phone_number"`
	IsPublic           bool   `json:"is_public"`
	PublishOccupancy   bool   `json:"publish_occupancy"`
}

func (e eventRequest) toModel() (model.Event, error) {
	start, err := time.Parse(time.DateOnly, e.StartDate)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: start_date must be YYYY-MM-DD", model.ErrInvalid)
	}
	end, err := time.Parse(time.DateOnly, e.EndDate)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", model.ErrInvalid)
	}
	return model.Event{
		Title:              e.Title,
		Description:        e.Description,
		Place:              e.Place,
		StartDate:          start,
		EndDate:            end,
		Capacity:           e.Capacity,
		EnlistmentMessage:  e.EnlistmentMessage,
		EnlistmentEnabled:  e.EnlistmentEnabled,
		RequireBirthDate:   e.RequireBirthDate,
		RequirePhoneNumber: e.RequirePhoneNumber,
		IsPublic:           e.IsPublic,
		PublishOccupancy:   e.PublishOccupancy,
	}, nil
}

// Attendee records carry birth dates, phone numbers and accounts, so
// event payloads only include them for organizers.
func canSeeAttendees(viewer *model.User) bool {
	return viewer != nil && viewer.IsOrganizer
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	viewer := s.viewer(r)
	events, err := s.svc.ListEvents(r.Context(), viewer, pageFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !canSeeAttendees(viewer) {
		for i := range events {
			events[i].Attendees = nil
		}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request, _ model.User) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err)
		return
	}
	event, err := req.toModel()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.svc.CreateEvent(r.Context(), &event); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	viewer := s.viewer(r)
	event, err := s.svc.EventByID(r.Context(), id, viewer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !canSeeAttendees(viewer) {
		event.Attendees = nil
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleEnlist(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	attendee, err := s.svc.Enlist(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attendee)
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	roster, err := s.svc.Roster(r.Context(), id, &user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}
