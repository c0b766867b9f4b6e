package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/ksicht/ksicht/internal/domain/model"
)

// MemoryStore implements Store with in-process maps. It backs tests
// and local runs without a database.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[uuid.UUID]model.User
	participants map[uuid.UUID]model.Participant
	grades       map[uuid.UUID]model.Grade
	series       map[uuid.UUID]model.Series
	tasks        map[uuid.UUID]model.Task
	attachments  map[uuid.UUID]model.Attachment
	applications map[uuid.UUID]model.Application
	submissions  map[uuid.UUID]model.Submission
	stickers     map[uuid.UUID]model.Sticker
	awards       map[uuid.UUID][]uuid.UUID
	events       map[uuid.UUID]model.Event
	attendees    map[uuid.UUID][]model.EventAttendee
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[uuid.UUID]model.User),
		participants: make(map[uuid.UUID]model.Participant),
		grades:       make(map[uuid.UUID]model.Grade),
		series:       make(map[uuid.UUID]model.Series),
		tasks:        make(map[uuid.UUID]model.Task),
		attachments:  make(map[uuid.UUID]model.Attachment),
		applications: make(map[uuid.UUID]model.Application),
		submissions:  make(map[uuid.UUID]model.Submission),
		stickers:     make(map[uuid.UUID]model.Sticker),
		awards:       make(map[uuid.UUID][]uuid.UUID),
		events:       make(map[uuid.UUID]model.Event),
		attendees:    make(map[uuid.UUID][]model.EventAttendee),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return fmt.Errorf("%w: user %s", ErrConflict, user.Email)
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) UserByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return user, nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return model.User{}, fmt.Errorf("%w: user %s", ErrNotFound, email)
}

func (s *MemoryStore) SaveParticipant(_ context.Context, participant *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[participant.UserID]; !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, participant.UserID)
	}
	s.participants[participant.UserID] = *participant
	return nil
}

func (s *MemoryStore) ParticipantByUserID(_ context.Context, userID uuid.UUID) (model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[userID]
	if !ok {
		return model.Participant{}, fmt.Errorf("%w: participant %s", ErrNotFound, userID)
	}
	p.User = s.users[userID]
	return p, nil
}

func (s *MemoryStore) CreateGrade(_ context.Context, grade *model.Grade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.grades {
		if existing.SchoolYear == grade.SchoolYear {
			return fmt.Errorf("%w: grade %s", ErrConflict, grade.SchoolYear)
		}
	}
	s.grades[grade.ID] = *grade
	return nil
}

func (s *MemoryStore) UpdateGrade(_ context.Context, grade *model.Grade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grades[grade.ID]; !ok {
		return fmt.Errorf("%w: grade %s", ErrNotFound, grade.ID)
	}
	s.grades[grade.ID] = *grade
	return nil
}

// assembleGrade attaches series, tasks and attachments. Caller holds a
// read lock.
func (s *MemoryStore) assembleGrade(grade model.Grade) model.Grade {
	grade.Series = nil
	for _, sr := range s.series {
		if sr.GradeID == grade.ID {
			grade.Series = append(grade.Series, s.assembleSeries(sr))
		}
	}
	sort.Slice(grade.Series, func(i, j int) bool {
		return grade.Series[i].Number < grade.Series[j].Number
	})
	return grade
}

func (s *MemoryStore) assembleSeries(series model.Series) model.Series {
	series.Tasks = nil
	series.Attachments = nil
	for _, t := range s.tasks {
		if t.SeriesID == series.ID {
			series.Tasks = append(series.Tasks, t)
		}
	}
	sort.Slice(series.Tasks, func(i, j int) bool {
		return series.Tasks[i].Number < series.Tasks[j].Number
	})
	for _, a := range s.attachments {
		if a.SeriesID == series.ID {
			series.Attachments = append(series.Attachments, a)
		}
	}
	return series
}

func (s *MemoryStore) GradeByID(_ context.Context, id uuid.UUID) (model.Grade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grade, ok := s.grades[id]
	if !ok {
		return model.Grade{}, fmt.Errorf("%w: grade %s", ErrNotFound, id)
	}
	return s.assembleGrade(grade), nil
}

func (s *MemoryStore) GradeBySchoolYear(_ context.Context, schoolYear string) (model.Grade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, grade := range s.grades {
		if grade.SchoolYear == schoolYear {
			return s.assembleGrade(grade), nil
		}
	}
	return model.Grade{}, fmt.Errorf("%w: grade %s", ErrNotFound, schoolYear)
}

func (s *MemoryStore) ListGrades(_ context.Context, page Page) ([]model.Grade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grades := make([]model.Grade, 0, len(s.grades))
	for _, grade := range s.grades {
		grades = append(grades, s.assembleGrade(grade))
	}
	sort.Slice(grades, func(i, j int) bool {
		return grades[i].StartDate.After(grades[j].StartDate)
	})
	return paginate(grades, page), nil
}

func paginate[T any](items []T, page Page) []T {
	if page.Limit <= 0 {
		return items
	}
	if page.Offset >= len(items) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}

func (s *MemoryStore) CreateSeries(_ context.Context, series *model.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grades[series.GradeID]; !ok {
		return fmt.Errorf("%w: grade %s", ErrNotFound, series.GradeID)
	}
	for _, existing := range s.series {
		if existing.GradeID == series.GradeID && existing.Number == series.Number {
			return fmt.Errorf("%w: series %d", ErrConflict, series.Number)
		}
	}
	s.series[series.ID] = *series
	return nil
}

func (s *MemoryStore) UpdateSeries(_ context.Context, series *model.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[series.ID]; !ok {
		return fmt.Errorf("%w: series %s", ErrNotFound, series.ID)
	}
	s.series[series.ID] = *series
	return nil
}

func (s *MemoryStore) SeriesByID(_ context.Context, id uuid.UUID) (model.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.series[id]
	if !ok {
		return model.Series{}, fmt.Errorf("%w: series %s", ErrNotFound, id)
	}
	return s.assembleSeries(series), nil
}

func (s *MemoryStore) CreateTask(_ context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[task.SeriesID]; !ok {
		return fmt.Errorf("%w: series %s", ErrNotFound, task.SeriesID)
	}
	for _, existing := range s.tasks {
		if existing.SeriesID == task.SeriesID && existing.Number == task.Number {
			return fmt.Errorf("%w: task %d", ErrConflict, task.Number)
		}
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *MemoryStore) TaskByID(_ context.Context, id uuid.UUID) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return model.Task{}, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	return task, nil
}

func (s *MemoryStore) CreateAttachment(_ context.Context, attachment *model.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[attachment.SeriesID]; !ok {
		return fmt.Errorf("%w: series %s", ErrNotFound, attachment.SeriesID)
	}
	s.attachments[attachment.ID] = *attachment
	return nil
}

func (s *MemoryStore) CreateApplication(_ context.Context, application *model.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.applications {
		if existing.GradeID == application.GradeID && existing.ParticipantID == application.ParticipantID {
			return fmt.Errorf("%w: application for grade %s", ErrConflict, application.GradeID)
		}
	}
	s.applications[application.ID] = *application
	return nil
}

// assembleApplication attaches the participant profile. Caller holds a
// read lock.
func (s *MemoryStore) assembleApplication(app model.Application) model.Application {
	p := s.participants[app.ParticipantID]
	p.User = s.users[app.ParticipantID]
	app.Participant = p
	return app
}

func (s *MemoryStore) ApplicationByID(_ context.Context, id uuid.UUID) (model.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.applications[id]
	if !ok {
		return model.Application{}, fmt.Errorf("%w: application %s", ErrNotFound, id)
	}
	return s.assembleApplication(app), nil
}

func (s *MemoryStore) ApplicationByGradeAndParticipant(_ context.Context, gradeID, participantID uuid.UUID) (model.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.applications {
		if app.GradeID == gradeID && app.ParticipantID == participantID {
			return s.assembleApplication(app), nil
		}
	}
	return model.Application{}, fmt.Errorf("%w: application for grade %s", ErrNotFound, gradeID)
}

func (s *MemoryStore) ApplicationsByGrade(_ context.Context, gradeID uuid.UUID) ([]model.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var apps []model.Application
	for _, app := range s.applications {
		if app.GradeID == gradeID {
			apps = append(apps, s.assembleApplication(app))
		}
	}
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].CreatedAt.Before(apps[j].CreatedAt)
	})
	return apps, nil
}

func (s *MemoryStore) CreateSubmission(_ context.Context, submission *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[submission.ApplicationID]; !ok {
		return fmt.Errorf("%w: application %s", ErrNotFound, submission.ApplicationID)
	}
	for _, existing := range s.submissions {
		if existing.ApplicationID == submission.ApplicationID && existing.TaskID == submission.TaskID {
			return fmt.Errorf("%w: submission for task %s", ErrConflict, submission.TaskID)
		}
	}
	s.submissions[submission.ID] = *submission
	return nil
}

func (s *MemoryStore) UpdateSubmission(_ context.Context, submission *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[submission.ID]; !ok {
		return fmt.Errorf("%w: submission %s", ErrNotFound, submission.ID)
	}
	s.submissions[submission.ID] = *submission
	return nil
}

func (s *MemoryStore) DeleteSubmission(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[id]; !ok {
		return fmt.Errorf("%w: submission %s", ErrNotFound, id)
	}
	delete(s.submissions, id)
	delete(s.awards, id)
	return nil
}

// assembleSubmission attaches awarded stickers. Caller holds a read
// lock.
func (s *MemoryStore) assembleSubmission(sub model.Submission) model.Submission {
	sub.Stickers = nil
	for _, stickerID := range s.awards[sub.ID] {
		if sticker, ok := s.stickers[stickerID]; ok {
			sub.Stickers = append(sub.Stickers, sticker)
		}
	}
	return sub
}

func (s *MemoryStore) SubmissionByID(_ context.Context, id uuid.UUID) (model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return model.Submission{}, fmt.Errorf("%w: submission %s", ErrNotFound, id)
	}
	return s.assembleSubmission(sub), nil
}

func (s *MemoryStore) SubmissionsByApplication(_ context.Context, applicationID uuid.UUID) ([]model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subs []model.Submission
	for _, sub := range s.submissions {
		if sub.ApplicationID == applicationID {
			subs = append(subs, s.assembleSubmission(sub))
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
	})
	return subs, nil
}

func (s *MemoryStore) SubmissionsByGrade(_ context.Context, gradeID uuid.UUID) ([]model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subs []model.Submission
	for _, sub := range s.submissions {
		app, ok := s.applications[sub.ApplicationID]
		if ok && app.GradeID == gradeID {
			subs = append(subs, s.assembleSubmission(sub))
		}
	}
	return subs, nil
}

func (s *MemoryStore) CreateSticker(_ context.Context, sticker *model.Sticker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.stickers {
		if existing.Number == sticker.Number {
			return fmt.Errorf("%w: sticker %d", ErrConflict, sticker.Number)
		}
	}
	s.stickers[sticker.ID] = *sticker
	return nil
}

func (s *MemoryStore) ListStickers(_ context.Context) ([]model.Sticker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stickers := make([]model.Sticker, 0, len(s.stickers))
	for _, sticker := range s.stickers {
		stickers = append(stickers, sticker)
	}
	sort.Slice(stickers, func(i, j int) bool {
		return stickers[i].Number < stickers[j].Number
	})
	return stickers, nil
}

func (s *MemoryStore) AwardSticker(_ context.Context, submissionID, stickerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[submissionID]; !ok {
		return fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}
	if _, ok := s.stickers[stickerID]; !ok {
		return fmt.Errorf("%w: sticker %s", ErrNotFound, stickerID)
	}
	for _, awarded := range s.awards[submissionID] {
		if awarded == stickerID {
			return nil
		}
	}
	s.awards[submissionID] = append(s.awards[submissionID], stickerID)
	return nil
}

func (s *MemoryStore) CreateEvent(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = *event
	return nil
}

func (s *MemoryStore) UpdateEvent(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; !ok {
		return fmt.Errorf("%w: event %s", ErrNotFound, event.ID)
	}
	s.events[event.ID] = *event
	return nil
}

// assembleEvent attaches attendees with their users. Caller holds a
// read lock.
func (s *MemoryStore) assembleEvent(event model.Event) model.Event {
	event.Attendees = nil
	for _, attendee := range s.attendees[event.ID] {
		attendee.User = s.users[attendee.UserID]
		event.Attendees = append(event.Attendees, attendee)
	}
	return event
}

func (s *MemoryStore) EventByID(_ context.Context, id uuid.UUID) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("%w: event %s", ErrNotFound, id)
	}
	return s.assembleEvent(event), nil
}

func (s *MemoryStore) ListEvents(_ context.Context, page Page) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]model.Event, 0, len(s.events))
	for _, event := range s.events {
		events = append(events, s.assembleEvent(event))
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartDate.After(events[j].StartDate)
	})
	return paginate(events, page), nil
}

func (s *MemoryStore) AddAttendee(_ context.Context, attendee *model.EventAttendee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[attendee.EventID]; !ok {
		return fmt.Errorf("%w: event %s", ErrNotFound, attendee.EventID)
	}
	for _, existing := range s.attendees[attendee.EventID] {
		if existing.UserID == attendee.UserID {
			return fmt.Errorf("%w: attendee %s", ErrConflict, attendee.UserID)
		}
	}
	s.attendees[attendee.EventID] = append(s.attendees[attendee.EventID], *attendee)
	return nil
}

func (s *MemoryStore) Counts(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Participants: int64(len(s.participants)),
		Applications: int64(len(s.applications)),
		Submissions:  int64(len(s.submissions)),
		Grades:       int64(len(s.grades)),
	}, nil
}
