// Package repository defines the seminar store interface and its
// Postgres and in-memory implementations.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ksicht/ksicht/internal/domain/model"
)

// Page bounds a listing query.
type Page struct {
	Offset int
	Limit  int
}

// Stats summarizes stored volume for the operational endpoints.
type Stats struct {
	Participants int64 `json:"participants"`
	Applications int64 `json:"applications"`
	Submissions  int64 `json:"submissions"`
	Grades       int64 `json:"grades"`
}

// Store provides persistence for every seminar aggregate. Methods
// return ErrNotFound for missing rows and ErrConflict when a unique
// constraint would be violated.
type Store interface {
	// Accounts.
	CreateUser(ctx context.Context, user *model.User) error
	UserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	UserByEmail(ctx context.Context, email string) (model.User, error)
	SaveParticipant(ctx context.Context, participant *model.Participant) error
	ParticipantByUserID(ctx context.Context, userID uuid.UUID) (model.Participant, error)

	// Grades and their series. Reads return series with tasks and
	// attachments attached.
	CreateGrade(ctx context.Context, grade *model.Grade) error
	UpdateGrade(ctx context.Context, grade *model.Grade) error
	GradeByID(ctx context.Context, id uuid.UUID) (model.Grade, error)
	GradeBySchoolYear(ctx context.Context, schoolYear string) (model.Grade, error)
	ListGrades(ctx context.Context, page Page) ([]model.Grade, error)

	CreateSeries(ctx context.Context, series *model.Series) error
	UpdateSeries(ctx context.Context, series *model.Series) error
	SeriesByID(ctx context.Context, id uuid.UUID) (model.Series, error)
	CreateTask(ctx context.Context, task *model.Task) error
	TaskByID(ctx context.Context, id uuid.UUID) (model.Task, error)
	CreateAttachment(ctx context.Context, attachment *model.Attachment) error

	// Applications.
	CreateApplication(ctx context.Context, application *model.Application) error
	ApplicationByID(ctx context.Context, id uuid.UUID) (model.Application, error)
	ApplicationByGradeAndParticipant(ctx context.Context, gradeID, participantID uuid.UUID) (model.Application, error)
	ApplicationsByGrade(ctx context.Context, gradeID uuid.UUID) ([]model.Application, error)

	// Submissions.
	CreateSubmission(ctx context.Context, submission *model.Submission) error
	UpdateSubmission(ctx context.Context, submission *model.Submission) error
	DeleteSubmission(ctx context.Context, id uuid.UUID) error
	SubmissionByID(ctx context.Context, id uuid.UUID) (model.Submission, error)
	SubmissionsByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.Submission, error)
	SubmissionsByGrade(ctx context.Context, gradeID uuid.UUID) ([]model.Submission, error)

	// Stickers.
	CreateSticker(ctx context.Context, sticker *model.Sticker) error
	ListStickers(ctx context.Context) ([]model.Sticker, error)
	AwardSticker(ctx context.Context, submissionID, stickerID uuid.UUID) error

	// Events.
	CreateEvent(ctx context.Context, event *model.Event) error
	UpdateEvent(ctx context.Context, event *model.Event) error
	EventByID(ctx context.Context, id uuid.UUID) (model.Event, error)
	ListEvents(ctx context.Context, page Page) ([]model.Event, error)
	AddAttendee(ctx context.Context, attendee *model.EventAttendee) error

	Counts(ctx context.Context) (Stats, error)
}
