package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ksicht/ksicht/internal/domain/model"
	"github.com/ksicht/ksicht/pkg/metrics"
)

// PostgresStore implements Store on a Postgres database.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore opens the database and migrates the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %w", ErrQuery, err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Participant{},
		&model.Grade{},
		&model.Series{},
		&model.Task{},
		&model.Attachment{},
		&model.Application{},
		&model.Submission{},
		&model.Sticker{},
		&model.Event{},
		&model.EventAttendee{},
	); err != nil {
		return nil, fmt.Errorf("%w: migrate schema: %w", ErrQuery, err)
	}
	return &PostgresStore{db: db}, nil
}

// observe records query latency and maps gorm errors onto the store's
// sentinel kinds.
func observe(start time.Time, err error) error {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		metrics.RecordRepositoryError()
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		metrics.RecordRepositoryError()
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		metrics.RecordRepositoryError()
		return fmt.Errorf("%w: %w", ErrQuery, err)
	}
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *model.User) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Create(user).Error)
}

func (s *PostgresStore) UserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	start := time.Now()
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	return user, observe(start, err)
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (model.User, error) {
	start := time.Now()
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	return user, observe(start, err)
}

func (s *PostgresStore) SaveParticipant(ctx context.Context, participant *model.Participant) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Save(participant).Error)
}

func (s *PostgresStore) ParticipantByUserID(ctx context.Context, userID uuid.UUID) (model.Participant, error) {
	start := time.Now()
	var p model.Participant
	err := s.db.WithContext(ctx).Preload("User").First(&p, "user_id = ?", userID).Error
	return p, observe(start, err)
}

func (s *PostgresStore) CreateGrade(ctx context.Context, grade *model.Grade) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Create(grade).Error)
}

func (s *PostgresStore) UpdateGrade(ctx context.Context, grade *model.Grade) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Save(grade).Error)
}

func (s *PostgresStore) gradeQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Series", func(db *gorm.DB) *gorm.DB { return db.Order("number") }).
		Preload("Series.Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("number") }).
		Preload("Series.Attachments")
}

func (s *PostgresStore) GradeByID(ctx context.Context, id uuid.UUID) (model.Grade, error) {
	start := time.Now()
	var grade model.Grade
	err := s.gradeQuery(ctx).First(&grade, "id = ?", id).Error
	return grade, observe(start, err)
}

func (s *PostgresStore) GradeBySchoolYear(ctx context.Context, schoolYear string) (model.Grade, error) {
	start := time.Now()
	var grade model.Grade
	err := s.gradeQuery(ctx).First(&grade, "school_year = ?", schoolYear).Error
	return grade, observe(start, err)
}

func (s *PostgresStore) ListGrades(ctx context.Context, page Page) ([]model.Grade, error) {
	start := time.Now()
	var grades []model.Grade
	q := s.gradeQuery(ctx).Order("start_date DESC")
	if page.Limit > 0 {
		q = q.Offset(page.Offset).Limit(page.Limit)
	}
	err := q.Find(&grades).Error
	return grades, observe(start, err)
}

func (s *PostgresStore) CreateSeries(ctx context.Context, series *model.Series) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Create(series).Error)
}

func (s *PostgresStore) UpdateSeries(ctx context.Context, series *model.Series) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Omit("Tasks", "Attachments").Save(series).Error)
}

func (s *PostgresStore) SeriesByID(ctx context.Context, id uuid.UUID) (model.Series, error) {
	start := time.Now()
	var series model.Series
	err := s.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("number") }).
		Preload("Attachments").
		First(&series, "id = ?", id).Error
	return series, observe(start, err)
}

func (s *PostgresStore) CreateTask(ctx context.Context, task *model.Task) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Create(task).Error)
}

func (s *PostgresStore) TaskByID(ctx context.Context, id uuid.UUID) (model.Task, error) {
	start := time.Now()
	var task model.Task
	err := s.db.WithContext(ctx).First(&task, "id = ?", id).Error
	return task, observe(start, err)
}

func (s *PostgresStore) CreateAttachment(ctx context.Context, attachment *model.Attachment) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Create(attachment).Error)
}

func (s *PostgresStore) CreateApplication(ctx context.Context, application *model.Application) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Create(application).Error)
}

func (s *PostgresStore) ApplicationByID(ctx context.Context, id uuid.UUID) (model.Application, error) {
	start := time.Now()
	var app model.Application
	err := s.db.WithContext(ctx).Preload("Participant.User").First(&app, "id = ?", id).Error
	return app, observe(start, err)
}

func (s *PostgresStore) ApplicationByGradeAndParticipant(ctx context.Context, gradeID, participantID uuid.UUID) (model.Application, error) {
	start := time.Now()
	var app model.Application
	err := s.db.WithContext(ctx).Preload("Participant.User").
		First(&app, "grade_id = ? AND participant_id = ?", gradeID, participantID).Error
	return app, observe(start, err)
}

func (s *PostgresStore) ApplicationsByGrade(ctx context.Context, gradeID uuid.UUID) ([]model.Application, error) {
	start := time.Now()
	var apps []model.Application
	err := s.db.WithContext(ctx).Preload("Participant.User").
		Where("grade_id = ?", gradeID).Order("created_at").Find(&apps).Error
	return apps, observe(start, err)
}

func (s *PostgresStore) CreateSubmission(ctx context.Context, submission *model.Submission) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Create(submission).Error)
}

func (s *PostgresStore) UpdateSubmission(ctx context.Context, submission *model.Submission) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Omit("Stickers").Save(submission).Error)
}

func (s *PostgresStore) DeleteSubmission(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	res := s.db.WithContext(ctx).Delete(&model.Submission{}, "id = ?", id)
	if res.Error == nil && res.RowsAffected == 0 {
		return observe(start, gorm.ErrRecordNotFound)
	}
	return observe(start, res.Error)
}

func (s *PostgresStore) SubmissionByID(ctx context.Context, id uuid.UUID) (model.Submission, error) {
	start := time.Now()
	var sub model.Submission
	err := s.db.WithContext(ctx).Preload("Stickers").First(&sub, "id = ?", id).Error
	return sub, observe(start, err)
}

func (s *PostgresStore) SubmissionsByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.Submission, error) {
	start := time.Now()
	var subs []model.Submission
	err := s.db.WithContext(ctx).Preload("Stickers").
		Where("application_id = ?", applicationID).Order("submitted_at").Find(&subs).Error
	return subs, observe(start, err)
}

func (s *PostgresStore) SubmissionsByGrade(ctx context.Context, gradeID uuid.UUID) ([]model.Submission, error) {
	start := time.Now()
	var subs []model.Submission
	err := s.db.WithContext(ctx).Preload("Stickers").
		Joins("JOIN applications ON applications.id = submissions.application_id").
		Where("applications.grade_id = ?", gradeID).Find(&subs).Error
	return subs, observe(start, err)
}

func (s *PostgresStore) CreateSticker(ctx context.Context, sticker *model.Sticker) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Create(sticker).Error)
}

func (s *PostgresStore) ListStickers(ctx context.Context) ([]model.Sticker, error) {
	start := time.Now()
	var stickers []model.Sticker
	err := s.db.WithContext(ctx).Order("number").Find(&stickers).Error
	return stickers, observe(start, err)
}

func (s *PostgresStore) AwardSticker(ctx context.Context, submissionID, stickerID uuid.UUID) error {
	start := time.Now()
	sub := model.Submission{ID: submissionID}
	err := s.db.WithContext(ctx).Model(&sub).
		Association("Stickers").Append(&model.Sticker{ID: stickerID})
	return observe(start, err)
}

func (s *PostgresStore) CreateEvent(ctx context.Context, event *model.Event) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Create(event).Error)
}

func (s *PostgresStore) UpdateEvent(ctx context.Context, event *model.Event) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Omit("Attendees", "VisibleTo").Save(event).Error)
}

func (s *PostgresStore) EventByID(ctx context.Context, id uuid.UUID) (model.Event, error) {
	start := time.Now()
	var event model.Event
	err := s.db.WithContext(ctx).
		Preload("Attendees.User").Preload("VisibleTo").
		First(&event, "id = ?", id).Error
	return event, observe(start, err)
}

func (s *PostgresStore) ListEvents(ctx context.Context, page Page) ([]model.Event, error) {
	start := time.Now()
	var events []model.Event
	q := s.db.WithContext(ctx).
		Preload("Attendees.User").Preload("VisibleTo").
		Order("start_date DESC")
	if page.Limit > 0 {
		q = q.Offset(page.Offset).Limit(page.Limit)
	}
	err := q.Find(&events).Error
	return events, observe(start, err)
}

func (s *PostgresStore) AddAttendee(ctx context.Context, attendee *model.EventAttendee) error {
	start := time.Now()
	return observe(start, s.db.WithContext(ctx).Create(attendee).Error)
}

func (s *PostgresStore) Counts(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&model.Participant{}).Count(&stats.Participants).Error; err != nil {
		return stats, observe(start, err)
	}
	if err := db.Model(&model.Application{}).Count(&stats.Applications).Error; err != nil {
		return stats, observe(start, err)
	}
	if err := db.Model(&model.Submission{}).Count(&stats.Submissions).Error; err != nil {
		return stats, observe(start, err)
	}
	err := db.Model(&model.Grade{}).Count(&stats.Grades).Error
	return stats, observe(start, err)
}
