package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/ksicht/ksicht/internal/adapters/repository"
	"github.com/ksicht/ksicht/internal/adapters/storage"
	"github.com/ksicht/ksicht/internal/domain/model"
	"github.com/ksicht/ksicht/internal/domain/results"
	"github.com/ksicht/ksicht/internal/domain/schedule"
	"github.com/ksicht/ksicht/pkg/logger"
	"github.com/ksicht/ksicht/pkg/metrics"
)

// CreateGrade validates and stores a new yearly grade. Dates must not
// overlap any existing grade.
func (s *Service) CreateGrade(ctx context.Context, grade *model.Grade) error {
	if grade.ID == uuid.Nil {
		grade.ID = uuid.New()
	}
	if grade.SchoolYear == "" {
		grade.SchoolYear = model.DefaultSchoolYear(grade.StartDate)
	}
	if err := grade.Validate(); err != nil {
		return err
	}
	existing, err := s.store.ListGrades(ctx, repository.Page{})
	if err != nil {
		return err
	}
	if err := schedule.ValidateNoOverlap(grade, existing); err != nil {
		return err
	}
	if err := s.store.CreateGrade(ctx, grade); err != nil {
		return err
	}
	s.logger.Info(ctx, "grade created", logger.String("school_year", grade.SchoolYear))
	return nil
}

// UpdateGrade revalidates and stores grade changes.
func (s *Service) UpdateGrade(ctx context.Context, grade *model.Grade) error {
	if err := grade.Validate(); err != nil {
		return err
	}
	existing, err := s.store.ListGrades(ctx, repository.Page{})
	if err != nil {
		return err
	}
	if err := schedule.ValidateNoOverlap(grade, existing); err != nil {
		return err
	}
	return s.store.UpdateGrade(ctx, grade)
}

// ListGrades returns grades newest first.
func (s *Service) ListGrades(ctx context.Context, page repository.Page) ([]model.Grade, error) {
	return s.store.ListGrades(ctx, page)
}

// ArchivedGrades returns finished grades newest first.
func (s *Service) ArchivedGrades(ctx context.Context, page repository.Page) ([]model.Grade, error) {
	grades, err := s.store.ListGrades(ctx, repository.Page{})
	if err != nil {
		return nil, err
	}
	archived := schedule.Archive(grades, s.now())
	if page.Limit <= 0 {
		return archived, nil
	}
	if page.Offset >= len(archived) {
		return nil, nil
	}
	end := page.Offset + page.Limit
	if end > len(archived) {
		end = len(archived)
	}
	return archived[page.Offset:end], nil
}

// GradeByID loads one grade with its series and tasks.
func (s *Service) GradeByID(ctx context.Context, id uuid.UUID) (model.Grade, error) {
	return s.store.GradeByID(ctx, id)
}

// GradeDetail bundles a grade with schedule markers so clients can tell
// which series is running, which one just closed and what comes next.
type GradeDetail struct {
	model.Grade
	CurrentSeriesID  *uuid.UUID  `json:"current_series_id,omitempty"`
	PreviousSeriesID *uuid.UUID  `json:"previous_series_id,omitempty"`
	FutureSeriesIDs  []uuid.UUID `json:"future_series_ids,omitempty"`
}

func (s *Service) describeGrade(grade model.Grade) GradeDetail {
	detail := GradeDetail{Grade: grade}
	now := s.now()
	if current := schedule.CurrentSeries(grade.Series, now); current != nil {
		detail.CurrentSeriesID = &current.ID
	}
	if previous := schedule.PreviousSeries(grade.Series, now); previous != nil {
		detail.PreviousSeriesID = &previous.ID
	}
	for _, future := range schedule.FutureSeries(grade.Series, now) {
		detail.FutureSeriesIDs = append(detail.FutureSeriesIDs, future.ID)
	}
	return detail
}

// GradeDetailByID loads one grade with its schedule markers.
func (s *Service) GradeDetailByID(ctx context.Context, id uuid.UUID) (GradeDetail, error) {
	grade, err := s.store.GradeByID(ctx, id)
	if err != nil {
		return GradeDetail{}, err
	}
	return s.describeGrade(grade), nil
}

// GradeBySchoolYear loads one grade by its school year label, with the
// same schedule markers as the detail lookup.
func (s *Service) GradeBySchoolYear(ctx context.Context, schoolYear string) (GradeDetail, error) {
	grade, err := s.store.GradeBySchoolYear(ctx, schoolYear)
	if err != nil {
		return GradeDetail{}, err
	}
	return s.describeGrade(grade), nil
}

// CurrentGrade returns the grade running now.
func (s *Service) CurrentGrade(ctx context.Context) (model.Grade, error) {
	grades, err := s.store.ListGrades(ctx, repository.Page{})
	if err != nil {
		return model.Grade{}, err
	}
	current := schedule.CurrentGrade(grades, s.now())
	if current == nil {
		return model.Grade{}, ErrNoCurrentGrade
	}
	return *current, nil
}

// CurrentSeries returns the series participants should be working on
// within a grade.
func (s *Service) CurrentSeries(ctx context.Context, gradeID uuid.UUID) (model.Series, error) {
	grade, err := s.store.GradeByID(ctx, gradeID)
	if err != nil {
		return model.Series{}, err
	}
	current := schedule.CurrentSeries(grade.Series, s.now())
	if current == nil {
		return model.Series{}, fmt.Errorf("%w: grade %s has no series", repository.ErrNotFound, gradeID)
	}
	return *current, nil
}

// CreateSeries validates and stores a new series within its grade.
func (s *Service) CreateSeries(ctx context.Context, series *model.Series) error {
	if series.ID == uuid.Nil {
		series.ID = uuid.New()
	}
	if err := series.Validate(); err != nil {
		return err
	}
	grade, err := s.store.GradeByID(ctx, series.GradeID)
	if err != nil {
		return err
	}
	if len(grade.Series) >= model.MaxSeriesPerGrade {
		return fmt.Errorf("%w: grade %s already has %d series",
			model.ErrInvalid, grade.SchoolYear, model.MaxSeriesPerGrade)
	}
	return s.store.CreateSeries(ctx, series)
}

// SeriesByID loads one series with tasks and attachments.
func (s *Service) SeriesByID(ctx context.Context, id uuid.UUID) (model.Series, error) {
	return s.store.SeriesByID(ctx, id)
}

// CreateTask validates and stores a task within its series.
func (s *Service) CreateTask(ctx context.Context, task *model.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if err := task.Validate(); err != nil {
		return err
	}
	series, err := s.store.SeriesByID(ctx, task.SeriesID)
	if err != nil {
		return err
	}
	if len(series.Tasks) >= model.MaxTasksPerSeries {
		return fmt.Errorf("%w: series %d already has %d tasks",
			model.ErrInvalid, series.Number, model.MaxTasksPerSeries)
	}
	return s.store.CreateTask(ctx, task)
}

// UploadBooklet stores the task booklet PDF and opens the series for
// submissions once the deadline allows.
func (s *Service) UploadBooklet(ctx context.Context, seriesID uuid.UUID, content io.Reader, size int64) error {
	series, err := s.store.SeriesByID(ctx, seriesID)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("series/%s/booklet.pdf", seriesID)
	if err := s.objects.Put(ctx, key, content, size, "application/pdf"); err != nil {
		return err
	}
	series.TaskFileKey = key
	if err := s.store.UpdateSeries(ctx, &series); err != nil {
		return err
	}
	s.logger.Info(ctx, "booklet uploaded", logger.String("series_id", seriesID.String()))
	return nil
}

// AddAttachment stores a supplementary file on a series.
func (s *Service) AddAttachment(ctx context.Context, seriesID uuid.UUID, title, contentType string, content io.Reader, size int64) (model.Attachment, error) {
	if _, err := s.store.SeriesByID(ctx, seriesID); err != nil {
		return model.Attachment{}, err
	}
	attachment := model.Attachment{
		ID:       uuid.New(),
		SeriesID: seriesID,
		Title:    title,
		FileKey:  fmt.Sprintf("series/%s/attachments/%s", seriesID, uuid.New()),
	}
	if err := s.objects.Put(ctx, attachment.FileKey, content, size, contentType); err != nil {
		return model.Attachment{}, err
	}
	if err := s.store.CreateAttachment(ctx, &attachment); err != nil {
		return model.Attachment{}, err
	}
	return attachment, nil
}

// PublishResults toggles the published flag of a series.
func (s *Service) PublishResults(ctx context.Context, seriesID uuid.UUID, published bool) error {
	series, err := s.store.SeriesByID(ctx, seriesID)
	if err != nil {
		return err
	}
	series.ResultsPublished = published
	if err := s.store.UpdateSeries(ctx, &series); err != nil {
		return err
	}
	metrics.RecordResultsPublishToggle()
	s.logger.Info(ctx, "results publication toggled",
		logger.String("series_id", seriesID.String()),
		logger.Any("published", published),
	)
	return nil
}

// Results computes the cumulative listing through a series. The
// listing is gated on the published flag unless the requester is an
// organizer.
func (s *Service) Results(ctx context.Context, gradeID uuid.UUID, seriesNumber int, requester *model.User) (results.Listing, error) {
	grade, err := s.store.GradeByID(ctx, gradeID)
	if err != nil {
		return results.Listing{}, err
	}

	published := false
	for _, series := range grade.Series {
		if series.Number == seriesNumber {
			published = series.ResultsPublished
		}
	}
	if !published && (requester == nil || !requester.IsOrganizer) {
		return results.Listing{}, ErrResultsNotPublic
	}

	applications, err := s.store.ApplicationsByGrade(ctx, gradeID)
	if err != nil {
		return results.Listing{}, err
	}
	submissions, err := s.store.SubmissionsByGrade(ctx, gradeID)
	if err != nil {
		return results.Listing{}, err
	}
	return results.Rankings(grade.Series, seriesNumber, applications, submissions), nil
}

// Download streams a stored object, used for booklets, attachments and
// prepared exports.
func (s *Service) Download(ctx context.Context, key string) (storage.Object, error) {
	return s.objects.Get(ctx, key)
}
