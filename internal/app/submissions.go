package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	exportqueue "github.com/ksicht/ksicht/internal/adapters/mq/queue"
	"github.com/ksicht/ksicht/internal/adapters/repository"
	"github.com/ksicht/ksicht/internal/domain/enrollment"
	"github.com/ksicht/ksicht/internal/domain/model"
	"github.com/ksicht/ksicht/internal/domain/schedule"
	"github.com/ksicht/ksicht/pkg/logger"
	"github.com/ksicht/ksicht/pkg/metrics"
	"github.com/ksicht/ksicht/pkg/pdfutil"
)

// Apply enrolls a participant in a grade. The profile must be filled
// in first.
func (s *Service) Apply(ctx context.Context, userID, gradeID uuid.UUID) (model.Application, error) {
	participant, err := s.store.ParticipantByUserID(ctx, userID)
	if err != nil {
		return model.Application{}, fmt.Errorf("%w: %w", ErrProfileIncomplete, err)
	}
	if err := participant.Validate(); err != nil {
		return model.Application{}, fmt.Errorf("%w: %w", ErrProfileIncomplete, err)
	}
	if _, err := s.store.GradeByID(ctx, gradeID); err != nil {
		return model.Application{}, err
	}

	application := model.Application{
		ID:            uuid.New(),
		GradeID:       gradeID,
		ParticipantID: userID,
		CurrentGrade:  participant.SchoolYear,
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateApplication(ctx, &application); err != nil {
		return model.Application{}, err
	}

	metrics.RecordApplicationCreated()
	s.logger.Info(ctx, "participant applied",
		logger.String("grade_id", gradeID.String()),
		logger.String("participant_id", userID.String()),
	)
	return application, nil
}

// SubmitSolution stores an uploaded PDF for a task and schedules the
// print export. Resubmitting replaces the previous file and regenerates
// the export variants.
func (s *Service) SubmitSolution(ctx context.Context, userID, taskID uuid.UUID, content io.Reader, size int64) (model.Submission, error) {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return model.Submission{}, err
	}
	series, err := s.store.SeriesByID(ctx, task.SeriesID)
	if err != nil {
		return model.Submission{}, err
	}
	if !series.AcceptsSubmissions(s.now()) {
		return model.Submission{}, ErrSeriesClosed
	}

	application, err := s.store.ApplicationByGradeAndParticipant(ctx, series.GradeID, userID)
	if err != nil {
		return model.Submission{}, fmt.Errorf("%w: %w", ErrNotApplied, err)
	}

	key := fmt.Sprintf("submissions/%s/%s.pdf", application.ID, taskID)
	if err := s.objects.Put(ctx, key, content, size, "application/pdf"); err != nil {
		return model.Submission{}, err
	}

	submission, err := s.upsertSubmission(ctx, application.ID, taskID, key)
	if err != nil {
		return model.Submission{}, err
	}

	metrics.RecordSubmissionUploaded()
	if err := s.scheduleExport(ctx, submission, application.Participant, task); err != nil {
		return model.Submission{}, err
	}
	return submission, nil
}

func (s *Service) upsertSubmission(ctx context.Context, applicationID, taskID uuid.UUID, key string) (model.Submission, error) {
	existing, err := s.store.SubmissionsByApplication(ctx, applicationID)
	if err != nil {
		return model.Submission{}, err
	}
	for _, sub := range existing {
		if sub.TaskID == taskID {
			sub.FileKey = key
			sub.SubmittedAt = s.now()
			sub.ExportNormalKey = ""
			sub.ExportDuplexKey = ""
			if err := s.store.UpdateSubmission(ctx, &sub); err != nil {
				return model.Submission{}, err
			}
			return sub, nil
		}
	}

	submission := model.Submission{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		TaskID:        taskID,
		FileKey:       key,
		SubmittedAt:   s.now(),
	}
	if err := s.store.CreateSubmission(ctx, &submission); err != nil {
		return model.Submission{}, err
	}
	return submission, nil
}

// scheduleExport enqueues the print preparation job. Each upload gets
// its own dedupe key so a resubmission is exported again while
// duplicate requests for the same upload are not.
func (s *Service) scheduleExport(ctx context.Context, submission model.Submission, participant model.Participant, task model.Task) error {
	jobID := fmt.Sprintf("%s:%d", submission.ID, submission.SubmittedAt.UnixNano())
	if s.deduper.SeenAndRecord(ctx, jobID) {
		metrics.RecordExportJobDuplicate()
		return nil
	}

	job := exportqueue.Job{
		SubmissionID: submission.ID,
		DedupeKey:    jobID,
		FileKey:      submission.FileKey,
		NormalKey:    fmt.Sprintf("exports/%s/normal.pdf", submission.ID),
		DuplexKey:    fmt.Sprintf("exports/%s/duplex.pdf", submission.ID),
		Label: pdfutil.ExportLabel(
			participant.User.FullName(),
			participant.SchoolName(),
			fmt.Sprintf("%d. %s", task.Number, task.Title),
		),
	}
	if !s.exportQueue.Enqueue(ctx, job) {
		s.deduper.Unrecord(ctx, jobID)
		s.logger.Warn(ctx, "export queue full",
			logger.String("submission_id", submission.ID.String()),
		)
		return ErrQueueFull
	}
	return nil
}

// DeleteSubmission removes a participant's own submission while the
// series still accepts solutions.
func (s *Service) DeleteSubmission(ctx context.Context, userID, submissionID uuid.UUID) error {
	submission, err := s.store.SubmissionByID(ctx, submissionID)
	if err != nil {
		return err
	}
	application, err := s.store.ApplicationByID(ctx, submission.ApplicationID)
	if err != nil {
		return err
	}
	if application.ParticipantID != userID {
		return ErrForbidden
	}
	task, err := s.store.TaskByID(ctx, submission.TaskID)
	if err != nil {
		return err
	}
	series, err := s.store.SeriesByID(ctx, task.SeriesID)
	if err != nil {
		return err
	}
	if !series.AcceptsSubmissions(s.now()) {
		return fmt.Errorf("%w: deadline passed", ErrForbidden)
	}

	for _, key := range []string{submission.FileKey, submission.ExportNormalKey, submission.ExportDuplexKey} {
		if key != "" {
			if err := s.objects.Delete(ctx, key); err != nil {
				s.logger.Warn(ctx, "orphaned object left behind",
					logger.String("key", key), logger.Error(err))
			}
		}
	}
	if err := s.store.DeleteSubmission(ctx, submissionID); err != nil {
		return err
	}
	metrics.RecordSubmissionDeleted()
	return nil
}

// MarkPostalSubmission records a solution that arrived on paper.
func (s *Service) MarkPostalSubmission(ctx context.Context, applicationID, taskID uuid.UUID) (model.Submission, error) {
	if _, err := s.store.TaskByID(ctx, taskID); err != nil {
		return model.Submission{}, err
	}
	submission := model.Submission{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		TaskID:        taskID,
		SubmittedAt:   s.now(),
	}
	if err := s.store.CreateSubmission(ctx, &submission); err != nil {
		return model.Submission{}, err
	}
	metrics.RecordSubmissionUploaded()
	return submission, nil
}

// UnmarkPostalSubmission removes a postal submission record. Uploaded
// submissions are not touched.
func (s *Service) UnmarkPostalSubmission(ctx context.Context, applicationID, taskID uuid.UUID) error {
	submissions, err := s.store.SubmissionsByApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	for _, submission := range submissions {
		if submission.TaskID != taskID {
			continue
		}
		if !submission.ByPost() {
			return fmt.Errorf("%w: submission has an uploaded file", model.ErrInvalid)
		}
		return s.store.DeleteSubmission(ctx, submission.ID)
	}
	return fmt.Errorf("%w: no postal submission for task %s", repository.ErrNotFound, taskID)
}

// ScoreSubmission records the points awarded for a submission. The
// score must stay within the task's point range.
func (s *Service) ScoreSubmission(ctx context.Context, submissionID uuid.UUID, score float64) error {
	submission, err := s.store.SubmissionByID(ctx, submissionID)
	if err != nil {
		return err
	}
	task, err := s.store.TaskByID(ctx, submission.TaskID)
	if err != nil {
		return err
	}
	if score < 0 || score > float64(task.Points) {
		return fmt.Errorf("%w: score %.2f outside 0..%d", model.ErrInvalid, score, task.Points)
	}

	rounded := model.RoundScore(score)
	submission.Score = &rounded
	if err := s.store.UpdateSubmission(ctx, &submission); err != nil {
		return err
	}
	metrics.RecordSubmissionScored()
	return nil
}

// SubmissionByID loads a single submission.
func (s *Service) SubmissionByID(ctx context.Context, id uuid.UUID) (model.Submission, error) {
	return s.store.SubmissionByID(ctx, id)
}

// OwnSubmissions lists a participant's submissions within a grade.
func (s *Service) OwnSubmissions(ctx context.Context, userID, gradeID uuid.UUID) ([]model.Submission, error) {
	application, err := s.store.ApplicationByGradeAndParticipant(ctx, gradeID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotApplied, err)
	}
	return s.store.SubmissionsByApplication(ctx, application.ID)
}

// SeriesSubmissions lists all submissions for one series, with their
// export object keys where the pipeline already produced them.
func (s *Service) SeriesSubmissions(ctx context.Context, seriesID uuid.UUID) ([]model.Submission, error) {
	series, err := s.store.SeriesByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	tasks := make(map[uuid.UUID]struct{}, len(series.Tasks))
	for _, task := range series.Tasks {
		tasks[task.ID] = struct{}{}
	}

	all, err := s.store.SubmissionsByGrade(ctx, series.GradeID)
	if err != nil {
		return nil, err
	}
	var matched []model.Submission
	for _, submission := range all {
		if _, ok := tasks[submission.TaskID]; ok {
			matched = append(matched, submission)
		}
	}
	return matched, nil
}

// CreateSticker registers a new collectible sticker.
func (s *Service) CreateSticker(ctx context.Context, sticker *model.Sticker) error {
	if sticker.ID == uuid.Nil {
		sticker.ID = uuid.New()
	}
	if sticker.Title == "" || sticker.Number < 1 {
		return fmt.Errorf("%w: sticker needs a title and a positive number", model.ErrInvalid)
	}
	return s.store.CreateSticker(ctx, sticker)
}

// ListStickers returns all stickers in number order.
func (s *Service) ListStickers(ctx context.Context) ([]model.Sticker, error) {
	return s.store.ListStickers(ctx)
}

// AwardSticker pins a sticker onto a submission.
func (s *Service) AwardSticker(ctx context.Context, submissionID, stickerID uuid.UUID) error {
	return s.store.AwardSticker(ctx, submissionID, stickerID)
}

// ActiveApplications lists participants counted as active in the
// grade's current series.
func (s *Service) ActiveApplications(ctx context.Context, gradeID uuid.UUID) ([]model.Application, error) {
	grade, err := s.store.GradeByID(ctx, gradeID)
	if err != nil {
		return nil, err
	}
	current := schedule.CurrentSeries(grade.Series, s.now())
	if current == nil {
		return nil, nil
	}
	var previousDeadline *time.Time
	if previous := schedule.PreviousSeries(grade.Series, s.now()); previous != nil {
		previousDeadline = &previous.SubmissionDeadline
	}

	applications, err := s.store.ApplicationsByGrade(ctx, gradeID)
	if err != nil {
		return nil, err
	}
	submissions, err := s.store.SubmissionsByGrade(ctx, gradeID)
	if err != nil {
		return nil, err
	}
	return enrollment.ActiveApplications(applications, submissions, previousDeadline, current.SubmissionDeadline), nil
}
