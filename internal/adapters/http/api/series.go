package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ksicht/ksicht/internal/adapters/storage"
	"github.com/ksicht/ksicht/internal/domain/model"
)

type seriesRequest struct {
	GradeID            string `json:"grade_id"`
	Number             int    `json:"number"`
	SubmissionDeadline string `json:"submission_deadline"`
}

func (s *Server) handleCreateSeries(w http.ResponseWriter, r *http.Request, _ model.User) {
	var req seriesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err)
		return
	}
	gradeID, err := uuidFromString(req.GradeID, "grade_id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	deadline, err := time.Parse(timeFormat, req.SubmissionDeadline)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid",
			fmt.Errorf("submission_deadline must be RFC3339"))
		return
	}
	series := model.Series{
		GradeID:            gradeID,
		Number:             req.Number,
		SubmissionDeadline: deadline,
	}
	if err := s.svc.CreateSeries(r.Context(), &series); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, series)
}

func (s *Server) handleSeriesDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	series, err := s.svc.SeriesByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// uploadedFile pulls the "file" part out of a multipart request.
func (s *Server) uploadedFile(r *http.Request) (io.ReadCloser, int64, error) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", model.ErrInvalid, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: missing file part", model.ErrInvalid)
	}
	if header.Size > s.maxUploadBytes {
		_ = file.Close()
		return nil, 0, fmt.Errorf("%w: file exceeds %d bytes", model.ErrInvalid, s.maxUploadBytes)
	}
	return file, header.Size, nil
}

func (s *Server) handleUploadBooklet(w http.ResponseWriter, r *http.Request, _ model.User) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	file, size, err := s.uploadedFile(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer file.Close()

	if err := s.svc.UploadBooklet(r.Context(), id, file, size); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// streamObject copies a stored object to the response.
func streamObject(w http.ResponseWriter, obj storage.Object, filename string) {
	defer obj.Reader.Close()
	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = io.Copy(w, obj.Reader)
}

func (s *Server) handleDownloadBooklet(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	series, err := s.svc.SeriesByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if series.TaskFileKey == "" {
		writeError(w, http.StatusNotFound, "not_found",
			fmt.Errorf("series %d has no booklet yet", series.Number))
		return
	}
	obj, err := s.svc.Download(r.Context(), series.TaskFileKey)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	streamObject(w, obj, fmt.Sprintf("series-%d.pdf", series.Number))
}

func (s *Server) handleAddAttachment(w http.ResponseWriter, r *http.Request, _ model.User) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_multipart", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_multipart", err)
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	if title == "" {
		title = header.Filename
	}
	attachment, err := s.svc.AddAttachment(r.Context(), id, title,
		header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attachment)
}

func (s *Server) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	seriesID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	attachmentID, err := pathUUID(r, "attachmentID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	series, err := s.svc.SeriesByID(r.Context(), seriesID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	for _, attachment := range series.Attachments {
		if attachment.ID == attachmentID {
			obj, err := s.svc.Download(r.Context(), attachment.FileKey)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			streamObject(w, obj, attachment.Title)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("attachment %s", attachmentID))
}

type taskRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Points int    `json:"points"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, _ model.User) {
	seriesID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err)
		return
	}
	task := model.Task{
		SeriesID: seriesID,
		Number:   req.Number,
		Title:    req.Title,
		Points:   req.Points,
	}
	if err := s.svc.CreateTask(r.Context(), &task); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

type publishRequest struct {
	Published bool `json:"published"`
}

func (s *Server) handlePublishResults(w http.ResponseWriter, r *http.Request, _ model.User) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req publishRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err)
		return
	}
	if err := s.svc.PublishResults(r.Context(), id, req.Published); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
