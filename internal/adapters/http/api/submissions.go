package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ksicht/ksicht/internal/domain/model"
)

func (s *Server) handleSubmitSolution(w http.ResponseWriter, r *http.Request, user model.User) {
	taskID, err := pathUUID(r, "id")
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

	submission, err := s.svc.SubmitSolution(r.Context(), user.ID, taskID, file, size)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submission)
}

func (s *Server) handleDeleteSubmission(w http.ResponseWriter, r *http.Request, user model.User) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.svc.DeleteSubmission(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scoreRequest struct {
	Score float64 `json:"score"`
}

func (s *Server) handleScoreSubmission(w http.ResponseWriter, r *http.Request, _ model.User) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err)
		return
	}
	if err := s.svc.ScoreSubmission(r.Context(), id, req.Score); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDownloadExport streams a prepared print variant.
func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request, _ model.User) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	submission, err := s.svc.SubmissionByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	variant := mux.Vars(r)["variant"]
	var key string
	switch variant {
	case "normal":
		key = submission.ExportNormalKey
	case "duplex":
		key = submission.ExportDuplexKey
	default:
		writeError(w, http.StatusBadRequest, "invalid",
			fmt.Errorf("variant must be normal or duplex"))
		return
	}
	if key == "" {
		writeError(w, http.StatusNotFound, "not_found",
			fmt.Errorf("export %s not prepared yet", variant))
		return
	}
	obj, err := s.svc.Download(r.Context(), key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	streamObject(w, obj, fmt.Sprintf("%s-%s.pdf", id, variant))
}

func (s *Server) handlePostalSubmission(w http.ResponseWriter, r *http.Request, _ model.User) {
	applicationID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	taskID, err := pathUUID(r, "taskID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	submission, err := s.svc.MarkPostalSubmission(r.Context(), applicationID, taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submission)
}

func (s *Server) handleUnmarkPostal(w http.ResponseWriter, r *http.Request, _ model.User) {
	applicationID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	taskID, err := pathUUID(r, "taskID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.svc.UnmarkPostalSubmission(r.Context(), applicationID, taskID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSeriesExports lists a series' submissions for print export.
func (s *Server) handleSeriesExports(w http.ResponseWriter, r *http.Request, _ model.User) {
	seriesID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	submissions, err := s.svc.SeriesSubmissions(r.Context(), seriesID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submissions)
}

func (s *Server) handleListStickers(w http.ResponseWriter, r *http.Request) {
	stickers, err := s.svc.ListStickers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stickers)
}

type stickerRequest struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Handpicked  bool   `json:"handpicked"`
}

func (s *Server) handleCreateSticker(w http.ResponseWriter, r *http.Request, _ model.User) {
	var req stickerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err)
		return
	}
	sticker := model.Sticker{
		Number:      req.Number,
		Title:       req.Title,
		Description: req.Description,
		Handpicked:  req.Handpicked,
	}
	if err := s.svc.CreateSticker(r.Context(), &sticker); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sticker)
}

func (s *Server) handleAwardSticker(w http.ResponseWriter, r *http.Request, _ model.User) {
	submissionID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	stickerID, err := pathUUID(r, "stickerID")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.svc.AwardSticker(r.Context(), submissionID, stickerID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
