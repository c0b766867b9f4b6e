package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ksicht/ksicht/internal/adapters/repository"
	"github.com/ksicht/ksicht/internal/domain/model"
)

// pathUUID parses a UUID path variable.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuidFromString(mux.Vars(r)[name], name)
}

func uuidFromString(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s is not a UUID", model.ErrInvalid, name)
	}
	return id, nil
}

// pageFrom reads offset/limit query parameters.
func pageFrom(r *http.Request) repository.Page {
	page := repository.Page{}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		page.Offset = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		page.Limit = v
	}
	return page
}

type gradeRequest struct {
	SchoolYear string `json:"school_year"`
	Errata     string `json:"errata"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

func (g gradeRequest) toModel() (model.Grade, error) {
	start, err := time.Parse(time.DateOnly, g.StartDate)
	if err != nil {
		return model.Grade{}, fmt.Errorf("%w: start_date must be YYYY-MM-DD", model.ErrInvalid)
	}
	end, err := time.Parse(time.DateOnly, g.EndDate)
	if err != nil {
		return model.Grade{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", model.ErrInvalid)
	}
	return model.Grade{
		SchoolYear: g.SchoolYear,
		Errata:     g.Errata,
		StartDate:  start,
		EndDate:    end,
	}, nil
}

func (s *Server) handleListGrades(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("archived") == "true" {
		grades, err := s.svc.ArchivedGrades(r.Context(), pageFrom(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, grades)
		return
	}
	grades, err := s.svc.ListGrades(r.Context(), pageFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grades)
}

func (s *Server) handleCreateGrade(w http.ResponseWriter, r *http.Request, _ model.User) {
	var req gradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err)
		return
	}
	grade, err := req.toModel()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.svc.CreateGrade(r.Context(), &grade); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grade)
}

func (s *Server) handleUpdateGrade(w http.ResponseWriter, r *http.Request, _ model.User) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req gradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err)
		return
	}
	grade, err := req.toModel()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	grade.ID = id
	if err := s.svc.UpdateGrade(r.Context(), &grade); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grade)
}

func (s *Server) handleCurrentGrade(w http.ResponseWriter, r *http.Request) {
	grade, err := s.svc.CurrentGrade(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grade)
}

func (s *Server) handleCurrentSeries(w http.ResponseWriter, r *http.Request) {
	gradeID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	series, err := s.svc.CurrentSeries(r.Context(), gradeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleGradeDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	detail, err := s.svc.GradeDetailByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// School year labels contain a slash, so the lookup reads a query
// parameter instead of a path segment.
func (s *Server) handleGradeBySchoolYear(w http.ResponseWriter, r *http.Request) {
	schoolYear := r.URL.Query().Get("school_year")
	if schoolYear == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid",
			fmt.Errorf("%w: school_year query parameter is required", model.ErrInvalid))
		return
	}
	detail, err := s.svc.GradeBySchoolYear(r.Context(), schoolYear)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request, user model.User) {
	gradeID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	application, err := s.svc.Apply(r.Context(), user.ID, gradeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, application)
}

func (s *Server) handleOwnSubmissions(w http.ResponseWriter, r *http.Request, user model.User) {
	gradeID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	submissions, err := s.svc.OwnSubmissions(r.Context(), user.ID, gradeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submissions)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	gradeID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	seriesNumber, err := strconv.Atoi(mux.Vars(r)["series"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err)
		return
	}
	listing, err := s.svc.Results(r.Context(), gradeID, seriesNumber, s.viewer(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleActiveApplications(w http.ResponseWriter, r *http.Request, _ model.User) {
	gradeID, err := pathUUID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	applications, err := s.svc.ActiveApplications(r.Context(), gradeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, applications)
}
