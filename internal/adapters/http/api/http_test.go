package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ksicht/ksicht/internal/adapters/http/api"
	"github.com/ksicht/ksicht/internal/adapters/repository"
	service "github.com/ksicht/ksicht/internal/app"
	"github.com/ksicht/ksicht/internal/auth"
	"github.com/ksicht/ksicht/internal/domain/model"
	"github.com/ksicht/ksicht/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func copyPreparer(inPath, normalPath, duplexPath, _ string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(normalPath, data, 0o600); err != nil {
		return err
	}
	return os.WriteFile(duplexPath, data, 0o600)
}

type testEnv struct {
	server *httptest.Server
	svc    *service.Service
	store  *repository.MemoryStore
	now    *time.Time

	organizerToken string
}

func newTestEnv(ctx context.Context) *testEnv {
	now := time.Date(2025, time.October, 1, 10, 0, 0, 0, time.UTC)
	env := &testEnv{store: repository.NewMemoryStore(), now: &now}
	env.svc = service.New(
		service.WithStore(env.store),
		service.WithClock(func() time.Time { return *env.now }),
		service.WithPreparer(copyPreparer),
		service.WithWorkerCount(1),
	)
	if err := env.svc.Start(ctx); err != nil {
		panic(err)
	}

	hash, err := auth.HashPassword("organizer-heslo")
	if err != nil {
		panic(err)
	}
	organizer := model.User{
		ID:           uuid.New(),
		Email:        "organizer@ksicht.example",
		PasswordHash: hash,
		FirstName:    "Olga",
		LastName:     "Poradatelka",
		IsOrganizer:  true,
	}
	if err := env.store.CreateUser(ctx, &organizer); err != nil {
		panic(err)
	}
	session, _, err := env.svc.Login(ctx, organizer.Email, "organizer-heslo")
	if err != nil {
		panic(err)
	}
	env.organizerToken = session.Token

	router := mux.NewRouter()
	api.NewServer(env.svc).Register(router)
	env.server = httptest.NewServer(router)
	return env
}

func (env *testEnv) close(ctx context.Context) {
	env.server.Close()
	env.svc.Stop(ctx)
}

// request sends a JSON request and decodes the JSON response body.
func (env *testEnv) request(method, path, token string, body any) (int, map[string]any) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, env.server.URL+path, reader)
	if err != nil {
		panic(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

// requestList is request for endpoints returning a JSON array.
func (env *testEnv) requestList(method, path, token string) (int, []map[string]any) {
	req, err := http.NewRequest(method, env.server.URL+path, nil)
	if err != nil {
		panic(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var decoded []map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

// upload sends a multipart file request.
func (env *testEnv) upload(method, path, token string, content []byte) (int, map[string]any) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "solution.pdf")
	if err != nil {
		panic(err)
	}
	if _, err := part.Write(content); err != nil {
		panic(err)
	}
	if err := writer.Close(); err != nil {
		panic(err)
	}

	req, err := http.NewRequest(method, env.server.URL+path, &buf)
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func (env *testEnv) registerSolver(email string) string {
	status, _ := env.request(http.MethodPost, "/api/register", "", map[string]any{
		"email": email, "password": "tajne-heslo",
		"first_name": "Jana", "last_name": "Novakova",
	})
	if status != http.StatusCreated {
		panic(fmt.Sprintf("register returned %d", status))
	}
	status, login := env.request(http.MethodPost, "/api/login", "", map[string]any{
		"email": email, "password": "tajne-heslo",
	})
	if status != http.StatusOK {
		panic(fmt.Sprintf("login returned %d", status))
	}
	token := login["token"].(string)

	status, _ = env.request(http.MethodPut, "/api/profile", token, map[string]any{
		"street": "Hlavni 1", "city": "Praha", "zip_code": "11000",
		"country": "CZ", "school": "Gymnazium Praha", "school_year": "3",
	})
	if status != http.StatusOK {
		panic(fmt.Sprintf("profile save returned %d", status))
	}
	return token
}

// seedGrade creates a grade with one open series and one task over HTTP.
func (env *testEnv) seedGrade() (gradeID, seriesID, taskID string) {
	status, grade := env.request(http.MethodPost, "/api/grades", env.organizerToken, map[string]any{
		"school_year": "2025/2026",
		"start_date":  "2025-08-01",
		"end_date":    "2026-07-31",
	})
	if status != http.StatusCreated {
		panic(fmt.Sprintf("grade create returned %d", status))
	}
	gradeID = grade["id"].(string)

	status, series := env.request(http.MethodPost, "/api/series", env.organizerToken, map[string]any{
		"grade_id":            gradeID,
		"number":              1,
		"submission_deadline": "2025-11-15T23:59:00Z",
	})
	if status != http.StatusCreated {
		panic(fmt.Sprintf("series create returned %d", status))
	}
	seriesID = series["id"].(string)

	status, _ = env.upload(http.MethodPut, "/api/series/"+seriesID+"/booklet",
		env.organizerToken, []byte("%PDF-1.4 booklet"))
	if status != http.StatusNoContent {
		panic(fmt.Sprintf("booklet upload returned %d", status))
	}

	status, task := env.request(http.MethodPost, "/api/series/"+seriesID+"/tasks", env.organizerToken, map[string]any{
		"number": 1, "title": "Titration", "points": 10,
	})
	if status != http.StatusCreated {
		panic(fmt.Sprintf("task create returned %d", status))
	}
	taskID = task["id"].(string)
	return gradeID, seriesID, taskID
}

func TestAccountEndpoints(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ctx := context.Background()
		env := newTestEnv(ctx)
		defer env.close(ctx)

		Convey("When a visitor registers and logs in", func() {
			status, user := env.request(http.MethodPost, "/api/register", "", map[string]any{
				"email": "solver@example.com", "password": "tajne-heslo",
				"first_name": "Jana", "last_name": "Novakova",
			})
			So(status, ShouldEqual, http.StatusCreated)
			So(user["email"], ShouldEqual, "solver@example.com")

			status, login := env.request(http.MethodPost, "/api/login", "", map[string]any{
				"email": "solver@example.com", "password": "tajne-heslo",
			})
			So(status, ShouldEqual, http.StatusOK)
			token := login["token"].(string)
			So(token, ShouldNotBeEmpty)

			Convey("Then the profile endpoints work with the token", func() {
				status, _ := env.request(http.MethodGet, "/api/profile", token, nil)
				So(status, ShouldEqual, http.StatusNotFound)

				status, _ = env.request(http.MethodPut, "/api/profile", token, map[string]any{
					"street": "Hlavni 1", "city": "Praha", "zip_code": "11000",
					"country": "CZ", "school": "Gymnazium Praha", "school_year": "3",
				})
				So(status, ShouldEqual, http.StatusOK)

				status, profile := env.request(http.MethodGet, "/api/profile", token, nil)
				So(status, ShouldEqual, http.StatusOK)
				So(profile["city"], ShouldEqual, "Praha")
			})

			Convey("Then a wrong password is rejected", func() {
				status, body := env.request(http.MethodPost, "/api/login", "", map[string]any{
					"email": "solver@example.com", "password": "spatne-heslo",
				})
				So(status, ShouldEqual, http.StatusUnauthorized)
				So(body["code"], ShouldEqual, "unauthorized")
			})

			Convey("Then logout revokes the token", func() {
				status, _ := env.request(http.MethodPost, "/api/logout", token, nil)
				So(status, ShouldEqual, http.StatusNoContent)

				status, _ = env.request(http.MethodGet, "/api/profile", token, nil)
				So(status, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When a request carries no token", func() {
			status, _ := env.request(http.MethodGet, "/api/profile", "", nil)
			So(status, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestGradeAndSubmissionEndpoints(t *testing.T) {
	Convey("Given a seeded grade with an open series", t, func() {
		ctx := context.Background()
		env := newTestEnv(ctx)
		defer env.close(ctx)
		gradeID, seriesID, taskID := env.seedGrade()

		Convey("When a solver without the organizer flag creates a grade", func() {
			token := env.registerSolver("solver@example.com")
			status, body := env.request(http.MethodPost, "/api/grades", token, map[string]any{
				"school_year": "2026/2027",
				"start_date":  "2026-08-01",
				"end_date":    "2027-07-31",
			})
			So(status, ShouldEqual, http.StatusForbidden)
			So(body["code"], ShouldEqual, "forbidden")
		})

		Convey("When a grade request has malformed dates", func() {
			status, body := env.request(http.MethodPost, "/api/grades", env.organizerToken, map[string]any{
				"school_year": "2026/2027",
				"start_date":  "yesterday",
				"end_date":    "2027-07-31",
			})
			So(status, ShouldEqual, http.StatusUnprocessableEntity)
			So(body["code"], ShouldEqual, "invalid")
		})

		Convey("When the current grade is requested", func() {
			status, grade := env.request(http.MethodGet, "/api/grades/current", "", nil)
			So(status, ShouldEqual, http.StatusOK)
			So(grade["id"], ShouldEqual, gradeID)
		})

		Convey("When the grade detail is requested", func() {
			status, detail := env.request(http.MethodGet, "/api/grades/"+gradeID, "", nil)
			So(status, ShouldEqual, http.StatusOK)
			So(detail["current_series_id"], ShouldEqual, seriesID)
			So(detail, ShouldNotContainKey, "previous_series_id")
		})

		Convey("When a grade is looked up by school year", func() {
			status, detail := env.request(http.MethodGet,
				"/api/grades/year?school_year="+url.QueryEscape("2025/2026"), "", nil)
			So(status, ShouldEqual, http.StatusOK)
			So(detail["id"], ShouldEqual, gradeID)
			So(detail["current_series_id"], ShouldEqual, seriesID)

			status, body := env.request(http.MethodGet,
				"/api/grades/year?school_year="+url.QueryEscape("1999/2000"), "", nil)
			So(status, ShouldEqual, http.StatusNotFound)
			So(body["code"], ShouldEqual, "not_found")

			status, body = env.request(http.MethodGet, "/api/grades/year", "", nil)
			So(status, ShouldEqual, http.StatusUnprocessableEntity)
			So(body["code"], ShouldEqual, "invalid")
		})

		Convey("When an unknown grade is requested", func() {
			status, body := env.request(http.MethodGet, "/api/grades/"+uuid.NewString(), "", nil)
			So(status, ShouldEqual, http.StatusNotFound)
			So(body["code"], ShouldEqual, "not_found")
		})

		Convey("When a solver applies and submits a solution", func() {
			token := env.registerSolver("solver@example.com")

			status, _ := env.request(http.MethodPost, "/api/grades/"+gradeID+"/apply", token, nil)
			So(status, ShouldEqual, http.StatusCreated)

			status, _ = env.request(http.MethodPost, "/api/grades/"+gradeID+"/apply", token, nil)
			So(status, ShouldEqual, http.StatusConflict)

			status, submission := env.upload(http.MethodPost, "/api/tasks/"+taskID+"/submission",
				token, []byte("%PDF-1.4 reseni"))
			So(status, ShouldEqual, http.StatusCreated)
			submissionID := submission["id"].(string)

			Convey("Then the submission shows up in the solver's list", func() {
				status, subs := env.requestList(http.MethodGet, "/api/grades/"+gradeID+"/submissions", token)
				So(status, ShouldEqual, http.StatusOK)
				So(subs, ShouldHaveLength, 1)
				So(subs[0]["task_id"], ShouldEqual, taskID)
			})

			Convey("Then the organizer can score it", func() {
				status, _ := env.request(http.MethodPost, "/api/submissions/"+submissionID+"/score",
					env.organizerToken, map[string]any{"score": 7.5})
				So(status, ShouldEqual, http.StatusNoContent)

				status, body := env.request(http.MethodPost, "/api/submissions/"+submissionID+"/score",
					env.organizerToken, map[string]any{"score": 99})
				So(status, ShouldEqual, http.StatusUnprocessableEntity)
				So(body["code"], ShouldEqual, "invalid")
			})

			Convey("Then results stay hidden until published", func() {
				status, body := env.request(http.MethodGet, "/api/grades/"+gradeID+"/results/1", "", nil)
				So(status, ShouldEqual, http.StatusForbidden)
				So(body["code"], ShouldEqual, "forbidden")

				status, _ = env.request(http.MethodPost, "/api/series/"+seriesID+"/publish",
					env.organizerToken, map[string]any{"published": true})
				So(status, ShouldEqual, http.StatusNoContent)

				status, listing := env.request(http.MethodGet, "/api/grades/"+gradeID+"/results/1", "", nil)
				So(status, ShouldEqual, http.StatusOK)
				So(listing["series_number"], ShouldEqual, 1)
			})

			Convey("Then the solver can withdraw the submission", func() {
				status, _ := env.request(http.MethodDelete, "/api/submissions/"+submissionID, token, nil)
				So(status, ShouldEqual, http.StatusNoContent)

				status, subs := env.requestList(http.MethodGet, "/api/grades/"+gradeID+"/submissions", token)
				So(status, ShouldEqual, http.StatusOK)
				So(subs, ShouldHaveLength, 0)
			})

			Convey("Then another solver cannot withdraw it", func() {
				other := env.registerSolver("other@example.com")
				status, _ := env.request(http.MethodDelete, "/api/submissions/"+submissionID, other, nil)
				So(status, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("When a solver submits without applying", func() {
			token := env.registerSolver("late@example.com")
			status, body := env.upload(http.MethodPost, "/api/tasks/"+taskID+"/submission",
				token, []byte("%PDF-1.4 reseni"))
			So(status, ShouldEqual, http.StatusForbidden)
			So(body["code"], ShouldEqual, "forbidden")
		})

		Convey("When the deadline has passed", func() {
			token := env.registerSolver("pozde@example.com")
			status, _ := env.request(http.MethodPost, "/api/grades/"+gradeID+"/apply", token, nil)
			So(status, ShouldEqual, http.StatusCreated)

			*env.now = time.Date(2025, time.December, 1, 10, 0, 0, 0, time.UTC)
			status, body := env.upload(http.MethodPost, "/api/tasks/"+taskID+"/submission",
				token, []byte("%PDF-1.4 reseni"))
			So(status, ShouldEqual, http.StatusConflict)
			So(body["code"], ShouldEqual, "closed")
		})
	})
}

func TestEventEndpoints(t *testing.T) {
	Convey("Given an event open for enlistment", t, func() {
		ctx := context.Background()
		env := newTestEnv(ctx)
		defer env.close(ctx)

		status, event := env.request(http.MethodPost, "/api/events", env.organizerToken, map[string]any{
			"title":              "Podzimni soustredeni",
			"place":              "Nova Ves",
			"start_date":         "2025-10-20",
			"end_date":           "2025-10-24",
			"capacity":           1,
			"enlistment_enabled": true,
			"is_public":          true,
			"publish_occupancy":  true,
		})
		So(status, ShouldEqual, http.StatusCreated)
		eventID := event["id"].(string)

		Convey("When two solvers enlist", func() {
			first := env.registerSolver("first@example.com")
			second := env.registerSolver("second@example.com")

			status, _ := env.request(http.MethodPost, "/api/events/"+eventID+"/enlist", first, nil)
			So(status, ShouldEqual, http.StatusCreated)
			status, _ = env.request(http.MethodPost, "/api/events/"+eventID+"/enlist", second, nil)
			So(status, ShouldEqual, http.StatusCreated)

			Convey("Then the second lands on the substitute list", func() {
				status, roster := env.request(http.MethodGet, "/api/events/"+eventID+"/roster", env.organizerToken, nil)
				So(status, ShouldEqual, http.StatusOK)
				attendees := roster["attendees"].([]any)
				substitutes := roster["substitutes"].([]any)
				So(attendees, ShouldHaveLength, 1)
				So(substitutes, ShouldHaveLength, 1)
			})

			Convey("Then the roster stays organizer-only", func() {
				status, _ := env.request(http.MethodGet, "/api/events/"+eventID+"/roster", "", nil)
				So(status, ShouldEqual, http.StatusUnauthorized)
				status, _ = env.request(http.MethodGet, "/api/events/"+eventID+"/roster", first, nil)
				So(status, ShouldEqual, http.StatusForbidden)
			})

			Convey("Then public event payloads hide attendee records", func() {
				status, detail := env.request(http.MethodGet, "/api/events/"+eventID, "", nil)
				So(status, ShouldEqual, http.StatusOK)
				So(detail, ShouldNotContainKey, "attendees")

				status, detail = env.request(http.MethodGet, "/api/events/"+eventID, first, nil)
				So(status, ShouldEqual, http.StatusOK)
				So(detail, ShouldNotContainKey, "attendees")

				status, detail = env.request(http.MethodGet, "/api/events/"+eventID, env.organizerToken, nil)
				So(status, ShouldEqual, http.StatusOK)
				So(detail["attendees"].([]any), ShouldHaveLength, 2)
			})

			Convey("Then enlisting twice conflicts", func() {
				status, body := env.request(http.MethodPost, "/api/events/"+eventID+"/enlist", first, nil)
				So(status, ShouldEqual, http.StatusConflict)
				So(body["code"], ShouldEqual, "conflict")
			})
		})

		Convey("When the event list is requested anonymously", func() {
			status, events := env.requestList(http.MethodGet, "/api/events", "")
			So(status, ShouldEqual, http.StatusOK)
			So(events, ShouldHaveLength, 1)
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ctx := context.Background()
		env := newTestEnv(ctx)
		defer env.close(ctx)

		Convey("When the health endpoint is hit", func() {
			status, body := env.request(http.MethodGet, "/healthz", "", nil)
			So(status, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "ok")
		})

		Convey("When the stats endpoint is hit", func() {
			status, stats := env.request(http.MethodGet, "/stats", "", nil)
			So(status, ShouldEqual, http.StatusOK)
			So(stats, ShouldContainKey, "participants")
		})
	})
}
