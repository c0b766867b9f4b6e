package site_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/ksicht/ksicht/internal/adapters/http/site"
	service "github.com/ksicht/ksicht/internal/app"
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

func newSite(ctx context.Context, now time.Time) (*httptest.Server, *service.Service) {
	svc := service.New(service.WithClock(func() time.Time { return now }))
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	router := mux.NewRouter()
	site.NewServer(svc).Register(router)
	return httptest.NewServer(router), svc
}

func fetch(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func TestPublicPages(t *testing.T) {
	Convey("Given a running site server", t, func() {
		ctx := context.Background()
		now := time.Date(2025, time.October, 1, 10, 0, 0, 0, time.UTC)
		server, svc := newSite(ctx, now)
		defer server.Close()
		defer svc.Stop(ctx)

		Convey("When no grade is in progress", func() {
			status, body := fetch(t, server.URL+"/")
			So(status, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, "neprobíhá žádný ročník")
		})

		Convey("When a grade with a series is running", func() {
			grade := model.Grade{
				SchoolYear: "2025/2026",
				StartDate:  time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC),
				EndDate:    time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC),
			}
			So(svc.CreateGrade(ctx, &grade), ShouldBeNil)
			series := model.Series{
				GradeID:            grade.ID,
				Number:             1,
				SubmissionDeadline: time.Date(2025, time.November, 15, 23, 59, 0, 0, time.UTC),
			}
			So(svc.CreateSeries(ctx, &series), ShouldBeNil)
			task := model.Task{SeriesID: series.ID, Number: 1, Title: "Titrace", Points: 10}
			So(svc.CreateTask(ctx, &task), ShouldBeNil)

			status, body := fetch(t, server.URL+"/")
			So(status, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, "2025/2026")
			So(body, ShouldContainSubstring, "Titrace")
		})

		Convey("When the archive is empty", func() {
			status, body := fetch(t, server.URL+"/archive")
			So(status, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, "zatím prázdný")
		})

		Convey("When an ended grade exists", func() {
			grade := model.Grade{
				SchoolYear: "2023/2024",
				StartDate:  time.Date(2023, time.August, 1, 0, 0, 0, 0, time.UTC),
				EndDate:    time.Date(2024, time.July, 31, 0, 0, 0, 0, time.UTC),
			}
			So(svc.CreateGrade(ctx, &grade), ShouldBeNil)

			status, body := fetch(t, server.URL+"/archive")
			So(status, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, "2023/2024")
		})
	})
}
