package results_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ksicht/ksicht/internal/domain/model"
	"github.com/ksicht/ksicht/internal/domain/results"
	. "github.com/smartystreets/goconvey/convey"
)

func scored(app, task uuid.UUID, score float64) model.Submission {
	return model.Submission{
		ID:            uuid.New(),
		ApplicationID: app,
		TaskID:        task,
		FileKey:       "submissions/x.pdf",
		Score:         &score,
	}
}

func TestRankings(t *testing.T) {
	Convey("Given two series of tasks and three applicants", t, func() {
		task1 := model.Task{ID: uuid.New(), Number: 1, Title: "Titration", Points: 10}
		task2 := model.Task{ID: uuid.New(), Number: 2, Title: "Kinetics", Points: 15}
		task3 := model.Task{ID: uuid.New(), Number: 1, Title: "Spectra", Points: 12}

		series := []model.Series{
			{ID: uuid.New(), Number: 1, Tasks: []model.Task{task1, task2}},
			{ID: uuid.New(), Number: 2, Tasks: []model.Task{task3}},
		}

		base := time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC)
		appA := model.Application{ID: uuid.New(), CreatedAt: base}
		appB := model.Application{ID: uuid.New(), CreatedAt: base.Add(time.Hour)}
		appC := model.Application{ID: uuid.New(), CreatedAt: base.Add(2 * time.Hour)}
		apps := []model.Application{appA, appB, appC}

		subs := []model.Submission{
			scored(appA.ID, task1.ID, 8),
			scored(appA.ID, task2.ID, 12.5),
			scored(appB.ID, task1.ID, 10),
			scored(appB.ID, task2.ID, 10.5),
			scored(appC.ID, task1.ID, 4),
		}

		Convey("When ranking through the first series", func() {
			listing := results.Rankings(series, 1, apps, subs)

			Convey("Then the max score covers only that series", func() {
				So(listing.MaxScore, ShouldEqual, 25)
			})

			Convey("Then applicants with equal totals share a rank", func() {
				So(listing.Rows, ShouldHaveLength, 3)
				So(listing.Rows[0].Total, ShouldEqual, 20.5)
				So(listing.Rows[0].Rank, ShouldEqual, 1)
				So(listing.Rows[1].Total, ShouldEqual, 20.5)
				So(listing.Rows[1].Rank, ShouldEqual, 1)
				So(listing.Rows[2].Total, ShouldEqual, 4)
				So(listing.Rows[2].Rank, ShouldEqual, 3)
			})

			Convey("Then equal totals order by application time", func() {
				So(listing.Rows[0].ApplicationID, ShouldEqual, appA.ID)
				So(listing.Rows[1].ApplicationID, ShouldEqual, appB.ID)
			})
		})

		Convey("When ranking through the second series", func() {
			subs = append(subs, scored(appC.ID, task3.ID, 12))
			listing := results.Rankings(series, 2, apps, subs)

			Convey("Then totals accumulate across series", func() {
				So(listing.MaxScore, ShouldEqual, 37)
				So(listing.Rows[2].ApplicationID, ShouldEqual, appC.ID)
				So(listing.Rows[2].Total, ShouldEqual, 16)
				So(listing.Rows[2].SeriesTotals[1], ShouldEqual, 4)
				So(listing.Rows[2].SeriesTotals[2], ShouldEqual, 12)
			})
		})

		Convey("When a submission is not scored yet", func() {
			subs = append(subs, model.Submission{
				ID:            uuid.New(),
				ApplicationID: appC.ID,
				TaskID:        task3.ID,
			})
			listing := results.Rankings(series, 2, apps, subs)

			Convey("Then it contributes nothing", func() {
				So(listing.Rows[2].Total, ShouldEqual, 4)
			})
		})

		Convey("When an applicant never submitted anything", func() {
			idle := model.Application{ID: uuid.New(), CreatedAt: base.Add(3 * time.Hour)}
			listing := results.Rankings(series, 1, append(apps, idle), subs)

			Convey("Then they stay off the listing", func() {
				So(listing.Rows, ShouldHaveLength, 3)
				for _, row := range listing.Rows {
					So(row.ApplicationID, ShouldNotEqual, idle.ID)
				}
			})
		})

		Convey("When an applicant only submitted in a later series", func() {
			lateStarter := model.Application{ID: uuid.New(), CreatedAt: base.Add(3 * time.Hour)}
			subs = append(subs, scored(lateStarter.ID, task3.ID, 5))

			Convey("Then the earlier listing skips them", func() {
				listing := results.Rankings(series, 1, append(apps, lateStarter), subs)
				So(listing.Rows, ShouldHaveLength, 3)
			})

			Convey("Then the later listing includes them", func() {
				listing := results.Rankings(series, 2, append(apps, lateStarter), subs)
				So(listing.Rows, ShouldHaveLength, 4)
			})
		})

		Convey("When there are no applications", func() {
			listing := results.Rankings(series, 2, nil, subs)

			Convey("Then the listing is empty but well formed", func() {
				So(listing.Rows, ShouldBeEmpty)
				So(listing.MaxScore, ShouldEqual, 37)
			})
		})
	})
}
