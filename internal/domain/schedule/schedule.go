// Package schedule selects the active grade and series from the
// seminar calendar.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/ksicht/ksicht/internal/domain/model"
)

// CurrentGrade returns the grade running at the given time, or nil when
// none is in progress.
func CurrentGrade(grades []model.Grade, now time.Time) *model.Grade {
	for i := range grades {
		if grades[i].IsInProgress(now) {
			return &grades[i]
		}
	}
	return nil
}

// Archive returns grades whose run has ended, newest first.
func Archive(grades []model.Grade, now time.Time) []model.Grade {
	day := model.DateOnly(now)
	out := make([]model.Grade, 0, len(grades))
	for _, g := range grades {
		if model.DateOnly(g.EndDate).Before(day) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out
}

// bySeriesDeadline orders series by submission deadline, series number
// breaking ties.
func bySeriesDeadline(series []model.Series) []model.Series {
	out := make([]model.Series, len(series))
	copy(out, series)
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmissionDeadline.Equal(out[j].SubmissionDeadline) {
			return out[i].Number < out[j].Number
		}
		return out[i].SubmissionDeadline.Before(out[j].SubmissionDeadline)
	})
	return out
}

// CurrentSeries returns the series participants should be working on:
// the one with the earliest deadline that still accepts submissions.
// Nil when no series accepts submissions anymore.
func CurrentSeries(series []model.Series, now time.Time) *model.Series {
	ordered := bySeriesDeadline(series)
	for i := range ordered {
		if ordered[i].AcceptsSubmissions(now) {
			return &ordered[i]
		}
	}
	return nil
}

// PreviousSeries returns the latest series whose deadline has passed
// before the current one, or nil for the first series.
func PreviousSeries(series []model.Series, now time.Time) *model.Series {
	current := CurrentSeries(series, now)
	if current == nil {
		return nil
	}
	ordered := bySeriesDeadline(series)
	var prev *model.Series
	for i := range ordered {
		if ordered[i].ID == current.ID {
			break
		}
		if ordered[i].SubmissionDeadline.Before(current.SubmissionDeadline) {
			prev = &ordered[i]
		}
	}
	return prev
}

// FutureSeries returns series with deadlines after the current one, in
// deadline order.
func FutureSeries(series []model.Series, now time.Time) []model.Series {
	current := CurrentSeries(series, now)
	if current == nil {
		return nil
	}
	ordered := bySeriesDeadline(series)
	var out []model.Series
	for _, s := range ordered {
		if s.SubmissionDeadline.After(current.SubmissionDeadline) {
			out = append(out, s)
		}
	}
	return out
}

// ValidateNoOverlap checks a grade's dates against all other grades.
func ValidateNoOverlap(grade *model.Grade, others []model.Grade) error {
	for i := range others {
		if others[i].ID == grade.ID {
			continue
		}
		if grade.Overlaps(&others[i]) {
			return fmt.Errorf("%w: grade dates overlap grade %q",
				model.ErrInvalid, others[i].SchoolYear)
		}
	}
	return nil
}
