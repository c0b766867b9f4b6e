// Package results computes grade result listings from scored
// submissions.
package results

import (
	"sort"

	"github.com/google/uuid"
	"github.com/ksicht/ksicht/internal/domain/model"
)

// Row is one participant line in a result listing.
type Row struct {
	ApplicationID uuid.UUID             `json:"application_id"`
	Participant   model.Participant     `json:"participant"`
	Rank          int                   `json:"rank"`
	TaskScores    map[uuid.UUID]float64 `json:"task_scores"`
	SeriesTotals  map[int]float64       `json:"series_totals"`
	Total         float64               `json:"total"`
}

// Listing is the cumulative standing of a grade through a series.
type Listing struct {
	SeriesNumber int     `json:"series_number"`
	MaxScore     float64 `json:"max_score"`
	Rows         []Row   `json:"rows"`
}

// Rankings builds the cumulative listing through the given series
// number. Scores from later series do not count. Participants with
// equal totals share a rank and the following rank is skipped.
func Rankings(series []model.Series, throughNumber int, applications []model.Application, submissions []model.Submission) Listing {
	listing := Listing{SeriesNumber: throughNumber}

	// Tasks that count, and the best total achievable on them.
	taskSeries := make(map[uuid.UUID]int)
	for _, s := range series {
		if s.Number > throughNumber {
			continue
		}
		for _, t := range s.Tasks {
			taskSeries[t.ID] = s.Number
			listing.MaxScore += float64(t.Points)
		}
	}

	rows := make(map[uuid.UUID]*Row, len(applications))
	for i := range applications {
		app := applications[i]
		rows[app.ID] = &Row{
			ApplicationID: app.ID,
			Participant:   app.Participant,
			TaskScores:    make(map[uuid.UUID]float64),
			SeriesTotals:  make(map[int]float64),
		}
	}

	// Applications with no submission in the counted series stay off
	// the listing entirely.
	submitted := make(map[uuid.UUID]bool, len(rows))
	for _, sub := range submissions {
		row, ok := rows[sub.ApplicationID]
		if !ok {
			continue
		}
		nr, counts := taskSeries[sub.TaskID]
		if !counts {
			continue
		}
		submitted[sub.ApplicationID] = true
		if sub.Score == nil {
			continue
		}
		score := model.RoundScore(*sub.Score)
		row.TaskScores[sub.TaskID] = score
		row.SeriesTotals[nr] += score
		row.Total += score
	}

	createdAt := make(map[uuid.UUID]int64, len(applications))
	for i := range applications {
		createdAt[applications[i].ID] = applications[i].CreatedAt.UnixNano()
	}

	listing.Rows = make([]Row, 0, len(rows))
	for id, row := range rows {
		if !submitted[id] {
			continue
		}
		row.Total = model.RoundScore(row.Total)
		listing.Rows = append(listing.Rows, *row)
	}
	sort.Slice(listing.Rows, func(i, j int) bool {
		a, b := listing.Rows[i], listing.Rows[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return createdAt[a.ApplicationID] < createdAt[b.ApplicationID]
	})

	assignRanks(listing.Rows)
	return listing
}

// assignRanks gives equal totals the same rank; the next distinct total
// takes the rank of its position, so a shared second place is followed
// by fourth.
func assignRanks(rows []Row) {
	for i := range rows {
		if i > 0 && rows[i].Total == rows[i-1].Total {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
}
