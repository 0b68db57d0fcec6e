// Package stats summarizes stored survey responses.
package stats

import (
	"context"
	"sort"

	"github.com/mbolis/freewill-survey/model"
)

// Source is the read side of the store the aggregator depends on.
type Source interface {
	CountResponses(ctx context.Context) (int, error)
	LatestTimestamp(ctx context.Context) (string, bool, error)
	CountByDate(ctx context.Context) (map[string]int, error)
	AllScores(ctx context.Context) ([]map[string]float64, error)
}

// Policy selects which score categories get an average.
type Policy int

const (
	// AllCategories averages every category seen in any row.
	AllCategories Policy = iota
	// FirstRowCategories averages only the categories of the first stored
	// row, reproducing the numbers of the legacy survey backend.
	FirstRowCategories
)

type Aggregator struct {
	source Source
	policy Policy
}

func New(source Source, policy Policy) *Aggregator {
	return &Aggregator{source: source, policy: policy}
}

func (a *Aggregator) Compute(ctx context.Context) (*model.Stats, error) {
	total, err := a.source.CountResponses(ctx)
	if err != nil {
		return nil, err
	}
	byDate, err := a.source.CountByDate(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.Stats{
		TotalResponses:  total,
		ResponsesByDate: byDate,
		AverageScores:   map[string]float64{},
	}
	latest, ok, err := a.source.LatestTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		stats.LatestResponse = &latest
	}

	if total > 0 {
		scores, err := a.source.AllScores(ctx)
		if err != nil {
			return nil, err
		}
		stats.AverageScores = AverageScores(scores, a.policy)
	}
	return stats, nil
}

// AverageScores computes the mean of each category over all rows. A row
// without a category counts as 0 for it, so the divisor is always len(rows).
func AverageScores(rows []map[string]float64, policy Policy) map[string]float64 {
	averages := map[string]float64{}
	if len(rows) == 0 {
		return averages
	}

	for _, category := range categories(rows, policy) {
		var sum float64
		for _, row := range rows {
			sum += row[category]
		}
		averages[category] = sum / float64(len(rows))
	}
	return averages
}

func categories(rows []map[string]float64, policy Policy) []string {
	seen := map[string]struct{}{}
	if policy == FirstRowCategories {
		for k := range rows[0] {
			seen[k] = struct{}{}
		}
	} else {
		for _, row := range rows {
			for k := range row {
				seen[k] = struct{}{}
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
