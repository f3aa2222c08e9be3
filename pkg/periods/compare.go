package periods

import (
	"context"
	"time"

	"github.com/repotrends/repotrends/pkg/analytics"
)

// Totals summarizes one period. Averages are per day-with-data, not per
// calendar day, so unequal-length periods compare fairly.
type Totals struct {
	Count      int64   `json:"count"`
	Uniques    int64   `json:"uniques"`
	Days       int     `json:"days"`
	AvgCount   float64 `json:"avg_count_per_day"`
	AvgUniques float64 `json:"avg_uniques_per_day"`
}

// Change is a percentage delta. Infinite marks the old-zero/new-nonzero
// case explicitly instead of overflowing.
type Change struct {
	Pct      float64 `json:"pct"`
	Infinite bool    `json:"infinite,omitempty"`
}

// Comparison is the outcome of comparing two named periods.
type Comparison struct {
	Repository    string `json:"repository"`
	Metric        string `json:"metric"`
	Period1       string `json:"period1"`
	Period2       string `json:"period2"`
	Totals1       Totals `json:"totals1"`
	Totals2       Totals `json:"totals2"`
	CountChange   Change `json:"count_change"`
	UniquesChange Change `json:"uniques_change"`
}

// Compare loads one unfiltered aggregation and filters its breakdown once
// per period. Period identifiers follow Parse.
func Compare(ctx context.Context, engine *analytics.Engine, repo, metric, period1, period2 string) (*Comparison, error) {
	start1, end1, err := Parse(period1)
	if err != nil {
		return nil, err
	}
	start2, end2, err := Parse(period2)
	if err != nil {
		return nil, err
	}

	stats, err := engine.QueryMetric(ctx, repo, metric, "", "")
	if err != nil {
		return nil, err
	}

	t1 := totalsFor(stats.Daily, start1, end1)
	t2 := totalsFor(stats.Daily, start2, end2)

	return &Comparison{
		Repository:    repo,
		Metric:        metric,
		Period1:       period1,
		Period2:       period2,
		Totals1:       t1,
		Totals2:       t2,
		CountChange:   PercentChange(t1.Count, t2.Count),
		UniquesChange: PercentChange(t1.Uniques, t2.Uniques),
	}, nil
}

func totalsFor(daily map[string]analytics.DayStat, start, end time.Time) Totals {
	var t Totals
	for date, day := range daily {
		if !Contains(start, end, date) {
			continue
		}
		t.Count += day.Count
		t.Uniques += day.Uniques
		t.Days++
	}
	if t.Days > 0 {
		t.AvgCount = float64(t.Count) / float64(t.Days)
		t.AvgUniques = float64(t.Uniques) / float64(t.Days)
	}
	return t
}

// PercentChange follows the diff edge-case rules: both totals zero is 0%,
// old zero with new nonzero is an explicit infinite increase, otherwise
// (new-old)/old*100.
func PercentChange(old, new int64) Change {
	if old == 0 && new == 0 {
		return Change{}
	}
	if old == 0 {
		return Change{Infinite: true}
	}
	return Change{Pct: float64(new-old) / float64(old) * 100}
}
