// Package analytics derives consistent time-series statistics from the
// append-only snapshot history: overlapping rolling-window responses are
// reconciled into a single daily timeline via last-write-wins
// deduplication, then filtered and summed fresh on every query.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/repotrends/repotrends/internal/utils"
	"github.com/repotrends/repotrends/pkg/github"
	"github.com/repotrends/repotrends/pkg/storage"
)

const (
	dateLayout = "2006-01-02"

	// NoData marks period bounds when no dates survive filtering.
	NoData = "N/A"
)

// DayStat is one calendar day's resolved value.
type DayStat struct {
	Count   int64 `json:"count"`
	Uniques int64 `json:"uniques"`
}

// AggregatedStats is recomputed fresh on every query, never cached
// persistently. Totals always equal the sum of the surviving breakdown.
type AggregatedStats struct {
	Repository   string             `json:"repository"`
	Metric       string             `json:"metric"`
	PeriodStart  string             `json:"period_start"`
	PeriodEnd    string             `json:"period_end"`
	TotalCount   int64              `json:"total_count"`
	TotalUniques int64              `json:"total_uniques"`
	Daily        map[string]DayStat `json:"daily_breakdown"`
}

// Engine answers analytics queries from stored history.
type Engine struct {
	Store *storage.Store
	Index *storage.Index // optional fast path; stale or broken means rescan
	Repos []string

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// QueryMetric aggregates one (repository, metric) pair. Date bounds use
// YYYY-MM-DD; an absent or unparsable bound means unbounded on that side.
// The current UTC calendar day is always excluded: its source data is
// inherently partial. Empty history is a zero-valued result, not an error.
func (e *Engine) QueryMetric(ctx context.Context, repo, metric, start, end string) (*AggregatedStats, error) {
	if err := github.ValidateRepo(repo); err != nil {
		return nil, err
	}
	m, err := github.ParseMetric(metric)
	if err != nil {
		return nil, err
	}
	if m != github.MetricClones && m != github.MetricViews {
		return nil, fmt.Errorf("metric %q has no daily series, use clones or views", metric)
	}

	records, err := e.dailyRecords(ctx, repo, string(m))
	if err != nil {
		return nil, err
	}

	stats := &AggregatedStats{
		Repository:  repo,
		Metric:      string(m),
		PeriodStart: NoData,
		PeriodEnd:   NoData,
		Daily:       map[string]DayStat{},
	}

	startBound, hasStart := parseBound(start)
	endBound, hasEnd := parseBound(end)
	today := e.now().UTC().Format(dateLayout)

	for _, r := range records {
		if hasStart && r.Date < startBound {
			continue
		}
		if hasEnd && r.Date > endBound {
			continue
		}
		if r.Date == today {
			continue
		}
		stats.Daily[r.Date] = DayStat{Count: r.Count, Uniques: r.Uniques}
	}

	// Totals strictly from the surviving breakdown, and period bounds from
	// the actual surviving dates, not the requested ones.
	for date, day := range stats.Daily {
		stats.TotalCount += day.Count
		stats.TotalUniques += day.Uniques
		if stats.PeriodStart == NoData || date < stats.PeriodStart {
			stats.PeriodStart = date
		}
		if stats.PeriodEnd == NoData || date > stats.PeriodEnd {
			stats.PeriodEnd = date
		}
	}

	return stats, nil
}

// dailyRecords resolves the deduplicated daily timeline for a pair, using
// the index when it is fresh and falling back to a full history rescan
// (rebuilding the index afterwards) when it is not.
func (e *Engine) dailyRecords(ctx context.Context, repo, metric string) ([]storage.DailyRecord, error) {
	history, err := e.Store.ReadHistory(repo, metric)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}

	if e.Index != nil {
		records, fresh, err := e.Index.Lookup(ctx, repo, metric, len(history))
		if err != nil {
			utils.Log.Warnf("Index lookup failed for %s/%s, rescanning: %v", repo, metric, err)
		} else if fresh {
			return records, nil
		}
	}

	records := Deduplicate(metric, history)

	if e.Index != nil {
		if err := e.Index.Rebuild(ctx, repo, metric, records, len(history)); err != nil {
			utils.Log.Warnf("Index rebuild failed for %s/%s: %v", repo, metric, err)
		}
	}
	return records, nil
}

// Deduplicate resolves overlapping snapshots into one value per calendar
// date: for each date the snapshot with the greatest fetch time that
// reports it wins. history must be sorted ascending by fetch time, which
// ReadHistory guarantees.
func Deduplicate(metric string, history []storage.Snapshot) []storage.DailyRecord {
	winners := map[string]storage.DailyRecord{}
	for _, snap := range history {
		for _, d := range storage.DailyEntries(metric, snap.Data) {
			d.FetchedAt = snap.FetchedAt
			if prev, ok := winners[d.Date]; ok && snap.FetchedAt.Before(prev.FetchedAt) {
				continue
			}
			winners[d.Date] = d
		}
	}

	records := make([]storage.DailyRecord, 0, len(winners))
	for _, r := range winners {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	return records
}

// QueryAllRepos aggregates one metric across every configured repository.
// Partial-failure-tolerant: failed repositories are excluded from the
// result map and reported in the error map, and the call still returns
// whatever succeeded.
func (e *Engine) QueryAllRepos(ctx context.Context, metric, start, end string) (map[string]*AggregatedStats, map[string]string) {
	results := map[string]*AggregatedStats{}
	failures := map[string]string{}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, repo := range e.Repos {
		repo := repo
		g.Go(func() error {
			stats, err := e.QueryMetric(ctx, repo, metric, start, end)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[repo] = err.Error()
				return nil
			}
			results[repo] = stats
			return nil
		})
	}
	_ = g.Wait()

	return results, failures
}

// parseBound returns the normalized bound and whether it should be
// applied. Absent or unparsable bounds mean "unbounded" on that side —
// uniformly, at every call site.
func parseBound(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		utils.Log.Debugf("Ignoring unparsable date bound %q", s)
		return "", false
	}
	return t.Format(dateLayout), true
}
