// Package fetcher coordinates concurrent traffic collection across all
// configured repositories and all four metrics. Failures are isolated per
// metric: one repository's 404 never blocks the other metrics or
// repositories from succeeding and being stored.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/repotrends/repotrends/internal/utils"
	"github.com/repotrends/repotrends/pkg/github"
	"github.com/repotrends/repotrends/pkg/storage"
)

// Summary is the aggregate outcome of one FetchAll run. Success keys and
// error keys are "owner/name/metric". "Success" means fetched AND stored.
type Summary struct {
	Success   []string          `json:"success"`
	Errors    map[string]string `json:"errors"`
	Timestamp time.Time         `json:"timestamp"`
	Skipped   bool              `json:"skipped,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

// Fetcher drives the API client and the storage layer. It does not touch
// the analytics engine.
type Fetcher struct {
	Client   *github.Client
	Store    *storage.Store
	Index    *storage.Index // optional; index failures only cost speed
	Repos    []string
	Interval time.Duration

	// OnRepoDone, if set, is called once per repository as it completes
	// (from worker goroutines), with that repo's error map.
	OnRepoDone func(repo string, errs map[string]string)

	mu   sync.Mutex
	last *Summary
}

// FetchAll collects every metric for every configured repository. Unless
// force is set, it is a no-op when the configured interval has not elapsed
// since the last run — informational, not an error. The last-fetch marker
// is written unconditionally on completion: it throttles call volume, not
// completeness.
func (f *Fetcher) FetchAll(ctx context.Context, force bool) (*Summary, error) {
	if len(f.Repos) == 0 {
		return nil, errors.New("no repositories configured, add some under 'repos' in the config file")
	}
	for _, repo := range f.Repos {
		if err := github.ValidateRepo(repo); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if !force && f.Interval > 0 {
		last, err := f.Store.ReadLastFetch()
		if err != nil {
			utils.Log.Warnf("Could not read last-fetch marker: %v", err)
		} else if !last.IsZero() && now.Sub(last) < f.Interval {
			summary := &Summary{
				Errors:    map[string]string{},
				Timestamp: now,
				Skipped:   true,
				Reason:    fmt.Sprintf("last fetch was %s ago, interval is %s", now.Sub(last).Round(time.Second), f.Interval),
			}
			f.remember(summary)
			return summary, nil
		}
	}

	summary := &Summary{Errors: map[string]string{}, Timestamp: now}

	// All repositories run simultaneously; the remote service's own rate
	// limiting is the bound. Fine for the modest repo counts a maintainer
	// configures; a bounded worker pool would be the next step beyond that.
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, repo := range f.Repos {
		wg.Add(1)
		go func(repo string) {
			defer wg.Done()
			success, errs := f.fetchRepo(ctx, repo)

			mu.Lock()
			summary.Success = append(summary.Success, success...)
			for k, v := range errs {
				summary.Errors[k] = v
			}
			mu.Unlock()

			if f.OnRepoDone != nil {
				f.OnRepoDone(repo, errs)
			}
		}(repo)
	}
	wg.Wait()

	sort.Strings(summary.Success)

	if err := f.Store.WriteLastFetch(time.Now().UTC()); err != nil {
		utils.Log.Warnf("Could not write last-fetch marker: %v", err)
	}

	f.remember(summary)
	return summary, nil
}

// fetchRepo launches the four metric fetches concurrently and joins them.
func (f *Fetcher) fetchRepo(ctx context.Context, repo string) (success []string, errs map[string]string) {
	errs = map[string]string{}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, metric := range github.AllMetrics() {
		wg.Add(1)
		go func(metric github.Metric) {
			defer wg.Done()
			key := repo + "/" + string(metric)

			payload, err := f.Client.Fetch(ctx, repo, metric)
			if err != nil {
				mu.Lock()
				errs[key] = err.Error()
				mu.Unlock()
				return
			}

			snap, err := f.Store.Write(repo, string(metric), payload)
			if err != nil {
				// Fetched but not stored still counts as a failed metric.
				mu.Lock()
				errs[key] = fmt.Sprintf("fetched but not stored: %v", err)
				mu.Unlock()
				return
			}

			f.updateIndex(ctx, repo, metric, snap)

			mu.Lock()
			success = append(success, key)
			mu.Unlock()
		}(metric)
	}
	wg.Wait()
	return success, errs
}

func (f *Fetcher) updateIndex(ctx context.Context, repo string, metric github.Metric, snap *storage.Snapshot) {
	if f.Index == nil {
		return
	}
	days := storage.DailyEntries(string(metric), snap.Data)
	if days == nil {
		return
	}
	n, err := f.Store.CountSnapshots(repo, string(metric))
	if err != nil {
		utils.Log.Warnf("Could not count snapshots for %s/%s: %v", repo, metric, err)
		return
	}
	if err := f.Index.UpsertSnapshot(ctx, repo, string(metric), snap.FetchedAt, days, n); err != nil {
		utils.Log.Warnf("Could not refresh index for %s/%s: %v", repo, metric, err)
	}
}

func (f *Fetcher) remember(s *Summary) {
	f.mu.Lock()
	f.last = s
	f.mu.Unlock()
}

// LastSummary returns the most recent run's summary, or nil before the
// first run. Detailed per-key messages stay available here for later
// inspection instead of being discarded.
func (f *Fetcher) LastSummary() *Summary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
