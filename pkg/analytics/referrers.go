package analytics

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/repotrends/repotrends/pkg/github"
)

const defaultTopLimit = 10

// Entry is one referrer or popular path. These endpoints expose only a
// current rolling top list, so entries come from the single most recent
// snapshot — merging them across time would be semantically invalid.
type Entry struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Count   int64  `json:"count"`
	Uniques int64  `json:"uniques"`
}

// TopReferrers returns the latest snapshot's referrers, sorted descending
// by count and truncated to limit.
func (e *Engine) TopReferrers(repo string, limit int) ([]Entry, error) {
	return e.topEntries(repo, github.MetricReferrers, "referrer", limit)
}

// TopPaths returns the latest snapshot's popular paths, sorted descending
// by count and truncated to limit.
func (e *Engine) TopPaths(repo string, limit int) ([]Entry, error) {
	return e.topEntries(repo, github.MetricPaths, "path", limit)
}

func (e *Engine) topEntries(repo string, metric github.Metric, nameField string, limit int) ([]Entry, error) {
	if err := github.ValidateRepo(repo); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTopLimit
	}

	snap, err := e.Store.Latest(repo, string(metric))
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	var entries []Entry
	for _, item := range gjson.ParseBytes(snap.Data).Array() {
		name := item.Get(nameField).String()
		if name == "" {
			continue
		}
		entries = append(entries, Entry{
			Name:    name,
			Title:   item.Get("title").String(),
			Count:   item.Get("count").Int(),
			Uniques: item.Get("uniques").Int(),
		})
	}

	sortEntries(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// GroupByDomain collapses referrer hostnames to their registered domain
// (so "out.reddit.com" and "old.reddit.com" fold into "reddit.com"),
// summing counts. Names that are not parseable hostnames are kept as-is.
func GroupByDomain(entries []Entry) []Entry {
	grouped := map[string]Entry{}
	for _, entry := range entries {
		name := entry.Name
		if dom, err := publicsuffix.Domain(strings.ToLower(name)); err == nil && dom != "" {
			name = dom
		}
		agg := grouped[name]
		agg.Name = name
		agg.Count += entry.Count
		agg.Uniques += entry.Uniques
		grouped[name] = agg
	}

	out := make([]Entry, 0, len(grouped))
	for _, entry := range grouped {
		out = append(out, entry)
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		if entries[i].Uniques != entries[j].Uniques {
			return entries[i].Uniques > entries[j].Uniques
		}
		return entries[i].Name < entries[j].Name
	})
}
