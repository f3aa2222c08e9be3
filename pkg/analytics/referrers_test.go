package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/repotrends/repotrends/pkg/storage"
)

func TestTopReferrersLatestSnapshotOnly(t *testing.T) {
	engine, store := testEngine(t, "2025-12-20T12:00:00Z")

	// Older snapshot has a referrer that has since dropped off the top
	// list; it must not leak into the result.
	writeAt(t, store, "2025-12-19T10:00:00Z", "octocat/hello", "referrers",
		json.RawMessage(`[{"referrer":"old.example.com","count":100,"uniques":50}]`))
	writeAt(t, store, "2025-12-20T10:00:00Z", "octocat/hello", "referrers",
		json.RawMessage(`[
			{"referrer":"github.com","count":40,"uniques":20},
			{"referrer":"news.ycombinator.com","count":60,"uniques":30},
			{"referrer":"google.com","count":40,"uniques":25}
		]`))

	entries, err := engine.TopReferrers("octocat/hello", 10)
	if err != nil {
		t.Fatalf("TopReferrers failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Name == "old.example.com" {
			t.Fatal("entry from an older snapshot leaked into the result")
		}
	}
	if entries[0].Name != "news.ycombinator.com" {
		t.Fatalf("expected highest count first, got %s", entries[0].Name)
	}
	// Equal counts: higher uniques first.
	if entries[1].Name != "google.com" {
		t.Fatalf("expected google.com second on uniques tiebreak, got %s", entries[1].Name)
	}
}

func TestTopReferrersLimit(t *testing.T) {
	engine, store := testEngine(t, "2025-12-20T12:00:00Z")

	writeAt(t, store, "2025-12-20T10:00:00Z", "octocat/hello", "referrers",
		json.RawMessage(`[
			{"referrer":"a.com","count":3,"uniques":1},
			{"referrer":"b.com","count":2,"uniques":1},
			{"referrer":"c.com","count":1,"uniques":1}
		]`))

	entries, err := engine.TopReferrers("octocat/hello", 2)
	if err != nil {
		t.Fatalf("TopReferrers failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected limit 2 to apply, got %d entries", len(entries))
	}
}

func TestTopPathsEmptyHistory(t *testing.T) {
	engine, _ := testEngine(t, "2025-12-20T12:00:00Z")

	entries, err := engine.TopPaths("octocat/hello", 10)
	if err != nil {
		t.Fatalf("expected no error for empty history, got %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestTopPathsTitles(t *testing.T) {
	engine, store := testEngine(t, "2025-12-20T12:00:00Z")

	writeAt(t, store, "2025-12-20T10:00:00Z", "octocat/hello", "paths",
		json.RawMessage(`[{"path":"/octocat/hello","title":"octocat/hello: a greeting","count":12,"uniques":6}]`))

	entries, err := engine.TopPaths("octocat/hello", 10)
	if err != nil {
		t.Fatalf("TopPaths failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "octocat/hello: a greeting" {
		t.Fatalf("expected title to be carried through, got %#v", entries)
	}
}

func TestGroupByDomain(t *testing.T) {
	entries := []Entry{
		{Name: "out.reddit.com", Count: 10, Uniques: 5},
		{Name: "old.reddit.com", Count: 5, Uniques: 3},
		{Name: "github.com", Count: 8, Uniques: 4},
	}

	grouped := GroupByDomain(entries)
	if len(grouped) != 2 {
		t.Fatalf("expected 2 domains, got %d: %#v", len(grouped), grouped)
	}
	if grouped[0].Name != "reddit.com" || grouped[0].Count != 15 || grouped[0].Uniques != 8 {
		t.Fatalf("subdomains not folded: %#v", grouped[0])
	}
}

func TestDeduplicateStableOnEqualTimestamps(t *testing.T) {
	ts := time.Date(2025, 12, 19, 10, 0, 0, 0, time.UTC)
	history := []storage.Snapshot{
		{FetchedAt: ts, Data: json.RawMessage(`{"clones":[{"timestamp":"2025-12-15T00:00:00Z","count":1,"uniques":1}]}`)},
		{FetchedAt: ts, Data: json.RawMessage(`{"clones":[{"timestamp":"2025-12-15T00:00:00Z","count":2,"uniques":2}]}`)},
	}

	records := Deduplicate("clones", history)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	// Ties resolve to the later entry in history order.
	if records[0].Count != 2 {
		t.Fatalf("expected later snapshot to win a timestamp tie, got %#v", records[0])
	}
}
