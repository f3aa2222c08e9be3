package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/repotrends/repotrends/pkg/github"
	"github.com/repotrends/repotrends/pkg/storage"
)

// trafficHandler serves the four traffic endpoints for any repository,
// with optional per-path status overrides.
func trafficHandler(overrides map[string]int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, ok := overrides[r.URL.Path]; ok {
			w.WriteHeader(status)
			w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/traffic/clones"):
			w.Write([]byte(`{"count":10,"uniques":4,"clones":[{"timestamp":"2025-12-15T00:00:00Z","count":10,"uniques":4}]}`))
		case strings.HasSuffix(r.URL.Path, "/traffic/views"):
			w.Write([]byte(`{"count":20,"uniques":8,"views":[{"timestamp":"2025-12-15T00:00:00Z","count":20,"uniques":8}]}`))
		case strings.HasSuffix(r.URL.Path, "/traffic/popular/referrers"):
			w.Write([]byte(`[{"referrer":"github.com","count":5,"uniques":3}]`))
		case strings.HasSuffix(r.URL.Path, "/traffic/popular/paths"):
			w.Write([]byte(`[{"path":"/octocat/hello","title":"hello","count":7,"uniques":2}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))
		}
	})
}

func testFetcher(t *testing.T, handler http.Handler, repos ...string) (*Fetcher, *storage.Store, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	client := github.NewClient("test-token")
	client.BaseURL = srv.URL

	return &Fetcher{Client: client, Store: store, Repos: repos}, store, srv
}

func TestFetchAllStoresEveryMetric(t *testing.T) {
	f, store, _ := testFetcher(t, trafficHandler(nil), "octocat/hello", "octocat/world")

	summary, err := f.FetchAll(context.Background(), false)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if summary.Skipped {
		t.Fatal("first run must not be gated")
	}
	if len(summary.Success) != 8 {
		t.Fatalf("expected 8 successes (2 repos x 4 metrics), got %d: %#v", len(summary.Success), summary.Success)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("expected no errors, got %#v", summary.Errors)
	}

	for _, repo := range []string{"octocat/hello", "octocat/world"} {
		for _, metric := range []string{"clones", "views", "referrers", "paths"} {
			history, err := store.ReadHistory(repo, metric)
			if err != nil || len(history) != 1 {
				t.Fatalf("expected 1 stored snapshot for %s/%s, got %d (%v)", repo, metric, len(history), err)
			}
		}
	}

	last, err := store.ReadLastFetch()
	if err != nil || last.IsZero() {
		t.Fatalf("marker not written: %v (%v)", last, err)
	}
}

func TestFetchAllIsolatesMetricFailures(t *testing.T) {
	overrides := map[string]int{
		"/repos/octocat/hello/traffic/clones": http.StatusNotFound,
	}
	f, store, _ := testFetcher(t, trafficHandler(overrides), "octocat/hello")

	summary, err := f.FetchAll(context.Background(), false)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	if len(summary.Success) != 3 {
		t.Fatalf("one 404 must not block the other three metrics, got %#v", summary)
	}
	msg, ok := summary.Errors["octocat/hello/clones"]
	if !ok {
		t.Fatalf("expected an error entry for the failed metric, got %#v", summary.Errors)
	}
	if !strings.Contains(msg, "Not Found") {
		t.Fatalf("error detail lost: %q", msg)
	}

	if history, _ := store.ReadHistory("octocat/hello", "clones"); len(history) != 0 {
		t.Fatal("failed metric must not be stored")
	}
	if history, _ := store.ReadHistory("octocat/hello", "views"); len(history) != 1 {
		t.Fatal("sibling metric must still be stored")
	}

	// The marker throttles call volume, not completeness: written even
	// though a metric failed.
	if last, _ := store.ReadLastFetch(); last.IsZero() {
		t.Fatal("marker must be written after a partially failed run")
	}
}

func TestFetchAllIntervalGate(t *testing.T) {
	f, store, _ := testFetcher(t, trafficHandler(nil), "octocat/hello")
	f.Interval = time.Hour

	if err := store.WriteLastFetch(time.Now().UTC().Add(-time.Minute)); err != nil {
		t.Fatalf("could not seed marker: %v", err)
	}

	summary, err := f.FetchAll(context.Background(), false)
	if err != nil {
		t.Fatalf("gated run must not be an error: %v", err)
	}
	if !summary.Skipped || summary.Reason == "" {
		t.Fatalf("expected informational skip, got %#v", summary)
	}
	if history, _ := store.ReadHistory("octocat/hello", "clones"); len(history) != 0 {
		t.Fatal("gated run must not fetch")
	}

	// force bypasses the gate.
	forced, err := f.FetchAll(context.Background(), true)
	if err != nil {
		t.Fatalf("forced run failed: %v", err)
	}
	if forced.Skipped || len(forced.Success) != 4 {
		t.Fatalf("forced run must fetch, got %#v", forced)
	}
}

func TestFetchAllElapsedIntervalFetches(t *testing.T) {
	f, store, _ := testFetcher(t, trafficHandler(nil), "octocat/hello")
	f.Interval = time.Hour

	if err := store.WriteLastFetch(time.Now().UTC().Add(-2 * time.Hour)); err != nil {
		t.Fatalf("could not seed marker: %v", err)
	}

	summary, err := f.FetchAll(context.Background(), false)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if summary.Skipped {
		t.Fatal("elapsed interval must not gate the run")
	}
}

func TestFetchAllRequiresRepos(t *testing.T) {
	f, _, _ := testFetcher(t, trafficHandler(nil))

	if _, err := f.FetchAll(context.Background(), false); err == nil {
		t.Fatal("expected error with no repositories configured")
	}
}

func TestLastSummaryRetained(t *testing.T) {
	f, _, _ := testFetcher(t, trafficHandler(nil), "octocat/hello")

	if f.LastSummary() != nil {
		t.Fatal("expected nil summary before the first run")
	}

	summary, err := f.FetchAll(context.Background(), false)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if f.LastSummary() != summary {
		t.Fatal("last summary not retained on the fetcher instance")
	}
}

func TestOnRepoDoneCallback(t *testing.T) {
	f, _, _ := testFetcher(t, trafficHandler(nil), "octocat/hello", "octocat/world")

	seen := make(chan string, 2)
	f.OnRepoDone = func(repo string, errs map[string]string) {
		seen <- repo
	}

	if _, err := f.FetchAll(context.Background(), false); err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	close(seen)

	repos := map[string]bool{}
	for repo := range seen {
		repos[repo] = true
	}
	if !repos["octocat/hello"] || !repos["octocat/world"] {
		t.Fatalf("callback missed a repository: %#v", repos)
	}
}

func TestFetchAllUpdatesIndex(t *testing.T) {
	f, store, _ := testFetcher(t, trafficHandler(nil), "octocat/hello")

	ix, err := storage.OpenIndex(store.Root() + "/index.sqlite")
	if err != nil {
		t.Fatalf("OpenIndex failed: %v", err)
	}
	defer ix.Close()
	f.Index = ix

	if _, err := f.FetchAll(context.Background(), false); err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	records, fresh, err := ix.Lookup(context.Background(), "octocat/hello", "clones", 1)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !fresh {
		t.Fatal("index not refreshed on write")
	}
	if len(records) != 1 || records[0].Date != "2025-12-15" || records[0].Count != 10 {
		t.Fatalf("unexpected indexed records: %#v", records)
	}
}
