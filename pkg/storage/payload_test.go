package storage

import (
	"encoding/json"
	"testing"
)

func TestDailyEntriesClones(t *testing.T) {
	payload := json.RawMessage(`{
		"count": 22, "uniques": 9,
		"clones": [
			{"timestamp": "2025-12-14T00:00:00Z", "count": 10, "uniques": 4},
			{"timestamp": "2025-12-15T00:00:00Z", "count": 12, "uniques": 5}
		]
	}`)

	days := DailyEntries("clones", payload)
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Date != "2025-12-14" || days[0].Count != 10 || days[0].Uniques != 4 {
		t.Fatalf("unexpected first day: %#v", days[0])
	}
}

func TestDailyEntriesSkipsBadTimestamps(t *testing.T) {
	payload := json.RawMessage(`{
		"views": [
			{"timestamp": "not-a-date", "count": 1, "uniques": 1},
			{"timestamp": "2025-12-15T00:00:00Z", "count": 3, "uniques": 2}
		]
	}`)

	days := DailyEntries("views", payload)
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
	if days[0].Date != "2025-12-15" {
		t.Fatalf("unexpected date: %s", days[0].Date)
	}
}

func TestDailyEntriesNonTimeSeriesMetrics(t *testing.T) {
	payload := json.RawMessage(`[{"referrer": "github.com", "count": 10, "uniques": 3}]`)

	if days := DailyEntries("referrers", payload); days != nil {
		t.Fatalf("expected nil for referrers payload, got %#v", days)
	}
	if days := DailyEntries("paths", payload); days != nil {
		t.Fatalf("expected nil for paths payload, got %#v", days)
	}
}
