package storage

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// DailyEntries extracts the per-day entries from a clones or views payload.
// The API keys the array by the metric name:
//
//	{"count": 95, "uniques": 34, "clones": [{"timestamp": "...", "count": 10, "uniques": 4}, ...]}
//
// Referrer and path payloads carry no daily series, so they yield nothing.
func DailyEntries(metric string, payload json.RawMessage) []DailyRecord {
	if metric != "clones" && metric != "views" {
		return nil
	}
	arr := gjson.GetBytes(payload, metric)
	if !arr.IsArray() {
		return nil
	}

	var days []DailyRecord
	for _, item := range arr.Array() {
		ts := item.Get("timestamp").String()
		if ts == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		days = append(days, DailyRecord{
			Date:    t.UTC().Format("2006-01-02"),
			Count:   item.Get("count").Int(),
			Uniques: item.Get("uniques").Int(),
		})
	}
	return days
}
