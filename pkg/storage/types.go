package storage

import (
	"encoding/json"
	"time"
)

// Snapshot is one immutable fetch result for a (repository, metric) pair.
// Written once, never mutated; many snapshots accumulate per pair over time,
// each covering a rolling window that overlaps with prior ones.
type Snapshot struct {
	FetchedAt time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Filename derives the on-disk name from the fetch timestamp.
func (s *Snapshot) Filename() string {
	return s.FetchedAt.UTC().Format("20060102T150405Z") + ".json"
}

// DailyRecord is one deduplicated calendar day, tagged with the fetch time
// of the snapshot that won it.
type DailyRecord struct {
	Date      string
	Count     int64
	Uniques   int64
	FetchedAt time.Time
}

// PairStats summarizes how much history one (repository, metric) pair has.
type PairStats struct {
	Repository    string
	Metric        string
	SnapshotCount int
}
