package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const markerFileName = "last_fetch.json"

type fetchMarker struct {
	Timestamp int64 `json:"timestamp"`
}

// ReadLastFetch returns when the last completed fetch run finished. A
// missing marker yields the zero time, not an error.
func (s *Store) ReadLastFetch() (time.Time, error) {
	data, err := os.ReadFile(filepath.Join(s.root, markerFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	var m fetchMarker
	if err := json.Unmarshal(data, &m); err != nil {
		return time.Time{}, fmt.Errorf("malformed last-fetch marker: %w", err)
	}
	return time.Unix(m.Timestamp, 0).UTC(), nil
}

// WriteLastFetch overwrites the marker. The marker throttles call volume,
// not completeness, so it is written even after partially failed runs.
func (s *Store) WriteLastFetch(t time.Time) error {
	data, err := json.Marshal(fetchMarker{Timestamp: t.Unix()})
	if err != nil {
		return err
	}

	if err := s.lock.Lock(); err != nil {
		return err
	}
	defer s.lock.Unlock()

	tmp, err := os.CreateTemp(s.root, ".tmp-marker-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filepath.Join(s.root, markerFileName))
}
