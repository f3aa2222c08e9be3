package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/repotrends/repotrends/internal/utils"
)

// Store persists snapshots as an append-only history: one directory per
// (repository, metric), one JSON file per fetch. Files are written to a
// temporary path and renamed into place, so a reader never observes a
// partially written snapshot.
type Store struct {
	root string
	lock *utils.DataLock

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewStore opens (creating if needed) a snapshot store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty data directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create data dir: %w", err)
	}
	lock, err := utils.NewDataLock(dir)
	if err != nil {
		return nil, err
	}
	return &Store{root: dir, lock: lock}, nil
}

func (s *Store) Root() string { return s.root }

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) pairDir(repo, metric string) string {
	return filepath.Join(s.root, filepath.FromSlash(repo), metric)
}

// Write persists one fetch result atomically and returns the stored snapshot.
// Missing directories are created on demand.
func (s *Store) Write(repo, metric string, payload json.RawMessage) (*Snapshot, error) {
	snap := &Snapshot{
		FetchedAt: s.now().UTC().Truncate(time.Second),
		Data:      payload,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("could not serialize snapshot: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return nil, err
	}
	defer s.lock.Unlock()

	dir := s.pairDir(repo, metric)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("could not create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("could not write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("could not close temp file: %w", err)
	}

	final := filepath.Join(dir, snap.Filename())
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("could not move snapshot into place: %w", err)
	}
	return snap, nil
}

// ReadHistory returns all snapshots for a pair, sorted ascending by fetch
// time. A missing directory is a valid empty history. Files that fail to
// parse are skipped with a warning so one corrupt file cannot take out the
// whole history.
func (s *Store) ReadHistory(repo, metric string) ([]Snapshot, error) {
	dir := s.pairDir(repo, metric)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read snapshot dir: %w", err)
	}

	var history []Snapshot
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			utils.Log.Warnf("Skipping unreadable snapshot %s: %v", name, err)
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil || snap.FetchedAt.IsZero() {
			utils.Log.Warnf("Skipping malformed snapshot %s", name)
			continue
		}
		history = append(history, snap)
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].FetchedAt.Before(history[j].FetchedAt)
	})
	return history, nil
}

// Latest returns the most recent snapshot for a pair, or nil when the
// history is empty.
func (s *Store) Latest(repo, metric string) (*Snapshot, error) {
	history, err := s.ReadHistory(repo, metric)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	return &history[len(history)-1], nil
}

// CountSnapshots returns how many snapshot files exist for a pair.
func (s *Store) CountSnapshots(repo, metric string) (int, error) {
	dir := s.pairDir(repo, metric)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && !strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".json") {
			n++
		}
	}
	return n, nil
}

// Stats walks the data directory and reports snapshot counts per pair.
func (s *Store) Stats() ([]PairStats, error) {
	var stats []PairStats
	owners, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}
		names, err := os.ReadDir(filepath.Join(s.root, owner.Name()))
		if err != nil {
			continue
		}
		for _, name := range names {
			if !name.IsDir() {
				continue
			}
			repo := owner.Name() + "/" + name.Name()
			metrics, err := os.ReadDir(filepath.Join(s.root, owner.Name(), name.Name()))
			if err != nil {
				continue
			}
			for _, metric := range metrics {
				if !metric.IsDir() {
					continue
				}
				n, err := s.CountSnapshots(repo, metric.Name())
				if err != nil {
					continue
				}
				stats = append(stats, PairStats{Repository: repo, Metric: metric.Name(), SnapshotCount: n})
			}
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Repository != stats[j].Repository {
			return stats[i].Repository < stats[j].Repository
		}
		return stats[i].Metric < stats[j].Metric
	})
	return stats, nil
}
