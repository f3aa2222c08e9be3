package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".repotrends.lock"

// DataLock manages a file-based lock for the snapshot data directory.
// Two processes (say, a manual forced fetch and a scheduled one) may try to
// write snapshots at the same time; the lock serializes them.
type DataLock struct {
	lock *flock.Flock
	path string
}

// NewDataLock creates a new lock for the given data directory.
func NewDataLock(dataDir string) (*DataLock, error) {
	absDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve data dir: %w", err)
	}
	lockPath := filepath.Join(absDir, lockFileName)
	return &DataLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the data directory lock, waiting if necessary.
// It will print a message if it has to wait.
func (l *DataLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		fmt.Fprintf(os.Stderr, "Another repotrends process is writing to the data directory, waiting for it to finish...\n")
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases the data directory lock.
func (l *DataLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// DefaultDataDir resolves the snapshot data directory.
func DefaultDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "repotrends"), nil
	}
	return filepath.Abs(dataDir)
}
