package storage

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Index is a derived, rebuildable daily-record cache: date → winning value
// per (repository, metric), refreshed on write. It only ever speeds up
// queries; when it is stale or broken the caller falls back to a full
// history rescan and rebuilds it. The snapshot files stay the source of
// truth.
type Index struct {
	sql *sql.DB
}

func OpenIndex(path string) (*Index, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS daily_records (
  repo       TEXT NOT NULL,
  metric     TEXT NOT NULL,
  date       TEXT NOT NULL,
  count      INTEGER NOT NULL,
  uniques    INTEGER NOT NULL,
  fetched_at TEXT NOT NULL,
  PRIMARY KEY (repo, metric, date)
);
CREATE TABLE IF NOT EXISTS index_meta (
  repo           TEXT NOT NULL,
  metric         TEXT NOT NULL,
  snapshot_count INTEGER NOT NULL,
  PRIMARY KEY (repo, metric)
);
    `); err != nil {
		return nil, err
	}
	return &Index{sql: db}, nil
}

func (ix *Index) Close() error {
	if ix == nil || ix.sql == nil {
		return nil
	}
	return ix.sql.Close()
}

// UpsertSnapshot folds one freshly stored snapshot into the index.
// Last-write-wins per date: an existing row is only replaced when the new
// snapshot was fetched at or after the one that wrote it. snapshotCount is
// the history length after the write, used for staleness detection.
func (ix *Index) UpsertSnapshot(ctx context.Context, repo, metric string, fetchedAt time.Time, days []DailyRecord, snapshotCount int) (err error) {
	tx, err := ix.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ts := fetchedAt.UTC().Format(time.RFC3339)
	for _, d := range days {
		_, err = tx.ExecContext(ctx, `
INSERT INTO daily_records (repo, metric, date, count, uniques, fetched_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (repo, metric, date) DO UPDATE SET
  count = excluded.count, uniques = excluded.uniques, fetched_at = excluded.fetched_at
  WHERE excluded.fetched_at >= daily_records.fetched_at`,
			repo, metric, d.Date, d.Count, d.Uniques, ts)
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO index_meta (repo, metric, snapshot_count) VALUES (?, ?, ?)
ON CONFLICT (repo, metric) DO UPDATE SET snapshot_count = excluded.snapshot_count`,
		repo, metric, snapshotCount)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Lookup returns the indexed daily records for a pair, plus whether the
// index is fresh for the given history length. A stale or absent index is
// not an error; the caller rescans.
func (ix *Index) Lookup(ctx context.Context, repo, metric string, snapshotCount int) ([]DailyRecord, bool, error) {
	var counted int
	err := ix.sql.QueryRowContext(ctx,
		`SELECT snapshot_count FROM index_meta WHERE repo = ? AND metric = ?`,
		repo, metric).Scan(&counted)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if counted != snapshotCount {
		return nil, false, nil
	}

	rows, err := ix.sql.QueryContext(ctx,
		`SELECT date, count, uniques, fetched_at FROM daily_records WHERE repo = ? AND metric = ? ORDER BY date`,
		repo, metric)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var records []DailyRecord
	for rows.Next() {
		var r DailyRecord
		var ts string
		if err := rows.Scan(&r.Date, &r.Count, &r.Uniques, &ts); err != nil {
			return nil, false, err
		}
		if t, perr := time.Parse(time.RFC3339, ts); perr == nil {
			r.FetchedAt = t
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return records, true, nil
}

// Rebuild replaces a pair's index with the result of a full rescan.
func (ix *Index) Rebuild(ctx context.Context, repo, metric string, days []DailyRecord, snapshotCount int) (err error) {
	tx, err := ix.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `DELETE FROM daily_records WHERE repo = ? AND metric = ?`, repo, metric)
	if err != nil {
		return err
	}
	for _, d := range days {
		_, err = tx.ExecContext(ctx, `
INSERT INTO daily_records (repo, metric, date, count, uniques, fetched_at)
VALUES (?, ?, ?, ?, ?, ?)`,
			repo, metric, d.Date, d.Count, d.Uniques, d.FetchedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO index_meta (repo, metric, snapshot_count) VALUES (?, ?, ?)
ON CONFLICT (repo, metric) DO UPDATE SET snapshot_count = excluded.snapshot_count`,
		repo, metric, snapshotCount)
	if err != nil {
		return err
	}
	return tx.Commit()
}
