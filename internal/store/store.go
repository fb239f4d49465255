// Package store handles persistence of best times and session history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/schneider/internal/course"
	"github.com/verte-zerg/schneider/internal/model"
	"github.com/verte-zerg/schneider/internal/records"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for records and session history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS best_times (
			variant INTEGER NOT NULL,
			kind TEXT NOT NULL,
			duration_ns INTEGER NOT NULL,
			PRIMARY KEY (variant, kind)
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			variant INTEGER NOT NULL,
			practice INTEGER NOT NULL,
			race_laps INTEGER NOT NULL,
			laps INTEGER NOT NULL,
			race_time_ns INTEGER NOT NULL,
			finished INTEGER NOT NULL,
			engine_failed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_laps (
			session_id INTEGER NOT NULL,
			lap INTEGER NOT NULL,
			lap_time_ns INTEGER NOT NULL,
			record INTEGER NOT NULL,
			PRIMARY KEY (session_id, lap)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_variant ON sessions(variant);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the stored best times. Rows for unknown courses or kinds are
// skipped.
func (s *Store) Load(ctx context.Context) (records.BestTimes, error) {
	var times records.BestTimes
	rows, err := s.db.QueryContext(ctx, `SELECT variant, kind, duration_ns FROM best_times`)
	if err != nil {
		return times, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		var variant int
		var kind string
		var ns int64
		if err := rows.Scan(&variant, &kind, &ns); err != nil {
			return records.BestTimes{}, err
		}
		k, ok := parseKind(kind)
		if !ok {
			continue
		}
		times.Set(course.Variant(variant), k, time.Duration(ns))
	}
	if err := rows.Err(); err != nil {
		return records.BestTimes{}, err
	}
	return times, nil
}

// Save replaces the stored best times with times.
func (s *Store) Save(ctx context.Context, times records.BestTimes) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM best_times`); err != nil {
		return err
	}
	for _, v := range course.Variants {
		for _, k := range records.Kinds {
			d, ok := times.Get(v, k)
			if !ok {
				continue
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO best_times (variant, kind, duration_ns) VALUES (?, ?, ?)`,
				int(v), k.String(), int64(d),
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// InsertSession stores a finished session and its laps.
func (s *Store) InsertSession(ctx context.Context, stats model.SessionStats) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (uuid, started_at, ended_at, variant, practice, race_laps, laps, race_time_ns, finished, engine_failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.ID,
		stats.StartedAt.UTC().Format(time.RFC3339Nano),
		stats.EndedAt.UTC().Format(time.RFC3339Nano),
		int(stats.Variant),
		stats.Practice,
		stats.RaceLaps,
		len(stats.Laps),
		int64(stats.RaceTime),
		stats.Finished,
		stats.EngineFailed,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(stats.Laps) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO session_laps (session_id, lap, lap_time_ns, record) VALUES (?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, lap := range stats.Laps {
			if _, err = stmt.ExecContext(ctx, id, lap.Lap, int64(lap.LapTime), lap.Record); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSessions returns stored sessions matching filter, oldest first. When
// filter.Last is positive only the most recent sessions are returned.
func (s *Store) ListSessions(ctx context.Context, filter model.HistoryFilter) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Variant != 0 {
		clauses = append(clauses, "variant = ?")
		args = append(args, int(filter.Variant))
	}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	limit := -1
	if filter.Last > 0 {
		limit = filter.Last
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT id, uuid, ended_at, variant, practice, laps, race_time_ns, finished, engine_failed
		FROM (
			SELECT * FROM sessions
			WHERE %s
			ORDER BY ended_at DESC, id DESC
			LIMIT ?
		)
		ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		var variant int
		var raceNs int64
		if err := rows.Scan(&agg.SessionID, &agg.UUID, &endedAt, &variant, &agg.Practice, &agg.Laps, &raceNs, &agg.Finished, &agg.EngineFailed); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		agg.Variant = course.Variant(variant)
		agg.RaceTime = time.Duration(raceNs)
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListLaps returns the laps of the given sessions ordered by session and lap.
func (s *Store) ListLaps(ctx context.Context, sessionIDs []int64) ([]model.StoredLap, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT session_id, lap, lap_time_ns, record
		FROM session_laps
		WHERE session_id IN (%s)
		ORDER BY session_id, lap`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var laps []model.StoredLap
	for rows.Next() {
		var lap model.StoredLap
		var ns int64
		if err := rows.Scan(&lap.SessionID, &lap.Lap, &ns, &lap.Record); err != nil {
			return nil, err
		}
		lap.LapTime = time.Duration(ns)
		laps = append(laps, lap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return laps, nil
}

func parseKind(s string) (records.Kind, bool) {
	for _, k := range records.Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}
