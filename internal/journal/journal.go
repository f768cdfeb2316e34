// Package journal records command/response exchanges in a local sqlite file.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded exchange.
type Entry struct {
	ID        string
	Action    string
	Params    map[string]any
	Success   bool
	Error     string
	Failure   string
	Response  map[string]any
	StartedAt time.Time
	Latency   time.Duration
}

// Journal is an append-only log of exchanges.
type Journal struct {
	db   *sql.DB
	path string
}

// Open creates (or reuses) the journal database at path.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %q: %w", path, err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, path: path}
	if err := j.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Path() string { return j.path }

func (j *Journal) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS exchanges (
		id          TEXT PRIMARY KEY,
		action      TEXT NOT NULL,
		params      TEXT NOT NULL,
		success     INTEGER NOT NULL,
		error       TEXT NOT NULL DEFAULT '',
		failure     TEXT NOT NULL DEFAULT '',
		response    TEXT NOT NULL DEFAULT '{}',
		started_at  INTEGER NOT NULL,
		latency_us  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS exchanges_started_at ON exchanges (started_at);
	`
	if _, err := j.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create exchanges table: %w", err)
	}
	return nil
}

// Record stores entry. Params and Response are stored as JSON text.
func (j *Journal) Record(ctx context.Context, entry Entry) error {
	params, err := marshalObject(entry.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	response, err := marshalObject(entry.Response)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	query := `INSERT INTO exchanges (id, action, params, success, error, failure, response, started_at, latency_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = j.db.ExecContext(ctx, query,
		entry.ID,
		entry.Action,
		params,
		boolToInt(entry.Success),
		entry.Error,
		entry.Failure,
		response,
		entry.StartedAt.UnixMicro(),
		entry.Latency.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record exchange %s: %w", entry.ID, err)
	}
	return nil
}

// Recent returns up to limit exchanges, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, action, params, success, error, failure, response, started_at, latency_us
		FROM exchanges ORDER BY started_at DESC, rowid DESC LIMIT ?`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                  Entry
			params, response   string
			success            int
			startedAt, latency int64
		)
		if err := rows.Scan(&e.ID, &e.Action, &params, &success, &e.Error, &e.Failure, &response, &startedAt, &latency); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &e.Params); err != nil {
			return nil, fmt.Errorf("decode params for %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(response), &e.Response); err != nil {
			return nil, fmt.Errorf("decode response for %s: %w", e.ID, err)
		}
		e.Success = success != 0
		e.StartedAt = time.UnixMicro(startedAt)
		e.Latency = time.Duration(latency) * time.Microsecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchanges: %w", err)
	}
	return entries, nil
}

// Prune keeps the newest keep rows and deletes the rest.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	query := `DELETE FROM exchanges WHERE rowid NOT IN (
		SELECT rowid FROM exchanges ORDER BY started_at DESC, rowid DESC LIMIT ?
	)`
	res, err := j.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune exchanges: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func marshalObject(v map[string]any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
