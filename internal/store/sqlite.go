package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"dealready/internal/assessment"
)

// SQLite stores runs in a single table keyed by run key.
type SQLite struct {
	DBPath string
	db     *sql.DB
}

// OpenSQLite opens or creates the run database at path.
func OpenSQLite(path string) (*SQLite, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, storageError("open", "", err, "resolve run db path")
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, storageError("open", "", err, "ensure run db dir")
	}
	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, storageError("open", "", err, "open run db")
	}
	s, err := NewSQLite(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.DBPath = absPath
	return s, nil
}

// NewSQLite wraps an open database handle and ensures the schema exists.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLite) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	key TEXT PRIMARY KEY,
	module_id TEXT NOT NULL,
	run_json TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return storageError("open", "", err, "create run schema")
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, key string) (*assessment.Run, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT run_json FROM runs WHERE key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("load", key, err, "select run")
	}
	run, err := decodeRun([]byte(payload))
	if err != nil {
		return nil, storageError("load", key, err, "sqlite")
	}
	return run, nil
}

func (s *SQLite) Save(ctx context.Context, key string, run *assessment.Run) error {
	data, err := encodeRun(run)
	if err != nil {
		return storageError("save", key, err, "sqlite")
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO runs (key, module_id, run_json, updated_at) VALUES (?, ?, ?, ?)",
		key, run.ModuleID, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return storageError("save", key, err, "upsert run")
	}
	return nil
}

func (s *SQLite) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, run_json FROM runs ORDER BY key")
	if err != nil {
		return nil, storageError("load_all", "", err, "select runs")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, storageError("load_all", "", err, "scan run")
		}
		run, err := decodeRun([]byte(payload))
		if err != nil {
			return nil, storageError("load_all", key, err, "sqlite")
		}
		records = append(records, Record{Key: key, Run: run})
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("load_all", "", eris.Wrap(err, "iterate"), "sqlite")
	}
	return records, nil
}
