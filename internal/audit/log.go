package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const defaultAuditPath = "audit/audit.sqlite"

// Event types recorded by the CLI.
const (
	EventRunAnswer     = "run_answer"
	EventRunAdvance    = "run_advance"
	EventRunRetreat    = "run_retreat"
	EventRunCompleted  = "run_completed"
	EventRunNotSaved   = "run_not_saved"
	EventWorkspaceInit = "workspace_init"
)

const defaultRecentLimit = 50

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts TEXT NOT NULL,
		actor TEXT NOT NULL,
		type TEXT NOT NULL,
		module_id TEXT NOT NULL DEFAULT '',
		payload_json TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS events_module ON events (module_id, id)`,
}

// Logger appends audit events to a SQLite file. An empty DBPath falls back to
// $DEALREADY_AUDIT_DB, then audit/audit.sqlite in the working directory.
type Logger struct {
	DBPath string
}

// Event is one row of the audit log. Timestamp is RFC 3339 in UTC.
type Event struct {
	ID          int64
	Timestamp   string
	Actor       string
	Type        string
	ModuleID    string
	PayloadJSON string
}

func NewLogger(dbPath string) *Logger {
	return &Logger{DBPath: dbPath}
}

// LogEvent appends one event. A "module_id" string in a map payload is also
// stored in its own column so history can be filtered by module.
func (l *Logger) LogEvent(actor string, eventType string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	db, err := l.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	_, err = db.Exec(
		"INSERT INTO events (ts, actor, type, module_id, payload_json) VALUES (?, ?, ?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339Nano),
		actor,
		eventType,
		moduleOf(payload),
		string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first. A non-empty moduleID keeps
// only that module's events.
func (l *Logger) Recent(moduleID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	db, err := l.open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	query := "SELECT id, ts, actor, type, module_id, payload_json FROM events"
	args := []any{}
	if moduleID != "" {
		query += " WHERE module_id = ?"
		args = append(args, moduleID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.Actor, &ev.Type, &ev.ModuleID, &ev.PayloadJSON); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func (l *Logger) open() (*sql.DB, error) {
	path := ""
	if l != nil {
		path = l.DBPath
	}
	if path == "" {
		path = os.Getenv("DEALREADY_AUDIT_DB")
	}
	if path == "" {
		path = defaultAuditPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve audit db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("ensure audit db dir: %w", err)
	}

	db, err := sql.Open("sqlite", abs)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create audit schema: %w", err)
		}
	}
	return db, nil
}

func moduleOf(payload any) string {
	switch p := payload.(type) {
	case map[string]any:
		if id, ok := p["module_id"].(string); ok {
			return id
		}
	case map[string]string:
		return p["module_id"]
	}
	return ""
}
