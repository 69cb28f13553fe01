package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLogEventAndRecent(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), "audit", "audit.sqlite"))

	events := []struct {
		eventType string
		module    string
	}{
		{EventRunAnswer, "deal-killers"},
		{EventRunAdvance, "deal-killers"},
		{EventRunAnswer, "financial-scorecard"},
	}
	for _, ev := range events {
		if err := logger.LogEvent("cli", ev.eventType, map[string]any{"module_id": ev.module}); err != nil {
			t.Fatalf("log %s: %v", ev.eventType, err)
		}
	}

	all, err := logger.Recent("", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if got, want := len(all), 3; got != want {
		t.Fatalf("events = %d, want %d", got, want)
	}
	if all[0].Type != EventRunAnswer || all[0].PayloadJSON != `{"module_id":"financial-scorecard"}` {
		t.Fatalf("newest event = %+v", all[0])
	}

	scoped, err := logger.Recent("deal-killers", 10)
	if err != nil {
		t.Fatalf("recent scoped: %v", err)
	}
	if got, want := len(scoped), 2; got != want {
		t.Fatalf("scoped events = %d, want %d", got, want)
	}
	if scoped[0].Type != EventRunAdvance || scoped[0].ModuleID != "deal-killers" {
		t.Fatalf("expected newest first, got %+v", scoped[0])
	}
	if _, err := time.Parse(time.RFC3339Nano, scoped[0].Timestamp); err != nil {
		t.Fatalf("timestamp %q: %v", scoped[0].Timestamp, err)
	}
}

func TestLogEventWithoutModule(t *testing.T) {
	t.Setenv("DEALREADY_AUDIT_DB", filepath.Join(t.TempDir(), "env.sqlite"))
	var logger *Logger
	if err := logger.LogEvent("cli", EventWorkspaceInit, struct {
		Workspace string `json:"workspace"`
	}{"/tmp/ws"}); err != nil {
		t.Fatalf("log: %v", err)
	}
	events, err := logger.Recent("", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 || events[0].ModuleID != "" {
		t.Fatalf("events = %+v", events)
	}
}
