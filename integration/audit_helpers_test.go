package integration_test

import (
	"testing"

	"dealready/internal/audit"
)

func auditTypes(t *testing.T, dbPath, moduleID string) map[string]int {
	t.Helper()
	events, err := audit.NewLogger(dbPath).Recent(moduleID, 1000)
	if err != nil {
		t.Fatalf("read audit events: %v", err)
	}
	types := make(map[string]int)
	for _, ev := range events {
		types[ev.Type]++
	}
	return types
}

func requireAuditEvents(t *testing.T, dbPath, moduleID string, want ...string) {
	t.Helper()
	types := auditTypes(t, dbPath, moduleID)
	for _, eventType := range want {
		if types[eventType] == 0 {
			t.Fatalf("missing audit event %s in %s (have %v)", eventType, dbPath, types)
		}
	}
}
