package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"dealready/internal/assessment"
)

// KeyPrefix scopes run keys by module.
const KeyPrefix = "assessment/"

// Store persists assessment runs under module-scoped keys. Writes are last-write-wins.
type Store interface {
	// Load returns the run saved under key, or nil when none exists.
	Load(ctx context.Context, key string) (*assessment.Run, error)
	// Save overwrites the run stored under key.
	Save(ctx context.Context, key string, run *assessment.Run) error
	// LoadAll returns every stored run ordered by key.
	LoadAll(ctx context.Context) ([]Record, error)
	Close() error
}

// Record is a stored run with its key.
type Record struct {
	Key string
	Run *assessment.Run
}

// Key returns the store key for moduleID.
func Key(moduleID string) string {
	return KeyPrefix + moduleID
}

// ModuleFromKey is the inverse of Key.
func ModuleFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, KeyPrefix), true
}

// StorageError reports a failed read or write against a backend. The
// in-memory run is never affected by one.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op, key string, err error, msg string) error {
	return &StorageError{Op: op, Key: key, Err: eris.Wrap(err, msg)}
}

func encodeRun(run *assessment.Run) ([]byte, error) {
	if run == nil {
		return nil, eris.New("run is nil")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return nil, eris.Wrap(err, "encode run")
	}
	return data, nil
}

func decodeRun(data []byte) (*assessment.Run, error) {
	var run assessment.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, eris.Wrap(err, "decode run")
	}
	return &run, nil
}
