package store

import (
	"context"
	"sort"
	"sync"

	"dealready/internal/assessment"
)

// Memory is an in-process Store. Runs are kept encoded so callers never share state with it.
type Memory struct {
	mu      sync.Mutex
	runs    map[string][]byte
	saveErr error
	saves   int
}

func NewMemory() *Memory {
	return &Memory{runs: make(map[string][]byte)}
}

// FailSaves makes every later Save return err until it is called again with nil.
func (m *Memory) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Saves counts Save calls, successful or not.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Load(_ context.Context, key string) (*assessment.Run, error) {
	m.mu.Lock()
	data, ok := m.runs[key]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	run, err := decodeRun(data)
	if err != nil {
		return nil, storageError("load", key, err, "memory")
	}
	return run, nil
}

func (m *Memory) Save(_ context.Context, key string, run *assessment.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return storageError("save", key, m.saveErr, "memory")
	}
	data, err := encodeRun(run)
	if err != nil {
		return storageError("save", key, err, "memory")
	}
	m.runs[key] = data
	return nil
}

func (m *Memory) LoadAll(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	keys := make([]string, 0, len(m.runs))
	for k := range m.runs {
		keys = append(keys, k)
	}
	snapshot := make(map[string][]byte, len(m.runs))
	for k, v := range m.runs {
		snapshot[k] = v
	}
	m.mu.Unlock()

	sort.Strings(keys)
	records := make([]Record, 0, len(keys))
	for _, k := range keys {
		run, err := decodeRun(snapshot[k])
		if err != nil {
			return nil, storageError("load_all", k, err, "memory")
		}
		records = append(records, Record{Key: k, Run: run})
	}
	return records, nil
}

func (m *Memory) Close() error {
	return nil
}
