package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"dealready/internal/assessment"
	"dealready/internal/logging"
)

// WriteState describes whether the latest snapshot for a key reached the backend.
type WriteState string

const (
	StateSaved     WriteState = "saved"
	StatePending   WriteState = "pending"
	StateExhausted WriteState = "exhausted"
)

// WriteStatus is what a presentation layer shows as the "not saved" indicator.
type WriteStatus struct {
	State     WriteState
	Attempts  int
	LastError error
}

type pendingWrite struct {
	run      *assessment.Run
	attempts int
	lastErr  error
}

// MirrorOptions configures retry pacing.
type MirrorOptions struct {
	MaxAttempts int
	Interval    time.Duration
	Burst       int
	Logger      *slog.Logger
}

// Mirror treats a backend as a best-effort copy of in-memory runs. Each Save
// tries the backend once; a failed snapshot stays pending (latest wins per key)
// until Flush delivers it or the key runs out of attempts.
type Mirror struct {
	backend     Store
	limiter     *rate.Limiter
	maxAttempts int
	logger      *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingWrite
}

func NewMirror(backend Store, opts MirrorOptions) *Mirror {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	return &Mirror{
		backend:     backend,
		limiter:     rate.NewLimiter(limit, opts.Burst),
		maxAttempts: opts.MaxAttempts,
		logger:      logging.OrDiscard(opts.Logger).With("component", "store"),
		pending:     make(map[string]*pendingWrite),
	}
}

// Save attempts one write of run. On failure the snapshot is kept for Flush
// and a *StorageError is returned.
func (m *Mirror) Save(ctx context.Context, key string, run *assessment.Run) error {
	snapshot := run.Clone()
	err := m.backend.Save(ctx, key, snapshot)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.pending, key)
		return nil
	}
	p, ok := m.pending[key]
	if !ok {
		p = &pendingWrite{}
		m.pending[key] = p
	}
	p.run = snapshot
	p.attempts++
	p.lastErr = err
	m.logger.Warn("run not saved", "key", key, "attempt", p.attempts, "err", err)
	return asStorageError("save", key, err)
}

// Flush retries every pending write until it lands or exhausts its attempts.
// It returns the errors of keys that are still unsaved.
func (m *Mirror) Flush(ctx context.Context) error {
	for {
		keys := m.retryable()
		if len(keys) == 0 {
			break
		}
		for _, key := range keys {
			if err := m.limiter.Wait(ctx); err != nil {
				return &StorageError{Op: "flush", Key: key, Err: err}
			}
			m.retry(ctx, key)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, key := range sortedKeys(m.pending) {
		errs = append(errs, asStorageError("flush", key, m.pending[key].lastErr))
	}
	return errors.Join(errs...)
}

func (m *Mirror) retry(ctx context.Context, key string) {
	m.mu.Lock()
	p, ok := m.pending[key]
	if !ok || p.attempts >= m.maxAttempts {
		m.mu.Unlock()
		return
	}
	snapshot := p.run
	m.mu.Unlock()

	err := m.backend.Save(ctx, key, snapshot)

	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.pending[key]
	if !ok || current.run != snapshot {
		// A newer Save replaced the snapshot while this one was in flight.
		return
	}
	if err == nil {
		delete(m.pending, key)
		m.logger.Info("pending run saved", "key", key, "attempts", current.attempts+1)
		return
	}
	current.attempts++
	current.lastErr = err
	if current.attempts >= m.maxAttempts {
		m.logger.Warn("giving up on run", "key", key, "attempts", current.attempts, "err", err)
	}
}

func (m *Mirror) retryable() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for _, key := range sortedKeys(m.pending) {
		if m.pending[key].attempts < m.maxAttempts {
			keys = append(keys, key)
		}
	}
	return keys
}

// Status reports whether the latest snapshot for key reached the backend.
func (m *Mirror) Status(key string) WriteStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[key]
	if !ok {
		return WriteStatus{State: StateSaved}
	}
	state := StatePending
	if p.attempts >= m.maxAttempts {
		state = StateExhausted
	}
	return WriteStatus{State: state, Attempts: p.attempts, LastError: p.lastErr}
}

// Load prefers a pending snapshot over the backend copy.
func (m *Mirror) Load(ctx context.Context, key string) (*assessment.Run, error) {
	m.mu.Lock()
	if p, ok := m.pending[key]; ok {
		run := p.run.Clone()
		m.mu.Unlock()
		return run, nil
	}
	m.mu.Unlock()
	return m.backend.Load(ctx, key)
}

// LoadAll overlays pending snapshots on the backend's runs.
func (m *Mirror) LoadAll(ctx context.Context) ([]Record, error) {
	records, err := m.backend.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byKey := make(map[string]*assessment.Run, len(records)+len(m.pending))
	for _, r := range records {
		byKey[r.Key] = r.Run
	}
	for key, p := range m.pending {
		byKey[key] = p.run.Clone()
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, Record{Key: k, Run: byKey[k]})
	}
	return out, nil
}

func (m *Mirror) Close() error {
	return m.backend.Close()
}

func asStorageError(op, key string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return se
	}
	return &StorageError{Op: op, Key: key, Err: err}
}

func sortedKeys(m map[string]*pendingWrite) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
