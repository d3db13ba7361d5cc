// ABOUTME: Single-writer session manager backed by the persistent store
// ABOUTME: Serializes updates per session and persists only successful ones

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
)

// Manager owns all reads and writes of session state. Every mutation goes
// through Update, which holds the session's lock for the whole
// load-mutate-persist cycle, so concurrent turns for one session are
// serialized and a failed mutation leaves the stored state untouched.
type Manager struct {
	store  store.Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a Manager. Pass nil logger for default.
func NewManager(st store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  st,
		logger: logger.With("component", "session"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex for a session id, creating it on first use.
// Lock entries are never removed; session id cardinality is bounded by
// real traffic and entries are two words each.
func (m *Manager) sessionLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// Get loads a session's state without locking it for mutation. A session
// that has never been written returns a fresh idle state.
func (m *Manager) Get(ctx context.Context, id string) (*State, error) {
	raw, err := m.store.GetSessionState(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return NewState(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return decode(id, raw)
}

// Update runs fn against the session's current state under the session
// lock. The mutated state is persisted only if fn returns nil; on error
// nothing is written and the stored state is unchanged.
func (m *Manager) Update(ctx context.Context, id string, fn func(*State) error) (*State, error) {
	l := m.sessionLock(id)
	l.Lock()
	defer l.Unlock()

	state, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(state); err != nil {
		return nil, err
	}

	state.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encoding session %s: %w", id, err)
	}
	if err := m.store.SaveSessionState(ctx, id, raw); err != nil {
		return nil, fmt.Errorf("persisting session %s: %w", id, err)
	}

	m.logger.Debug("session updated", "session_id", id, "phase", state.Phase)
	return state, nil
}

// Reset wipes a session entirely, including the verified document set.
// Resetting an unknown session is a no-op.
func (m *Manager) Reset(ctx context.Context, id string) error {
	l := m.sessionLock(id)
	l.Lock()
	defer l.Unlock()

	if err := m.store.DeleteSessionState(ctx, id); err != nil {
		return fmt.Errorf("resetting session %s: %w", id, err)
	}
	m.logger.Info("session reset", "session_id", id)
	return nil
}

func decode(id string, raw []byte) (*State, error) {
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	if state.Declared.Person == nil {
		state.Declared.Person = map[string]string{}
	}
	if state.Declared.Application == nil {
		state.Declared.Application = map[string]string{}
	}
	return &state, nil
}
