// Package state persists the engine's versioned record. Both backends
// enforce at-most-one-writer semantics per cycle through optimistic
// compare-and-swap on the record version: losing that guarantee means
// duplicate or missed notifications.
package state

import (
	"context"
	"errors"

	"caucion-alerts/internal/engine"
)

// ErrConflict signals that the persisted record changed underneath the
// running invocation. The invocation aborts; it is never retried.
var ErrConflict = errors.New("state store: record modified concurrently")

// Store reads the record at invocation start and commits it at the end.
type Store interface {
	// Load returns the current record, or a fresh zero-version state when
	// nothing was ever persisted.
	Load(ctx context.Context) (engine.EngineState, error)
	// Commit persists st when the stored version still equals st.Version,
	// bumping the version by one. A stale version yields ErrConflict and
	// leaves the stored record untouched.
	Commit(ctx context.Context, st engine.EngineState) error
}

// Memory keeps the record in-process. Used by simulate runs and tests.
type Memory struct {
	current engine.EngineState
	loaded  bool
}

// NewMemory seeds an in-memory store.
func NewMemory(initial engine.EngineState) *Memory {
	return &Memory{current: initial, loaded: true}
}

func (m *Memory) Load(ctx context.Context) (engine.EngineState, error) {
	if !m.loaded {
		return engine.NewState(), nil
	}
	return m.current.Clone(), nil
}

func (m *Memory) Commit(ctx context.Context, st engine.EngineState) error {
	if st.Version != m.current.Version {
		return ErrConflict
	}
	next := st.Clone()
	next.Version = st.Version + 1
	m.current = next
	m.loaded = true
	return nil
}

var _ Store = (*Memory)(nil)
