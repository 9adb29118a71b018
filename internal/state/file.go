package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"caucion-alerts/internal/engine"
)

// FileStore keeps the record as a single JSON document. Commits are a
// read-compare-rename sequence: the on-disk version is re-read right
// before the write, and the new document lands via an atomic rename so
// a concurrent reader never observes a partial record.
type FileStore struct {
	path string
}

// NewFileStore builds a store rooted at path. The parent directory is
// created on first commit.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(ctx context.Context) (engine.EngineState, error) {
	st, err := f.read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return engine.NewState(), nil
		}
		return engine.EngineState{}, err
	}
	return st, nil
}

func (f *FileStore) Commit(ctx context.Context, st engine.EngineState) error {
	current, err := f.read()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if st.Version != 0 {
			return ErrConflict
		}
	case err != nil:
		return err
	case current.Version != st.Version:
		return ErrConflict
	}

	next := st.Clone()
	next.Version = st.Version + 1

	payload, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func (f *FileStore) read() (engine.EngineState, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return engine.EngineState{}, err
	}

	st := engine.NewState()
	if err := json.Unmarshal(raw, &st); err != nil {
		return engine.EngineState{}, fmt.Errorf("parse state file %s: %w", f.path, err)
	}
	if st.Terms == nil {
		st.Terms = make(map[engine.Term]engine.AlertLevel)
	}
	return st, nil
}

var _ Store = (*FileStore)(nil)
