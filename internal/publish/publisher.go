// Package publish hands the public snapshot to the rendering
// collaborator. The engine never formats HTML; it only emits the record.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"caucion-alerts/internal/engine"
)

// SnapshotPublisher receives each cycle's full snapshot overwrite.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snapshot engine.SnapshotRecord) error
}

// FileSink writes the snapshot as pretty-printed JSON to the dashboard
// path and, when configured, mirrors it to a latest path. Writes go
// through a temp file and rename so the static-site generator never
// reads a partial document.
type FileSink struct {
	dashboardPath string
	latestPath    string
}

// NewFileSink builds a sink. latestPath may be empty.
func NewFileSink(dashboardPath, latestPath string) *FileSink {
	return &FileSink{dashboardPath: dashboardPath, latestPath: latestPath}
}

func (f *FileSink) Publish(ctx context.Context, snapshot engine.SnapshotRecord) error {
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := writeAtomic(f.dashboardPath, payload); err != nil {
		return err
	}
	if f.latestPath != "" {
		if err := writeAtomic(f.latestPath, payload); err != nil {
			return err
		}
	}
	return nil
}

func writeAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot %s: %w", path, err)
	}
	return nil
}

var _ SnapshotPublisher = (*FileSink)(nil)
