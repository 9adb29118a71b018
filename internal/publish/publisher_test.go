package publish

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"caucion-alerts/internal/engine"
)

func testSnapshot() engine.SnapshotRecord {
	return engine.SnapshotRecord{
		GeneratedAt: time.Date(2026, 3, 17, 11, 0, 0, 0, time.UTC),
		Terms: map[engine.Term]engine.TermSnapshot{
			engine.Term1D: {
				Rate:       decimal.RequireFromString("41.25"),
				Level:      engine.LevelGood,
				Source:     "BYMA",
				ObservedAt: time.Date(2026, 3, 17, 11, 0, 0, 0, time.UTC),
			},
		},
		BestTerm:     engine.Term1D,
		MarketStatus: engine.MarketStatusActive,
	}
}

func TestFileSinkPublish(t *testing.T) {
	dir := t.TempDir()
	dashboard := filepath.Join(dir, "docs", "data", "dashboard.json")
	latest := filepath.Join(dir, "docs", "data", "latest.json")

	sink := NewFileSink(dashboard, latest)
	if err := sink.Publish(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	for _, path := range []string{dashboard, latest} {
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}

		var got engine.SnapshotRecord
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("parse %s: %v", path, err)
		}
		if got.BestTerm != engine.Term1D || got.MarketStatus != engine.MarketStatusActive {
			t.Fatalf("unexpected snapshot in %s: %+v", path, got)
		}
		term := got.Terms[engine.Term1D]
		if !term.Rate.Equal(decimal.RequireFromString("41.25")) || term.Level != engine.LevelGood {
			t.Fatalf("term snapshot mangled in %s: %+v", path, term)
		}
	}
}

func TestFileSinkOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.json")
	sink := NewFileSink(path, "")
	ctx := context.Background()

	first := testSnapshot()
	if err := sink.Publish(ctx, first); err != nil {
		t.Fatalf("first publish failed: %v", err)
	}

	second := testSnapshot()
	second.MarketStatus = engine.MarketStatusRocket
	if err := sink.Publish(ctx, second); err != nil {
		t.Fatalf("second publish failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	var got engine.SnapshotRecord
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("parse dashboard: %v", err)
	}
	if got.MarketStatus != engine.MarketStatusRocket {
		t.Fatalf("dashboard not overwritten, status %s", got.MarketStatus)
	}
}
