package app

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"caucion-alerts/internal/engine"
	"caucion-alerts/internal/storage"
)

func historyRows(n int) []storage.HistoryRow {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]storage.HistoryRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, storage.HistoryRow{
			RunID:      "test",
			Term:       engine.Term1D,
			TNA:        decimal.NewFromInt(int64(40 + i%10)),
			Level:      "GOOD",
			Source:     "BYMA",
			ObservedAt: start.Add(time.Duration(i) * 15 * time.Minute),
		})
	}
	return rows
}

func TestDownsampleRows(t *testing.T) {
	rows := historyRows(1000)

	got := downsampleRows(rows, 100)
	if len(got) != 100 {
		t.Fatalf("expected 100 rows, got %d", len(got))
	}
	if !got[0].ObservedAt.Equal(rows[0].ObservedAt) {
		t.Fatal("first row must survive downsampling")
	}
	if !got[len(got)-1].ObservedAt.Equal(rows[len(rows)-1].ObservedAt) {
		t.Fatal("last row must survive downsampling")
	}
	for i := 1; i < len(got); i++ {
		if !got[i].ObservedAt.After(got[i-1].ObservedAt) {
			t.Fatalf("downsampled rows out of order at %d", i)
		}
	}
}

func TestDownsampleRowsNoop(t *testing.T) {
	rows := historyRows(50)

	if got := downsampleRows(rows, 100); len(got) != 50 {
		t.Fatalf("small input must pass through, got %d rows", len(got))
	}
	if got := downsampleRows(rows, 0); len(got) != 50 {
		t.Fatalf("zero max must pass through, got %d rows", len(got))
	}
}

func TestWriteHistoryCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "history.csv")
	rows := historyRows(3)

	if err := writeHistoryCSV(path, rows); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d records", len(records))
	}
	if records[0][0] != "timestamp_utc" || records[0][3] != "tna" {
		t.Fatalf("unexpected header %v", records[0])
	}
	if records[1][2] != "1D" || records[1][1] != "BYMA" {
		t.Fatalf("unexpected first row %v", records[1])
	}
}
