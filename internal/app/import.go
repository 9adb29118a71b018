package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"caucion-alerts/internal/engine"
	"caucion-alerts/internal/storage"
)

// Import loads an archived history CSV (timestamp_utc,source,term,tna)
// into the database, deduplicating on (timestamp, term). Extra columns
// are ignored so exports from this tool round-trip.
func (a *App) Import(ctx context.Context, opts ImportOptions) error {
	file, err := os.Open(opts.CSVPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	rows, skipped, err := a.parseHistoryCSV(file)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.New("csv contains no importable rows")
	}

	if opts.DryRun {
		a.Logger.Info().Int("rows", len(rows)).Int("skipped", skipped).Msg("import dry-run: nothing written")
		return nil
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot import")
	}
	if closeStore != nil {
		defer closeStore()
	}

	wrote, err := store.AppendHistory(ctx, rows)
	if err != nil {
		return err
	}

	a.Logger.Info().Int("parsed", len(rows)).Int("written", wrote).Int("skipped", skipped).Msg("import complete")
	return nil
}

func (a *App) parseHistoryCSV(r io.Reader) ([]storage.HistoryRow, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"timestamp_utc", "term", "tna"} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("csv missing column %q", required)
		}
	}

	var rows []storage.HistoryRow
	skipped := 0
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv line %d: %w", line, err)
		}
		line++

		observedAt, err := time.Parse(time.RFC3339, record[col["timestamp_utc"]])
		if err != nil {
			skipped++
			continue
		}

		term := engine.Term(strings.ToUpper(strings.TrimSpace(record[col["term"]])))
		if !term.Known() {
			skipped++
			continue
		}

		tna, err := decimal.NewFromString(strings.TrimSpace(record[col["tna"]]))
		if err != nil || tna.IsNegative() {
			skipped++
			continue
		}

		source := ""
		if i, ok := col["source"]; ok && i < len(record) {
			source = record[i]
		}

		rows = append(rows, storage.HistoryRow{
			RunID:        "import",
			Term:         term,
			TNA:          tna,
			NetDailyRate: decimal.Decimal{},
			Level:        engine.LevelQuiet.String(),
			Source:       source,
			ObservedAt:   observedAt,
		})
	}

	return rows, skipped, nil
}
