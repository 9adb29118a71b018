package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coarse market status published with every snapshot.
const (
	MarketStatusQuiet  = "quiet"
	MarketStatusActive = "active"
	MarketStatusRocket = "rocket"
)

// TermSnapshot is the public view of one term's latest state.
type TermSnapshot struct {
	Rate       decimal.Decimal `json:"tna"`
	Level      AlertLevel      `json:"level"`
	Source     string          `json:"source,omitempty"`
	ObservedAt time.Time       `json:"observed_at"`
}

// SnapshotRecord is the public dashboard record. Each cycle overwrites
// it wholesale; no history is retained here.
type SnapshotRecord struct {
	GeneratedAt  time.Time             `json:"generated_at"`
	Terms        map[Term]TermSnapshot `json:"terms"`
	BestTerm     Term                  `json:"best_opportunity_term"`
	MarketStatus string                `json:"market_status"`
}

// BuildSnapshot produces the record for the current cycle, independent
// of per-user state and of whether any transition fired. The best
// opportunity compares net daily rates across present terms only;
// absent optional terms never enter the comparison.
func BuildSnapshot(now time.Time, readings map[Term]Reading, indicators map[Term]Indicators, levels map[Term]AlertLevel) SnapshotRecord {
	record := SnapshotRecord{
		GeneratedAt:  now,
		Terms:        make(map[Term]TermSnapshot, len(readings)),
		MarketStatus: MarketStatusQuiet,
	}

	var best Term
	var bestRate decimal.Decimal
	for _, term := range Terms {
		reading, ok := readings[term]
		if !ok {
			continue
		}

		level := levels[term]
		record.Terms[term] = TermSnapshot{
			Rate:       reading.Rate,
			Level:      level,
			Source:     reading.Source,
			ObservedAt: reading.ObservedAt,
		}

		if net := indicators[term].NetDailyRate; best == "" || net.GreaterThan(bestRate) {
			best = term
			bestRate = net
		}

		switch {
		case level >= LevelRocket:
			record.MarketStatus = MarketStatusRocket
		case level >= LevelGood && record.MarketStatus != MarketStatusRocket:
			record.MarketStatus = MarketStatusActive
		}
	}

	record.BestTerm = best
	return record
}
