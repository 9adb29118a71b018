package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"caucion-alerts/internal/engine"
)

// HistoryRow is one persisted per-term observation. History is
// append-only and deduplicates on (observed_at, term), matching the
// CSV archive the dashboard was originally built from.
type HistoryRow struct {
	RunID        string
	Term         engine.Term
	TNA          decimal.Decimal
	NetDailyRate decimal.Decimal
	Level        string
	Source       string
	ObservedAt   time.Time
	CreatedAt    time.Time
}

// TransitionRecord audits one fired level edge.
type TransitionRecord struct {
	ID         int64
	RunID      string
	Term       engine.Term
	FromLevel  string
	ToLevel    string
	Direction  string
	TNA        decimal.Decimal
	ObservedAt time.Time
	CreatedAt  time.Time
}
