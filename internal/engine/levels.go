package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AlertLevel is the ordered market-state classification for one term.
type AlertLevel int

const (
	LevelQuiet AlertLevel = iota
	LevelGood
	LevelPremium
	LevelRocket
)

var levelNames = map[AlertLevel]string{
	LevelQuiet:   "QUIET",
	LevelGood:    "GOOD",
	LevelPremium: "PREMIUM",
	LevelRocket:  "ROCKET",
}

func (l AlertLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("AlertLevel(%d)", int(l))
}

// MarshalText persists levels by name so state files stay readable.
func (l AlertLevel) MarshalText() ([]byte, error) {
	name, ok := levelNames[l]
	if !ok {
		return nil, fmt.Errorf("cannot marshal unknown alert level %d", int(l))
	}
	return []byte(name), nil
}

// UnmarshalText restores a level from its persisted name.
func (l *AlertLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel maps a persisted level name back to its ordered value.
func ParseLevel(name string) (AlertLevel, error) {
	for level, n := range levelNames {
		if strings.EqualFold(n, name) {
			return level, nil
		}
	}
	return LevelQuiet, fmt.Errorf("unknown alert level %q", name)
}

// Band is one threshold entry: rates at or above Min (inclusive)
// classify as Level unless a higher band also matches.
type Band struct {
	Level AlertLevel
	Min   decimal.Decimal
}

// ThresholdTable holds the ascending bands for a single term. QUIET is
// the implicit floor below the lowest band; it never appears as a band.
type ThresholdTable struct {
	Term  Term
	Bands []Band
}

// Classify returns the highest band whose lower bound is <= rate, or
// QUIET when the rate sits below every band. Every non-negative rate
// maps to exactly one level.
func (t ThresholdTable) Classify(rate decimal.Decimal) AlertLevel {
	level := LevelQuiet
	for _, band := range t.Bands {
		if rate.GreaterThanOrEqual(band.Min) {
			level = band.Level
		}
	}
	return level
}

// Validate checks the table once at startup: non-empty, known term,
// bounds strictly ascending, levels strictly ascending and above QUIET.
func (t ThresholdTable) Validate() error {
	if !t.Term.Known() {
		return fmt.Errorf("%w: unknown term %q", ErrThresholdConfig, t.Term)
	}
	if len(t.Bands) == 0 {
		return fmt.Errorf("%w: term %s has no bands", ErrThresholdConfig, t.Term)
	}
	prevLevel := LevelQuiet
	prevMin := decimal.Decimal{}
	for i, band := range t.Bands {
		if _, ok := levelNames[band.Level]; !ok || band.Level == LevelQuiet {
			return fmt.Errorf("%w: term %s band %d has invalid level %v", ErrThresholdConfig, t.Term, i, band.Level)
		}
		if band.Min.IsNegative() {
			return fmt.Errorf("%w: term %s band %s has negative bound", ErrThresholdConfig, t.Term, band.Level)
		}
		if band.Level <= prevLevel {
			return fmt.Errorf("%w: term %s bands not strictly ordered at %s", ErrThresholdConfig, t.Term, band.Level)
		}
		if i > 0 && !band.Min.GreaterThan(prevMin) {
			return fmt.Errorf("%w: term %s has overlapping bands at %s", ErrThresholdConfig, t.Term, band.Level)
		}
		prevLevel = band.Level
		prevMin = band.Min
	}
	return nil
}

// Thresholds groups the per-term tables. Each term tolerates different
// absolute rates before escalating, so tables are never shared.
type Thresholds map[Term]ThresholdTable

// LevelFor classifies a rate for a term. A term without a configured
// table never leaves the lowest level.
func (ts Thresholds) LevelFor(term Term, rate decimal.Decimal) AlertLevel {
	table, ok := ts[term]
	if !ok {
		return LevelQuiet
	}
	return table.Classify(rate)
}

// Validate runs every table's validation and requires a table for each
// required term.
func (ts Thresholds) Validate() error {
	for _, term := range RequiredTerms {
		if _, ok := ts[term]; !ok {
			return fmt.Errorf("%w: no table for required term %s", ErrThresholdConfig, term)
		}
	}
	for term, table := range ts {
		if table.Term != term {
			return fmt.Errorf("%w: table keyed %s declares term %s", ErrThresholdConfig, term, table.Term)
		}
		if err := table.Validate(); err != nil {
			return err
		}
	}
	return nil
}
