package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Normalizer validates raw provider rows and shapes them into canonical
// per-term readings. Nothing downstream tolerates partially-shaped data.
type Normalizer struct {
	// SanityCeiling rejects absurd annualized rates (percent). Zero
	// disables the check.
	SanityCeiling decimal.Decimal
}

// Normalize returns exactly one reading per present term. 1D and 7D are
// mandatory; their absence fails the cycle with ErrMissingRequiredTerm.
// Optional terms (14D/30D) are simply absent from the result, never
// defaulted. Rows for unknown terms are ignored; of several rows for the
// same term the most recently observed wins.
func (n Normalizer) Normalize(samples []RawSample) (map[Term]Reading, error) {
	readings := make(map[Term]Reading, len(samples))

	for _, raw := range samples {
		term, ok := TermForDays(raw.TermDays)
		if !ok {
			continue
		}

		reading, err := n.shape(term, raw)
		if err != nil {
			return nil, err
		}

		if prev, exists := readings[term]; exists && prev.ObservedAt.After(reading.ObservedAt) {
			continue
		}
		readings[term] = reading
	}

	for _, term := range RequiredTerms {
		if _, ok := readings[term]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingRequiredTerm, term)
		}
	}

	return readings, nil
}

func (n Normalizer) shape(term Term, raw RawSample) (Reading, error) {
	text := strings.TrimSpace(raw.TNA)
	if text == "" {
		return Reading{}, fmt.Errorf("%w: term %s has empty rate", ErrMalformedReading, term)
	}

	rate, err := decimal.NewFromString(text)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: term %s rate %q: %v", ErrMalformedReading, term, raw.TNA, err)
	}
	if rate.IsNegative() {
		return Reading{}, fmt.Errorf("%w: term %s rate %s is negative", ErrMalformedReading, term, rate)
	}
	if !n.SanityCeiling.IsZero() && rate.GreaterThan(n.SanityCeiling) {
		return Reading{}, fmt.Errorf("%w: term %s rate %s above ceiling %s", ErrMalformedReading, term, rate, n.SanityCeiling)
	}

	return Reading{
		Term:       term,
		Rate:       rate,
		Source:     raw.Source,
		ObservedAt: raw.ObservedAt,
	}, nil
}
