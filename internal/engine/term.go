package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Term is the fixed lock period of a caución instrument.
type Term string

const (
	Term1D  Term = "1D"
	Term7D  Term = "7D"
	Term14D Term = "14D"
	Term30D Term = "30D"
)

// Terms lists the supported terms in ascending lock-period order.
var Terms = []Term{Term1D, Term7D, Term14D, Term30D}

// RequiredTerms must be present in every cycle's raw input.
var RequiredTerms = []Term{Term1D, Term7D}

var termDays = map[Term]int{
	Term1D:  1,
	Term7D:  7,
	Term14D: 14,
	Term30D: 30,
}

// Days returns the lock period in calendar days, or 0 for an unknown term.
func (t Term) Days() int {
	return termDays[t]
}

// Known reports whether the term is one of the supported lock periods.
func (t Term) Known() bool {
	_, ok := termDays[t]
	return ok
}

// TermForDays maps a provider plazo (in days) to a canonical term.
func TermForDays(days int) (Term, bool) {
	for term, d := range termDays {
		if d == days {
			return term, true
		}
	}
	return "", false
}

// RawSample is one provider row before validation. TNA arrives as the
// provider printed it; the normalizer decides whether it parses.
type RawSample struct {
	TermDays   int
	TNA        string
	Source     string
	ObservedAt time.Time
}

// Reading is one term's canonical rate sample. Rate is the annualized
// nominal rate (TNA) in percent, guaranteed non-negative.
type Reading struct {
	Term       Term
	Rate       decimal.Decimal
	Source     string
	ObservedAt time.Time
}
