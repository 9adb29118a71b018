// Package engine implements the caución rate alert core: normalization
// of raw provider samples, indicator derivation, threshold
// classification, edge-triggered transition detection, per-user
// notification fan-out, and the public snapshot. RunCycle is pure given
// its input; all I/O and clocks live with the caller.
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Params configures an Engine. Thresholds are validated once at
// construction and never defaulted.
type Params struct {
	Costs                     CostParams
	Thresholds                Thresholds
	SanityCeiling             decimal.Decimal
	DemoWatermark             string
	PayoutReminderBusinessDay int
}

// Engine evaluates one sampling cycle at a time.
type Engine struct {
	normalizer Normalizer
	calc       Calculator
	thresholds Thresholds
	fanout     FanOut
}

// New validates params and builds an engine. A bad threshold table is a
// startup failure (ErrThresholdConfig), not something to classify around.
func New(p Params) (*Engine, error) {
	if err := p.Thresholds.Validate(); err != nil {
		return nil, err
	}

	calc := Calculator{Params: p.Costs}
	return &Engine{
		normalizer: Normalizer{SanityCeiling: p.SanityCeiling},
		calc:       calc,
		thresholds: p.Thresholds,
		fanout: FanOut{
			Watermark:                 p.DemoWatermark,
			PayoutReminderBusinessDay: p.PayoutReminderBusinessDay,
			Calc:                      calc,
		},
	}, nil
}

// CycleInput is everything one invocation consumes. State is the record
// loaded from the store; the engine never reads it from anywhere else.
type CycleInput struct {
	Now     time.Time
	Samples []RawSample
	Users   []User
	State   EngineState
}

// CycleResult is everything one invocation produces. State carries the
// updated record at the loaded version; the store bumps the version on
// commit.
type CycleResult struct {
	Readings    map[Term]Reading
	Indicators  map[Term]Indicators
	Levels      map[Term]AlertLevel
	Transitions []Transition
	Payloads    []NotificationPayload
	Failures    []*UserNotificationError
	Snapshot    SnapshotRecord
	State       EngineState
}

// RunCycle executes one full evaluation: normalize, derive, classify,
// detect edges, fan out, snapshot. Fatal input errors return before
// anything is produced; per-user failures come back in Failures and
// never abort the cycle.
func (e *Engine) RunCycle(in CycleInput) (CycleResult, error) {
	readings, err := e.normalizer.Normalize(in.Samples)
	if err != nil {
		return CycleResult{}, err
	}

	indicators := e.calc.Compute(readings)

	levels := make(map[Term]AlertLevel, len(readings))
	for term, reading := range readings {
		levels[term] = e.thresholds.LevelFor(term, reading.Rate)
	}

	state := in.State.Clone()
	transitions := DetectTransitions(state.Terms, levels)
	for _, tr := range transitions {
		state.Terms[tr.Term] = tr.To
	}

	payloads, failures := e.fanout.Run(in.Now, in.Users, transitions, indicators)

	snapshot := BuildSnapshot(in.Now, readings, indicators, levels)
	state.Snapshot = &snapshot

	return CycleResult{
		Readings:    readings,
		Indicators:  indicators,
		Levels:      levels,
		Transitions: transitions,
		Payloads:    payloads,
		Failures:    failures,
		Snapshot:    snapshot,
		State:       state,
	}, nil
}
