package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(Params{
		Costs: testCostParams(),
		Thresholds: Thresholds{
			Term1D: testTable(Term1D),
			Term7D: testTable(Term7D),
		},
		SanityCeiling:             decimal.NewFromInt(500),
		DemoWatermark:             "— Modo demo · PSA Caución",
		PayoutReminderBusinessDay: 1,
	})
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	return eng
}

func cycleSamples(rates map[int]string) []RawSample {
	at := time.Date(2026, 3, 17, 11, 0, 0, 0, time.UTC)
	var out []RawSample
	for days, tna := range rates {
		out = append(out, RawSample{TermDays: days, TNA: tna, Source: "byma", ObservedAt: at})
	}
	return out
}

func TestRunCycleFiresOnEscalation(t *testing.T) {
	eng := testEngine(t)
	users := []User{{ID: "bruno", Capital: decimal.NewFromInt(1_000_000), Tier: TierPro}}

	// Both terms cross the GOOD bound (40) from a fresh QUIET state.
	result, err := eng.RunCycle(CycleInput{
		Now:     midMonthTuesday,
		Samples: cycleSamples(map[int]string{1: "60", 7: "58"}),
		Users:   users,
		State:   NewState(),
	})
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if len(result.Transitions) != 2 {
		t.Fatalf("expected two transitions, got %d", len(result.Transitions))
	}
	if len(result.Payloads) != 2 {
		t.Fatalf("expected two payloads for the PRO user, got %d", len(result.Payloads))
	}
	if result.State.Terms[Term1D] != LevelPremium || result.State.Terms[Term7D] != LevelPremium {
		t.Fatalf("state not updated with new levels: %v", result.State.Terms)
	}
}

func TestRunCycleSustainedLevelStaysSilent(t *testing.T) {
	eng := testEngine(t)
	users := []User{{ID: "bruno", Capital: decimal.NewFromInt(1_000_000), Tier: TierPro}}

	first, err := eng.RunCycle(CycleInput{
		Now:     midMonthTuesday,
		Samples: cycleSamples(map[int]string{1: "60", 7: "58"}),
		Users:   users,
		State:   NewState(),
	})
	if err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}

	// Same rates again with the committed state: nothing may fire.
	second, err := eng.RunCycle(CycleInput{
		Now:     midMonthTuesday.Add(15 * time.Minute),
		Samples: cycleSamples(map[int]string{1: "60", 7: "58"}),
		Users:   users,
		State:   first.State,
	})
	if err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if len(second.Transitions) != 0 || len(second.Payloads) != 0 {
		t.Fatalf("sustained levels fired again: %d transitions, %d payloads",
			len(second.Transitions), len(second.Payloads))
	}

	// The snapshot still refreshes every cycle, alert or not.
	if second.Snapshot.GeneratedAt.Equal(first.Snapshot.GeneratedAt) {
		t.Fatal("snapshot not regenerated on a quiet cycle")
	}
}

func TestRunCycleMissingRequiredTerm(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.RunCycle(CycleInput{
		Now:     midMonthTuesday,
		Samples: cycleSamples(map[int]string{1: "60"}),
		State:   NewState(),
	})
	if !errors.Is(err, ErrMissingRequiredTerm) {
		t.Fatalf("expected ErrMissingRequiredTerm, got %v", err)
	}
}

func TestRunCycleMalformedSample(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.RunCycle(CycleInput{
		Now:     midMonthTuesday,
		Samples: cycleSamples(map[int]string{1: "sixty", 7: "58"}),
		State:   NewState(),
	})
	if !errors.Is(err, ErrMalformedReading) {
		t.Fatalf("expected ErrMalformedReading, got %v", err)
	}
}

func TestRunCycleDeescalationFiresOnce(t *testing.T) {
	eng := testEngine(t)
	users := []User{{ID: "bruno", Capital: decimal.NewFromInt(100), Tier: TierPro}}

	state := NewState()
	state.Terms[Term1D] = LevelRocket
	state.Terms[Term7D] = LevelRocket

	result, err := eng.RunCycle(CycleInput{
		Now:     midMonthTuesday,
		Samples: cycleSamples(map[int]string{1: "45", 7: "45"}),
		Users:   users,
		State:   state,
	})
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	for _, tr := range result.Transitions {
		if tr.Direction != DirectionDeescalation || tr.To != LevelGood {
			t.Fatalf("unexpected transition %+v", tr)
		}
	}
	if len(result.Transitions) != 2 {
		t.Fatalf("expected two de-escalations, got %d", len(result.Transitions))
	}
}

func TestRunCycleSnapshotBestTerm(t *testing.T) {
	eng := testEngine(t)

	// 30D carries the highest rate and therefore the best net daily.
	result, err := eng.RunCycle(CycleInput{
		Now:     midMonthTuesday,
		Samples: cycleSamples(map[int]string{1: "42", 7: "44", 30: "51"}),
		State:   NewState(),
	})
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if result.Snapshot.BestTerm != Term30D {
		t.Fatalf("expected 30D as best term, got %s", result.Snapshot.BestTerm)
	}
	if len(result.Snapshot.Terms) != 3 {
		t.Fatalf("snapshot must cover every present term, got %d", len(result.Snapshot.Terms))
	}
	if _, ok := result.Snapshot.Terms[Term14D]; ok {
		t.Fatal("absent term leaked into snapshot")
	}
	if result.Snapshot.MarketStatus != MarketStatusActive {
		t.Fatalf("expected active market status, got %s", result.Snapshot.MarketStatus)
	}
	if result.State.Snapshot == nil {
		t.Fatal("cycle state must carry the fresh snapshot")
	}
}

func TestRunCycleDoesNotMutateInputState(t *testing.T) {
	eng := testEngine(t)

	state := NewState()
	state.Terms[Term1D] = LevelQuiet

	_, err := eng.RunCycle(CycleInput{
		Now:     midMonthTuesday,
		Samples: cycleSamples(map[int]string{1: "60", 7: "58"}),
		State:   state,
	})
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if state.Terms[Term1D] != LevelQuiet {
		t.Fatal("input state mutated in place")
	}
}

func TestNewRejectsBadThresholds(t *testing.T) {
	_, err := New(Params{
		Costs:      testCostParams(),
		Thresholds: Thresholds{Term1D: testTable(Term1D)},
	})
	if !errors.Is(err, ErrThresholdConfig) {
		t.Fatalf("expected ErrThresholdConfig, got %v", err)
	}
}
