package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testTable(term Term) ThresholdTable {
	return ThresholdTable{
		Term: term,
		Bands: []Band{
			{Level: LevelGood, Min: decimal.NewFromInt(40)},
			{Level: LevelPremium, Min: decimal.NewFromInt(55)},
			{Level: LevelRocket, Min: decimal.NewFromInt(70)},
		},
	}
}

func TestClassifyBoundsAreInclusive(t *testing.T) {
	table := testTable(Term1D)

	cases := []struct {
		rate string
		want AlertLevel
	}{
		{"0", LevelQuiet},
		{"39.999", LevelQuiet},
		{"40", LevelGood},
		{"54.999", LevelGood},
		{"55", LevelPremium},
		{"69.999", LevelPremium},
		{"70", LevelRocket},
		{"250", LevelRocket},
	}
	for _, tc := range cases {
		got := table.Classify(decimal.RequireFromString(tc.rate))
		if got != tc.want {
			t.Errorf("rate %s: expected %s, got %s", tc.rate, tc.want, got)
		}
	}
}

func TestLevelForMissingTableStaysQuiet(t *testing.T) {
	ts := Thresholds{Term1D: testTable(Term1D)}

	if got := ts.LevelFor(Term30D, decimal.NewFromInt(99)); got != LevelQuiet {
		t.Fatalf("unconfigured term must classify QUIET, got %s", got)
	}
}

func TestThresholdTableValidate(t *testing.T) {
	cases := []struct {
		name  string
		table ThresholdTable
	}{
		{"unknown term", ThresholdTable{Term: "3D", Bands: testTable("3D").Bands}},
		{"no bands", ThresholdTable{Term: Term1D}},
		{"quiet band", ThresholdTable{Term: Term1D, Bands: []Band{
			{Level: LevelQuiet, Min: decimal.NewFromInt(10)},
		}}},
		{"levels out of order", ThresholdTable{Term: Term1D, Bands: []Band{
			{Level: LevelPremium, Min: decimal.NewFromInt(40)},
			{Level: LevelGood, Min: decimal.NewFromInt(55)},
		}}},
		{"overlapping bounds", ThresholdTable{Term: Term1D, Bands: []Band{
			{Level: LevelGood, Min: decimal.NewFromInt(55)},
			{Level: LevelPremium, Min: decimal.NewFromInt(40)},
		}}},
		{"negative bound", ThresholdTable{Term: Term1D, Bands: []Band{
			{Level: LevelGood, Min: decimal.NewFromInt(-1)},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.table.Validate()
			if !errors.Is(err, ErrThresholdConfig) {
				t.Fatalf("expected ErrThresholdConfig, got %v", err)
			}
		})
	}

	if err := testTable(Term7D).Validate(); err != nil {
		t.Fatalf("valid table rejected: %v", err)
	}
}

func TestThresholdsValidateRequiredTerms(t *testing.T) {
	ts := Thresholds{Term1D: testTable(Term1D)}
	if err := ts.Validate(); !errors.Is(err, ErrThresholdConfig) {
		t.Fatalf("expected ErrThresholdConfig for missing 7D table, got %v", err)
	}

	ts[Term7D] = testTable(Term7D)
	if err := ts.Validate(); err != nil {
		t.Fatalf("complete thresholds rejected: %v", err)
	}
}

func TestThresholdsValidateMismatchedKey(t *testing.T) {
	ts := Thresholds{
		Term1D: testTable(Term1D),
		Term7D: testTable(Term14D),
	}
	if err := ts.Validate(); !errors.Is(err, ErrThresholdConfig) {
		t.Fatalf("expected ErrThresholdConfig for mismatched key, got %v", err)
	}
}

func TestLevelRoundTrip(t *testing.T) {
	for _, level := range []AlertLevel{LevelQuiet, LevelGood, LevelPremium, LevelRocket} {
		text, err := level.MarshalText()
		if err != nil {
			t.Fatalf("marshal %s: %v", level, err)
		}
		var back AlertLevel
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("unmarshal %q: %v", text, err)
		}
		if back != level {
			t.Fatalf("round trip mangled %s into %s", level, back)
		}
	}

	if _, err := ParseLevel("LUNAR"); err == nil {
		t.Fatal("expected error for unknown level name")
	}
}
