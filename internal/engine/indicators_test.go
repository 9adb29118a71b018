package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testCostParams() CostParams {
	return CostParams{
		TaxRate:              decimal.NewFromFloat(0.07),
		TransactionCostRate:  decimal.NewFromFloat(1.5),
		DaysInYear:           365,
		TradingDaysPerMonth:  20,
		CalendarDaysPerMonth: 30,
	}
}

func testReadings(rates map[Term]string) map[Term]Reading {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	out := make(map[Term]Reading, len(rates))
	for term, rate := range rates {
		out[term] = Reading{Term: term, Rate: decimal.RequireFromString(rate), ObservedAt: now}
	}
	return out
}

func TestIndicatorsNetAnnualRate(t *testing.T) {
	calc := Calculator{Params: testCostParams()}
	readings := testReadings(map[Term]string{Term1D: "40", Term7D: "42"})

	ind := calc.Compute(readings)[Term1D]

	// 40 * 0.93 - 1.5 = 35.7
	if !ind.NetAnnualRate.Equal(decimal.RequireFromString("35.7")) {
		t.Fatalf("expected net annual rate 35.7, got %s", ind.NetAnnualRate)
	}

	wantDaily := decimal.RequireFromString("35.7").Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(365))
	if !ind.NetDailyRate.Equal(wantDaily) {
		t.Fatalf("expected net daily rate %s, got %s", wantDaily, ind.NetDailyRate)
	}
}

func TestIndicatorsSpread(t *testing.T) {
	calc := Calculator{Params: testCostParams()}
	readings := testReadings(map[Term]string{Term1D: "40", Term7D: "42", Term30D: "39"})

	indicators := calc.Compute(readings)

	if !indicators[Term1D].SpreadVs1D.IsZero() {
		t.Fatalf("1D spread must be zero, got %s", indicators[Term1D].SpreadVs1D)
	}
	if !indicators[Term7D].SpreadVs1D.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected 7D spread 2, got %s", indicators[Term7D].SpreadVs1D)
	}
	if !indicators[Term7D].LockPremium() {
		t.Fatal("positive spread should flag a lock premium")
	}
	if indicators[Term30D].LockPremium() {
		t.Fatal("negative spread must not flag a lock premium")
	}
}

func TestIndicatorsMonthlyProjection(t *testing.T) {
	calc := Calculator{Params: testCostParams()}
	readings := testReadings(map[Term]string{Term1D: "40", Term7D: "40"})

	indicators := calc.Compute(readings)
	daily := indicators[Term1D].NetDailyRate

	// 1D compounds over trading days; the compounded figure must beat
	// simple accrual over the same count.
	simple := daily.Mul(decimal.NewFromInt(20))
	if !indicators[Term1D].MonthlyIncomePerUnit.GreaterThan(simple) {
		t.Fatalf("compounded projection %s should exceed simple %s",
			indicators[Term1D].MonthlyIncomePerUnit, simple)
	}

	// Locked terms accrue pro-rata: daily * 30 * (5/7).
	want := daily.Mul(decimal.NewFromInt(30)).Mul(decimal.NewFromInt(5)).Div(decimal.NewFromInt(7))
	if !indicators[Term7D].MonthlyIncomePerUnit.Equal(want) {
		t.Fatalf("expected 7D monthly %s, got %s", want, indicators[Term7D].MonthlyIncomePerUnit)
	}
}

func TestIndicatorsDeterministic(t *testing.T) {
	calc := Calculator{Params: testCostParams()}
	readings := testReadings(map[Term]string{Term1D: "37.125", Term7D: "41.4", Term14D: "44"})

	first := calc.Compute(readings)
	second := calc.Compute(readings)

	for term, ind := range first {
		other := second[term]
		if !ind.NetAnnualRate.Equal(other.NetAnnualRate) ||
			!ind.MonthlyIncomePerUnit.Equal(other.MonthlyIncomePerUnit) ||
			!ind.SpreadVs1D.Equal(other.SpreadVs1D) {
			t.Fatalf("indicators for %s are not deterministic", term)
		}
	}
}
