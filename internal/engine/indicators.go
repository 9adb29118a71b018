package engine

import (
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// CostParams are the fixed cost/tax constants applied when deriving
// net figures. All rates are annualized percentages, matching the
// provider's TNA quoting.
type CostParams struct {
	// TaxRate is the fraction of gross yield lost to tax (0..1).
	TaxRate decimal.Decimal
	// TransactionCostRate is the annualized cost drag in percent.
	TransactionCostRate decimal.Decimal
	// DaysInYear divides annualized rates into daily ones.
	DaysInYear int
	// TradingDaysPerMonth drives the 1D daily-compounding projection.
	TradingDaysPerMonth int
	// CalendarDaysPerMonth drives the pro-rata projection for locked terms.
	CalendarDaysPerMonth int
}

// Indicators are the derived figures for one term. Pure function of
// (Reading, CostParams): identical input always yields identical output.
type Indicators struct {
	Term      Term
	GrossRate decimal.Decimal

	// NetAnnualRate = gross * (1 - tax) - transaction cost, in percent.
	NetAnnualRate decimal.Decimal
	// NetDailyRate is the net rate as a daily fraction of capital.
	NetDailyRate decimal.Decimal
	// MonthlyIncomePerUnit projects one month's income per 1 unit of
	// capital. 1D compounds daily; locked terms accrue pro-rata.
	MonthlyIncomePerUnit decimal.Decimal
	// SpreadVs1D = rate(term) - rate(1D); zero for the 1D term itself.
	// A positive spread is a lock premium.
	SpreadVs1D decimal.Decimal
}

// LockPremium reports whether the term pays more than rolling 1D.
func (i Indicators) LockPremium() bool {
	return i.Term != Term1D && i.SpreadVs1D.IsPositive()
}

// Calculator derives indicators from canonical readings.
type Calculator struct {
	Params CostParams
}

// Compute derives indicators for every present term. Readings for 1D
// must be present (the normalizer guarantees it).
func (c Calculator) Compute(readings map[Term]Reading) map[Term]Indicators {
	base := readings[Term1D].Rate

	out := make(map[Term]Indicators, len(readings))
	for term, reading := range readings {
		ind := c.compute(reading)
		if term != Term1D {
			ind.SpreadVs1D = reading.Rate.Sub(base)
		}
		out[term] = ind
	}
	return out
}

func (c Calculator) compute(reading Reading) Indicators {
	netAnnual := reading.Rate.Mul(one.Sub(c.Params.TaxRate)).Sub(c.Params.TransactionCostRate)

	daysInYear := decimal.NewFromInt(int64(c.Params.DaysInYear))
	netDaily := netAnnual.Div(hundred).Div(daysInYear)

	return Indicators{
		Term:                 reading.Term,
		GrossRate:            reading.Rate,
		NetAnnualRate:        netAnnual,
		NetDailyRate:         netDaily,
		MonthlyIncomePerUnit: c.monthlyPerUnit(reading.Term, netDaily),
	}
}

// monthlyPerUnit applies the daily-compounding approximation for 1D
// (the position rolls every trading day) and simple pro-rata accrual
// for locked terms, scaled by the trading share of the lock period.
func (c Calculator) monthlyPerUnit(term Term, netDaily decimal.Decimal) decimal.Decimal {
	if term == Term1D {
		compounded := one.Add(netDaily).Pow(decimal.NewFromInt(int64(c.Params.TradingDaysPerMonth)))
		return compounded.Sub(one)
	}

	periodDays := decimal.NewFromInt(int64(term.Days()))
	tradingDays := periodDays.Mul(decimal.NewFromInt(5)).Div(decimal.NewFromInt(7))
	monthDays := decimal.NewFromInt(int64(c.Params.CalendarDaysPerMonth))

	return netDaily.Mul(monthDays).Mul(tradingDays).Div(periodDays)
}
