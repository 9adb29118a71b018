package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NotificationPayload is the rendered message for one user and one fired
// term transition. Transient: handed to the delivery collaborator and
// discarded. Net figures are nil for DEMO users.
type NotificationPayload struct {
	UserID    string
	Term      Term
	Level     AlertLevel
	From      AlertLevel
	Direction TransitionDirection

	GrossRate     decimal.Decimal
	MonthlyIncome decimal.Decimal
	NetAnnualRate *decimal.Decimal
	SpreadVs1D    *decimal.Decimal

	Text string
}

// FanOut renders personalized payloads for every active user and every
// fired transition.
type FanOut struct {
	// Watermark is the fixed suffix appended to every DEMO message.
	Watermark string
	// PayoutReminderBusinessDay appends a monthly payout-timing note to
	// PRO messages when the cycle runs on that business day of the
	// month. Zero disables the reminder.
	PayoutReminderBusinessDay int
	// Calc projects income figures scaled by each user's capital.
	Calc Calculator
}

// Run never fails the invocation for one bad user: a per-user error is
// reported as a UserNotificationError and fan-out continues.
func (f FanOut) Run(now time.Time, users []User, transitions []Transition, indicators map[Term]Indicators) ([]NotificationPayload, []*UserNotificationError) {
	if len(transitions) == 0 {
		return nil, nil
	}

	var payloads []NotificationPayload
	var failures []*UserNotificationError

	for _, user := range users {
		rendered, err := f.forUser(now, user, transitions, indicators)
		if err != nil {
			failures = append(failures, &UserNotificationError{UserID: user.ID, Err: err})
			continue
		}
		payloads = append(payloads, rendered...)
	}

	return payloads, failures
}

func (f FanOut) forUser(now time.Time, user User, transitions []Transition, indicators map[Term]Indicators) ([]NotificationPayload, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	var out []NotificationPayload
	for _, tr := range transitions {
		if user.Tier == TierDemo && tr.Term != Term1D {
			continue
		}

		ind, ok := indicators[tr.Term]
		if !ok {
			return nil, fmt.Errorf("no indicators for term %s", tr.Term)
		}

		out = append(out, f.render(now, user, tr, ind))
	}
	return out, nil
}

func (f FanOut) render(now time.Time, user User, tr Transition, ind Indicators) NotificationPayload {
	payload := NotificationPayload{
		UserID:    user.ID,
		Term:      tr.Term,
		Level:     tr.To,
		From:      tr.From,
		Direction: tr.Direction,
		GrossRate: ind.GrossRate,
	}

	var b strings.Builder
	if tr.Direction == DirectionEscalation {
		fmt.Fprintf(&b, "Caución %s subió a %s (antes %s)\n", tr.Term, tr.To, tr.From)
	} else {
		fmt.Fprintf(&b, "Caución %s bajó a %s (antes %s)\n", tr.Term, tr.To, tr.From)
	}
	fmt.Fprintf(&b, "TNA %s%%\n", ind.GrossRate.StringFixed(2))

	if user.Tier == TierDemo {
		payload.MonthlyIncome = f.grossMonthlyIncome(user.Capital, ind)
		fmt.Fprintf(&b, "Ingreso mensual estimado: $%s\n", payload.MonthlyIncome.StringFixed(2))
		b.WriteString(f.Watermark)
	} else {
		payload.MonthlyIncome = user.Capital.Mul(ind.MonthlyIncomePerUnit)
		net := ind.NetAnnualRate
		payload.NetAnnualRate = &net

		fmt.Fprintf(&b, "TNA neta %s%% · ingreso mensual neto estimado: $%s\n",
			net.StringFixed(2), payload.MonthlyIncome.StringFixed(2))

		if ind.LockPremium() {
			spread := ind.SpreadVs1D
			payload.SpreadVs1D = &spread
			fmt.Fprintf(&b, "El plazo %s paga un premio de %s pts sobre 1D\n", tr.Term, spread.StringFixed(2))
		}

		if f.payoutReminderDue(now) {
			b.WriteString("Recordatorio: hoy se acreditan los intereses del mes\n")
		}
	}

	payload.Text = strings.TrimRight(b.String(), "\n")
	return payload
}

// grossMonthlyIncome is the DEMO projection: simple pro-rata on the
// gross rate, no cost or tax deductions.
func (f FanOut) grossMonthlyIncome(capital decimal.Decimal, ind Indicators) decimal.Decimal {
	daysInYear := decimal.NewFromInt(int64(f.Calc.Params.DaysInYear))
	monthDays := decimal.NewFromInt(int64(f.Calc.Params.CalendarDaysPerMonth))
	return capital.Mul(ind.GrossRate).Div(hundred).Div(daysInYear).Mul(monthDays)
}

// payoutReminderDue reports whether now falls on the configured Nth
// business day (Mon-Fri) of its month.
func (f FanOut) payoutReminderDue(now time.Time) bool {
	n := f.PayoutReminderBusinessDay
	if n <= 0 {
		return false
	}
	count := 0
	for day := 1; day <= now.Day(); day++ {
		d := time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, now.Location())
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	wd := now.Weekday()
	return wd != time.Saturday && wd != time.Sunday && count == n
}
