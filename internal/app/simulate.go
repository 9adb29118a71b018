package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"caucion-alerts/internal/alerting"
	"caucion-alerts/internal/engine"
	"caucion-alerts/internal/users"
)

// SimulateCycle runs one engine cycle against caller-supplied TNA values
// and a blank in-memory state, printing the rendered payloads. With
// --deliver the configured notification channel really fires.
func (a *App) SimulateCycle(ctx context.Context, opts SimulateOptions) error {
	if len(opts.Rates) == 0 {
		return errors.New("no rates supplied")
	}

	eng, err := a.newEngine()
	if err != nil {
		return err
	}

	roster, err := users.Load(a.Config.Users.Path)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	samples := make([]engine.RawSample, 0, len(opts.Rates))
	for term, rate := range opts.Rates {
		samples = append(samples, engine.RawSample{
			TermDays:   term.Days(),
			TNA:        strconv.FormatFloat(rate, 'f', -1, 64),
			Source:     "simulated",
			ObservedAt: now,
		})
	}

	result, err := eng.RunCycle(engine.CycleInput{
		Now:     now,
		Samples: samples,
		Users:   roster.EngineUsers(),
		State:   engine.NewState(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "market status: %s, best term: %s\n", result.Snapshot.MarketStatus, result.Snapshot.BestTerm)
	for _, tr := range result.Transitions {
		fmt.Fprintf(os.Stdout, "transition: %s %s -> %s (%s)\n", tr.Term, tr.From, tr.To, tr.Direction)
	}
	for _, failure := range result.Failures {
		fmt.Fprintf(os.Stdout, "skipped user %s: %v\n", failure.UserID, failure.Err)
	}
	for _, payload := range result.Payloads {
		fmt.Fprintf(os.Stdout, "--- payload for %s (%s %s)\n%s\n", payload.UserID, payload.Term, payload.Level, payload.Text)
	}

	if !opts.Deliver {
		return nil
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no notification channel configured")
	}
	for _, payload := range result.Payloads {
		delivery := alerting.Delivery{
			UserID:  payload.UserID,
			ChatID:  roster.ChatID(payload.UserID),
			Term:    payload.Term,
			Level:   payload.Level,
			Text:    payload.Text,
			SentFor: now,
		}
		if err := notifier.Notify(ctx, delivery); err != nil {
			a.Logger.Error().Err(err).Str("user_id", payload.UserID).Msg("simulated delivery failed")
		}
	}
	return nil
}
