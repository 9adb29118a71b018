package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"caucion-alerts/internal/alerting"
	"caucion-alerts/internal/engine"
	"caucion-alerts/internal/fetcher"
	"caucion-alerts/internal/metrics"
	"caucion-alerts/internal/publish"
	"caucion-alerts/internal/scheduler"
	"caucion-alerts/internal/state"
	"caucion-alerts/internal/storage"
	"caucion-alerts/internal/users"
)

// RosterSource yields the current active-user roster for a cycle.
type RosterSource func() (*users.Roster, error)

// Deps collects the collaborators one invocation needs. History,
// transitions, notifier, publisher and locker are optional; the engine
// and state store are not.
type Deps struct {
	Scheduler   *scheduler.Scheduler
	Fetcher     fetcher.RateFetcher
	Engine      *engine.Engine
	States      state.Store
	Roster      RosterSource
	Notifier    alerting.Notifier
	Publisher   publish.SnapshotPublisher
	History     storage.HistoryStore
	Transitions storage.TransitionStore
	Locker      storage.AdvisoryLocker
	LockKey     int64
	AlertsOn    bool
}

// Service orchestrates one sampling cycle at a time: fetch, evaluate,
// commit state, then fan deliveries and the snapshot out. Fatal errors
// abort before any external side effect; the state commit gates every
// notification so a stale invocation can never double-send.
type Service struct {
	deps   Deps
	logger zerolog.Logger
}

// New constructs the monitoring service.
func New(deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		deps:   deps,
		logger: logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the aligned sampling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.deps.Scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.deps.Scheduler.Run(ctx, s.RunCycle)
}

// RunCycle executes one full invocation for the given bucket.
func (s *Service) RunCycle(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Time("bucket", bucket).Logger()

	samples, err := s.deps.Fetcher.FetchRates(ctx)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("fetch_error").Inc()
		return fmt.Errorf("fetch rates: %w", err)
	}

	roster, err := s.loadRoster()
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load users: %w", err)
	}

	loaded, err := s.deps.States.Load(ctx)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load state: %w", err)
	}

	result, err := s.deps.Engine.RunCycle(engine.CycleInput{
		Now:     bucket,
		Samples: samples,
		Users:   roster.EngineUsers(),
		State:   loaded,
	})
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("input_error").Inc()
		return fmt.Errorf("run cycle: %w", err)
	}

	// CAS commit gates everything user-visible. A conflict means another
	// invocation won the cycle; abort with nothing sent.
	if err := s.deps.States.Commit(ctx, result.State); err != nil {
		if errors.Is(err, state.ErrConflict) {
			metrics.StateConflictsTotal.Inc()
			metrics.CyclesTotal.WithLabelValues("conflict").Inc()
			return fmt.Errorf("commit state for bucket %s: %w", bucket.Format(time.RFC3339), err)
		}
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("commit state: %w", err)
	}

	for _, failure := range result.Failures {
		metrics.NotificationsTotal.WithLabelValues("skipped_user").Inc()
		logger.Warn().Err(failure).Str("user_id", failure.UserID).Msg("user skipped during fan-out")
	}

	s.dispatch(ctx, logger, runID, bucket, roster, result.Payloads)
	s.publishSnapshot(ctx, logger, result.Snapshot)
	s.recordHistory(ctx, logger, runID, result)

	for term, reading := range result.Readings {
		metrics.LastTNA.WithLabelValues(string(term)).Set(reading.Rate.InexactFloat64())
	}
	for _, tr := range result.Transitions {
		metrics.TransitionsTotal.WithLabelValues(string(tr.Term), string(tr.Direction)).Inc()
	}
	metrics.CyclesTotal.WithLabelValues("ok").Inc()

	logger.Info().
		Int("terms", len(result.Readings)).
		Int("transitions", len(result.Transitions)).
		Int("payloads", len(result.Payloads)).
		Str("market_status", result.Snapshot.MarketStatus).
		Msg("cycle complete")
	return nil
}

func (s *Service) loadRoster() (*users.Roster, error) {
	if s.deps.Roster == nil {
		return users.Load("")
	}
	return s.deps.Roster()
}

func (s *Service) dispatch(ctx context.Context, logger zerolog.Logger, runID string, bucket time.Time, roster *users.Roster, payloads []engine.NotificationPayload) {
	if len(payloads) == 0 {
		return
	}
	if !s.deps.AlertsOn || s.deps.Notifier == nil {
		logger.Debug().Int("payloads", len(payloads)).Msg("alerting disabled; payloads dropped")
		return
	}

	for _, payload := range payloads {
		delivery := alerting.Delivery{
			UserID:  payload.UserID,
			ChatID:  roster.ChatID(payload.UserID),
			Term:    payload.Term,
			Level:   payload.Level,
			Text:    payload.Text,
			RunID:   runID,
			SentFor: bucket,
		}
		if err := s.deps.Notifier.Notify(ctx, delivery); err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			logger.Error().Err(err).Str("user_id", payload.UserID).Str("term", string(payload.Term)).Msg("failed to deliver notification")
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	}
}

func (s *Service) publishSnapshot(ctx context.Context, logger zerolog.Logger, snapshot engine.SnapshotRecord) {
	if s.deps.Publisher == nil {
		return
	}
	if err := s.deps.Publisher.Publish(ctx, snapshot); err != nil {
		logger.Error().Err(err).Msg("failed to publish snapshot")
	}
}

func (s *Service) recordHistory(ctx context.Context, logger zerolog.Logger, runID string, result engine.CycleResult) {
	if s.deps.History != nil {
		rows := make([]storage.HistoryRow, 0, len(result.Readings))
		for term, reading := range result.Readings {
			rows = append(rows, storage.HistoryRow{
				RunID:        runID,
				Term:         term,
				TNA:          reading.Rate,
				NetDailyRate: result.Indicators[term].NetDailyRate,
				Level:        result.Levels[term].String(),
				Source:       reading.Source,
				ObservedAt:   reading.ObservedAt,
			})
		}
		if _, err := s.deps.History.AppendHistory(ctx, rows); err != nil {
			logger.Error().Err(err).Msg("failed to append history")
		}
	}

	if s.deps.Transitions != nil {
		for _, tr := range result.Transitions {
			rec := storage.TransitionRecord{
				RunID:      runID,
				Term:       tr.Term,
				FromLevel:  tr.From.String(),
				ToLevel:    tr.To.String(),
				Direction:  string(tr.Direction),
				TNA:        result.Readings[tr.Term].Rate,
				ObservedAt: result.Readings[tr.Term].ObservedAt,
			}
			if _, err := s.deps.Transitions.InsertTransition(ctx, rec); err != nil {
				logger.Error().Err(err).Str("term", string(tr.Term)).Msg("failed to persist transition")
			}
		}
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.deps.LockKey == 0 || s.deps.Locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.deps.Locker.TryAdvisoryLock(ctx, s.deps.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
