package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"caucion-alerts/internal/alerting"
	"caucion-alerts/internal/config"
	"caucion-alerts/internal/engine"
	"caucion-alerts/internal/fetcher"
	"caucion-alerts/internal/publish"
	"caucion-alerts/internal/scheduler"
	"caucion-alerts/internal/service"
	"caucion-alerts/internal/state"
	"caucion-alerts/internal/storage"
	"caucion-alerts/internal/users"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newEngine() (*engine.Engine, error) {
	params, err := a.Config.EngineParams()
	if err != nil {
		return nil, err
	}
	return engine.New(params)
}

func (a *App) newFetcher() fetcher.RateFetcher {
	return fetcher.NewBYMA(fetcher.BYMAOptions{
		BaseURL:   a.Config.Provider.BaseURL,
		Timeout:   a.Config.Provider.RequestTimeout,
		UserAgent: a.Config.Provider.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newPublisher() publish.SnapshotPublisher {
	if a.Config.Publish.DashboardPath == "" {
		return nil
	}
	return publish.NewFileSink(a.Config.Publish.DashboardPath, a.Config.Publish.LatestPath)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newStateStore(store *storage.Store) (state.Store, error) {
	switch a.Config.State.Backend {
	case "file":
		return state.NewFileStore(a.Config.State.Path), nil
	case "postgres":
		if store == nil {
			return nil, errors.New("postgres state backend requires database.dsn")
		}
		return state.NewPGStore(store.Pool()), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", a.Config.State.Backend)
	}
}

func (a *App) buildService(ctx context.Context, sched *scheduler.Scheduler) (*service.Service, func(), error) {
	eng, err := a.newEngine()
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; history disabled")
	}

	states, err := a.newStateStore(store)
	if err != nil {
		if closeStore != nil {
			closeStore()
		}
		return nil, nil, err
	}

	deps := service.Deps{
		Scheduler: sched,
		Fetcher:   a.newFetcher(),
		Engine:    eng,
		States:    states,
		Roster:    func() (*users.Roster, error) { return users.Load(a.Config.Users.Path) },
		Notifier:  a.newNotifier(),
		Publisher: a.newPublisher(),
		AlertsOn:  a.Config.Alerting.Enabled,
	}
	if store != nil {
		deps.History = store
		deps.Transitions = store
		if a.Config.State.Backend == "postgres" {
			deps.Locker = store
			deps.LockKey = a.Config.State.AdvisoryLockKey
		}
	}

	svc := service.New(deps, a.Logger)
	return svc, closeStore, nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc, closeStore, err := a.buildService(ctx, sched)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	stopMetrics := a.startMetrics(ctx)
	defer stopMetrics()

	a.Logger.Info().Msg("starting monitoring service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// Once executes a single cycle for an external trigger such as cron.
// Any failure, including a state conflict, surfaces as a failed run.
func (a *App) Once(ctx context.Context) error {
	svc, closeStore, err := a.buildService(ctx, nil)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	bucket := time.Now().UTC()
	if a.Config.Scheduler.AlignToBucket {
		bucket = bucket.Truncate(a.Config.Scheduler.Interval)
	}
	return svc.RunCycle(ctx, bucket)
}

func (a *App) startMetrics(ctx context.Context) func() {
	if !a.Config.Metrics.Enabled {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: a.Config.Metrics.ListenAddr, Handler: mux}

	go func() {
		a.Logger.Info().Str("addr", server.Addr).Msg("metrics listener started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Msg("metrics listener failed")
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}

// ExportOptions hold parameters for exporting rate history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit       int
	Transitions bool
}

// ImportOptions configure the history import job.
type ImportOptions struct {
	CSVPath string
	DryRun  bool
}

// SimulateOptions carry the synthetic readings for one simulated cycle.
type SimulateOptions struct {
	Rates   map[engine.Term]float64
	Deliver bool
}
