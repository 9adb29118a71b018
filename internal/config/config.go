package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"caucion-alerts/internal/engine"
	"caucion-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Engine    EngineConfig    `mapstructure:"engine"`
	State     StateConfig     `mapstructure:"state"`
	Users     UsersConfig     `mapstructure:"users"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for history and
// the postgres state backend. Optional: without a DSN history is
// disabled and the file state backend is required.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs sampling cadence.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// ProviderConfig captures the BYMA cauciones endpoint.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// ThresholdBand is one configured band for a term.
type ThresholdBand struct {
	Level string  `mapstructure:"level"`
	Min   float64 `mapstructure:"min"`
}

// EngineConfig holds the cost constants and the per-term threshold
// tables. Thresholds have no defaults: a missing or unordered table is
// a startup failure, never a silent fallback.
type EngineConfig struct {
	TaxRate                   float64                    `mapstructure:"tax_rate"`
	TransactionCostRate       float64                    `mapstructure:"transaction_cost_rate"`
	DaysInYear                int                        `mapstructure:"days_in_year"`
	TradingDaysPerMonth       int                        `mapstructure:"trading_days_per_month"`
	CalendarDaysPerMonth      int                        `mapstructure:"calendar_days_per_month"`
	SanityCeiling             float64                    `mapstructure:"sanity_ceiling"`
	DemoWatermark             string                     `mapstructure:"demo_watermark"`
	PayoutReminderBusinessDay int                        `mapstructure:"payout_reminder_business_day"`
	Thresholds                map[string][]ThresholdBand `mapstructure:"thresholds"`
}

// StateConfig selects and parameterises the engine state backend.
type StateConfig struct {
	// Backend is "file" or "postgres".
	Backend string `mapstructure:"backend"`
	// Path locates the JSON record for the file backend.
	Path string `mapstructure:"path"`
	// AdvisoryLockKey guards overlapping invocations on the postgres
	// backend. Zero disables the lock.
	AdvisoryLockKey int64 `mapstructure:"advisory_lock_key"`
}

// UsersConfig locates the active-user roster.
type UsersConfig struct {
	Path string `mapstructure:"path"`
}

// AlertingConfig defines notification delivery.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig parameterises the Telegram delivery channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	APIBase  string `mapstructure:"api_base"`
}

// PublishConfig locates the public snapshot outputs.
type PublishConfig struct {
	DashboardPath string `mapstructure:"dashboard_path"`
	LatestPath    string `mapstructure:"latest_path"`
}

// MetricsConfig exposes the optional prometheus listener.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAUCIONWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "caucionwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "15m")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("provider.base_url", "https://open.bymadata.com.ar/vanoms-be-core/rest/api/bymadata/free")
	v.SetDefault("provider.request_timeout", "15s")
	v.SetDefault("provider.user_agent", "caucionwatch/1.0")

	v.SetDefault("engine.tax_rate", 0.07)
	v.SetDefault("engine.transaction_cost_rate", 1.5)
	v.SetDefault("engine.days_in_year", 365)
	v.SetDefault("engine.trading_days_per_month", 20)
	v.SetDefault("engine.calendar_days_per_month", 30)
	v.SetDefault("engine.sanity_ceiling", 500.0)
	v.SetDefault("engine.demo_watermark", "— Modo demo · PSA Caución")
	v.SetDefault("engine.payout_reminder_business_day", 1)

	v.SetDefault("state.backend", "file")
	v.SetDefault("state.path", "data/state.json")
	v.SetDefault("state.advisory_lock_key", int64(0x63617563))

	v.SetDefault("users.path", "users.yaml")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("publish.dashboard_path", "docs/data/dashboard.json")
	v.SetDefault("publish.latest_path", "docs/data/latest.json")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9102")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
// Threshold tables are validated separately when the engine is built.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Engine.TaxRate < 0 || c.Engine.TaxRate >= 1 {
		return fmt.Errorf("engine.tax_rate must be in [0, 1)")
	}
	if c.Engine.TransactionCostRate < 0 {
		return fmt.Errorf("engine.transaction_cost_rate cannot be negative")
	}
	if c.Engine.DaysInYear <= 0 || c.Engine.TradingDaysPerMonth <= 0 || c.Engine.CalendarDaysPerMonth <= 0 {
		return fmt.Errorf("engine day-count constants must be greater than zero")
	}
	switch c.State.Backend {
	case "file":
		if c.State.Path == "" {
			return fmt.Errorf("state.path is required for the file backend")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres state backend")
		}
	default:
		return fmt.Errorf("state.backend must be file or postgres, got %q", c.State.Backend)
	}
	if c.Alerting.Telegram.Enabled && c.Alerting.Telegram.BotToken == "" {
		return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
	}
	return nil
}

// EngineParams translates configuration into validated engine params.
func (c *Config) EngineParams() (engine.Params, error) {
	thresholds := make(engine.Thresholds, len(c.Engine.Thresholds))
	for rawTerm, bands := range c.Engine.Thresholds {
		term := engine.Term(strings.ToUpper(strings.TrimSpace(rawTerm)))
		table := engine.ThresholdTable{Term: term, Bands: make([]engine.Band, 0, len(bands))}
		for _, band := range bands {
			level, err := engine.ParseLevel(band.Level)
			if err != nil {
				return engine.Params{}, fmt.Errorf("%w: term %s: %v", engine.ErrThresholdConfig, term, err)
			}
			table.Bands = append(table.Bands, engine.Band{
				Level: level,
				Min:   decimal.NewFromFloat(band.Min),
			})
		}
		sort.Slice(table.Bands, func(i, j int) bool {
			return table.Bands[i].Level < table.Bands[j].Level
		})
		thresholds[term] = table
	}

	return engine.Params{
		Costs: engine.CostParams{
			TaxRate:              decimal.NewFromFloat(c.Engine.TaxRate),
			TransactionCostRate:  decimal.NewFromFloat(c.Engine.TransactionCostRate),
			DaysInYear:           c.Engine.DaysInYear,
			TradingDaysPerMonth:  c.Engine.TradingDaysPerMonth,
			CalendarDaysPerMonth: c.Engine.CalendarDaysPerMonth,
		},
		Thresholds:                thresholds,
		SanityCeiling:             decimal.NewFromFloat(c.Engine.SanityCeiling),
		DemoWatermark:             c.Engine.DemoWatermark,
		PayoutReminderBusinessDay: c.Engine.PayoutReminderBusinessDay,
	}, nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
