package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"caucion-alerts/internal/engine"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}
	return path
}

const validConfig = `
scheduler:
  interval: 10m
engine:
  tax_rate: 0.07
  thresholds:
    1d:
      - level: GOOD
        min: 40
      - level: PREMIUM
        min: 55
      - level: ROCKET
        min: 70
    7d:
      - level: GOOD
        min: 42
state:
  backend: file
  path: data/state.json
`

func TestLoadConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Scheduler.Interval.Minutes() != 10 {
		t.Fatalf("interval override not applied: %s", cfg.Scheduler.Interval)
	}
	// Defaults fill the rest.
	if cfg.Provider.BaseURL == "" {
		t.Fatal("provider default missing")
	}
	if cfg.Engine.DaysInYear != 365 {
		t.Fatalf("expected default days_in_year 365, got %d", cfg.Engine.DaysInYear)
	}
	if cfg.State.Backend != "file" {
		t.Fatalf("unexpected state backend %q", cfg.State.Backend)
	}
}

func TestEngineParamsFromConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	params, err := cfg.EngineParams()
	if err != nil {
		t.Fatalf("engine params failed: %v", err)
	}
	if err := params.Thresholds.Validate(); err != nil {
		t.Fatalf("translated thresholds invalid: %v", err)
	}

	table := params.Thresholds[engine.Term1D]
	if len(table.Bands) != 3 {
		t.Fatalf("expected 3 bands for 1D, got %d", len(table.Bands))
	}
	if table.Bands[0].Level != engine.LevelGood || !table.Bands[0].Min.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected first band %+v", table.Bands[0])
	}
	if !params.Costs.TaxRate.Equal(decimal.NewFromFloat(0.07)) {
		t.Fatalf("tax rate mangled: %s", params.Costs.TaxRate)
	}
}

func TestEngineParamsRejectsUnknownLevel(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
engine:
  thresholds:
    1d:
      - level: LUNAR
        min: 40
state:
  backend: file
  path: data/state.json
`))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if _, err := cfg.EngineParams(); !errors.Is(err, engine.ErrThresholdConfig) {
		t.Fatalf("expected ErrThresholdConfig, got %v", err)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
state:
  backend: redis
`))
	if err == nil {
		t.Fatal("expected error for unknown state backend")
	}
}

func TestValidateRequiresDSNForPostgres(t *testing.T) {
	_, err := Load(writeConfig(t, `
state:
  backend: postgres
`))
	if err == nil {
		t.Fatal("expected error for postgres backend without dsn")
	}
}

func TestValidateRequiresBotTokenWhenTelegramEnabled(t *testing.T) {
	_, err := Load(writeConfig(t, `
alerting:
  enabled: true
  telegram:
    enabled: true
`))
	if err == nil {
		t.Fatal("expected error for enabled telegram without bot token")
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 500}}

	if got := cfg.ResolveMaxPoints(0); got != 500 {
		t.Fatalf("expected config default 500, got %d", got)
	}
	if got := cfg.ResolveMaxPoints(25); got != 25 {
		t.Fatalf("expected override 25, got %d", got)
	}
}
