package users

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"caucion-alerts/internal/engine"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write roster fixture: %v", err)
	}
	return path
}

func TestLoadRoster(t *testing.T) {
	path := writeRoster(t, `
users:
  - id: ana
    name: Ana
    capital: 1500000
    tier: DEMO
    telegram_chat_id: "111"
  - id: bruno
    name: Bruno
    capital: 7000000.50
    tier: PRO
    telegram_chat_id: "222"
`)

	roster, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if roster.Len() != 2 {
		t.Fatalf("expected 2 users, got %d", roster.Len())
	}

	users := roster.EngineUsers()
	if users[0].ID != "ana" || users[0].Tier != engine.TierDemo {
		t.Fatalf("unexpected first user %+v", users[0])
	}
	if !users[1].Capital.Equal(decimal.NewFromFloat(7000000.50)) {
		t.Fatalf("capital mangled: %s", users[1].Capital)
	}
	if roster.ChatID("bruno") != "222" {
		t.Fatalf("unexpected chat id %q", roster.ChatID("bruno"))
	}
	if roster.ChatID("nadie") != "" {
		t.Fatal("unknown user must resolve to empty chat id")
	}
}

func TestLoadRosterMissingFile(t *testing.T) {
	roster, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file must yield empty roster, got %v", err)
	}
	if roster.Len() != 0 {
		t.Fatalf("expected empty roster, got %d entries", roster.Len())
	}
}

func TestLoadRosterDuplicateID(t *testing.T) {
	path := writeRoster(t, `
users:
  - id: ana
    capital: 100
    tier: DEMO
  - id: ana
    capital: 200
    tier: PRO
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestLoadRosterEmptyID(t *testing.T) {
	path := writeRoster(t, `
users:
  - name: Sin ID
    capital: 100
    tier: PRO
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for entry without id")
	}
}

func TestLoadRosterBadYAML(t *testing.T) {
	path := writeRoster(t, "users: [unclosed")

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
