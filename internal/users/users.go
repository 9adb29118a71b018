// Package users loads the resolved roster of active subscribers. The
// engine treats users as read-only input; subscription management and
// payment status are someone else's problem.
package users

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"caucion-alerts/internal/engine"
)

// Entry is one roster row: the engine-visible user plus delivery
// addressing for the notification channel.
type Entry struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	Capital        float64 `yaml:"capital"`
	Tier           string  `yaml:"tier"`
	TelegramChatID string  `yaml:"telegram_chat_id"`
}

// Roster is the parsed users file.
type Roster struct {
	entries []Entry
	chatIDs map[string]string
}

// Load parses the yaml roster at path. A missing file yields an empty
// roster: the cycle still runs for the public snapshot.
func Load(path string) (*Roster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Roster{chatIDs: map[string]string{}}, nil
		}
		return nil, fmt.Errorf("read users file %s: %w", path, err)
	}

	var doc struct {
		Users []Entry `yaml:"users"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}

	roster := &Roster{entries: doc.Users, chatIDs: make(map[string]string, len(doc.Users))}
	seen := make(map[string]bool, len(doc.Users))
	for _, entry := range doc.Users {
		if entry.ID == "" {
			return nil, fmt.Errorf("users file %s: entry without id", path)
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("users file %s: duplicate id %q", path, entry.ID)
		}
		seen[entry.ID] = true
		roster.chatIDs[entry.ID] = entry.TelegramChatID
	}
	return roster, nil
}

// EngineUsers shapes the roster into the engine's read-only view.
func (r *Roster) EngineUsers() []engine.User {
	out := make([]engine.User, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, engine.User{
			ID:      entry.ID,
			Capital: decimal.NewFromFloat(entry.Capital),
			Tier:    engine.Tier(entry.Tier),
		})
	}
	return out
}

// ChatID resolves a user's delivery address, empty when unknown.
func (r *Roster) ChatID(userID string) string {
	return r.chatIDs[userID]
}

// Len reports the number of active users.
func (r *Roster) Len() int {
	return len(r.entries)
}
