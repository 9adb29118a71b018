package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"caucion-alerts/internal/engine"
)

// Delivery is one rendered payload plus its target address. The engine
// produces the payload; the roster resolves the chat.
type Delivery struct {
	UserID  string
	ChatID  string
	Term    engine.Term
	Level   engine.AlertLevel
	Text    string
	RunID   string
	SentFor time.Time
}

// Notifier pushes one delivery to its user. Implementations must treat
// each delivery independently; a failure never cancels the rest.
type Notifier interface {
	Notify(ctx context.Context, delivery Delivery) error
}

// TelegramNotifier pushes messages through the Telegram Bot API, one
// chat per user.
type TelegramNotifier struct {
	botToken string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs the Telegram channel.
func NewTelegramNotifier(botToken, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls the sendMessage API for the delivery's chat.
func (n *TelegramNotifier) Notify(ctx context.Context, delivery Delivery) error {
	if delivery.ChatID == "" {
		return fmt.Errorf("user %s has no telegram chat id", delivery.UserID)
	}

	payload := map[string]string{
		"chat_id": delivery.ChatID,
		"text":    delivery.Text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Str("user_id", delivery.UserID).
		Str("term", string(delivery.Term)).
		Str("level", delivery.Level.String()).
		Msg("notification delivered")
	return nil
}

var _ Notifier = (*TelegramNotifier)(nil)
