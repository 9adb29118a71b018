package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"caucion-alerts/internal/engine"
)

const (
	caucionesPath = "/cauciones"
	sourceBYMA    = "BYMA"
)

// fecha arrives in a handful of shapes depending on the trading session.
var fechaLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// BYMAOptions parameterise the BYMA cauciones fetcher.
type BYMAOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// BYMA fetches caución rows from the public bymadata endpoint.
type BYMA struct {
	opts    BYMAOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewBYMA constructs the provider client.
func NewBYMA(opts BYMAOptions, logger zerolog.Logger) *BYMA {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://open.bymadata.com.ar/vanoms-be-core/rest/api/bymadata/free"
	}

	return &BYMA{
		opts:    opts,
		logger:  logger.With().Str("component", "byma_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchRates downloads the current caución board. Rows without a quoted
// TNA are dropped here; everything else is passed through raw so the
// normalizer owns validation.
func (b *BYMA) FetchRates(ctx context.Context) ([]engine.RawSample, error) {
	endpoint := b.baseURL + caucionesPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(b.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch cauciones: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cauciones response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	var rows []caucionRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("decode cauciones response: %w", err)
	}

	fetchedAt := time.Now().UTC()
	samples := make([]engine.RawSample, 0, len(rows))
	for _, row := range rows {
		if row.TNA == "" {
			continue
		}
		samples = append(samples, engine.RawSample{
			TermDays:   row.Plazo,
			TNA:        row.TNA.String(),
			Source:     sourceBYMA,
			ObservedAt: parseFecha(row.Fecha, fetchedAt),
		})
	}

	b.logger.Debug().Int("rows", len(rows)).Int("samples", len(samples)).Msg("cauciones board fetched")
	return samples, nil
}

type caucionRow struct {
	Plazo int         `json:"plazo"`
	TNA   json.Number `json:"tna"`
	Fecha string      `json:"fecha"`
}

func parseFecha(fecha string, fallback time.Time) time.Time {
	fecha = strings.TrimSpace(fecha)
	if fecha == "" {
		return fallback
	}
	for _, layout := range fechaLayouts {
		if ts, err := time.Parse(layout, fecha); err == nil {
			return ts
		}
	}
	return fallback
}

type errorResponse struct {
	Description string `json:"description"`
	Message     string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Description != "" {
			return fmt.Errorf("byma api error (%d): %s", status, apiErr.Description)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("byma api error (%d): %s", status, apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("byma api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("byma api error (%d)", status)
}

var _ RateFetcher = (*BYMA)(nil)
