package fetcher

import (
	"context"

	"caucion-alerts/internal/engine"
)

// RateFetcher retrieves the raw per-term caución samples for one cycle.
// A fetch failure aborts the invocation; the engine owns no retry loop.
type RateFetcher interface {
	FetchRates(ctx context.Context) ([]engine.RawSample, error)
}
