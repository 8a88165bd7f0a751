package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/dipscan/internal/contracts"
)

// Client is the market data provider seen by the rest of the
// pipeline. Implementations must return RateLimitError when the
// upstream quota is exhausted so callers can stop instead of retry.
type Client interface {
	// Quote returns a current snapshot for one ticker
	Quote(ctx context.Context, ticker string) (contracts.Quote, error)

	// BulkQuotes returns snapshots for many tickers. Tickers the
	// provider does not know are absent from the result, not errors.
	BulkQuotes(ctx context.Context, tickers []string) (map[string]contracts.Quote, error)

	// History returns up to days of daily bars, oldest first
	History(ctx context.Context, ticker string, days int) ([]contracts.Bar, error)

	// Fundamentals returns fundamental metrics. Missing individual
	// metrics are nil fields, not errors.
	Fundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error)
}

// RateLimitError signals that the provider refused a call because
// the quota is exhausted. It is never retried automatically.
type RateLimitError struct {
	Endpoint string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limit exceeded on %s", e.Endpoint)
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
