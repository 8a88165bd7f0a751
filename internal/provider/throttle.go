package provider

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/pkg/config"
)

// Throttled decorates a Client with client-side pacing: a minimum
// gap between consecutive calls plus a rolling-window call budget.
// Waiting is the only side effect; results and errors pass through
// untouched.
type Throttled struct {
	inner    Client
	interval *rate.Limiter
	window   *rate.Limiter
}

// NewThrottled wraps inner with the pacing from cfg
func NewThrottled(inner Client, cfg config.ProviderConfig) *Throttled {
	perSecond := float64(cfg.WindowLimit) / cfg.Window.Seconds()

	return &Throttled{
		inner:    inner,
		interval: rate.NewLimiter(rate.Every(cfg.MinCallInterval), 1),
		window:   rate.NewLimiter(rate.Limit(perSecond), cfg.WindowLimit),
	}
}

// wait blocks until one provider call is allowed
func (t *Throttled) wait(ctx context.Context) error {
	if err := t.window.Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	if err := t.interval.Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	return nil
}

// Quote paces and delegates
func (t *Throttled) Quote(ctx context.Context, ticker string) (contracts.Quote, error) {
	if err := t.wait(ctx); err != nil {
		return contracts.Quote{}, err
	}
	return t.inner.Quote(ctx, ticker)
}

// BulkQuotes fans out to individually paced Quote calls, so a large
// batch cannot burst past the window budget.
func (t *Throttled) BulkQuotes(ctx context.Context, tickers []string) (map[string]contracts.Quote, error) {
	quotes := make(map[string]contracts.Quote, len(tickers))

	for _, ticker := range tickers {
		q, err := t.Quote(ctx, ticker)
		if err != nil {
			if IsRateLimit(err) {
				return quotes, err
			}
			// Unknown tickers are simply absent from the result
			continue
		}
		quotes[ticker] = q
	}

	return quotes, nil
}

// History paces and delegates
func (t *Throttled) History(ctx context.Context, ticker string, days int) ([]contracts.Bar, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.History(ctx, ticker, days)
}

// Fundamentals paces and delegates
func (t *Throttled) Fundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Fundamentals(ctx, ticker)
}
