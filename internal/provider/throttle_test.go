package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/pkg/config"
)

// fakeClient counts calls and serves canned data
type fakeClient struct {
	quoteCalls   int
	historyCalls int
	quotes       map[string]contracts.Quote
	failWith     error
}

func (f *fakeClient) Quote(ctx context.Context, ticker string) (contracts.Quote, error) {
	f.quoteCalls++
	if f.failWith != nil {
		return contracts.Quote{}, f.failWith
	}
	q, ok := f.quotes[ticker]
	if !ok {
		return contracts.Quote{}, fmt.Errorf("unknown ticker %s", ticker)
	}
	return q, nil
}

func (f *fakeClient) BulkQuotes(ctx context.Context, tickers []string) (map[string]contracts.Quote, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) History(ctx context.Context, ticker string, days int) ([]contracts.Bar, error) {
	f.historyCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return []contracts.Bar{{Close: 100}}, nil
}

func (f *fakeClient) Fundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	return &contracts.Fundamentals{}, nil
}

func fastThrottleConfig() config.ProviderConfig {
	return config.ProviderConfig{
		MinCallInterval: time.Millisecond,
		WindowLimit:     100,
		Window:          time.Second,
	}
}

func TestThrottledQuote(t *testing.T) {
	inner := &fakeClient{quotes: map[string]contracts.Quote{
		"AAPL": {Ticker: "AAPL", Price: 180},
	}}
	th := NewThrottled(inner, fastThrottleConfig())

	q, err := th.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 180.0, q.Price)
	assert.Equal(t, 1, inner.quoteCalls)
}

func TestThrottledMinInterval(t *testing.T) {
	inner := &fakeClient{quotes: map[string]contracts.Quote{
		"AAPL": {Ticker: "AAPL", Price: 180},
	}}
	cfg := fastThrottleConfig()
	cfg.MinCallInterval = 20 * time.Millisecond
	th := NewThrottled(inner, cfg)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := th.Quote(context.Background(), "AAPL")
		require.NoError(t, err)
	}

	// Two gaps between three calls
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestThrottledBulkQuotes_SkipsUnknown(t *testing.T) {
	inner := &fakeClient{quotes: map[string]contracts.Quote{
		"AAPL": {Ticker: "AAPL", Price: 180},
		"KO":   {Ticker: "KO", Price: 60},
	}}
	th := NewThrottled(inner, fastThrottleConfig())

	quotes, err := th.BulkQuotes(context.Background(), []string{"AAPL", "BOGUS", "KO"})
	require.NoError(t, err)

	assert.Len(t, quotes, 2)
	assert.Contains(t, quotes, "AAPL")
	assert.Contains(t, quotes, "KO")
	assert.Equal(t, 3, inner.quoteCalls)
}

func TestThrottledBulkQuotes_RateLimitAborts(t *testing.T) {
	inner := &fakeClient{failWith: &RateLimitError{Endpoint: "/quote"}}
	th := NewThrottled(inner, fastThrottleConfig())

	_, err := th.BulkQuotes(context.Background(), []string{"AAPL", "KO", "MSFT"})
	require.Error(t, err)
	assert.True(t, IsRateLimit(err))

	// Aborted on the first quota hit, no pointless follow-up calls
	assert.Equal(t, 1, inner.quoteCalls)
}

func TestThrottledContextCancel(t *testing.T) {
	inner := &fakeClient{}
	cfg := fastThrottleConfig()
	cfg.MinCallInterval = time.Minute
	th := NewThrottled(inner, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// First call consumes the burst token; second must block and
	// then fail when the context expires.
	_, _ = th.History(ctx, "AAPL", 30)
	_, err := th.History(ctx, "AAPL", 30)
	assert.Error(t, err)
}

func TestIsRateLimit(t *testing.T) {
	assert.True(t, IsRateLimit(&RateLimitError{Endpoint: "/quote"}))
	assert.True(t, IsRateLimit(fmt.Errorf("fetch AAPL: %w", &RateLimitError{})))
	assert.False(t, IsRateLimit(errors.New("boom")))
	assert.False(t, IsRateLimit(nil))
}
