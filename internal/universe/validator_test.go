package universe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/internal/progress"
	"github.com/wonny/dipscan/internal/provider"
	"github.com/wonny/dipscan/pkg/config"
	"github.com/wonny/dipscan/pkg/jsonstore"
	"github.com/wonny/dipscan/pkg/logger"
)

// fakeProvider serves canned history and tracks concurrency
type fakeProvider struct {
	mu           sync.Mutex
	known        map[string]bool
	historyCalls int32
	inFlight     int32
	maxInFlight  int32
	rateLimitAt  int32 // fail with RateLimitError after this many calls, 0 = never
}

func (f *fakeProvider) Quote(ctx context.Context, ticker string) (contracts.Quote, error) {
	return contracts.Quote{}, fmt.Errorf("not used")
}

func (f *fakeProvider) BulkQuotes(ctx context.Context, tickers []string) (map[string]contracts.Quote, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeProvider) History(ctx context.Context, ticker string, days int) ([]contracts.Bar, error) {
	n := atomic.AddInt32(&f.historyCalls, 1)
	if f.rateLimitAt > 0 && n > f.rateLimitAt {
		return nil, &provider.RateLimitError{Endpoint: "/stock/candle"}
	}

	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.known[ticker] {
		return []contracts.Bar{{Close: 10}}, nil
	}
	return nil, nil
}

func (f *fakeProvider) Fundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	return nil, fmt.Errorf("not used")
}

type fakeSource struct {
	tickers []string
	calls   int
}

func (f *fakeSource) FetchAll(ctx context.Context) ([]string, error) {
	f.calls++
	return f.tickers, nil
}

func testDeps(t *testing.T) (*Repository, *progress.Bus, *logger.Logger) {
	t.Helper()
	cfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "json"}
	return NewRepository(jsonstore.New(t.TempDir())), progress.NewBus(), logger.New(cfg)
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchDelay = time.Millisecond
	cfg.BatchSize = 10
	return cfg
}

func TestValidate(t *testing.T) {
	repo, bus, log := testDeps(t)
	p := &fakeProvider{known: map[string]bool{"AAPL": true, "MSFT": true}}
	v := NewValidator(p, &fakeSource{}, repo, bus, log, fastConfig())

	u, err := v.Validate(context.Background(), []string{"AAPL", "BOGUS", "MSFT", "FAKE"})
	require.NoError(t, err)

	assert.Equal(t, 4, u.TotalRaw)
	assert.Equal(t, 2, u.TotalValid)
	assert.Equal(t, 2, u.TotalInvalid)
	assert.Equal(t, []string{"AAPL", "MSFT"}, u.Tickers)
}

func TestValidate_BoundedWorkers(t *testing.T) {
	repo, bus, log := testDeps(t)

	known := make(map[string]bool)
	raw := make([]string, 60)
	for i := range raw {
		raw[i] = fmt.Sprintf("T%02d", i)
		known[raw[i]] = true
	}

	p := &fakeProvider{known: known}
	v := NewValidator(p, &fakeSource{}, repo, bus, log, fastConfig())

	_, err := v.Validate(context.Background(), raw)
	require.NoError(t, err)

	assert.LessOrEqual(t, atomic.LoadInt32(&p.maxInFlight), int32(5))
}

func TestValidate_RateLimitAborts(t *testing.T) {
	repo, bus, log := testDeps(t)
	p := &fakeProvider{known: map[string]bool{}, rateLimitAt: 3}

	raw := make([]string, 50)
	for i := range raw {
		raw[i] = fmt.Sprintf("T%02d", i)
	}

	v := NewValidator(p, &fakeSource{}, repo, bus, log, fastConfig())
	_, err := v.Validate(context.Background(), raw)

	require.Error(t, err)
	assert.True(t, provider.IsRateLimit(err))
}

func TestLoadOrRebuild_UsesFreshCache(t *testing.T) {
	repo, bus, log := testDeps(t)

	cached := &contracts.ValidatedUniverse{
		GeneratedAt: time.Now().Add(-time.Hour),
		TotalRaw:    2,
		TotalValid:  2,
		Tickers:     []string{"AAPL", "MSFT"},
	}
	require.NoError(t, repo.Save(cached))

	p := &fakeProvider{}
	src := &fakeSource{tickers: []string{"AAPL"}}
	v := NewValidator(p, src, repo, bus, log, fastConfig())

	u, err := v.LoadOrRebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, u.Tickers)
	assert.Equal(t, 0, src.calls)
	assert.Equal(t, int32(0), atomic.LoadInt32(&p.historyCalls))
}

func TestDefaultConfig_DailyFreshness(t *testing.T) {
	assert.Equal(t, 24*time.Hour, DefaultConfig().MaxAge)
}

func TestLoadOrRebuild_RebuildsStaleCache(t *testing.T) {
	repo, bus, log := testDeps(t)

	// Day-old snapshots already age out under the default window
	stale := &contracts.ValidatedUniverse{
		GeneratedAt: time.Now().Add(-25 * time.Hour),
		Tickers:     []string{"OLD"},
	}
	require.NoError(t, repo.Save(stale))

	p := &fakeProvider{known: map[string]bool{"AAPL": true}}
	src := &fakeSource{tickers: []string{"AAPL", "BOGUS"}}
	v := NewValidator(p, src, repo, bus, log, fastConfig())

	u, err := v.LoadOrRebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, u.Tickers)
	assert.Equal(t, 1, src.calls)

	// Rebuilt snapshot was persisted
	persisted, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, persisted.Tickers)
}

func TestValidate_PublishesProgress(t *testing.T) {
	repo, bus, log := testDeps(t)
	ch, unsub := bus.Subscribe()
	defer unsub()

	p := &fakeProvider{known: map[string]bool{"AAPL": true}}
	cfg := fastConfig()
	cfg.BatchSize = 1
	v := NewValidator(p, &fakeSource{}, repo, bus, log, cfg)

	_, err := v.Validate(context.Background(), []string{"AAPL", "BOGUS"})
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, contracts.StageUniverse, ev.Stage)
	case <-time.After(time.Second):
		t.Fatal("no progress event published")
	}
}
