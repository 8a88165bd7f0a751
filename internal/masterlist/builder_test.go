package masterlist

import (
	"context"
	"errors"
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

type fakeProvider struct {
	quotes    map[string]contracts.Quote
	bulkCalls int
	quoted    map[string]int
	failAfter int // rate limit on bulk call number failAfter+1, 0 = never
}

func (f *fakeProvider) Quote(ctx context.Context, ticker string) (contracts.Quote, error) {
	return contracts.Quote{}, errors.New("not used")
}

func (f *fakeProvider) BulkQuotes(ctx context.Context, tickers []string) (map[string]contracts.Quote, error) {
	f.bulkCalls++
	if f.failAfter > 0 && f.bulkCalls > f.failAfter {
		return nil, &provider.RateLimitError{Endpoint: "/quote"}
	}

	if f.quoted == nil {
		f.quoted = make(map[string]int)
	}
	out := make(map[string]contracts.Quote)
	for _, t := range tickers {
		f.quoted[t]++
		if q, ok := f.quotes[t]; ok {
			out[t] = q
		}
	}
	return out, nil
}

func (f *fakeProvider) History(ctx context.Context, ticker string, days int) ([]contracts.Bar, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) Fundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	return nil, errors.New("not used")
}

type emptyDenyList struct{}

func (emptyDenyList) LoadDenyList() (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

type staticDenyList map[string]struct{}

func (d staticDenyList) LoadDenyList() (map[string]struct{}, error) { return d, nil }

func quote(ticker, exchange string, cap, volume float64) contracts.Quote {
	return contracts.Quote{Ticker: ticker, Name: ticker + " Inc", Exchange: exchange, Price: 50, MarketCap: cap, Volume: volume}
}

func newTestBuilder(t *testing.T, p provider.Client, denied DenyLister, cfg Config) (*Builder, *Repository) {
	t.Helper()
	logCfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "json"}
	repo := NewRepository(jsonstore.New(t.TempDir()))
	return NewBuilder(p, repo, denied, progress.NewBus(), logger.New(logCfg), cfg), repo
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	cfg.TargetSize = 3
	return cfg
}

func TestBuild_FiltersAndRanks(t *testing.T) {
	p := &fakeProvider{quotes: map[string]contracts.Quote{
		"BIG":   quote("BIG", "NMS", 5e11, 5e7),
		"MID":   quote("MID", "NYQ", 1e10, 1e6),
		"SMALL": quote("SMALL", "NGM", 5e8, 2e5),
		"TINY":  quote("TINY", "NMS", 5e7, 2e5),  // below cap floor
		"THIN":  quote("THIN", "NMS", 1e10, 5e4), // below volume floor
		"OTC":   quote("OTC", "PNK", 1e10, 1e6),  // wrong venue
	}}

	b, _ := newTestBuilder(t, p, emptyDenyList{}, smallConfig())
	list, err := b.Build(context.Background(), []string{"BIG", "MID", "SMALL", "TINY", "THIN", "OTC", "DEAD"})
	require.NoError(t, err)

	require.Equal(t, 3, list.Count())
	assert.Equal(t, "BIG", list.Stocks[0].Ticker)
	assert.Equal(t, "MID", list.Stocks[1].Ticker)
	assert.Equal(t, "SMALL", list.Stocks[2].Ticker)

	assert.Equal(t, 7, list.Stats.Candidates)
	assert.Equal(t, 4, list.Stats.Filtered)
}

func TestBuild_TruncatesToTargetSize(t *testing.T) {
	quotes := make(map[string]contracts.Quote)
	tickers := []string{"A", "B", "C", "D", "E"}
	for i, tk := range tickers {
		quotes[tk] = quote(tk, "NMS", float64(i+2)*1e9, 1e6)
	}

	p := &fakeProvider{quotes: quotes}
	b, _ := newTestBuilder(t, p, emptyDenyList{}, smallConfig())

	list, err := b.Build(context.Background(), tickers)
	require.NoError(t, err)

	assert.Equal(t, 3, list.Count())
	// Largest caps win within equal quality bands
	assert.Equal(t, "E", list.Stocks[0].Ticker)
}

func TestBuild_SkipsDenylisted(t *testing.T) {
	p := &fakeProvider{quotes: map[string]contracts.Quote{
		"GOOD": quote("GOOD", "NMS", 1e10, 1e6),
		"BAD":  quote("BAD", "NMS", 1e10, 1e6),
	}}

	b, _ := newTestBuilder(t, p, staticDenyList{"BAD": {}}, smallConfig())
	list, err := b.Build(context.Background(), []string{"GOOD", "BAD"})
	require.NoError(t, err)

	assert.Equal(t, []string{"GOOD"}, list.Tickers())
	assert.Equal(t, 0, p.quoted["BAD"])
}

func TestBuild_RateLimitKeepsCheckpoint(t *testing.T) {
	p := &fakeProvider{
		quotes: map[string]contracts.Quote{
			"A": quote("A", "NMS", 1e10, 1e6),
			"B": quote("B", "NMS", 1e10, 1e6),
			"C": quote("C", "NMS", 1e10, 1e6),
			"D": quote("D", "NMS", 1e10, 1e6),
		},
		failAfter: 1, // second batch hits the quota
	}

	b, repo := newTestBuilder(t, p, emptyDenyList{}, smallConfig())
	_, err := b.Build(context.Background(), []string{"A", "B", "C", "D"})
	require.Error(t, err)
	assert.True(t, provider.IsRateLimit(err))

	cp, err := repo.loadCheckpoint()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, cp.Processed)

	// Resume: only the unprocessed half is refetched
	p.failAfter = 0
	list, err := b.Build(context.Background(), []string{"A", "B", "C", "D"})
	require.NoError(t, err)

	assert.Equal(t, 1, p.quoted["A"])
	assert.Equal(t, 1, p.quoted["C"])
	assert.Equal(t, 3, list.Count()) // target size caps the four survivors

	// Completed build clears the checkpoint
	cp, err = repo.loadCheckpoint()
	require.NoError(t, err)
	assert.Empty(t, cp.Processed)
}

func TestLoadOrRebuild_Freshness(t *testing.T) {
	p := &fakeProvider{quotes: map[string]contracts.Quote{
		"A": quote("A", "NMS", 1e10, 1e6),
	}}
	b, repo := newTestBuilder(t, p, emptyDenyList{}, smallConfig())

	fresh := &contracts.MasterList{
		CreatedAt: time.Now().Add(-29 * 24 * time.Hour),
		Stocks:    []contracts.MasterListEntry{{Ticker: "CACHED"}},
	}
	require.NoError(t, repo.Save(fresh))

	list, err := b.LoadOrRebuild(context.Background(), []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CACHED"}, list.Tickers())
	assert.Equal(t, 0, p.bulkCalls)

	// One day past the freshness boundary triggers a rebuild
	stale := &contracts.MasterList{
		CreatedAt: time.Now().Add(-31 * 24 * time.Hour),
		Stocks:    []contracts.MasterListEntry{{Ticker: "CACHED"}},
	}
	require.NoError(t, repo.Save(stale))

	list, err = b.LoadOrRebuild(context.Background(), []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, list.Tickers())
	assert.Positive(t, p.bulkCalls)
}

func TestQualityScore(t *testing.T) {
	b, _ := newTestBuilder(t, &fakeProvider{}, emptyDenyList{}, DefaultConfig())

	// log10(1e10/1e8)=2, log10(1e6/1e5)=1, NMS bonus 1
	s := b.qualityScore(quote("X", "NMS", 1e10, 1e6))
	assert.InDelta(t, 4.0, s, 1e-9)

	// Caps: mega cap and huge volume saturate at 5 and 3
	s = b.qualityScore(quote("Y", "NGM", 1e15, 1e10))
	assert.InDelta(t, 8.5, s, 1e-9)

	// Unlisted venue gets no bonus
	s = b.qualityScore(quote("Z", "PNK", 1e10, 1e6))
	assert.InDelta(t, 3.0, s, 1e-9)
}
