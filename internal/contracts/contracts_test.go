package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestTickerRecordScorable(t *testing.T) {
	bars := make([]Bar, 20)

	tests := []struct {
		name   string
		record TickerRecord
		want   bool
	}{
		{"complete", TickerRecord{Price: 100, MarketCap: 1e9, History: bars}, true},
		{"zero price", TickerRecord{Price: 0, MarketCap: 1e9, History: bars}, false},
		{"zero market cap", TickerRecord{Price: 100, MarketCap: 0, History: bars}, false},
		{"short history", TickerRecord{Price: 100, MarketCap: 1e9, History: bars[:19]}, false},
		{"no history", TickerRecord{Price: 100, MarketCap: 1e9}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.Scorable())
		})
	}
}

func TestFundamentalsIsEmpty(t *testing.T) {
	var nilF *Fundamentals
	assert.True(t, nilF.IsEmpty())
	assert.True(t, (&Fundamentals{}).IsEmpty())
	assert.False(t, (&Fundamentals{Beta: f(1.2)}).IsEmpty())
	assert.False(t, (&Fundamentals{TrailingPE: f(15)}).IsEmpty())
}

func TestQualityChecksFailedCount(t *testing.T) {
	all := QualityChecks{true, true, true, true, true}
	assert.Equal(t, 0, all.FailedCount())

	two := QualityChecks{PositiveCashFlow: true, Profitable: true, SaneValuation: true}
	assert.Equal(t, 2, two.FailedCount())

	none := QualityChecks{}
	assert.Equal(t, 5, none.FailedCount())
}

func TestUniverseContains(t *testing.T) {
	u := ValidatedUniverse{Tickers: []string{"AAPL", "MSFT"}}
	assert.True(t, u.Contains("AAPL"))
	assert.False(t, u.Contains("TSLA"))
	assert.Equal(t, 2, u.Count())
}

func TestStaleness(t *testing.T) {
	fresh := MasterList{CreatedAt: time.Now().Add(-29 * 24 * time.Hour)}
	assert.False(t, fresh.IsStale(30*24*time.Hour))

	stale := MasterList{CreatedAt: time.Now().Add(-31 * 24 * time.Hour)}
	assert.True(t, stale.IsStale(30*24*time.Hour))

	snap := ScoreSnapshot{LastUpdate: time.Now().Add(-25 * time.Hour)}
	assert.True(t, snap.IsStale(24*time.Hour))
}

func TestMasterListTickers(t *testing.T) {
	m := MasterList{Stocks: []MasterListEntry{
		{Ticker: "AAPL", QualityScore: 8.9},
		{Ticker: "KO", QualityScore: 7.1},
	}}
	assert.Equal(t, []string{"AAPL", "KO"}, m.Tickers())
}
