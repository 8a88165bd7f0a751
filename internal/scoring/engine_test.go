package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/pkg/config"
	"github.com/wonny/dipscan/pkg/logger"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logCfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "json"}
	e := NewEngine(DefaultParams(), logger.New(logCfg))
	e.now = func() time.Time {
		return time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)
	}
	return e
}

// dipRecord builds a record in a deep one-year rally followed by a
// 25% pullback on elevated volume.
func dipRecord(f *contracts.Fundamentals) *contracts.TickerRecord {
	closes := append(ramp(50, 100, 200), ramp(99.5, 75, 60)...)
	bars := barsFromCloses(closes)
	bars[len(bars)-1].Volume = 2_200_000

	return &contracts.TickerRecord{
		Ticker:       "DIP",
		Name:         "Dip Corp",
		Price:        75,
		MarketCap:    5e10,
		Volume:       2_200_000,
		History:      bars,
		Fundamentals: f,
		CollectedAt:  time.Now(),
	}
}

func TestScore_GateFailureShortCircuits(t *testing.T) {
	e := newTestEngine(t)
	res := e.Score(dipRecord(brokenFundamentals()))

	assert.Zero(t, res.Score)
	assert.Equal(t, contracts.RecAvoid, res.Recommendation)
	assert.Equal(t, "high", res.Confidence)
	assert.False(t, res.QualityGate.Passed)

	// Technical layers never ran
	assert.Zero(t, res.DipSignal.Score)
	assert.Zero(t, res.ReversalSpark.Score)
	assert.Zero(t, res.RiskModifiers.Score)
	assert.NotEmpty(t, res.KeyRisks)
}

func TestScore_CompositeIsSumOfLayers(t *testing.T) {
	e := newTestEngine(t)
	res := e.Score(dipRecord(solidFundamentals()))

	require.True(t, res.QualityGate.Passed)
	sum := res.QualityGate.Score + res.DipSignal.Score +
		res.ReversalSpark.Score + res.RiskModifiers.Score
	assert.InDelta(t, sum, res.Score, 1e-9)
	assert.True(t, res.HasEnhancedData)
}

func TestScore_NegativeSumIsNotClamped(t *testing.T) {
	e := newTestEngine(t)

	// Passes the gate (only the cash-flow check fails) but earns zero
	// on every ladder, and a calm uptrend earns nothing technical, so
	// beta and short float leave the whole composite below zero.
	f := &contracts.Fundamentals{
		FreeCashFlow:      fp(-1e9),
		OperatingCashFlow: fp(-1e8),
		ProfitMargin:      fp(0.01),
		OperatingMargin:   fp(-0.05),
		ReturnOnEquity:    fp(-0.1),
		DebtToEquity:      fp(2.5),
		CurrentRatio:      fp(0.9),
		TrailingPE:        fp(99),
		PriceToBook:       fp(15),
		RevenueGrowth:     fp(-0.05),
		DividendYield:     fp(0.02),
		PayoutRatio:       fp(0.9),
		Beta:              fp(2.0),
		ShortPercentFloat: fp(0.25),
	}
	record := &contracts.TickerRecord{
		Ticker:       "GRIND",
		Price:        110,
		MarketCap:    1e9,
		Volume:       1_000_000,
		History:      barsFromCloses(ramp(100, 110, 60)),
		Fundamentals: f,
		CollectedAt:  time.Now(),
	}
	res := e.Score(record)

	require.True(t, res.QualityGate.Passed)
	require.Negative(t, res.RiskModifiers.Score)

	sum := res.QualityGate.Score + res.DipSignal.Score +
		res.ReversalSpark.Score + res.RiskModifiers.Score
	require.Negative(t, sum)
	assert.InDelta(t, sum, res.Score, 1e-9)
	assert.Equal(t, "F", res.Grade)
}

func TestScore_Bounds(t *testing.T) {
	e := newTestEngine(t)

	records := []*contracts.TickerRecord{
		dipRecord(solidFundamentals()),
		dipRecord(brokenFundamentals()),
		dipRecord(&contracts.Fundamentals{Beta: fp(1.0)}),
		{Ticker: "BARE", Price: 10, MarketCap: 1e9, History: barsFromCloses(ramp(10, 12, 25))},
	}

	p := DefaultParams()
	maxSum := p.QualityGate.Max() + p.DipSignal.Max() + p.ReversalSpark.Max() + p.RiskModifiers.Cap
	for _, r := range records {
		res := e.Score(r)

		assert.GreaterOrEqual(t, res.Score, p.RiskModifiers.Floor)
		assert.LessOrEqual(t, res.Score, maxSum)
		assert.LessOrEqual(t, res.QualityGate.Score, p.QualityGate.Max())
		assert.LessOrEqual(t, res.DipSignal.Score, p.DipSignal.Max())
		assert.LessOrEqual(t, res.ReversalSpark.Score, p.ReversalSpark.Max())
		assert.GreaterOrEqual(t, res.RiskModifiers.Score, p.RiskModifiers.Floor)
		assert.LessOrEqual(t, res.RiskModifiers.Score, p.RiskModifiers.Cap)
		assert.NotEmpty(t, res.Grade)
		assert.NotEmpty(t, res.Recommendation)
	}
}

func TestScore_PremiumDipOnQualityCompany(t *testing.T) {
	e := newTestEngine(t)
	res := e.Score(dipRecord(solidFundamentals()))

	assert.Equal(t, DipPremium, res.DipSignal.Classification)
	assert.GreaterOrEqual(t, res.Score, e.params.Recommendation.Watch)
	assert.Contains(t, []string{contracts.RecStrongBuy, contracts.RecBuy}, res.Recommendation)
	assert.Contains(t, res.KeyStrengths, "textbook dip pattern")
}

func TestScore_NoFundamentalsUsesLegacyPath(t *testing.T) {
	e := newTestEngine(t)

	record := dipRecord(nil)
	res := e.Score(record)

	assert.False(t, res.HasEnhancedData)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 100.0)
	assert.Contains(t, res.KeyRisks, "fundamentals unavailable")

	// The deep pullback still registers on the fallback scale
	assert.Positive(t, res.Score)
	assert.NotEqual(t, "high", res.Confidence)
}

func TestScore_HighRiskDowngradesBuy(t *testing.T) {
	e := newTestEngine(t)

	// Force the downgrade branch directly
	res := contracts.ScoreRecord{
		Score:          82,
		Recommendation: contracts.RecStrongBuy,
		Confidence:     "high",
	}
	res.RiskModifiers.RiskLevel = RiskHigh
	e.adjustRecommendation(&res)

	assert.Equal(t, contracts.RecWatch, res.Recommendation)
	assert.Equal(t, "low", res.Confidence)
}

func TestScore_PremiumDipUpgradesBuy(t *testing.T) {
	e := newTestEngine(t)

	res := contracts.ScoreRecord{
		Score:          72,
		Recommendation: contracts.RecBuy,
		Confidence:     "high",
	}
	res.DipSignal.Classification = DipPremium
	res.RiskModifiers.RiskLevel = RiskNeutral
	e.adjustRecommendation(&res)

	assert.Equal(t, contracts.RecStrongBuy, res.Recommendation)
}

func TestRecommend_Thresholds(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		score      float64
		want       string
		confidence string
	}{
		{85, contracts.RecStrongBuy, "high"},
		{75, contracts.RecBuy, "high"},
		{62, contracts.RecBuy, "medium"},
		{55, contracts.RecWatch, "medium"},
		{42, contracts.RecWatch, "low"},
		{20, contracts.RecAvoid, "high"},
	}

	for _, tt := range tests {
		rec, conf := e.recommend(tt.score)
		assert.Equal(t, tt.want, rec, "score %.0f", tt.score)
		assert.Equal(t, tt.confidence, conf, "score %.0f", tt.score)
	}
}

func TestLetterGrade_Bands(t *testing.T) {
	assert.Equal(t, "A+", letterGrade(90))
	assert.Equal(t, "A", letterGrade(80))
	assert.Equal(t, "B-", letterGrade(60))
	assert.Equal(t, "C", letterGrade(50))
	assert.Equal(t, "F", letterGrade(10))
}
