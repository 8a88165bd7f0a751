package contracts

import "time"

// Recommendation values, strongest to weakest
const (
	RecStrongBuy = "STRONG_BUY"
	RecBuy       = "BUY"
	RecWatch     = "WATCH"
	RecAvoid     = "AVOID"
)

// QualityChecks are the five binary survival checks a company must
// mostly pass before any technical signal is considered.
type QualityChecks struct {
	PositiveCashFlow  bool `json:"positive_cash_flow"`
	ManageableDebt    bool `json:"manageable_debt"`
	Profitable        bool `json:"profitable"`
	AdequateLiquidity bool `json:"adequate_liquidity"`
	SaneValuation     bool `json:"sane_valuation"`
}

// FailedCount returns the number of failed checks
func (c QualityChecks) FailedCount() int {
	failed := 0
	for _, ok := range []bool{
		c.PositiveCashFlow, c.ManageableDebt, c.Profitable,
		c.AdequateLiquidity, c.SaneValuation,
	} {
		if !ok {
			failed++
		}
	}
	return failed
}

// QualityGateResult is the fundamentals layer outcome (0..35)
type QualityGateResult struct {
	Score  float64 `json:"score"`
	Passed bool    `json:"passed"`
	Grade  string  `json:"grade"`

	CashFlowHealth  float64 `json:"cash_flow_health"`
	Profitability   float64 `json:"profitability"`
	DebtManagement  float64 `json:"debt_management"`
	ValuationSanity float64 `json:"valuation_sanity"`
	BusinessQuality float64 `json:"business_quality"`

	Checks       QualityChecks `json:"checks"`
	FailedChecks int           `json:"failed_checks"`
}

// DipSignalResult is the dip detection layer outcome (0..45)
type DipSignalResult struct {
	Score          float64 `json:"score"`
	Classification string  `json:"classification"` // premium_dip, quality_dip, mild_dip, deep_value, no_dip
	InSweetSpot    bool    `json:"in_sweet_spot"`
	Grade          string  `json:"grade"`

	DropSeverity    float64 `json:"drop_severity"`
	OversoldRSI     float64 `json:"oversold_rsi"`
	VolumeSignature float64 `json:"volume_signature"`
	SMAPositioning  float64 `json:"sma_positioning"`
}

// ReversalSparkResult is the early-reversal layer outcome (0..15)
type ReversalSparkResult struct {
	Score    float64 `json:"score"`
	Strength string  `json:"strength"` // strong, moderate, weak, none

	MACDSignals        float64 `json:"macd_signals"`
	CandlePatterns     float64 `json:"candle_patterns"`
	MomentumDivergence float64 `json:"momentum_divergence"`
	VolumeReversal     float64 `json:"volume_reversal"`
}

// RiskModifiersResult is the context adjustment layer outcome (-10..+10)
type RiskModifiersResult struct {
	Score     float64 `json:"score"`
	RiskLevel string  `json:"risk_level"` // high_risk, elevated_risk, neutral, slightly_favorable, favorable

	Sector     float64 `json:"sector"`
	Volatility float64 `json:"volatility"`
	Liquidity  float64 `json:"liquidity"`
	Macro      float64 `json:"macro"`
}

// ScoreRecord is the full scoring outcome for one ticker
type ScoreRecord struct {
	Ticker         string  `json:"ticker"`
	Name           string  `json:"name,omitempty"`
	Price          float64 `json:"price"`
	Score          float64 `json:"score"`
	Grade          string  `json:"grade"`
	Recommendation string  `json:"recommendation"`
	Confidence     string  `json:"confidence"` // high, medium, low

	QualityGate   QualityGateResult   `json:"quality_gate"`
	DipSignal     DipSignalResult     `json:"dip_signal"`
	ReversalSpark ReversalSparkResult `json:"reversal_spark"`
	RiskModifiers RiskModifiersResult `json:"risk_modifiers"`

	// False when fundamentals were unavailable and the fallback
	// technical-only scoring path produced this record.
	HasEnhancedData bool `json:"has_enhanced_data"`

	KeyStrengths []string  `json:"key_strengths,omitempty"`
	KeyRisks     []string  `json:"key_risks,omitempty"`
	ScoredAt     time.Time `json:"scored_at"`
}

// ScoreSnapshot is the latest scan result for the whole screening
// list, persisted as daily_scores.json. Only the most recent
// snapshot is kept.
type ScoreSnapshot struct {
	LastUpdate time.Time              `json:"last_update"`
	Scores     map[string]ScoreRecord `json:"scores"`
}

// Ranked returns the records sorted by score descending.
// Implemented by the scan package; kept here only as data.
func (s *ScoreSnapshot) Count() int {
	return len(s.Scores)
}

// IsStale reports whether the snapshot is older than maxAge
func (s *ScoreSnapshot) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
