package scoring

import (
	"fmt"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/pkg/logger"
)

// Engine combines the four layers into a final score. It is a pure
// computation over collected records; all I/O happens upstream.
type Engine struct {
	params Params
	logger *logger.Logger
	now    func() time.Time
}

// NewEngine creates a scoring engine with the given parameters
func NewEngine(params Params, log *logger.Logger) *Engine {
	return &Engine{
		params: params,
		logger: log,
		now:    time.Now,
	}
}

// Params returns the parameter set the engine was built with
func (e *Engine) Params() Params {
	return e.params
}

// Score produces the full layered result for one record. Records
// without fundamentals fall back to the technical-only path; records
// that fail the quality gate are finished immediately with all
// technical layers zeroed.
func (e *Engine) Score(record *contracts.TickerRecord) contracts.ScoreRecord {
	if !record.HasFundamentals() {
		return e.scoreLegacy(record)
	}

	now := e.now()
	res := contracts.ScoreRecord{
		Ticker:          record.Ticker,
		Name:            record.Name,
		Price:           record.Price,
		HasEnhancedData: true,
		ScoredAt:        now,
	}

	res.QualityGate = EvaluateQualityGate(record.Fundamentals, e.params.QualityGate)
	if !res.QualityGate.Passed {
		// Gate failure is terminal: no technical setup rescues a
		// company that flunks the survival checks.
		res.Score = 0
		res.Grade = letterGrade(0)
		res.Recommendation = contracts.RecAvoid
		res.Confidence = "high"
		res.DipSignal.Classification = DipNone
		res.ReversalSpark.Strength = ReversalNone
		res.RiskModifiers.RiskLevel = RiskNeutral
		res.KeyRisks = gateFailureRisks(res.QualityGate.Checks)
		return res
	}

	ind := ComputeIndicators(record.History)
	vol := AnalyzeVolume(record.History)

	res.DipSignal = EvaluateDipSignal(ind, vol, e.params.DipSignal)
	res.ReversalSpark = EvaluateReversalSpark(record.History, ind, vol, e.params.ReversalSpark)
	res.RiskModifiers = EvaluateRiskModifiers(record.Fundamentals, now, e.params.RiskModifiers)

	// The composite is the plain sum. Risk bonuses can push it past
	// 100 and heavy penalties below 0; the grade bands absorb both.
	res.Score = res.QualityGate.Score + res.DipSignal.Score +
		res.ReversalSpark.Score + res.RiskModifiers.Score
	res.Grade = letterGrade(res.Score)
	res.Recommendation, res.Confidence = e.recommend(res.Score)

	e.adjustRecommendation(&res)
	res.KeyStrengths = keyStrengths(res, ind)
	res.KeyRisks = keyRisks(res, ind)

	return res
}

// recommend maps a composite score onto an action and a confidence
func (e *Engine) recommend(score float64) (string, string) {
	t := e.params.Recommendation
	switch {
	case score >= t.StrongBuy:
		return contracts.RecStrongBuy, "high"
	case score >= t.Buy:
		return contracts.RecBuy, "high"
	case score >= t.Watch+10:
		return contracts.RecBuy, "medium"
	case score >= t.Watch:
		return contracts.RecWatch, "medium"
	case score >= t.Avoid:
		return contracts.RecWatch, "low"
	default:
		return contracts.RecAvoid, "high"
	}
}

// adjustRecommendation applies the two overrides that sit outside
// the pure thresholds: dangerous context caps the action, and a
// textbook dip with a decent score lifts it.
func (e *Engine) adjustRecommendation(res *contracts.ScoreRecord) {
	if res.RiskModifiers.RiskLevel == RiskHigh &&
		(res.Recommendation == contracts.RecStrongBuy || res.Recommendation == contracts.RecBuy) {
		res.Recommendation = contracts.RecWatch
		res.Confidence = "low"
		return
	}

	if res.DipSignal.Classification == DipPremium && res.Score >= 60 &&
		res.Recommendation == contracts.RecBuy {
		res.Recommendation = contracts.RecStrongBuy
		res.Confidence = "high"
	}
}

// letterGrade maps the composite to the report card letter
func letterGrade(score float64) string {
	switch {
	case score >= 85:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 75:
		return "A-"
	case score >= 70:
		return "B+"
	case score >= 65:
		return "B"
	case score >= 60:
		return "B-"
	case score >= 55:
		return "C+"
	case score >= 50:
		return "C"
	case score >= 45:
		return "C-"
	case score >= 40:
		return "D+"
	case score >= 35:
		return "D"
	case score >= 30:
		return "D-"
	default:
		return "F"
	}
}

func keyStrengths(res contracts.ScoreRecord, ind Indicators) []string {
	var out []string

	if res.QualityGate.Score >= 0.8*35 {
		out = append(out, "strong fundamentals")
	}
	if res.DipSignal.Classification == DipPremium {
		out = append(out, "textbook dip pattern")
	} else if res.DipSignal.InSweetSpot {
		out = append(out, "dip in the sweet spot")
	}
	if res.ReversalSpark.Strength == ReversalStrong || res.ReversalSpark.Strength == ReversalModerate {
		out = append(out, "early reversal signals")
	}
	if ind.RSIBullishDivergence {
		out = append(out, "bullish RSI divergence")
	}
	if res.RiskModifiers.RiskLevel == RiskFavorable || res.RiskModifiers.RiskLevel == RiskSlightlyFavorable {
		out = append(out, "favorable risk context")
	}

	return out
}

func keyRisks(res contracts.ScoreRecord, ind Indicators) []string {
	var out []string

	if ind.Drop52W > 50 {
		out = append(out, "falling knife risk")
	}
	if res.RiskModifiers.RiskLevel == RiskHigh || res.RiskModifiers.RiskLevel == RiskElevated {
		out = append(out, "elevated risk context")
	}
	if res.QualityGate.FailedChecks > 0 {
		out = append(out, fmt.Sprintf("%d fundamental check(s) failed", res.QualityGate.FailedChecks))
	}
	if res.DipSignal.Classification == DipNone {
		out = append(out, "no meaningful dip")
	}

	return out
}

// gateFailureRisks names the specific failed survival checks
func gateFailureRisks(c contracts.QualityChecks) []string {
	var out []string
	if !c.PositiveCashFlow {
		out = append(out, "negative cash flow")
	}
	if !c.ManageableDebt {
		out = append(out, "excessive leverage")
	}
	if !c.Profitable {
		out = append(out, "unprofitable")
	}
	if !c.AdequateLiquidity {
		out = append(out, "weak liquidity")
	}
	if !c.SaneValuation {
		out = append(out, "extreme valuation")
	}
	return out
}
