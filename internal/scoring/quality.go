package scoring

import (
	"math"

	"github.com/wonny/dipscan/internal/contracts"
)

// EvaluateQualityGate scores the fundamentals layer and decides
// whether the company survives at all. Missing metrics earn the
// neutral middle of their ladder rather than zero, so thin provider
// coverage does not masquerade as a weak business; the binary checks
// are the place where genuinely bad numbers fail a company.
func EvaluateQualityGate(f *contracts.Fundamentals, p QualityGateParams) contracts.QualityGateResult {
	res := contracts.QualityGateResult{
		Checks: runQualityChecks(f),
	}
	res.FailedChecks = res.Checks.FailedCount()
	res.Passed = res.FailedChecks < p.MaxFailedChecks

	res.CashFlowHealth = scaleComponent(cashFlowLadder(f), 8, p.CashFlowHealthMax)
	res.Profitability = scaleComponent(profitabilityLadder(f), 8, p.ProfitabilityMax)
	res.DebtManagement = scaleComponent(debtLadder(f), 7, p.DebtManagementMax)
	res.ValuationSanity = scaleComponent(valuationLadder(f), 7, p.ValuationSanityMax)
	res.BusinessQuality = scaleComponent(businessLadder(f), 5, p.BusinessQualityMax)

	res.Score = res.CashFlowHealth + res.Profitability + res.DebtManagement +
		res.ValuationSanity + res.BusinessQuality
	res.Grade = subGrade(res.Score, p.Max())

	return res
}

// runQualityChecks applies the five survival checks. A missing
// metric passes its check; only reported bad numbers disqualify.
func runQualityChecks(f *contracts.Fundamentals) contracts.QualityChecks {
	checks := contracts.QualityChecks{
		ManageableDebt:    f.DebtToEquity == nil || *f.DebtToEquity < 3.0,
		Profitable:        f.ProfitMargin == nil || *f.ProfitMargin > 0,
		AdequateLiquidity: f.CurrentRatio == nil || *f.CurrentRatio > 0.8,
		SaneValuation:     f.TrailingPE == nil || *f.TrailingPE < 100,
	}

	switch {
	case f.FreeCashFlow != nil:
		fcf := *f.FreeCashFlow
		checks.PositiveCashFlow = fcf > 0 ||
			(f.OperatingCashFlow != nil && fcf > -0.2*math.Abs(*f.OperatingCashFlow))
	case f.OperatingCashFlow != nil:
		checks.PositiveCashFlow = *f.OperatingCashFlow > 0
	default:
		checks.PositiveCashFlow = false
	}

	return checks
}

// cashFlowLadder awards up to 8 raw points: 4 for free cash flow, 4
// for operating cash flow.
func cashFlowLadder(f *contracts.Fundamentals) float64 {
	score := 0.0

	switch {
	case f.FreeCashFlow == nil:
		score += 2
	case *f.FreeCashFlow > 0:
		score += 4
	case f.OperatingCashFlow != nil && *f.FreeCashFlow > -0.2*math.Abs(*f.OperatingCashFlow):
		score += 2
	}

	switch {
	case f.OperatingCashFlow == nil:
		score += 2
	case *f.OperatingCashFlow > 0:
		score += 4
	}

	return score
}

// profitabilityLadder awards up to 8 raw points: operating margin
// and return on equity, 4 each.
func profitabilityLadder(f *contracts.Fundamentals) float64 {
	score := 0.0

	switch {
	case f.OperatingMargin == nil:
		score += 2
	case *f.OperatingMargin > 0.15:
		score += 4
	case *f.OperatingMargin > 0.10:
		score += 3
	case *f.OperatingMargin > 0.05:
		score += 2
	case *f.OperatingMargin > 0:
		score += 1
	}

	switch {
	case f.ReturnOnEquity == nil:
		score += 2
	case *f.ReturnOnEquity > 0.20:
		score += 4
	case *f.ReturnOnEquity > 0.15:
		score += 3
	case *f.ReturnOnEquity > 0.10:
		score += 2
	case *f.ReturnOnEquity > 0:
		score += 1
	}

	return score
}

// debtLadder awards up to 7 raw points: debt-to-equity (4) and
// current ratio (3).
func debtLadder(f *contracts.Fundamentals) float64 {
	score := 0.0

	switch {
	case f.DebtToEquity == nil:
		score += 2
	case *f.DebtToEquity < 0.3:
		score += 4
	case *f.DebtToEquity < 0.5:
		score += 3
	case *f.DebtToEquity < 1.0:
		score += 2
	case *f.DebtToEquity < 2.0:
		score += 1
	}

	switch {
	case f.CurrentRatio == nil:
		score += 1
	case *f.CurrentRatio > 2.0:
		score += 3
	case *f.CurrentRatio > 1.5:
		score += 2
	case *f.CurrentRatio > 1.0:
		score += 1
	}

	return score
}

// valuationLadder awards up to 7 raw points: trailing P/E (4) and
// price-to-book (3).
func valuationLadder(f *contracts.Fundamentals) float64 {
	score := 0.0

	switch {
	case f.TrailingPE == nil:
		score += 2
	case *f.TrailingPE < 10:
		score += 4
	case *f.TrailingPE < 20:
		score += 3
	case *f.TrailingPE < 30:
		score += 2
	case *f.TrailingPE < 50:
		score += 1
	}

	switch {
	case f.PriceToBook == nil:
		score += 1
	case *f.PriceToBook < 2:
		score += 3
	case *f.PriceToBook < 5:
		score += 2
	case *f.PriceToBook < 10:
		score += 1
	}

	return score
}

// businessLadder awards up to 5 raw points: revenue growth (3) and
// dividend discipline (2).
func businessLadder(f *contracts.Fundamentals) float64 {
	score := 0.0

	switch {
	case f.RevenueGrowth == nil:
		score += 1
	case *f.RevenueGrowth > 0.15:
		score += 3
	case *f.RevenueGrowth > 0.05:
		score += 2
	case *f.RevenueGrowth > 0:
		score += 1
	}

	paysDividend := f.DividendYield != nil && *f.DividendYield > 0
	switch {
	case !paysDividend:
		score += 1 // retaining everything is fine
	case f.PayoutRatio == nil:
		score += 1
	case *f.PayoutRatio < 0.6:
		score += 2
	case *f.PayoutRatio < 0.8:
		score += 1
	}

	return score
}

// scaleComponent rescales a raw ladder value to the configured budget
func scaleComponent(raw, rawMax, budget float64) float64 {
	if rawMax <= 0 {
		return 0
	}
	return raw / rawMax * budget
}

// subGrade letters a layer score relative to its budget
func subGrade(score, max float64) string {
	if max <= 0 {
		return "F"
	}
	switch ratio := score / max; {
	case ratio >= 0.85:
		return "A"
	case ratio >= 0.70:
		return "B"
	case ratio >= 0.55:
		return "C"
	case ratio >= 0.40:
		return "D"
	default:
		return "F"
	}
}
