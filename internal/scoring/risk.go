package scoring

import (
	"time"

	"github.com/wonny/dipscan/internal/contracts"
)

// Risk level labels, worst to best
const (
	RiskHigh               = "high_risk"
	RiskElevated           = "elevated_risk"
	RiskNeutral            = "neutral"
	RiskSlightlyFavorable  = "slightly_favorable"
	RiskFavorable          = "favorable"
)

// EvaluateRiskModifiers produces the bounded context adjustment.
// Unlike the other layers this one can subtract, and a heavily
// negative result also downgrades the recommendation.
func EvaluateRiskModifiers(f *contracts.Fundamentals, now time.Time, p RiskModifiersParams) contracts.RiskModifiersResult {
	res := contracts.RiskModifiersResult{
		Sector:     0, // no sector rotation signal wired yet
		Volatility: volatilityModifier(f) * p.VolatilityWeight,
		Liquidity:  shortInterestModifier(f) * p.LiquidityWeight,
		Macro:      macroModifier(now) * p.MacroWeight,
	}

	res.Score = clamp(res.Sector+res.Volatility+res.Liquidity+res.Macro, p.Floor, p.Cap)
	res.RiskLevel = riskLevel(res.Score)

	return res
}

func volatilityModifier(f *contracts.Fundamentals) float64 {
	if f == nil || f.Beta == nil {
		return 0
	}
	switch {
	case *f.Beta > 1.5:
		return -0.8
	case *f.Beta < 0.8:
		return 0.4
	default:
		return 0
	}
}

// shortInterestModifier reads crowded shorts as danger and a clean
// float as mild support.
func shortInterestModifier(f *contracts.Fundamentals) float64 {
	if f == nil || f.ShortPercentFloat == nil {
		return 0
	}
	switch {
	case *f.ShortPercentFloat > 0.20:
		return -1.0
	case *f.ShortPercentFloat > 0.15:
		return -0.6
	case *f.ShortPercentFloat < 0.05:
		return 0.4
	default:
		return 0
	}
}

// macroModifier applies a mild penalty in the last sessions of a
// quarter, when window dressing distorts dip signatures.
func macroModifier(now time.Time) float64 {
	month := now.Month()
	quarterEnd := month == time.March || month == time.June ||
		month == time.September || month == time.December
	if quarterEnd && now.Day() >= 25 {
		return -0.5
	}
	return 0
}

func riskLevel(score float64) string {
	switch {
	case score <= -5:
		return RiskHigh
	case score <= -2:
		return RiskElevated
	case score >= 5:
		return RiskFavorable
	case score >= 2:
		return RiskSlightlyFavorable
	default:
		return RiskNeutral
	}
}
