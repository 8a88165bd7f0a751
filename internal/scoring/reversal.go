package scoring

import "github.com/wonny/dipscan/internal/contracts"

// Reversal strength labels
const (
	ReversalStrong   = "strong"
	ReversalModerate = "moderate"
	ReversalWeak     = "weak"
	ReversalNone     = "none"
)

// EvaluateReversalSpark scores the early evidence that a dip has
// started to turn. These are sparks, not confirmations, which is why
// the whole layer is worth a fraction of the dip layer.
func EvaluateReversalSpark(bars []contracts.Bar, ind Indicators, vol VolumeProfile, p ReversalSparkParams) contracts.ReversalSparkResult {
	res := contracts.ReversalSparkResult{
		MACDSignals:        macdSparkScore(ind, p),
		CandlePatterns:     candleScore(bars, p),
		MomentumDivergence: divergenceScore(ind, p),
		VolumeReversal:     volumeReversalScore(vol, p),
	}

	res.Score = res.MACDSignals + res.CandlePatterns + res.MomentumDivergence + res.VolumeReversal
	res.Strength = reversalStrength(res.Score, p.Max())

	return res
}

func macdSparkScore(ind Indicators, p ReversalSparkParams) float64 {
	score := 0.0
	if ind.MACDBullishCross {
		score += 3
	}
	if ind.MACDHistRising {
		score += 2
	}
	return clamp(score/5*p.MACDSignalsMax, 0, p.MACDSignalsMax)
}

// candleScore inspects the last three sessions for reversal candles,
// weighting today over yesterday over the day before.
func candleScore(bars []contracts.Bar, p ReversalSparkParams) float64 {
	if len(bars) < 3 {
		return 0
	}

	weights := []float64{1.0, 0.7, 0.5}
	score := 0.0
	for i, w := range weights {
		bar := bars[len(bars)-1-i]
		score += candlePatternValue(bar) * w
	}

	return clamp(score/4*p.CandlePatternsMax, 0, p.CandlePatternsMax)
}

// candlePatternValue rates a single candle: hammer 2, doji 1, long
// lower wick 0.5.
func candlePatternValue(b contracts.Bar) float64 {
	bodyTop := b.Open
	bodyBottom := b.Close
	if b.Close > b.Open {
		bodyTop, bodyBottom = b.Close, b.Open
	}

	body := bodyTop - bodyBottom
	candleRange := b.High - b.Low
	if candleRange <= 0 {
		return 0
	}

	lowerWick := bodyBottom - b.Low
	upperWick := b.High - bodyTop

	switch {
	case lowerWick > 2*body && upperWick < 0.5*body && body/candleRange < 0.3:
		return 2.0 // hammer
	case body/candleRange < 0.1:
		return 1.0 // doji
	case lowerWick > body:
		return 0.5
	default:
		return 0
	}
}

func divergenceScore(ind Indicators, p ReversalSparkParams) float64 {
	score := 0.0
	if ind.RSIBullishDivergence {
		score += 2
	}
	if ind.MACDHistRising && ind.Drop5D > 0 {
		score += 2
	}
	if ind.MomentumSlowing {
		score += 1
	}
	return clamp(score/3*p.MomentumDivergenceMax, 0, p.MomentumDivergenceMax)
}

func volumeReversalScore(vol VolumeProfile, p ReversalSparkParams) float64 {
	score := 0.0
	if vol.Exhaustion {
		score += 2
	}
	if vol.Accumulation {
		score += 2
	}
	return clamp(score/3*p.VolumeReversalMax, 0, p.VolumeReversalMax)
}

func reversalStrength(score, max float64) string {
	switch {
	case max > 0 && score >= 0.7*max:
		return ReversalStrong
	case max > 0 && score >= 0.5*max:
		return ReversalModerate
	case score > 0:
		return ReversalWeak
	default:
		return ReversalNone
	}
}
