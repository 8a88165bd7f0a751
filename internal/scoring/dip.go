package scoring

import "github.com/wonny/dipscan/internal/contracts"

// Dip classifications, best first
const (
	DipPremium   = "premium_dip"
	DipQuality   = "quality_dip"
	DipMild      = "mild_dip"
	DipDeepValue = "deep_value"
	DipNone      = "no_dip"
)

// EvaluateDipSignal scores how attractive the current decline is.
// The drop ladder is deliberately non-monotonic: a 25% decline from
// the 52-week high scores higher than a 70% one, because the latter
// is usually a broken business rather than a sale.
func EvaluateDipSignal(ind Indicators, vol VolumeProfile, p DipSignalParams) contracts.DipSignalResult {
	res := contracts.DipSignalResult{
		DropSeverity:    dropSeverityScore(ind, p),
		OversoldRSI:     oversoldScore(ind, p),
		VolumeSignature: volumeSignatureScore(vol, p),
		SMAPositioning:  smaPositioningScore(ind, p),
	}

	res.Score = res.DropSeverity + res.OversoldRSI + res.VolumeSignature + res.SMAPositioning
	res.Classification = classifyDip(ind, vol)
	res.InSweetSpot = inSweetSpot(ind, vol, p)
	res.Grade = subGrade(res.Score, p.Max())

	return res
}

// dropSeverityScore awards up to DropSeverityMax for the decline
// from the 52-week high, peaking in the 20-30% band.
func dropSeverityScore(ind Indicators, p DipSignalParams) float64 {
	drop := ind.Drop52W
	max := p.DropSeverityMax

	var score float64
	switch {
	case drop >= 15 && drop <= 40:
		if drop >= 20 && drop <= 30 {
			score = max
		} else {
			score = max * 0.85
		}
	case drop > 40 && drop <= 60:
		score = max * 0.6
	case drop > 60:
		score = max * 0.3
	case drop >= 10:
		score = max * 0.4
	}

	// Consistency bonus: the recent decline matches the yearly one,
	// so this is one move down rather than a long bleed.
	if score > 0 && abs(ind.Drop52W-ind.Drop20D) < 5 {
		score += 2
	}

	return clamp(score, 0, max)
}

// oversoldScore awards up to OversoldRSIMax for oversold momentum
func oversoldScore(ind Indicators, p DipSignalParams) float64 {
	score := 0.0

	switch {
	case ind.RSI14 < 25:
		score += 6
	case ind.RSI14 < 30:
		score += 5
	case ind.RSI14 < 35:
		score += 3
	case ind.RSI14 < 40:
		score += 1
	}

	switch {
	case ind.RSI5 < 20:
		score += 3
	case ind.RSI5 < 30:
		score += 2
	}

	if ind.RSIBullishDivergence {
		score += 3
	}

	return clamp(score/12*p.OversoldRSIMax, 0, p.OversoldRSIMax)
}

// volumeSignatureScore awards up to VolumeSignatureMax. Elevated but
// not extreme volume is the good sign; a 4x spike reads as
// distribution, not opportunity.
func volumeSignatureScore(vol VolumeProfile, p DipSignalParams) float64 {
	score := 0.0

	switch {
	case vol.Ratio >= 1.5 && vol.Ratio <= 3.0:
		if vol.Ratio >= 2.0 && vol.Ratio <= 2.5 {
			score += 6
		} else {
			score += 5
		}
	case vol.Ratio > 3.0:
		score += 3
	case vol.Ratio >= 1.2:
		score += 2
	}

	if vol.Capitulation {
		score += 4
	}
	if vol.Accumulation {
		score += 2
	}

	return clamp(score/10*p.VolumeSignatureMax, 0, p.VolumeSignatureMax)
}

// smaPositioningScore awards up to SMAPositioningMax. The ideal dip
// sits below the 50-day but holds above a still-rising 200-day.
func smaPositioningScore(ind Indicators, p DipSignalParams) float64 {
	score := 0.0
	belowSMA50 := ind.SMA50 > 0 && ind.PctFromSMA50 < 0
	aboveSMA200 := ind.SMA200 > 0 && ind.PctFromSMA200 > 0

	switch {
	case belowSMA50 && aboveSMA200:
		score += 4
	case belowSMA50 && ind.SMA200 > 0 && ind.PctFromSMA200 > -0.1:
		score += 3
	case belowSMA50:
		score += 2
	}

	if ind.SMA200Slope > 0 {
		score += 2
	}
	if ind.SMA50Slope < 0 && aboveSMA200 {
		score += 2
	}

	return clamp(score/8*p.SMAPositioningMax, 0, p.SMAPositioningMax)
}

// classifyDip buckets the setup, best match first
func classifyDip(ind Indicators, vol VolumeProfile) string {
	drop := ind.Drop52W

	switch {
	case drop >= 15 && drop <= 40 && ind.RSI14 < 30 && vol.Ratio >= 1.5 && vol.Ratio <= 3.0:
		return DipPremium
	case drop >= 10 && drop <= 50 && ind.RSI14 < 35 && vol.Ratio >= 1.2:
		return DipQuality
	case drop > 50:
		return DipDeepValue
	case drop >= 5 && ind.RSI14 < 40:
		return DipMild
	default:
		return DipNone
	}
}

// inSweetSpot applies the configured premium windows jointly
func inSweetSpot(ind Indicators, vol VolumeProfile, p DipSignalParams) bool {
	return ind.Drop52W >= p.SweetSpotDropMin && ind.Drop52W <= p.SweetSpotDropMax &&
		ind.RSI14 >= p.SweetSpotRSIMin && ind.RSI14 <= p.SweetSpotRSIMax &&
		vol.Ratio >= p.SweetSpotVolumeMin && vol.Ratio <= p.SweetSpotVolumeMax
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
