package scoring

import "github.com/wonny/dipscan/internal/contracts"

// scoreLegacy is the technical-only fallback for records without
// fundamentals. It keeps the same output shape but a flat additive
// scale, and marks the record so consumers can tell the paths apart.
func (e *Engine) scoreLegacy(record *contracts.TickerRecord) contracts.ScoreRecord {
	ind := ComputeIndicators(record.History)
	vol := AnalyzeVolume(record.History)
	f := record.Fundamentals

	score := 0.0

	if ind.Drop52W >= 3 {
		points := ind.Drop52W
		if points > 30 {
			points = 30
		}
		score += float64(int(points))
	}

	switch {
	case ind.RSI5 <= 30:
		score += 25
	case ind.RSI5 <= 40:
		score += 10
	}

	switch {
	case vol.Ratio >= 2.0:
		score += 20
	case vol.Ratio >= 1.5:
		score += 15
	case vol.Ratio >= 1.2:
		score += 8
	}

	if ind.SMA200 > 0 && ind.PctFromSMA200 < 0 {
		score += 10
	}
	if ind.SMA50 > 0 && ind.PctFromSMA50 < 0 {
		score += 5
	}
	if ind.MACDHist > 0 {
		score += 5
	}

	// Sparse records occasionally carry a few fundamental fields
	// even when the full set is missing
	if f != nil {
		if f.TrailingPE != nil {
			switch {
			case *f.TrailingPE < 15:
				score += 10
			case *f.TrailingPE < 25:
				score += 5
			}
		}
		if f.DividendYield != nil && *f.DividendYield > 0.03 {
			score += 5
		}
		if f.Beta != nil && *f.Beta > 2 {
			score -= 5
		}
		if f.ShortPercentFloat != nil && *f.ShortPercentFloat > 0.15 {
			score -= 10
		}
	}

	score = clamp(score, 0, 100)

	res := contracts.ScoreRecord{
		Ticker:          record.Ticker,
		Name:            record.Name,
		Price:           record.Price,
		Score:           score,
		Grade:           letterGrade(score),
		HasEnhancedData: false,
		ScoredAt:        e.now(),
	}
	res.Recommendation, res.Confidence = e.recommend(score)

	// Without fundamentals there is no basis for high conviction
	if res.Confidence == "high" && res.Recommendation != contracts.RecAvoid {
		res.Confidence = "medium"
	}

	res.DipSignal.Classification = classifyDip(ind, vol)
	res.DipSignal.InSweetSpot = inSweetSpot(ind, vol, e.params.DipSignal)
	res.ReversalSpark.Strength = ReversalNone
	res.RiskModifiers.RiskLevel = RiskNeutral
	res.KeyRisks = []string{"fundamentals unavailable"}

	return res
}
