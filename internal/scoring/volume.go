package scoring

import "github.com/wonny/dipscan/internal/contracts"

// VolumeProfile describes how today's tape compares to the trailing
// 20-day average and which classic reversal signatures it shows.
type VolumeProfile struct {
	Average20      float64
	Ratio          float64 // today vs 20-day average
	YesterdayRatio float64

	Capitulation bool // heavy volume on a clear down day
	Accumulation bool // modestly elevated volume on an up day
	Distribution bool // extreme volume, trend-agnostic selling pressure
	Exhaustion   bool // yesterday's spike followed by a quiet session
}

// AnalyzeVolume builds the profile from a chronological bar series.
// Fewer than 21 bars yields a neutral profile with ratio 1.
func AnalyzeVolume(bars []contracts.Bar) VolumeProfile {
	p := VolumeProfile{Ratio: 1, YesterdayRatio: 1}
	if len(bars) < 21 {
		return p
	}

	today := bars[len(bars)-1]
	yesterday := bars[len(bars)-2]

	// Average excludes today so a spike does not dilute its own baseline
	sum := 0.0
	for _, b := range bars[len(bars)-21 : len(bars)-1] {
		sum += b.Volume
	}
	p.Average20 = sum / 20
	if p.Average20 <= 0 {
		return p
	}

	p.Ratio = today.Volume / p.Average20
	p.YesterdayRatio = yesterday.Volume / p.Average20

	downDay := today.Close < today.Open || today.Close < yesterday.Close
	upDay := today.Close > today.Open && today.Close > yesterday.Close

	p.Capitulation = p.Ratio > 2.5 && downDay
	p.Accumulation = p.Ratio >= 1.2 && p.Ratio <= 2.0 && upDay
	p.Distribution = p.Ratio > 3.0 && !upDay
	p.Exhaustion = p.YesterdayRatio > 2.5 && p.Ratio < 1.2

	return p
}
