package scoring

import (
	"math"

	"github.com/wonny/dipscan/internal/contracts"
)

// Indicators is the technical snapshot computed once per record.
// Values that need more history than the record carries stay at
// their neutral defaults; the evaluators treat those as no signal.
type Indicators struct {
	LatestClose float64

	RSI14 float64
	RSI5  float64

	MACD             float64
	MACDSignal       float64
	MACDHist         float64
	MACDBullishCross bool // signal line crossed upward within the last 5 sessions
	MACDHistRising   bool

	SMA20  float64
	SMA50  float64
	SMA200 float64

	// Fractional distance of the close from each average, negative
	// below. Zero when the average is unavailable.
	PctFromSMA20  float64
	PctFromSMA50  float64
	PctFromSMA200 float64

	SMA50Slope  float64
	SMA200Slope float64

	// Percent declines from the window high, positive when down
	Drop52W float64
	Drop20D float64
	Drop5D  float64

	RSIBullishDivergence bool
	MomentumSlowing      bool
}

// ComputeIndicators derives the full snapshot from a daily bar
// series in chronological order. Needs at least 15 bars for the RSI
// windows; shorter input returns neutral values throughout.
func ComputeIndicators(bars []contracts.Bar) Indicators {
	ind := Indicators{RSI14: 50, RSI5: 50}
	if len(bars) == 0 {
		return ind
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
	}
	ind.LatestClose = closes[len(closes)-1]

	ind.RSI14 = rsi(closes, 14)
	ind.RSI5 = rsi(closes, 5)

	macdLine, signalLine, histLine := macdSeries(closes)
	if n := len(histLine); n > 0 {
		ind.MACD = macdLine[n-1]
		ind.MACDSignal = signalLine[n-1]
		ind.MACDHist = histLine[n-1]
		ind.MACDBullishCross = crossedUp(histLine, 5)
		ind.MACDHistRising = rising(histLine, 3)
	}

	ind.SMA20 = sma(closes, 20)
	ind.SMA50 = sma(closes, 50)
	ind.SMA200 = sma(closes, 200)
	ind.PctFromSMA20 = pctFrom(ind.LatestClose, ind.SMA20)
	ind.PctFromSMA50 = pctFrom(ind.LatestClose, ind.SMA50)
	ind.PctFromSMA200 = pctFrom(ind.LatestClose, ind.SMA200)
	ind.SMA50Slope = smaSlope(closes, 50, 5)
	ind.SMA200Slope = smaSlope(closes, 200, 5)

	ind.Drop52W = dropFromHigh(highs, closes, 252)
	ind.Drop20D = dropFromHigh(highs, closes, 20)
	ind.Drop5D = dropFromHigh(highs, closes, 5)

	ind.RSIBullishDivergence = bullishDivergence(closes)
	ind.MomentumSlowing = momentumSlowing(closes)

	return ind
}

// rsi computes a simple-average RSI over the last period changes.
// Returns the neutral 50 when the series is too short and 100 when
// there were no losing sessions in the window.
func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		return 100
	}

	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - (100 / (1 + rs))
}

// rsiAt computes the RSI ending at index i (inclusive)
func rsiAt(closes []float64, period, i int) float64 {
	if i+1 > len(closes) {
		return 50
	}
	return rsi(closes[:i+1], period)
}

// emaSeries returns the EMA series, seeded with the SMA of the first
// period values. Output is aligned to the input tail: index 0 of the
// result corresponds to input index period-1.
func emaSeries(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}

	out := make([]float64, 0, len(values)-period+1)
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	ema := seed / float64(period)
	out = append(out, ema)

	k := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
		out = append(out, ema)
	}
	return out
}

// macdSeries returns aligned MACD(12,26), signal(9), and histogram
// series. All three are empty when the input is shorter than 34 bars.
func macdSeries(closes []float64) (macd, signal, hist []float64) {
	ema12 := emaSeries(closes, 12)
	ema26 := emaSeries(closes, 26)
	if ema26 == nil {
		return nil, nil, nil
	}

	// ema12 starts 14 values earlier than ema26
	offset := len(ema12) - len(ema26)
	macdFull := make([]float64, len(ema26))
	for i := range ema26 {
		macdFull[i] = ema12[i+offset] - ema26[i]
	}

	signal = emaSeries(macdFull, 9)
	if signal == nil {
		return nil, nil, nil
	}

	macd = macdFull[len(macdFull)-len(signal):]
	hist = make([]float64, len(signal))
	for i := range signal {
		hist[i] = macd[i] - signal[i]
	}
	return macd, signal, hist
}

// crossedUp reports whether the series moved from <=0 to >0 within
// the last n transitions.
func crossedUp(series []float64, n int) bool {
	start := len(series) - n
	if start < 1 {
		start = 1
	}
	for i := start; i < len(series); i++ {
		if series[i-1] <= 0 && series[i] > 0 {
			return true
		}
	}
	return false
}

// rising reports whether the last n values are strictly increasing
func rising(series []float64, n int) bool {
	if len(series) < n {
		return false
	}
	tail := series[len(series)-n:]
	for i := 1; i < len(tail); i++ {
		if tail[i] <= tail[i-1] {
			return false
		}
	}
	return true
}

// sma returns the simple average of the last period values, 0 when
// the series is too short.
func sma(values []float64, period int) float64 {
	if len(values) < period {
		return 0
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// smaSlope is the fractional change of the period-SMA over the last
// lag sessions. Zero when not enough history.
func smaSlope(closes []float64, period, lag int) float64 {
	if len(closes) < period+lag {
		return 0
	}
	now := sma(closes, period)
	then := sma(closes[:len(closes)-lag], period)
	if then == 0 {
		return 0
	}
	return (now - then) / then
}

func pctFrom(price, avg float64) float64 {
	if avg == 0 {
		return 0
	}
	return (price - avg) / avg
}

// dropFromHigh is the percent decline of the latest close from the
// highest high in the trailing window (capped at available history).
func dropFromHigh(highs, closes []float64, window int) float64 {
	if len(highs) == 0 {
		return 0
	}
	start := len(highs) - window
	if start < 0 {
		start = 0
	}

	peak := 0.0
	for _, h := range highs[start:] {
		if h > peak {
			peak = h
		}
	}
	if peak <= 0 {
		return 0
	}

	drop := (peak - closes[len(closes)-1]) / peak * 100
	return math.Max(0, drop)
}

// bullishDivergence reports a price lower low against an RSI higher
// low across the last 30 sessions, split into a recent and an
// earlier half.
func bullishDivergence(closes []float64) bool {
	if len(closes) < 30 {
		return false
	}

	recentIdx := minIndex(closes, len(closes)-15, len(closes))
	earlierIdx := minIndex(closes, len(closes)-30, len(closes)-15)

	priceLowerLow := closes[recentIdx] < closes[earlierIdx]
	rsiHigherLow := rsiAt(closes, 14, recentIdx) > rsiAt(closes, 14, earlierIdx)
	return priceLowerLow && rsiHigherLow
}

// momentumSlowing reports that the 5-day rate of decline is easing
// while price remains below its level of 5 sessions ago.
func momentumSlowing(closes []float64) bool {
	n := len(closes)
	if n < 11 {
		return false
	}

	current := closes[n-1] - closes[n-6]
	previous := closes[n-6] - closes[n-11]
	return current < 0 && current > previous
}

func minIndex(values []float64, from, to int) int {
	idx := from
	for i := from + 1; i < to; i++ {
		if values[i] < values[idx] {
			idx = i
		}
	}
	return idx
}
