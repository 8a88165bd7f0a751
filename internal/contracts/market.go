package contracts

import "time"

// Bar is one daily OHLCV candle
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Quote is a point-in-time snapshot from a bulk price fetch
type Quote struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name,omitempty"`
	Exchange  string  `json:"exchange,omitempty"`
	Price     float64 `json:"price"`
	MarketCap float64 `json:"market_cap"`
	Volume    float64 `json:"volume"`
}

// Fundamentals holds fundamental metrics for one company.
// Providers routinely omit fields, so everything optional is a
// pointer; nil means "not reported", never zero.
type Fundamentals struct {
	FreeCashFlow      *float64 `json:"free_cash_flow,omitempty"`
	OperatingCashFlow *float64 `json:"operating_cash_flow,omitempty"`
	TotalCash         *float64 `json:"total_cash,omitempty"`

	TrailingPE  *float64 `json:"trailing_pe,omitempty"`
	ForwardPE   *float64 `json:"forward_pe,omitempty"`
	PEGRatio    *float64 `json:"peg_ratio,omitempty"`
	PriceToBook *float64 `json:"price_to_book,omitempty"`

	TotalDebt    *float64 `json:"total_debt,omitempty"`
	DebtToEquity *float64 `json:"debt_to_equity,omitempty"`
	CurrentRatio *float64 `json:"current_ratio,omitempty"`

	GrossMargin     *float64 `json:"gross_margin,omitempty"`
	OperatingMargin *float64 `json:"operating_margin,omitempty"`
	ProfitMargin    *float64 `json:"profit_margin,omitempty"`
	ReturnOnEquity  *float64 `json:"return_on_equity,omitempty"`
	ReturnOnAssets  *float64 `json:"return_on_assets,omitempty"`

	RevenueGrowth  *float64 `json:"revenue_growth,omitempty"`
	EarningsGrowth *float64 `json:"earnings_growth,omitempty"`

	DividendYield *float64 `json:"dividend_yield,omitempty"`
	PayoutRatio   *float64 `json:"payout_ratio,omitempty"`

	Beta              *float64 `json:"beta,omitempty"`
	ShortPercentFloat *float64 `json:"short_percent_float,omitempty"`
}

// IsEmpty reports whether no fundamental field was reported at all
func (f *Fundamentals) IsEmpty() bool {
	if f == nil {
		return true
	}
	fields := []*float64{
		f.FreeCashFlow, f.OperatingCashFlow, f.TotalCash,
		f.TrailingPE, f.ForwardPE, f.PEGRatio, f.PriceToBook,
		f.TotalDebt, f.DebtToEquity, f.CurrentRatio,
		f.GrossMargin, f.OperatingMargin, f.ProfitMargin,
		f.ReturnOnEquity, f.ReturnOnAssets,
		f.RevenueGrowth, f.EarningsGrowth,
		f.DividendYield, f.PayoutRatio,
		f.Beta, f.ShortPercentFloat,
	}
	for _, p := range fields {
		if p != nil {
			return false
		}
	}
	return true
}

// TickerRecord is the collected dataset for one ticker, the unit
// stored in stock_data.json and consumed by the scoring engine.
type TickerRecord struct {
	Ticker       string        `json:"ticker"`
	Name         string        `json:"name,omitempty"`
	Exchange     string        `json:"exchange,omitempty"`
	Sector       string        `json:"sector,omitempty"`
	Price        float64       `json:"price"`
	MarketCap    float64       `json:"market_cap"`
	Volume       float64       `json:"volume"`
	History      []Bar         `json:"history,omitempty"`
	Fundamentals *Fundamentals `json:"fundamentals,omitempty"`
	CollectedAt  time.Time     `json:"collected_at"`
}

// Scorable reports whether the record carries enough data to score:
// a positive price, a positive market cap, and at least 20 bars of
// history for the indicator windows.
func (r *TickerRecord) Scorable() bool {
	return r.Price > 0 && r.MarketCap > 0 && len(r.History) >= 20
}

// HasFundamentals reports whether any fundamental data was collected
func (r *TickerRecord) HasFundamentals() bool {
	return !r.Fundamentals.IsEmpty()
}

// Closes returns the close series in chronological order
func (r *TickerRecord) Closes() []float64 {
	closes := make([]float64, len(r.History))
	for i, b := range r.History {
		closes[i] = b.Close
	}
	return closes
}

// Volumes returns the volume series in chronological order
func (r *TickerRecord) Volumes() []float64 {
	volumes := make([]float64, len(r.History))
	for i, b := range r.History {
		volumes[i] = b.Volume
	}
	return volumes
}
