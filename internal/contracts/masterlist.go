package contracts

import "time"

// MasterListCriteria are the filters a master list was built with,
// stored alongside the list so a reader knows what it contains.
type MasterListCriteria struct {
	MinMarketCap float64  `json:"min_market_cap"`
	MinVolume    float64  `json:"min_volume"`
	Exchanges    []string `json:"exchanges"`
	TargetSize   int      `json:"target_size"`
}

// MasterListStats summarizes the build run
type MasterListStats struct {
	Candidates int `json:"candidates"`
	Filtered   int `json:"filtered"`
	Ranked     int `json:"ranked"`
}

// MasterListEntry is one stock in the master list
type MasterListEntry struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name,omitempty"`
	Exchange     string  `json:"exchange,omitempty"`
	Price        float64 `json:"price"`
	MarketCap    float64 `json:"market_cap"`
	Volume       float64 `json:"volume"`
	QualityScore float64 `json:"quality_score"`
}

// MasterList is the curated pool of investable stocks,
// persisted as master_list.json.
type MasterList struct {
	CreatedAt time.Time          `json:"created_at"`
	Criteria  MasterListCriteria `json:"criteria"`
	Stats     MasterListStats    `json:"stats"`
	Stocks    []MasterListEntry  `json:"stocks"`
}

// Tickers returns the symbols in list order (quality rank)
func (m *MasterList) Tickers() []string {
	tickers := make([]string, len(m.Stocks))
	for i, s := range m.Stocks {
		tickers[i] = s.Ticker
	}
	return tickers
}

// Count returns the number of stocks in the list
func (m *MasterList) Count() int {
	return len(m.Stocks)
}

// IsStale reports whether the list is older than maxAge
func (m *MasterList) IsStale(maxAge time.Duration) bool {
	return time.Since(m.CreatedAt) > maxAge
}

// ScreeningList is a top-N slice of the master list,
// persisted as screening_lists/top_N.json.
type ScreeningList struct {
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
	Tickers   []string  `json:"tickers"`
}

// IsStale reports whether the list is older than maxAge
func (s *ScreeningList) IsStale(maxAge time.Duration) bool {
	return time.Since(s.CreatedAt) > maxAge
}
