package contracts

import "time"

// ValidatedUniverse is the set of tickers that passed the liveness
// probe, persisted as validated_tickers.json.
type ValidatedUniverse struct {
	GeneratedAt  time.Time `json:"generated_at"`
	TotalRaw     int       `json:"total_raw"`
	TotalValid   int       `json:"total_valid"`
	TotalInvalid int       `json:"total_invalid"`
	Tickers      []string  `json:"tickers"`
}

// Contains reports whether a ticker is in the validated set
func (u *ValidatedUniverse) Contains(ticker string) bool {
	for _, t := range u.Tickers {
		if t == ticker {
			return true
		}
	}
	return false
}

// Count returns the number of validated tickers
func (u *ValidatedUniverse) Count() int {
	return len(u.Tickers)
}

// IsStale reports whether the set is older than maxAge
func (u *ValidatedUniverse) IsStale(maxAge time.Duration) bool {
	return time.Since(u.GeneratedAt) > maxAge
}
