package contracts

import "time"

// WatchlistEntry tracks a ticker whose score crossed the watch
// threshold, with bookkeeping for how long it has been interesting.
type WatchlistEntry struct {
	Ticker         string    `json:"ticker"`
	Score          float64   `json:"score"`
	Grade          string    `json:"grade"`
	Recommendation string    `json:"recommendation"`
	Price          float64   `json:"price"`
	FirstSeen      time.Time `json:"first_seen"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Watchlist is the persisted watchlist.json document
type Watchlist struct {
	UpdatedAt time.Time                 `json:"updated_at"`
	Entries   map[string]WatchlistEntry `json:"entries"`
}

// NewWatchlist returns an empty watchlist ready for entries
func NewWatchlist() *Watchlist {
	return &Watchlist{Entries: make(map[string]WatchlistEntry)}
}
