package sources

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/wonny/dipscan/pkg/httputil"
	"github.com/wonny/dipscan/pkg/logger"
)

// Fetcher gathers raw candidate tickers from public listings before
// any validation happens. Symbols from every source are cleaned and
// deduplicated here.
type Fetcher struct {
	httpClient *httputil.Client
	logger     *logger.Logger

	wikipediaURL string
	nasdaqURL    string
}

// NewFetcher creates a source fetcher with the default listing URLs
func NewFetcher(httpClient *httputil.Client, log *logger.Logger) *Fetcher {
	return &Fetcher{
		httpClient:   httpClient,
		logger:       log,
		wikipediaURL: "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
		nasdaqURL:    "https://api.nasdaq.com/api/screener/stocks?tableonly=true&limit=5000&exchange=nasdaq",
	}
}

var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]*$`)

// CleanSymbol normalizes a raw listing symbol. Returns empty for
// symbols that cannot be queried against the data provider.
func CleanSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	// Class shares appear as BRK.B on some listings and BRK-B on
	// others; providers want the dot form.
	s = strings.ReplaceAll(s, "^", "-")
	s = strings.ReplaceAll(s, "/", ".")

	if !symbolPattern.MatchString(s) {
		return ""
	}
	return s
}

// FetchAll merges every source into one deduplicated, sorted slice.
// A source failing is logged and skipped; only all sources failing
// is an error for the caller (an empty universe is useless).
func (f *Fetcher) FetchAll(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var failures int

	sp500, err := f.FetchSP500(ctx)
	if err != nil {
		f.logger.WithError(err).Warn("S&P 500 listing fetch failed")
		failures++
	}
	for _, s := range sp500 {
		seen[s] = struct{}{}
	}

	nasdaq, err := f.FetchNasdaq(ctx)
	if err != nil {
		f.logger.WithError(err).Warn("NASDAQ screener fetch failed")
		failures++
	}
	for _, s := range nasdaq {
		seen[s] = struct{}{}
	}

	if failures == 2 {
		return nil, errAllSourcesFailed
	}

	merged := make([]string, 0, len(seen))
	for s := range seen {
		merged = append(merged, s)
	}
	sort.Strings(merged)

	f.logger.WithFields(map[string]interface{}{
		"sp500":  len(sp500),
		"nasdaq": len(nasdaq),
		"merged": len(merged),
	}).Info("Raw ticker sources merged")

	return merged, nil
}
