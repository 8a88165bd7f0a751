package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/dipscan/internal/contracts"
	"github.com/wonny/dipscan/internal/provider"
	"github.com/wonny/dipscan/pkg/config"
	"github.com/wonny/dipscan/pkg/httputil"
	"github.com/wonny/dipscan/pkg/logger"
)

// Client talks to the Finnhub REST API.
// All Finnhub calls go through this client.
type Client struct {
	http    *httputil.Client
	logger  *logger.Logger
	apiKey  string
	baseURL string
}

// NewClient creates a new Finnhub client
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		http:    httpClient,
		logger:  log,
		apiKey:  cfg.Provider.APIKey,
		baseURL: strings.TrimRight(cfg.Provider.BaseURL, "/"),
	}
}

// quoteResponse is the /quote payload
type quoteResponse struct {
	Current   float64 `json:"c"`
	PrevClose float64 `json:"pc"`
	Volume    float64 `json:"v"`
	Timestamp int64   `json:"t"`
}

// profileResponse is the /stock/profile2 payload
type profileResponse struct {
	Name      string  `json:"name"`
	Exchange  string  `json:"exchange"`
	Industry  string  `json:"finnhubIndustry"`
	MarketCap float64 `json:"marketCapitalization"` // millions
}

// candleResponse is the /stock/candle payload
type candleResponse struct {
	Status  string    `json:"s"`
	Opens   []float64 `json:"o"`
	Highs   []float64 `json:"h"`
	Lows    []float64 `json:"l"`
	Closes  []float64 `json:"c"`
	Volumes []float64 `json:"v"`
	Times   []int64   `json:"t"`
}

// metricResponse is the /stock/metric payload
type metricResponse struct {
	Metric map[string]interface{} `json:"metric"`
}

// get performs an authenticated GET and decodes the JSON response.
// A 429 becomes provider.RateLimitError so it propagates untouched.
func (c *Client) get(ctx context.Context, path string, params url.Values, v interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.apiKey)

	resp, err := c.http.Get(ctx, c.baseURL+path+"?"+params.Encode())
	if err != nil {
		return fmt.Errorf("finnhub %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &provider.RateLimitError{Endpoint: path}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("finnhub %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("finnhub %s: failed to decode response: %w", path, err)
	}

	return nil
}

// Quote returns a snapshot built from /quote and /stock/profile2
func (c *Client) Quote(ctx context.Context, ticker string) (contracts.Quote, error) {
	params := url.Values{"symbol": []string{ticker}}

	var quote quoteResponse
	if err := c.get(ctx, "/quote", params, &quote); err != nil {
		return contracts.Quote{}, err
	}

	var profile profileResponse
	if err := c.get(ctx, "/stock/profile2", url.Values{"symbol": []string{ticker}}, &profile); err != nil {
		return contracts.Quote{}, err
	}

	return contracts.Quote{
		Ticker:    ticker,
		Name:      profile.Name,
		Exchange:  NormalizeExchange(profile.Exchange),
		Price:     quote.Current,
		MarketCap: profile.MarketCap * 1e6,
		Volume:    quote.Volume,
	}, nil
}

// BulkQuotes fetches quotes one by one. A missing ticker is absent
// from the result; a rate limit aborts with partial results.
func (c *Client) BulkQuotes(ctx context.Context, tickers []string) (map[string]contracts.Quote, error) {
	quotes := make(map[string]contracts.Quote, len(tickers))

	for _, ticker := range tickers {
		q, err := c.Quote(ctx, ticker)
		if err != nil {
			if provider.IsRateLimit(err) {
				return quotes, err
			}
			c.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"error":  err.Error(),
			}).Debug("Quote fetch failed, skipping ticker")
			continue
		}
		quotes[ticker] = q
	}

	return quotes, nil
}

// History returns up to days of daily candles, oldest first.
// An unknown ticker yields an empty slice, not an error.
func (c *Client) History(ctx context.Context, ticker string, days int) ([]contracts.Bar, error) {
	now := time.Now()
	params := url.Values{
		"symbol":     []string{ticker},
		"resolution": []string{"D"},
		"from":       []string{fmt.Sprintf("%d", now.AddDate(0, 0, -days).Unix())},
		"to":         []string{fmt.Sprintf("%d", now.Unix())},
	}

	var candles candleResponse
	if err := c.get(ctx, "/stock/candle", params, &candles); err != nil {
		return nil, err
	}

	if candles.Status == "no_data" {
		return nil, nil
	}
	if candles.Status != "ok" {
		return nil, fmt.Errorf("finnhub candle status %q for %s", candles.Status, ticker)
	}

	bars := make([]contracts.Bar, 0, len(candles.Times))
	for i := range candles.Times {
		if i >= len(candles.Closes) {
			break
		}
		bars = append(bars, contracts.Bar{
			Date:   time.Unix(candles.Times[i], 0).UTC(),
			Open:   at(candles.Opens, i),
			High:   at(candles.Highs, i),
			Low:    at(candles.Lows, i),
			Close:  candles.Closes[i],
			Volume: at(candles.Volumes, i),
		})
	}

	return bars, nil
}

// Fundamentals returns metrics from /stock/metric. Fields the
// provider omits stay nil.
func (c *Client) Fundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	params := url.Values{
		"symbol": []string{ticker},
		"metric": []string{"all"},
	}

	var resp metricResponse
	if err := c.get(ctx, "/stock/metric", params, &resp); err != nil {
		return nil, err
	}

	m := resp.Metric

	return &contracts.Fundamentals{
		FreeCashFlow:      metric(m, "freeCashFlowTTM"),
		OperatingCashFlow: metric(m, "operatingCashFlowTTM"),
		TotalCash:         metric(m, "totalCashPerShareQuarterly"),

		TrailingPE:  metric(m, "peTTM"),
		ForwardPE:   metric(m, "peForward"),
		PEGRatio:    metric(m, "pegTTM"),
		PriceToBook: metric(m, "pbQuarterly"),

		TotalDebt:    metric(m, "totalDebtQuarterly"),
		DebtToEquity: metric(m, "totalDebt/totalEquityQuarterly"),
		CurrentRatio: metric(m, "currentRatioQuarterly"),

		// Finnhub reports margins, growth, yields and short interest
		// as percentages; scoring expects fractions.
		GrossMargin:     pct(metric(m, "grossMarginTTM")),
		OperatingMargin: pct(metric(m, "operatingMarginTTM")),
		ProfitMargin:    pct(metric(m, "netProfitMarginTTM")),
		ReturnOnEquity:  pct(metric(m, "roeTTM")),
		ReturnOnAssets:  pct(metric(m, "roaTTM")),

		RevenueGrowth:  pct(metric(m, "revenueGrowthTTMYoy")),
		EarningsGrowth: pct(metric(m, "epsGrowthTTMYoy")),

		DividendYield: pct(metric(m, "dividendYieldIndicatedAnnual")),
		PayoutRatio:   pct(metric(m, "payoutRatioTTM")),

		Beta:              metric(m, "beta"),
		ShortPercentFloat: pct(metric(m, "shortInterestSharePercent")),
	}, nil
}

// NormalizeExchange maps the free-form exchange names Finnhub
// returns to the short codes the master list filters on.
func NormalizeExchange(raw string) string {
	u := strings.ToUpper(strings.TrimSpace(raw))

	switch {
	case u == "":
		return ""
	case strings.Contains(u, "NMS"):
		return "NMS"
	case strings.Contains(u, "GLOBAL MARKET"):
		return "NGM"
	case strings.Contains(u, "NASDAQ"):
		return "NMS"
	case strings.Contains(u, "NEW YORK STOCK EXCHANGE"), strings.Contains(u, "NYSE"):
		return "NYQ"
	case strings.Contains(u, "AMERICAN"), strings.Contains(u, "AMEX"):
		return "ASE"
	default:
		return u
	}
}

// metric extracts a numeric metric value, nil when absent or non-numeric
func metric(m map[string]interface{}, key string) *float64 {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil
	}
	v, ok := raw.(float64)
	if !ok {
		return nil
	}
	return &v
}

// pct converts a percentage value to a fraction, keeping nil
func pct(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v / 100.0
	return &f
}

// at safely indexes a candle series that may be shorter than t
func at(vals []float64, i int) float64 {
	if i >= len(vals) {
		return 0
	}
	return vals[i]
}
