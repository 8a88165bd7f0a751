package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// nasdaqScreenerResponse is the NASDAQ screener API payload
type nasdaqScreenerResponse struct {
	Data struct {
		Table struct {
			Rows []struct {
				Symbol string `json:"symbol"`
			} `json:"rows"`
		} `json:"table"`
	} `json:"data"`
}

// FetchNasdaq fetches NASDAQ-listed symbols from the screener API
func (f *Fetcher) FetchNasdaq(ctx context.Context) ([]string, error) {
	resp, err := f.httpClient.Get(ctx, f.nasdaqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch NASDAQ screener: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NASDAQ screener returned status %d", resp.StatusCode)
	}

	var payload nasdaqScreenerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode NASDAQ screener response: %w", err)
	}

	var tickers []string
	for _, row := range payload.Data.Table.Rows {
		if symbol := CleanSymbol(row.Symbol); symbol != "" {
			tickers = append(tickers, symbol)
		}
	}

	if len(tickers) == 0 {
		return nil, fmt.Errorf("NASDAQ screener returned no symbols")
	}

	return tickers, nil
}
