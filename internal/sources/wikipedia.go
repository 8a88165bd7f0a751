package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"
)

var errAllSourcesFailed = errors.New("all ticker sources failed")

// FetchSP500 scrapes the S&P 500 constituents table from Wikipedia
func (f *Fetcher) FetchSP500(ctx context.Context) ([]string, error) {
	resp, err := f.httpClient.Get(ctx, f.wikipediaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch S&P 500 page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("S&P 500 page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse S&P 500 page: %w", err)
	}

	var tickers []string

	// The constituents table is the first wikitable with id
	// "constituents"; the symbol sits in the first column.
	doc.Find("table#constituents tbody tr").Each(func(i int, row *goquery.Selection) {
		symbol := CleanSymbol(row.Find("td").First().Text())
		if symbol != "" {
			tickers = append(tickers, symbol)
		}
	})

	if len(tickers) == 0 {
		return nil, fmt.Errorf("no symbols found in S&P 500 constituents table")
	}

	return tickers, nil
}
