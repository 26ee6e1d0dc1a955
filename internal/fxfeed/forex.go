// Package fxfeed pulls daily pivot rate tables from the Yahoo Finance
// chart API.
package fxfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"crocus/internal/config"
	"crocus/internal/dates"
	"crocus/internal/fx"

	"github.com/shopspring/decimal"
)

const (
	yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooUA       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
)

// chartResponse is the subset of the v8 chart response the feed reads.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Feed fetches "units per EUR" rates, one EUR{CCY}=X ticker per currency.
// Rates are cached per day and currency for the lifetime of the feed.
type Feed struct {
	httpClient *http.Client
	baseURL    string
	mu         sync.RWMutex
	rates      map[string]decimal.Decimal // "2024-01-15/USD" -> 1.0912
}

// New creates a Feed. An empty baseURL uses the public Yahoo endpoint.
func New(httpClient *http.Client, baseURL string) *Feed {
	if baseURL == "" {
		baseURL = yahooChartURL
	}
	return &Feed{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		rates:      make(map[string]decimal.Decimal),
	}
}

// FetchTable fetches the rate of every currency on day. Currencies that
// fail are left out of the table and reported in the joined error; the
// caller decides whether a partial table is usable.
func (f *Feed) FetchTable(ctx context.Context, day string, currencies []string) (fx.Table, error) {
	if _, err := dates.Parse(day); err != nil {
		return nil, err
	}

	table := make(fx.Table, len(currencies))
	var errs []error
	for _, c := range currencies {
		ccy := strings.ToUpper(c)
		if ccy == config.PivotCurrency {
			continue
		}
		rate, err := f.GetRate(ctx, day, ccy)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		table[ccy] = rate
	}

	return table, errors.Join(errs...)
}

// GetRate fetches (or returns cached) the number of units of currency per EUR on day.
func (f *Feed) GetRate(ctx context.Context, day, currency string) (decimal.Decimal, error) {
	key := day + "/" + currency

	f.mu.RLock()
	rate, ok := f.rates[key]
	f.mu.RUnlock()
	if ok {
		return rate, nil
	}

	rate, err := f.fetchRate(ctx, day, currency)
	if err != nil {
		return decimal.Zero, err
	}

	f.mu.Lock()
	f.rates[key] = rate
	f.mu.Unlock()

	return rate, nil
}

// fetchRate asks for the daily candles of the day and returns the last
// close, falling back to the regular market price when no candle exists.
func (f *Feed) fetchRate(ctx context.Context, day, currency string) (decimal.Decimal, error) {
	ticker := config.PivotCurrency + currency + "=X"

	start, err := dates.Parse(day)
	if err != nil {
		return decimal.Zero, err
	}
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(start.Add(24*time.Hour).Unix(), 10))
	reqURL := f.baseURL + "/" + url.PathEscape(ticker) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("building forex request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("forex http request for %s: %w", ticker, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("forex request for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	var chartResp chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chartResp); err != nil {
		return decimal.Zero, fmt.Errorf("decoding forex response for %s: %w", ticker, err)
	}

	if chartResp.Chart.Error != nil {
		return decimal.Zero, fmt.Errorf("forex chart error for %s: %s: %s", ticker, chartResp.Chart.Error.Code, chartResp.Chart.Error.Description)
	}

	if len(chartResp.Chart.Result) == 0 {
		return decimal.Zero, fmt.Errorf("no forex results for %s", ticker)
	}

	result := chartResp.Chart.Result[0]
	value := result.Meta.RegularMarketPrice
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] != nil {
				value = *closes[i]
				break
			}
		}
	}

	if value <= 0 {
		return decimal.Zero, fmt.Errorf("invalid forex rate for %s: %f", ticker, value)
	}

	return decimal.NewFromFloat(value).Round(6), nil
}
