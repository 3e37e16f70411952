package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// QuoteClient fetches daily close history for a single ticker. The service
// layer depends on this interface so fetching can be faked in tests.
type QuoteClient interface {
	GetDailyHistory(ctx context.Context, req HistoryRequest) ([]DailyPrice, error)
}

// Client is an HTTP quote client for a chart-style history API: one GET per
// ticker returning parallel timestamp and close arrays.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a history client against the given base URL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "quotes").Logger(),
	}
}

// historyResponse mirrors the chart endpoint's JSON shape.
type historyResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// GetDailyHistory fetches daily closes for req.Ticker over the requested
// range. Rows with missing or non-positive closes are dropped.
func (c *Client) GetDailyHistory(ctx context.Context, req HistoryRequest) ([]DailyPrice, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(req.Ticker))

	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("period1", fmt.Sprintf("%d", req.Start.Unix()))
	params.Add("period2", fmt.Sprintf("%d", req.End.Unix()))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("history API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result historyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("history API error: %v", result.Chart.Error)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no history returned for %s", req.Ticker)
	}

	data := result.Chart.Result[0]
	closes := data.Indicators.Quote[0].Close

	prices := make([]DailyPrice, 0, len(data.Timestamp))
	for i, ts := range data.Timestamp {
		if i >= len(closes) || closes[i] <= 0 {
			continue
		}
		prices = append(prices, DailyPrice{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Close: closes[i],
		})
	}

	c.log.Debug().
		Str("ticker", req.Ticker).
		Int("count", len(prices)).
		Msg("Fetched daily history")

	return prices, nil
}
