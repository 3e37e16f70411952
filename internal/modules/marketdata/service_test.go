package marketdata

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient serves canned series per ticker and fails the rest.
type fakeClient struct {
	series map[string][]DailyPrice
	calls  int
}

func (f *fakeClient) GetDailyHistory(_ context.Context, req HistoryRequest) ([]DailyPrice, error) {
	f.calls++
	prices, ok := f.series[req.Ticker]
	if !ok {
		return nil, errors.New("ticker not found")
	}
	return prices, nil
}

// dailySeries builds n consecutive closes starting 2024-01-02, skipping
// every date listed in skip.
func dailySeries(n int, base float64, skip ...string) []DailyPrice {
	skipSet := make(map[string]bool, len(skip))
	for _, d := range skip {
		skipSet[d] = true
	}

	var prices []DailyPrice
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for len(prices) < n {
		date := day.Format("2006-01-02")
		day = day.AddDate(0, 0, 1)
		if skipSet[date] {
			continue
		}
		prices = append(prices, DailyPrice{Date: date, Close: base + float64(len(prices))*0.5})
	}
	return prices
}

func testRange() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

func TestService_LoadPriceMatrix(t *testing.T) {
	client := &fakeClient{series: map[string][]DailyPrice{
		"FPT": dailySeries(40, 100),
		"VNM": dailySeries(40, 50),
	}}
	svc := NewService(client, newTestHistoryDB(t), zerolog.Nop())

	start, end := testRange()
	pm, err := svc.LoadPriceMatrix(context.Background(), []string{"FPT", "VNM"}, start, end)
	require.NoError(t, err)

	assert.Equal(t, []string{"FPT", "VNM"}, pm.Tickers)
	assert.Equal(t, 40, pm.NumRows())
	assert.Equal(t, []float64{100, 50}, pm.Prices[0])
}

func TestService_AlignsOnCommonDates(t *testing.T) {
	// VNM is missing two dates that FPT has: those rows must be dropped
	// from both columns.
	client := &fakeClient{series: map[string][]DailyPrice{
		"FPT": dailySeries(40, 100),
		"VNM": dailySeries(38, 50, "2024-01-05", "2024-01-10"),
	}}
	svc := NewService(client, newTestHistoryDB(t), zerolog.Nop())

	start, end := testRange()
	pm, err := svc.LoadPriceMatrix(context.Background(), []string{"FPT", "VNM"}, start, end)
	require.NoError(t, err)

	assert.Equal(t, 38, pm.NumRows())
	assert.NotContains(t, pm.Dates, "2024-01-05")
	assert.NotContains(t, pm.Dates, "2024-01-10")
}

func TestService_DropsDeadTickerAndContinues(t *testing.T) {
	// VIC resolves from neither the remote source nor the cache; the run
	// proceeds with the two survivors.
	client := &fakeClient{series: map[string][]DailyPrice{
		"FPT": dailySeries(40, 100),
		"VNM": dailySeries(40, 50),
	}}
	svc := NewService(client, newTestHistoryDB(t), zerolog.Nop())

	start, end := testRange()
	pm, err := svc.LoadPriceMatrix(context.Background(), []string{"FPT", "VNM", "VIC"}, start, end)
	require.NoError(t, err)

	assert.Equal(t, []string{"FPT", "VNM"}, pm.Tickers)
	assert.Equal(t, 40, pm.NumRows())
}

func TestService_FailedTickerReported(t *testing.T) {
	client := &fakeClient{series: map[string][]DailyPrice{
		"FPT": dailySeries(40, 100),
	}}
	svc := NewService(client, newTestHistoryDB(t), zerolog.Nop())

	start, end := testRange()
	_, err := svc.LoadPriceMatrix(context.Background(), []string{"FPT", "VNM"}, start, end)

	var fetchErr *DataFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, []string{"VNM"}, fetchErr.Failed)
}

func TestService_CacheFallback(t *testing.T) {
	cache := newTestHistoryDB(t)
	require.NoError(t, cache.UpsertDailyPrices("VNM", dailySeries(40, 50)))

	// VNM is not served remotely but lives in the cache.
	client := &fakeClient{series: map[string][]DailyPrice{
		"FPT": dailySeries(40, 100),
	}}
	svc := NewService(client, cache, zerolog.Nop())

	start, end := testRange()
	pm, err := svc.LoadPriceMatrix(context.Background(), []string{"FPT", "VNM"}, start, end)
	require.NoError(t, err)
	assert.Equal(t, 40, pm.NumRows())
}

func TestService_FetchPopulatesCache(t *testing.T) {
	cache := newTestHistoryDB(t)
	client := &fakeClient{series: map[string][]DailyPrice{
		"FPT": dailySeries(40, 100),
		"VNM": dailySeries(40, 50),
	}}
	svc := NewService(client, cache, zerolog.Nop())

	start, end := testRange()
	_, err := svc.LoadPriceMatrix(context.Background(), []string{"FPT", "VNM"}, start, end)
	require.NoError(t, err)

	// A second run with a dead remote succeeds entirely from cache.
	svc = NewService(&fakeClient{}, cache, zerolog.Nop())
	pm, err := svc.LoadPriceMatrix(context.Background(), []string{"FPT", "VNM"}, start, end)
	require.NoError(t, err)
	assert.Equal(t, 40, pm.NumRows())
}

func TestService_TooFewTickers(t *testing.T) {
	svc := NewService(&fakeClient{}, newTestHistoryDB(t), zerolog.Nop())

	start, end := testRange()
	_, err := svc.LoadPriceMatrix(context.Background(), []string{"FPT"}, start, end)

	var fetchErr *DataFetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestService_TooShortOverlap(t *testing.T) {
	client := &fakeClient{series: map[string][]DailyPrice{
		"FPT": dailySeries(20, 100),
		"VNM": dailySeries(20, 50),
	}}
	svc := NewService(client, newTestHistoryDB(t), zerolog.Nop())

	start, end := testRange()
	_, err := svc.LoadPriceMatrix(context.Background(), []string{"FPT", "VNM"}, start, end)

	var fetchErr *DataFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Error(), "too short")
}

func TestDataFetchError_Message(t *testing.T) {
	err := &DataFetchError{Message: "could not load price history", Failed: []string{"VNM", "VIC"}}
	assert.Equal(t, "could not load price history (failed tickers: VNM, VIC)", err.Error())

	err = &DataFetchError{Message: fmt.Sprintf("aligned history too short: %d common trading dates, need %d", 10, 30)}
	assert.Equal(t, "aligned history too short: 10 common trading dates, need 30", err.Error())
}
