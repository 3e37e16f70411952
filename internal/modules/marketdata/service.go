package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gahoccode/frontier/internal/modules/optimization"
)

// Service resolves a set of tickers into an aligned price matrix: remote
// fetch first, cache fallback per ticker, then date intersection across the
// surviving series.
type Service struct {
	client QuoteClient
	cache  *HistoryDB
	log    zerolog.Logger
}

// NewService creates a market data service.
func NewService(client QuoteClient, cache *HistoryDB, log zerolog.Logger) *Service {
	return &Service{
		client: client,
		cache:  cache,
		log:    log.With().Str("component", "marketdata").Logger(),
	}
}

// fetchResult carries one ticker's resolved series. A ticker that resolves
// from neither the remote source nor the cache has err set.
type fetchResult struct {
	prices []DailyPrice
	err    error
}

// LoadPriceMatrix fetches daily closes for every ticker over the inclusive
// date range, aligns them on their common trading dates and validates the
// result. Individual ticker failures are tolerated: the failed tickers are
// dropped and the matrix is built from the survivors. Fails with
// *DataFetchError only when fewer than 2 tickers survive or the aligned
// history is too short.
func (s *Service) LoadPriceMatrix(ctx context.Context, tickers []string, start, end time.Time) (*optimization.PriceMatrix, error) {
	if len(tickers) < optimization.MinAssets {
		return nil, &DataFetchError{Message: "portfolio needs at least 2 tickers"}
	}

	results := make([]fetchResult, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, ticker := range tickers {
		g.Go(func() error {
			results[i] = s.resolveTicker(gctx, HistoryRequest{Ticker: ticker, Start: start, End: end})
			return nil
		})
	}
	_ = g.Wait() // per-ticker failures are recorded in results

	var failed []string
	survivors := make([]string, 0, len(tickers))
	series := make(map[string][]DailyPrice, len(tickers))
	for i, ticker := range tickers {
		if results[i].err != nil {
			s.log.Warn().Err(results[i].err).Str("ticker", ticker).Msg("Dropping unresolvable ticker")
			failed = append(failed, ticker)
			continue
		}
		survivors = append(survivors, ticker)
		series[ticker] = results[i].prices
	}
	if len(survivors) < optimization.MinAssets {
		return nil, &DataFetchError{Message: "could not load price history", Failed: failed}
	}

	return s.align(survivors, series)
}

// resolveTicker fetches from the remote source and writes through to the
// cache; if the fetch fails, it falls back to cached rows.
func (s *Service) resolveTicker(ctx context.Context, req HistoryRequest) fetchResult {
	prices, err := s.client.GetDailyHistory(ctx, req)
	if err == nil && len(prices) > 0 {
		if cacheErr := s.cache.UpsertDailyPrices(req.Ticker, prices); cacheErr != nil {
			// A cache write failure degrades the fallback, not this run.
			s.log.Warn().Err(cacheErr).Str("ticker", req.Ticker).Msg("Failed to cache prices")
		}
		return fetchResult{prices: prices}
	}
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", req.Ticker).Msg("Remote fetch failed, trying cache")
	}

	cached, cacheErr := s.cache.GetDailyPrices(req.Ticker, req.Start, req.End)
	if cacheErr != nil {
		return fetchResult{err: cacheErr}
	}
	if len(cached) == 0 {
		if err != nil {
			return fetchResult{err: err}
		}
		return fetchResult{err: &DataFetchError{Message: "no history available for " + req.Ticker}}
	}
	return fetchResult{prices: cached}
}

// align intersects the per-ticker series on their common dates and builds
// the validated price matrix. Dates missing from any one series are dropped
// for all.
func (s *Service) align(tickers []string, series map[string][]DailyPrice) (*optimization.PriceMatrix, error) {
	byDate := make(map[string]map[string]float64)
	for ticker, prices := range series {
		for _, p := range prices {
			row, ok := byDate[p.Date]
			if !ok {
				row = make(map[string]float64, len(tickers))
				byDate[p.Date] = row
			}
			row[ticker] = p.Close
		}
	}

	dates := make([]string, 0, len(byDate))
	for date, row := range byDate {
		if len(row) == len(tickers) {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)

	if len(dates) < optimization.MinHistoryRows {
		return nil, &DataFetchError{
			Message: fmt.Sprintf("aligned history too short: %d common trading dates, need %d",
				len(dates), optimization.MinHistoryRows),
		}
	}

	prices := make([][]float64, len(dates))
	for i, date := range dates {
		row := make([]float64, len(tickers))
		for j, ticker := range tickers {
			row[j] = byDate[date][ticker]
		}
		prices[i] = row
	}

	pm, err := optimization.NewPriceMatrix(tickers, dates, prices)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("tickers", len(tickers)).
		Int("rows", len(dates)).
		Str("from", dates[0]).
		Str("to", dates[len(dates)-1]).
		Msg("Built aligned price matrix")

	return pm, nil
}
