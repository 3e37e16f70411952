// Package marketdata fetches, caches and aligns historical price series so
// the optimization engine can consume them as a single validated matrix.
package marketdata

import (
	"fmt"
	"strings"
	"time"
)

// DailyPrice is one close observation for a ticker.
type DailyPrice struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// HistoryRequest describes one history lookup: a ticker and an inclusive
// date range.
type HistoryRequest struct {
	Ticker string
	Start  time.Time
	End    time.Time
}

// DataFetchError reports which tickers could not be resolved from either
// the remote source or the local cache.
type DataFetchError struct {
	Message string
	Failed  []string
}

func (e *DataFetchError) Error() string {
	if len(e.Failed) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (failed tickers: %s)", e.Message, strings.Join(e.Failed, ", "))
}
