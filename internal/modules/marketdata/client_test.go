package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyRange() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
}

func TestClient_GetDailyHistory(t *testing.T) {
	day := int64(86400)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Unix()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/FPT", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))

		fmt.Fprintf(w, `{"chart":{"result":[{
			"timestamp":[%d,%d,%d,%d],
			"indicators":{"quote":[{"close":[100.5,101.2,0,102.8]}]}
		}],"error":null}}`, base, base+day, base+2*day, base+3*day)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	start, end := historyRange()
	prices, err := c.GetDailyHistory(context.Background(), HistoryRequest{Ticker: "FPT", Start: start, End: end})
	require.NoError(t, err)

	// The zero close on day 3 is dropped.
	require.Len(t, prices, 3)
	assert.Equal(t, DailyPrice{Date: "2024-01-02", Close: 100.5}, prices[0])
	assert.Equal(t, DailyPrice{Date: "2024-01-03", Close: 101.2}, prices[1])
	assert.Equal(t, DailyPrice{Date: "2024-01-05", Close: 102.8}, prices[2])
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	start, end := historyRange()
	_, err := c.GetDailyHistory(context.Background(), HistoryRequest{Ticker: "FPT", Start: start, End: end})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":{"code":"Not Found"}}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	start, end := historyRange()
	_, err := c.GetDailyHistory(context.Background(), HistoryRequest{Ticker: "NOPE", Start: start, End: end})
	require.Error(t, err)
}

func TestClient_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	start, end := historyRange()
	_, err := c.GetDailyHistory(context.Background(), HistoryRequest{Ticker: "FPT", Start: start, End: end})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history")
}
