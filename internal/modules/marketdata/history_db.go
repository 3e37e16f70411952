package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
)

// HistoryDB is the local SQLite cache of daily closes. Every successful
// remote fetch is written through it; when the remote source is down, reads
// fall back to whatever the cache holds.
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryDB creates a history cache accessor.
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// OpenHistoryDB opens (or creates) the cache database at path and ensures
// the schema exists.
func OpenHistoryDB(path string, log zerolog.Logger) (*HistoryDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}

	h := NewHistoryDB(db, log)
	if err := h.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// Close releases the underlying database handle.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) ensureSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_prices (
			ticker TEXT NOT NULL,
			date   INTEGER NOT NULL,
			close  REAL NOT NULL,
			PRIMARY KEY (ticker, date)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create daily_prices table: %w", err)
	}
	return nil
}

// GetDailyPrices fetches cached closes for a ticker over an inclusive date
// range, ordered by ascending date.
func (h *HistoryDB) GetDailyPrices(ticker string, start, end time.Time) ([]DailyPrice, error) {
	query := `
		SELECT date, close
		FROM daily_prices
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := h.db.Query(query, ticker, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []DailyPrice
	for rows.Next() {
		var p DailyPrice
		var dateUnix int64

		if err := rows.Scan(&dateUnix, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		p.Date = time.Unix(dateUnix, 0).UTC().Format("2006-01-02")
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

// UpsertDailyPrices writes a fetched price series into the cache in a
// single transaction, replacing any rows already present for those dates.
func (h *HistoryDB) UpsertDailyPrices(ticker string, prices []DailyPrice) error {
	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be no-op if Commit succeeds

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices (ticker, date, close)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, price := range prices {
		dateUnix, err := dateToUnix(price.Date)
		if err != nil {
			return fmt.Errorf("failed to parse date %s: %w", price.Date, err)
		}
		if _, err := stmt.Exec(ticker, dateUnix, price.Close); err != nil {
			return fmt.Errorf("failed to insert daily price for %s: %w", price.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	h.log.Debug().
		Str("ticker", ticker).
		Int("count", len(prices)).
		Msg("Cached daily prices")

	return nil
}

// dateToUnix converts a YYYY-MM-DD string to a midnight-UTC Unix timestamp.
func dateToUnix(date string) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
