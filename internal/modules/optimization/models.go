// Package optimization implements mean-variance portfolio optimization:
// return and risk estimation from historical prices, the three allocation
// strategies (max Sharpe, min volatility, max utility), the efficient
// frontier sweep and random portfolio sampling.
package optimization

import (
	"fmt"
	"time"
)

// Floors enforced on every optimization run. The data layer is responsible
// for delivering enough aligned history; these are defensive re-checks.
const (
	MinAssets      = 2
	MinHistoryRows = 30
)

// PriceMatrix is an aligned table of daily closing prices: one column per
// ticker, one row per trading date. It is immutable for the duration of a
// run and owned exclusively by that run.
type PriceMatrix struct {
	Tickers []string
	Dates   []string    // YYYY-MM-DD, strictly increasing
	Prices  [][]float64 // Prices[row][col] is the close of Tickers[col] on Dates[row]
}

// NewPriceMatrix validates and constructs a PriceMatrix.
// Invariants: at least MinAssets columns, at least MinHistoryRows rows,
// strictly increasing dates, strictly positive prices.
func NewPriceMatrix(tickers []string, dates []string, prices [][]float64) (*PriceMatrix, error) {
	if len(tickers) < MinAssets || len(dates) < MinHistoryRows {
		return nil, &InsufficientDataError{Assets: len(tickers), Rows: len(dates)}
	}
	if len(prices) != len(dates) {
		return nil, fmt.Errorf("price matrix has %d rows, expected %d", len(prices), len(dates))
	}

	var prev time.Time
	for i, d := range dates {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q at row %d: %w", d, i, err)
		}
		if i > 0 && !t.After(prev) {
			return nil, fmt.Errorf("dates not strictly increasing at row %d (%s)", i, d)
		}
		prev = t
	}

	for i, row := range prices {
		if len(row) != len(tickers) {
			return nil, fmt.Errorf("row %d has %d prices, expected %d", i, len(row), len(tickers))
		}
		for j, p := range row {
			if p <= 0 {
				return nil, fmt.Errorf("non-positive price %v for %s on %s", p, tickers[j], dates[i])
			}
		}
	}

	return &PriceMatrix{Tickers: tickers, Dates: dates, Prices: prices}, nil
}

// NumAssets returns the number of asset columns.
func (pm *PriceMatrix) NumAssets() int { return len(pm.Tickers) }

// NumRows returns the number of aligned trading dates.
func (pm *PriceMatrix) NumRows() int { return len(pm.Dates) }

// Column returns the price series for asset column j.
func (pm *PriceMatrix) Column(j int) []float64 {
	col := make([]float64, len(pm.Prices))
	for i, row := range pm.Prices {
		col[i] = row[j]
	}
	return col
}

// Estimates holds the annualized expected-return vector and covariance
// matrix derived from a PriceMatrix. Mu and Cov follow the ordering of
// Tickers and are never mutated after creation.
type Estimates struct {
	Tickers []string    `json:"tickers"`
	Mu      []float64   `json:"expected_returns"`
	Cov     [][]float64 `json:"covariance"`
}

// NumAssets returns the number of assets covered by the estimates.
func (e *Estimates) NumAssets() int { return len(e.Tickers) }

// Performance is the realized (return, volatility, Sharpe) triple of a
// weight vector under a given set of estimates.
type Performance struct {
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
	Sharpe     float64 `json:"sharpe"`
}

// AllocationResult pairs a cleaned weight map (weights below the
// materiality threshold zeroed, remainder renormalized to sum to 1) with
// the performance recomputed from those cleaned weights.
type AllocationResult struct {
	Weights     map[string]float64 `json:"weights"`
	Performance Performance        `json:"performance"`
}

// FrontierPoint is one (volatility, return) pair on the efficient frontier.
type FrontierPoint struct {
	Volatility float64 `json:"volatility"`
	Return     float64 `json:"return"`
}

// FrontierCurve is the efficient frontier, ordered by non-decreasing
// target return.
type FrontierCurve []FrontierPoint

// RandomPortfolio is the scored result of one random weight draw.
type RandomPortfolio struct {
	Volatility float64 `json:"volatility"`
	Return     float64 `json:"return"`
	Sharpe     float64 `json:"sharpe"`
}

// RandomPortfolioCloud is an unordered collection of random portfolio
// scores used for visual density context around the frontier.
type RandomPortfolioCloud []RandomPortfolio

// Strategy names used as keys in the result bundle.
const (
	StrategyMaxSharpe     = "max_sharpe"
	StrategyMinVolatility = "min_volatility"
	StrategyMaxUtility    = "max_utility"
)

// Params carries every knob of a run explicitly. There is no process-wide
// default: callers construct Params per run.
type Params struct {
	RiskFreeRate   float64 // annual, decimal fraction in [0, 1]
	RiskAversion   float64 // lambda >= 0 for the max-utility strategy
	FrontierPoints int     // K, defaults to DefaultFrontierPoints
	RandomSamples  int     // M, defaults to DefaultRandomSamples
	Seed           uint64  // sampler seed; same seed => same cloud
}

// Default sweep and sample counts.
const (
	DefaultFrontierPoints = 100
	DefaultRandomSamples  = 5000
)

func (p *Params) setDefaults() {
	if p.FrontierPoints <= 0 {
		p.FrontierPoints = DefaultFrontierPoints
	}
	if p.RandomSamples <= 0 {
		p.RandomSamples = DefaultRandomSamples
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.RiskFreeRate < 0 || p.RiskFreeRate > 1 {
		return fmt.Errorf("risk-free rate %v out of range [0, 1]", p.RiskFreeRate)
	}
	if p.RiskAversion < 0 {
		return fmt.Errorf("risk aversion %v must be >= 0", p.RiskAversion)
	}
	return nil
}

// StrategyResult is the outcome of one allocation strategy. Exactly one of
// Allocation and Err is set: a failed strategy is reported, never replaced
// by a zero-filled allocation.
type StrategyResult struct {
	Allocation *AllocationResult
	Err        error
}

// Result is the bundle produced by a single engine run: the frontier, the
// three strategy outcomes and the random portfolio cloud. Strategies are
// best-effort: any subset may have failed without aborting the others.
type Result struct {
	Estimates   *Estimates
	Allocations map[string]StrategyResult
	Frontier    FrontierCurve
	FrontierErr error
	Cloud       RandomPortfolioCloud
}

// Tolerances groups the numerical thresholds of the engine. The exact
// values are not load-bearing for correctness, only their existence is;
// they are configuration rather than hard-coded constants.
type Tolerances struct {
	MinWeight     float64 // weights below this are zeroed when cleaning
	SharpeEpsilon float64 // volatility below this makes the Sharpe ratio degenerate
	WeightSumTol  float64 // allowed deviation of a weight sum from 1
}

// DefaultTolerances returns the standard thresholds.
func DefaultTolerances() Tolerances {
	return Tolerances{
		MinWeight:     1e-4,
		SharpeEpsilon: 1e-10,
		WeightSumTol:  1e-6,
	}
}
