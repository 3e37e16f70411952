package optimization

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization factor for daily returns.
const TradingDaysPerYear = 252

// Estimator converts a price history into annualized expected-return and
// covariance estimates. Historical-mean estimator and sample covariance,
// no shrinkage. Pure function of its input: no side effects, nothing cached.
type Estimator struct {
	log zerolog.Logger
}

// NewEstimator creates a new return/risk estimator.
func NewEstimator(log zerolog.Logger) *Estimator {
	return &Estimator{log: log.With().Str("component", "estimator").Logger()}
}

// Estimate computes annualized expected returns and the annualized sample
// covariance matrix from the price matrix.
//
// Returns *InsufficientDataError if fewer than MinHistoryRows aligned rows
// or fewer than MinAssets columns remain, and *DegenerateAssetError if any
// asset's price series is constant.
func (e *Estimator) Estimate(pm *PriceMatrix) (*Estimates, error) {
	n := pm.NumAssets()
	rows := pm.NumRows()
	if n < MinAssets || rows < MinHistoryRows {
		return nil, &InsufficientDataError{Assets: n, Rows: rows}
	}

	// Per-asset daily simple returns from consecutive price ratios.
	returns := make([][]float64, n)
	for j := 0; j < n; j++ {
		prices := pm.Column(j)
		constant := true
		daily := make([]float64, rows-1)
		for i := 1; i < rows; i++ {
			daily[i-1] = prices[i]/prices[i-1] - 1
			if prices[i] != prices[0] {
				constant = false
			}
		}
		if constant {
			return nil, &DegenerateAssetError{Ticker: pm.Tickers[j]}
		}
		returns[j] = daily
	}

	mu := make([]float64, n)
	for j := 0; j < n; j++ {
		mu[j] = stat.Mean(returns[j], nil) * TradingDaysPerYear
	}

	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := stat.Covariance(returns[i], returns[j], nil) * TradingDaysPerYear
			cov[i][j] = c
			cov[j][i] = c
		}
	}

	e.log.Debug().
		Int("num_assets", n).
		Int("num_rows", rows).
		Msg("Estimated annualized returns and covariance")

	return &Estimates{Tickers: pm.Tickers, Mu: mu, Cov: cov}, nil
}
