package optimization

import "fmt"

// InsufficientDataError reports too few assets or too little aligned
// history to estimate returns and risk. Unrecoverable for the run.
type InsufficientDataError struct {
	Assets int
	Rows   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d assets, %d aligned rows (need at least %d assets and %d rows)",
		e.Assets, e.Rows, MinAssets, MinHistoryRows)
}

// DegenerateAssetError reports an asset whose price series is constant.
// Its return variance is zero, which would make the covariance matrix
// singular along that axis.
type DegenerateAssetError struct {
	Ticker string
}

func (e *DegenerateAssetError) Error() string {
	return fmt.Sprintf("degenerate asset %s: constant price series (zero variance)", e.Ticker)
}

// DegenerateSharpeError reports a numerically zero volatility in the
// Sharpe ratio denominator.
type DegenerateSharpeError struct {
	Volatility float64
}

func (e *DegenerateSharpeError) Error() string {
	return fmt.Sprintf("degenerate Sharpe ratio: volatility %g is numerically zero", e.Volatility)
}

// OptimizationError reports a solver that failed to converge for a
// strategy or frontier sweep. Local to the computation that raised it:
// other strategies in the same run proceed independently.
type OptimizationError struct {
	Strategy string
	Err      error
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("optimization failed for %s: %v", e.Strategy, e.Err)
}

func (e *OptimizationError) Unwrap() error { return e.Err }
