package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Optimizer runs the three allocation strategies over a shared
// SimplexSolver. Each strategy solves a constrained program subject to
// w >= 0 and sum(w) = 1: no short selling, no leverage.
type Optimizer struct {
	solver SimplexSolver
	tol    Tolerances
	log    zerolog.Logger
}

// NewOptimizer creates an optimizer on top of the given solver.
func NewOptimizer(solver SimplexSolver, tol Tolerances, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		solver: solver,
		tol:    tol,
		log:    log.With().Str("component", "optimizer").Logger(),
	}
}

// MaxSharpe maximizes (mu'w - riskFree) / sqrt(w'Cov w).
func (o *Optimizer) MaxSharpe(est *Estimates, riskFree float64) (*AllocationResult, error) {
	n := est.NumAssets()
	mu, cov := est.Mu, est.Cov

	obj := Objective{
		Func: func(w []float64) float64 {
			ret := PortfolioReturn(w, mu)
			std := math.Sqrt(math.Max(PortfolioVariance(w, cov), 1e-10))
			return -(ret - riskFree) / std
		},
		Grad: func(grad, w []float64) {
			ret := PortfolioReturn(w, mu)
			std := math.Sqrt(math.Max(PortfolioVariance(w, cov), 1e-10))
			excess := ret - riskFree
			for i := 0; i < n; i++ {
				var dVar float64
				for j := 0; j < n; j++ {
					dVar += 2 * cov[i][j] * w[j]
				}
				grad[i] = -mu[i]/std + excess*dVar/(2*std*std*std)
			}
		},
	}

	w, err := o.solver.Minimize(n, obj, nil)
	if err != nil {
		return nil, &OptimizationError{Strategy: StrategyMaxSharpe, Err: err}
	}
	return o.finish(StrategyMaxSharpe, w, est, riskFree)
}

// MinVolatility minimizes w'Cov w.
func (o *Optimizer) MinVolatility(est *Estimates, riskFree float64) (*AllocationResult, error) {
	n := est.NumAssets()
	w, err := o.solver.Minimize(n, minVarianceObjective(est.Cov), nil)
	if err != nil {
		return nil, &OptimizationError{Strategy: StrategyMinVolatility, Err: err}
	}
	return o.finish(StrategyMinVolatility, w, est, riskFree)
}

// MaxUtility maximizes mu'w - lambda * w'Cov w for risk aversion
// lambda >= 0.
func (o *Optimizer) MaxUtility(est *Estimates, riskFree, lambda float64) (*AllocationResult, error) {
	if lambda < 0 {
		return nil, &OptimizationError{
			Strategy: StrategyMaxUtility,
			Err:      fmt.Errorf("risk aversion %v must be >= 0", lambda),
		}
	}
	n := est.NumAssets()
	mu, cov := est.Mu, est.Cov

	// With lambda = 0 the risk penalty vanishes and the objective is
	// linear: the maximum sits on the simplex vertex of the highest
	// expected return. Solve exactly rather than numerically.
	if lambda == 0 {
		best := 0
		for i := 1; i < n; i++ {
			if mu[i] > mu[best] {
				best = i
			}
		}
		w := make([]float64, n)
		w[best] = 1.0
		return o.finish(StrategyMaxUtility, w, est, riskFree)
	}

	obj := Objective{
		Func: func(w []float64) float64 {
			return -(PortfolioReturn(w, mu) - lambda*PortfolioVariance(w, cov))
		},
		Grad: func(grad, w []float64) {
			for i := 0; i < n; i++ {
				grad[i] = -mu[i]
				for j := 0; j < n; j++ {
					grad[i] += 2 * lambda * cov[i][j] * w[j]
				}
			}
		},
	}

	w, err := o.solver.Minimize(n, obj, nil)
	if err != nil {
		return nil, &OptimizationError{Strategy: StrategyMaxUtility, Err: err}
	}
	return o.finish(StrategyMaxUtility, w, est, riskFree)
}

// finish cleans the raw solver weights and recomputes performance from the
// cleaned vector, so that reported performance always matches reported
// weights.
func (o *Optimizer) finish(strategy string, w []float64, est *Estimates, riskFree float64) (*AllocationResult, error) {
	cleaned := cleanWeights(w, o.tol.MinWeight)

	perf, err := Evaluate(cleaned, est, riskFree, o.tol)
	if err != nil {
		return nil, &OptimizationError{Strategy: strategy, Err: err}
	}

	weights := make(map[string]float64, len(cleaned))
	for i, ticker := range est.Tickers {
		if cleaned[i] > 0 {
			weights[ticker] = cleaned[i]
		}
	}

	o.log.Debug().
		Str("strategy", strategy).
		Int("num_positions", len(weights)).
		Float64("return", perf.Return).
		Float64("volatility", perf.Volatility).
		Float64("sharpe", perf.Sharpe).
		Msg("Strategy solved")

	return &AllocationResult{Weights: weights, Performance: perf}, nil
}

// cleanWeights zeroes weights below the materiality threshold and
// renormalizes the remainder to sum exactly to 1.
func cleanWeights(w []float64, threshold float64) []float64 {
	cleaned := make([]float64, len(w))
	sum := 0.0
	for i, v := range w {
		if v >= threshold {
			cleaned[i] = v
			sum += v
		}
	}
	if sum > 0 {
		for i := range cleaned {
			cleaned[i] /= sum
		}
	}
	return cleaned
}

// minVarianceObjective builds the w'Cov w objective shared by the
// min-volatility strategy and every frontier target solve.
func minVarianceObjective(cov [][]float64) Objective {
	return Objective{
		Func: func(w []float64) float64 {
			return PortfolioVariance(w, cov)
		},
		Grad: func(grad, w []float64) {
			n := len(w)
			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * cov[i][j] * w[j]
				}
			}
		},
	}
}
