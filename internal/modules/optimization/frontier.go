package optimization

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// FrontierSolver traces the efficient frontier by sweeping target returns
// between the minimum-volatility portfolio's return and the best
// single-asset return, solving a minimum-variance program with a return
// equality constraint at each target.
type FrontierSolver struct {
	solver SimplexSolver
	tol    Tolerances
	log    zerolog.Logger
}

// NewFrontierSolver creates a frontier solver on top of the given solver.
func NewFrontierSolver(solver SimplexSolver, tol Tolerances, log zerolog.Logger) *FrontierSolver {
	return &FrontierSolver{
		solver: solver,
		tol:    tol,
		log:    log.With().Str("component", "frontier").Logger(),
	}
}

// frontierPointResult carries one target solve's outcome. Failures are
// data, not control flow: the sweep filters them out afterwards.
type frontierPointResult struct {
	point FrontierPoint
	err   error
}

// Trace computes a FrontierCurve of up to points entries. Individual
// target solves may fail near the sweep boundaries; those points are
// dropped. Fails with *OptimizationError if fewer than 2 points survive.
//
// Target solves are independent and run in parallel; results are collected
// by index, so the curve is deterministic for identical inputs.
func (f *FrontierSolver) Trace(est *Estimates, points int) (FrontierCurve, error) {
	if points <= 0 {
		points = DefaultFrontierPoints
	}
	n := est.NumAssets()

	// Anchor the sweep range: minimum feasible return is that of the
	// global minimum-variance portfolio, maximum is the best single asset.
	minVolW, err := f.solver.Minimize(n, minVarianceObjective(est.Cov), nil)
	if err != nil {
		return nil, &OptimizationError{Strategy: "frontier", Err: fmt.Errorf("min-volatility anchor: %w", err)}
	}
	retMin := PortfolioReturn(minVolW, est.Mu)
	retMax := est.Mu[0]
	for _, r := range est.Mu {
		if r > retMax {
			retMax = r
		}
	}
	if retMax < retMin {
		retMax = retMin
	}

	targets := make([]float64, points)
	step := 0.0
	if points > 1 {
		step = (retMax - retMin) / float64(points-1)
	}
	for i := range targets {
		targets[i] = retMin + float64(i)*step
	}

	results := make([]frontierPointResult, points)
	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, target := range targets {
		g.Go(func() error {
			results[i] = f.solveTarget(est, target)
			return nil
		})
	}
	_ = g.Wait() // point failures are recorded in results, never returned

	curve := make(FrontierCurve, 0, points)
	dropped := 0
	for _, r := range results {
		if r.err != nil {
			dropped++
			continue
		}
		curve = append(curve, r.point)
	}

	if len(curve) < 2 {
		return nil, &OptimizationError{
			Strategy: "frontier",
			Err:      fmt.Errorf("only %d of %d frontier points converged", len(curve), points),
		}
	}

	sort.Slice(curve, func(i, j int) bool { return curve[i].Return < curve[j].Return })

	f.log.Debug().
		Int("points", len(curve)).
		Int("dropped", dropped).
		Float64("return_min", retMin).
		Float64("return_max", retMax).
		Msg("Traced efficient frontier")

	return curve, nil
}

// solveTarget finds the minimum-variance portfolio whose expected return
// equals the target.
func (f *FrontierSolver) solveTarget(est *Estimates, target float64) frontierPointResult {
	eq := &EqualityConstraint{Coeffs: est.Mu, Value: target}
	w, err := f.solver.Minimize(est.NumAssets(), minVarianceObjective(est.Cov), eq)
	if err != nil {
		return frontierPointResult{err: err}
	}
	return frontierPointResult{point: FrontierPoint{
		Volatility: PortfolioVolatility(w, est.Cov),
		Return:     PortfolioReturn(w, est.Mu),
	}}
}
