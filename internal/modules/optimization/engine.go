package optimization

import (
	"github.com/rs/zerolog"
)

// Engine runs one full optimization: estimation, the three allocation
// strategies, the frontier sweep and the random portfolio cloud. A run is
// a single blocking call over immutable inputs; the engine holds no state
// between runs and acquires no resources beyond the call.
//
// Estimator errors abort the run — nothing downstream can proceed without
// estimates. Strategy and frontier failures are local: they are reported
// in the result bundle and never block the remaining computations.
type Engine struct {
	estimator *Estimator
	optimizer *Optimizer
	frontier  *FrontierSolver
	sampler   *Sampler
	log       zerolog.Logger
}

// NewEngine wires an engine on the default gonum-backed solver.
func NewEngine(tol Tolerances, log zerolog.Logger) *Engine {
	solver := NewGonumSolver()
	return &Engine{
		estimator: NewEstimator(log),
		optimizer: NewOptimizer(solver, tol, log),
		frontier:  NewFrontierSolver(solver, tol, log),
		sampler:   NewSampler(tol, log),
		log:       log.With().Str("component", "engine").Logger(),
	}
}

// Run executes one optimization over the price matrix with the given
// parameters and returns the result bundle.
func (e *Engine) Run(pm *PriceMatrix, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params.setDefaults()

	est, err := e.estimator.Estimate(pm)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Estimates:   est,
		Allocations: make(map[string]StrategyResult, 3),
	}

	maxSharpe, err := e.optimizer.MaxSharpe(est, params.RiskFreeRate)
	res.Allocations[StrategyMaxSharpe] = StrategyResult{Allocation: maxSharpe, Err: err}
	if err != nil {
		e.log.Warn().Err(err).Msg("Max-Sharpe strategy failed")
	}

	minVol, err := e.optimizer.MinVolatility(est, params.RiskFreeRate)
	res.Allocations[StrategyMinVolatility] = StrategyResult{Allocation: minVol, Err: err}
	if err != nil {
		e.log.Warn().Err(err).Msg("Min-volatility strategy failed")
	}

	maxUtility, err := e.optimizer.MaxUtility(est, params.RiskFreeRate, params.RiskAversion)
	res.Allocations[StrategyMaxUtility] = StrategyResult{Allocation: maxUtility, Err: err}
	if err != nil {
		e.log.Warn().Err(err).Msg("Max-utility strategy failed")
	}

	res.Frontier, res.FrontierErr = e.frontier.Trace(est, params.FrontierPoints)
	if res.FrontierErr != nil {
		e.log.Warn().Err(res.FrontierErr).Msg("Frontier sweep failed")
	}

	res.Cloud = e.sampler.Sample(est, params.RiskFreeRate, params.RandomSamples, params.Seed)

	e.log.Info().
		Int("num_assets", est.NumAssets()).
		Int("frontier_points", len(res.Frontier)).
		Int("cloud_samples", len(res.Cloud)).
		Msg("Optimization run complete")

	return res, nil
}
