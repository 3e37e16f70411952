package optimization

import (
	"math/rand/v2"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distmv"
)

// Sampler draws random valid portfolios (non-negative weights summing to
// 1) from a symmetric Dirichlet(1, ..., 1) distribution, which is uniform
// over the weight simplex, and scores each one. No solver is involved.
type Sampler struct {
	tol Tolerances
	log zerolog.Logger
}

// NewSampler creates a random portfolio sampler.
func NewSampler(tol Tolerances, log zerolog.Logger) *Sampler {
	return &Sampler{
		tol: tol,
		log: log.With().Str("component", "sampler").Logger(),
	}
}

// Sample draws samples weight vectors and scores each against the
// estimates. The same seed always produces the same cloud. Draws whose
// Sharpe ratio is degenerate are skipped, not fatal.
func (s *Sampler) Sample(est *Estimates, riskFree float64, samples int, seed uint64) RandomPortfolioCloud {
	if samples <= 0 {
		samples = DefaultRandomSamples
	}
	n := est.NumAssets()

	dir := newUniformSimplex(n, seed)

	cloud := make(RandomPortfolioCloud, 0, samples)
	w := make([]float64, n)
	skipped := 0

	for i := 0; i < samples; i++ {
		dir.Rand(w)
		perf, err := Evaluate(w, est, riskFree, s.tol)
		if err != nil {
			// Only a degenerate Sharpe denominator can occur here; the
			// draw is omitted rather than aborting the batch.
			skipped++
			continue
		}
		cloud = append(cloud, RandomPortfolio{
			Volatility: perf.Volatility,
			Return:     perf.Return,
			Sharpe:     perf.Sharpe,
		})
	}

	if skipped > 0 {
		s.log.Debug().
			Int("skipped", skipped).
			Int("kept", len(cloud)).
			Msg("Skipped degenerate random portfolios")
	}

	return cloud
}

// newUniformSimplex builds a seeded Dirichlet(1, ..., 1) source, uniform
// over the n-dimensional weight simplex.
func newUniformSimplex(n int, seed uint64) *distmv.Dirichlet {
	alpha := make([]float64, n)
	for i := range alpha {
		alpha[i] = 1.0
	}
	return distmv.NewDirichlet(alpha, rand.NewPCG(seed, seed))
}
