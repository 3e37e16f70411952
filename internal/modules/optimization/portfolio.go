package optimization

import "math"

// Pure portfolio arithmetic shared by every strategy, the frontier sweep
// and the sampler. Weight vectors follow the asset ordering of the
// Estimates they are evaluated against.

// PortfolioReturn computes the expected annual return mu'w.
func PortfolioReturn(w, mu []float64) float64 {
	var r float64
	for i := range w {
		r += w[i] * mu[i]
	}
	return r
}

// PortfolioVariance computes w'Cov w.
func PortfolioVariance(w []float64, cov [][]float64) float64 {
	var v float64
	for i := range w {
		for j := range w {
			v += w[i] * w[j] * cov[i][j]
		}
	}
	return v
}

// PortfolioVolatility computes sqrt(w'Cov w).
func PortfolioVolatility(w []float64, cov [][]float64) float64 {
	return math.Sqrt(math.Max(PortfolioVariance(w, cov), 0))
}

// SharpeRatio computes (mu'w - riskFree) / volatility. Returns
// *DegenerateSharpeError when the volatility is below epsilon.
func SharpeRatio(w, mu []float64, cov [][]float64, riskFree, epsilon float64) (float64, error) {
	vol := PortfolioVolatility(w, cov)
	if vol < epsilon {
		return 0, &DegenerateSharpeError{Volatility: vol}
	}
	return (PortfolioReturn(w, mu) - riskFree) / vol, nil
}

// Utility computes the quadratic utility mu'w - lambda * w'Cov w.
func Utility(w, mu []float64, cov [][]float64, lambda float64) float64 {
	return PortfolioReturn(w, mu) - lambda*PortfolioVariance(w, cov)
}

// Evaluate scores a weight vector against the estimates, producing the
// full (return, volatility, Sharpe) triple.
func Evaluate(w []float64, est *Estimates, riskFree float64, tol Tolerances) (Performance, error) {
	sharpe, err := SharpeRatio(w, est.Mu, est.Cov, riskFree, tol.SharpeEpsilon)
	if err != nil {
		return Performance{}, err
	}
	return Performance{
		Return:     PortfolioReturn(w, est.Mu),
		Volatility: PortfolioVolatility(w, est.Cov),
		Sharpe:     sharpe,
	}, nil
}
