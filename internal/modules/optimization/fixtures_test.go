package optimization

import (
	"math"
	"time"
)

// twoAssetEstimates builds the canonical 2-asset fixture: annual volatilities
// 20% and 15% with correlation 0.3.
func twoAssetEstimates() *Estimates {
	return &Estimates{
		Tickers: []string{"FPT", "VNM"},
		Mu:      []float64{0.12, 0.08},
		Cov: [][]float64{
			{0.04, 0.3 * 0.20 * 0.15},
			{0.3 * 0.20 * 0.15, 0.0225},
		},
	}
}

// threeAssetEstimates builds a mildly correlated 3-asset fixture.
func threeAssetEstimates() *Estimates {
	return &Estimates{
		Tickers: []string{"FPT", "VNM", "VIC"},
		Mu:      []float64{0.12, 0.08, 0.10},
		Cov: [][]float64{
			{0.040, 0.010, 0.005},
			{0.010, 0.030, 0.008},
			{0.005, 0.008, 0.025},
		},
	}
}

// tradingDates returns n consecutive dates starting 2024-01-02.
func tradingDates(n int) []string {
	dates := make([]string, n)
	t := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = t.Format("2006-01-02")
		t = t.AddDate(0, 0, 1)
	}
	return dates
}

// syntheticPrices builds a deterministic wiggly price matrix for two
// assets over n rows.
func syntheticPrices(n int) *PriceMatrix {
	prices := make([][]float64, n)
	p1, p2 := 100.0, 50.0
	for i := 0; i < n; i++ {
		prices[i] = []float64{p1, p2}
		// Deterministic drift plus phase-shifted oscillation so the two
		// series are volatile but not perfectly correlated.
		p1 *= 1.0005 + 0.012*math.Sin(float64(i))
		p2 *= 1.0003 + 0.009*math.Cos(float64(i)*1.7)
	}
	pm, err := NewPriceMatrix([]string{"FPT", "VNM"}, tradingDates(n), prices)
	if err != nil {
		panic(err)
	}
	return pm
}

// weightVector reconstructs an ordered weight slice from an allocation's
// weight map.
func weightVector(alloc *AllocationResult, tickers []string) []float64 {
	w := make([]float64, len(tickers))
	for i, ticker := range tickers {
		w[i] = alloc.Weights[ticker]
	}
	return w
}
