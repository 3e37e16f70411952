package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFrontier() *FrontierSolver {
	return NewFrontierSolver(NewGonumSolver(), DefaultTolerances(), zerolog.Nop())
}

func TestFrontier_Shape(t *testing.T) {
	est := twoAssetEstimates()
	f := newTestFrontier()

	curve, err := f.Trace(est, 50)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(curve), 2)
	assert.LessOrEqual(t, len(curve), 50)

	for i := 1; i < len(curve); i++ {
		// Returns non-decreasing in sweep order.
		assert.GreaterOrEqual(t, curve[i].Return, curve[i-1].Return-1e-9,
			"returns must be non-decreasing at point %d", i)
		// Above the minimum-volatility point the frontier bends up:
		// more return costs more risk (small solver slack).
		assert.GreaterOrEqual(t, curve[i].Volatility, curve[i-1].Volatility-1e-3,
			"volatility must be non-decreasing at point %d", i)
	}
}

func TestFrontier_StartsAtMinVolatility(t *testing.T) {
	est := twoAssetEstimates()
	f := newTestFrontier()
	o := newTestOptimizer()

	curve, err := f.Trace(est, 50)
	require.NoError(t, err)

	minVol, err := o.MinVolatility(est, 0.03)
	require.NoError(t, err)

	// The global minimum-risk portfolio is the risk floor of the curve.
	for _, p := range curve {
		assert.GreaterOrEqual(t, p.Volatility, minVol.Performance.Volatility-1e-3)
	}
	assert.InDelta(t, minVol.Performance.Volatility, curve[0].Volatility, 1e-2)
}

func TestFrontier_SpansToMaxSingleAssetReturn(t *testing.T) {
	est := twoAssetEstimates()
	f := newTestFrontier()

	curve, err := f.Trace(est, 40)
	require.NoError(t, err)

	last := curve[len(curve)-1]
	assert.InDelta(t, 0.12, last.Return, 5e-3, "sweep must reach the best single-asset return")
}

func TestFrontier_Deterministic(t *testing.T) {
	est := threeAssetEstimates()
	f := newTestFrontier()

	curve1, err := f.Trace(est, 30)
	require.NoError(t, err)
	curve2, err := f.Trace(est, 30)
	require.NoError(t, err)

	// Parallel target solves collect by index: identical inputs give
	// bit-for-bit identical curves.
	require.Equal(t, curve1, curve2)
}

func TestFrontier_DefaultPointCount(t *testing.T) {
	est := twoAssetEstimates()
	f := newTestFrontier()

	curve, err := f.Trace(est, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(curve), DefaultFrontierPoints)
	assert.GreaterOrEqual(t, len(curve), DefaultFrontierPoints/2)
}

func TestFrontier_SolverFailure(t *testing.T) {
	est := twoAssetEstimates()
	f := NewFrontierSolver(failingSolver{}, DefaultTolerances(), zerolog.Nop())

	_, err := f.Trace(est, 10)
	var optErr *OptimizationError
	require.ErrorAs(t, err, &optErr)
}
