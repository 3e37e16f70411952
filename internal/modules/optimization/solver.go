package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Objective is a smooth objective over candidate weight vectors. Grad must
// write the gradient of Func at w into grad.
type Objective struct {
	Func func(w []float64) float64
	Grad func(grad, w []float64)
}

// EqualityConstraint is an extra linear equality Coeffs . w = Value added
// on top of the simplex constraints.
type EqualityConstraint struct {
	Coeffs []float64
	Value  float64
}

// SimplexSolver minimizes an objective over the standard simplex
// (w_i >= 0, sum w_i = 1), optionally subject to one additional linear
// equality constraint. Implementations must be deterministic: the same
// problem always yields the same solution.
//
// This is the single optimization capability every strategy is built on;
// swapping in a different QP library only means providing another
// implementation of this interface.
type SimplexSolver interface {
	Minimize(n int, obj Objective, eq *EqualityConstraint) ([]float64, error)
}

// gonumSolver solves the constrained problem with gonum/optimize using a
// quadratic penalty for the sum-to-one and equality constraints and
// projection onto [0, 1] bounds. BFGS first, Nelder-Mead as fallback.
type gonumSolver struct {
	penaltyWeight float64
}

// NewGonumSolver creates the default gonum-backed simplex solver.
func NewGonumSolver() SimplexSolver {
	return &gonumSolver{penaltyWeight: 1000.0}
}

func (s *gonumSolver) Minimize(n int, obj Objective, eq *EqualityConstraint) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("no assets to optimize over")
	}
	if eq != nil && len(eq.Coeffs) != n {
		return nil, fmt.Errorf("equality constraint has %d coefficients, expected %d", len(eq.Coeffs), n)
	}

	penalty := s.penaltyWeight

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToBox(x)

			val := obj.Func(w)

			sum := 0.0
			for i := range w {
				sum += w[i]
			}
			val += penalty * (sum - 1.0) * (sum - 1.0)

			if eq != nil {
				var dot float64
				for i := range w {
					dot += eq.Coeffs[i] * w[i]
				}
				val += penalty * (dot - eq.Value) * (dot - eq.Value)
			}

			return val
		},
		Grad: func(grad, x []float64) {
			w := projectToBox(x)

			obj.Grad(grad, w)

			sum := 0.0
			for i := range w {
				sum += w[i]
			}
			for i := range w {
				grad[i] += 2 * penalty * (sum - 1.0)
			}

			if eq != nil {
				var dot float64
				for i := range w {
					dot += eq.Coeffs[i] * w[i]
				}
				for i := range w {
					grad[i] += 2 * penalty * (dot - eq.Value) * eq.Coeffs[i]
				}
			}
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		// BFGS struggles on poorly scaled problems; retry derivative-free.
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("solver failed: %w", err)
		}
		if !converged(result.Status) {
			return nil, fmt.Errorf("solver did not converge: status=%v", result.Status)
		}
	}

	// Project the final iterate back onto the simplex and normalize.
	w := projectToBox(result.X)
	sum := 0.0
	for i := range w {
		sum += w[i]
	}
	if sum < 1e-10 {
		return nil, fmt.Errorf("solver produced a zero weight vector")
	}
	for i := range w {
		w[i] = math.Max(0, w[i]/sum)
	}
	// Second normalization pass after clamping negatives.
	sum = 0.0
	for i := range w {
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}

	return w, nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	}
	return false
}

// projectToBox clamps each coordinate to [0, 1].
func projectToBox(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(0.0, math.Min(1.0, x[i]))
	}
	return proj
}
