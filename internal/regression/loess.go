// Package regression fits local linear trends to short CPU utilization series.
package regression

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"github.com/limiquantix/vmpolicy/internal/domain"
)

// MinSamples is the shortest series a trend can be fitted to.
const MinSamples = 3

// Estimate holds the parameters of the fitted trend u(x) ≈ Intercept + Slope·x.
type Estimate struct {
	Intercept float64
	Slope     float64
}

// At evaluates the trend at x.
func (e Estimate) At(x float64) float64 {
	return e.Intercept + e.Slope*x
}

// Estimator fits a trend to a utilization series whose index 0 is the newest sample.
type Estimator interface {
	Estimate(samples []float64) (Estimate, error)
}

// EstimatorFunc adapts a function to the Estimator interface.
type EstimatorFunc func(samples []float64) (Estimate, error)

// Estimate calls f(samples).
func (f EstimatorFunc) Estimate(samples []float64) (Estimate, error) {
	return f(samples)
}

// Loess is the default Estimator, backed by EstimateLoess.
var Loess Estimator = EstimatorFunc(EstimateLoess)

// EstimateLoess fits a locally weighted linear trend to samples, where samples[i] is
// observed at x = i+1 and samples[0] is the newest observation. Observations are
// weighted with TricubeWeights so the newest samples dominate the fit.
//
// Errors wrap domain.ErrRegressionFailure: too few samples, non-finite samples, a
// series without variation, or a system that cannot be solved.
func EstimateLoess(samples []float64) (Estimate, error) {
	n := len(samples)
	if n < MinSamples {
		return Estimate{}, fmt.Errorf("%w: need at least %d samples, got %d",
			domain.ErrRegressionFailure, MinSamples, n)
	}

	for i, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return Estimate{}, fmt.Errorf("%w: sample %d is not finite", domain.ErrRegressionFailure, i)
		}
	}

	// A flat series leaves a rounding residue in its variance, so compare the range.
	lowest, err := stats.Min(samples)
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", domain.ErrRegressionFailure, err)
	}
	highest, err := stats.Max(samples)
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", domain.ErrRegressionFailure, err)
	}
	if highest == lowest {
		return Estimate{}, fmt.Errorf("%w: series has no variation", domain.ErrRegressionFailure)
	}

	design := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		design.Set(i, 1, float64(i+1))
	}
	weights := mat.NewDiagDense(n, TricubeWeights(n))

	// Normal equations (XᵀWX)β = XᵀWy.
	var xtw, lhs mat.Dense
	xtw.Mul(design.T(), weights)
	lhs.Mul(&xtw, design)

	var rhs, beta mat.VecDense
	rhs.MulVec(&xtw, mat.NewVecDense(n, append([]float64(nil), samples...)))

	if err := beta.SolveVec(&lhs, &rhs); err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", domain.ErrRegressionFailure, err)
	}

	est := Estimate{Intercept: beta.AtVec(0), Slope: beta.AtVec(1)}
	if !isFinite(est.Intercept) || !isFinite(est.Slope) {
		return Estimate{}, fmt.Errorf("%w: non-finite parameters", domain.ErrRegressionFailure)
	}
	return est, nil
}

// TricubeWeights returns n regression weights for a series ordered newest first.
// The oldest sample has weight 1; weights grow toward the newest samples as the
// inverse tricube of their distance from the oldest one, and the three newest
// samples share the same weight. It returns nil when n is below MinSamples.
func TricubeWeights(n int) []float64 {
	if n < MinSamples {
		return nil
	}
	weights := make([]float64, n)
	top := float64(n - 1)
	spread := top
	for i := 2; i < n; i++ {
		k := math.Pow(1-math.Pow((top-float64(i))/spread, 3), 3)
		weights[i] = 1 / k
	}
	weights[0] = weights[2]
	weights[1] = weights[2]
	return weights
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
