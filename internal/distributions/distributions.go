// Package distributions wraps the gonum distributions used by the planning,
// inference and validation engines and adds the noncentral t distribution,
// which gonum does not provide.
package distributions

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// NormalCDF computes the cumulative distribution function of the standard normal
func NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalSurvival computes 1 - NormalCDF(x) without cancellation in the upper tail
func NormalSurvival(x float64) float64 {
	return distuv.UnitNormal.Survival(x)
}

// NormalQuantile computes the inverse CDF of the standard normal
func NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// TwoSidedCritical is the normal critical value leaving alpha/2 in each tail
func TwoSidedCritical(alpha float64) float64 {
	return NormalQuantile(1 - alpha/2)
}

func studentsT(df float64) distuv.StudentsT {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
}

// TCDF computes the CDF of Student's t with df degrees of freedom.
// df may be fractional (Welch-Satterthwaite).
func TCDF(t, df float64) float64 {
	if df <= 0 || math.IsNaN(df) {
		return math.NaN()
	}
	return studentsT(df).CDF(t)
}

// TSurvival computes 1 - TCDF(t, df)
func TSurvival(t, df float64) float64 {
	if df <= 0 || math.IsNaN(df) {
		return math.NaN()
	}
	return studentsT(df).Survival(t)
}

// TQuantile computes the inverse CDF of Student's t
func TQuantile(p, df float64) float64 {
	if df <= 0 || math.IsNaN(df) {
		return math.NaN()
	}
	return studentsT(df).Quantile(p)
}

// ChiSquareSurvival computes the upper tail probability of a chi-square statistic.
// A statistic of exactly 0 yields exactly 1.
func ChiSquareSurvival(x, k float64) float64 {
	if k <= 0 {
		return math.NaN()
	}
	if x <= 0 {
		return 1
	}
	return distuv.ChiSquared{K: k}.Survival(x)
}
