package distributions

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotBracketed is returned when f has the same sign at both ends of the interval
var ErrNotBracketed = errors.New("root is not bracketed")

// Brent finds a root of f in [a, b] to within tol using Brent's method.
// f(a) and f(b) must have opposite signs.
func Brent(f func(float64) float64, a, b, tol float64, maxIter int) (float64, error) {
	fa, fb := f(a), f(b)
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return math.NaN(), fmt.Errorf("function is NaN at the interval ends")
	}
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if (fa > 0) == (fb > 0) {
		return math.NaN(), fmt.Errorf("%w: f(%g)=%g, f(%g)=%g", ErrNotBracketed, a, fa, b, fb)
	}

	c, fc := b, fb
	var d, e float64
	for iter := 0; iter < maxIter; iter++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol1 := 2*epsilon*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			// inverse quadratic interpolation, or secant when only two points differ
			var p, q float64
			s := fb / fa
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				qa := fa / fc
				r := fb / fc
				p = s * (2*xm*qa*(qa-r) - (b-a)*(r-1))
				q = (qa - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			if 2*p < math.Min(3*xm*q-math.Abs(tol1*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
		if math.IsNaN(fb) {
			return math.NaN(), fmt.Errorf("function is NaN at %g", b)
		}
	}
	return b, fmt.Errorf("no convergence after %d iterations", maxIter)
}

const epsilon = 2.220446049250313e-16

// ExpandUpper doubles hi from lo until f changes sign or limit is passed.
// It returns the bracketing upper bound.
func ExpandUpper(f func(float64) float64, lo, hi, limit float64) (float64, error) {
	flo := f(lo)
	for hi <= limit {
		fhi := f(hi)
		if math.IsNaN(fhi) {
			return math.NaN(), fmt.Errorf("function is NaN at %g", hi)
		}
		if (flo > 0) != (fhi > 0) || fhi == 0 {
			return hi, nil
		}
		hi *= 2
	}
	return math.NaN(), fmt.Errorf("%w below %g", ErrNotBracketed, limit)
}
