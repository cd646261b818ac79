package distributions

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalQuantiles(t *testing.T) {
	assert.InDelta(t, 1.959963984540054, NormalQuantile(0.975), 1e-9)
	assert.InDelta(t, 0.841621233572914, NormalQuantile(0.80), 1e-9)
	assert.InDelta(t, 1.959963984540054, TwoSidedCritical(0.05), 1e-9)
	assert.InDelta(t, 0.5, NormalCDF(0), 1e-15)
}

func TestNormalSurvivalMatchesComplement(t *testing.T) {
	for _, x := range []float64{-3, -1, 0, 0.5, 2, 4} {
		assert.InDelta(t, 1-NormalCDF(x), NormalSurvival(x), 1e-12, "x=%v", x)
	}
}

func TestStudentsT(t *testing.T) {
	assert.InDelta(t, 2.228138851986274, TQuantile(0.975, 10), 1e-6)
	assert.InDelta(t, 0.9253821144153747, TCDF(1.5, 20), 1e-9)
	assert.InDelta(t, 1-0.9253821144153747, TSurvival(1.5, 20), 1e-9)
	assert.True(t, math.IsNaN(TCDF(1, 0)))
	assert.True(t, math.IsNaN(TQuantile(0.5, -1)))
}

func TestChiSquareSurvival(t *testing.T) {
	assert.Equal(t, 1.0, ChiSquareSurvival(0, 1), "zero statistic must give exactly 1")
	assert.InDelta(t, 0.05, ChiSquareSurvival(3.841458820694124, 1), 1e-9)
	assert.Less(t, ChiSquareSurvival(40, 1), 1e-9)
}

func TestNoncentralTCDF(t *testing.T) {
	tests := []struct {
		name     string
		t, df, d float64
		want     float64
	}{
		{"positive t and delta", 1, 10, 1, 0.4902400513954314},
		{"small df", 2, 5, 1, 0.778074662615947},
		{"negative t", -1, 10, 0.5, 0.07477544588265084},
		{"central reduces to t", 1.5, 20, 0, 0.9253821144153747},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NoncentralTCDF(tt.t, tt.df, tt.d), 1e-8)
		})
	}
}

func TestNoncentralTCDFLimits(t *testing.T) {
	assert.Equal(t, 1.0, NoncentralTCDF(math.Inf(1), 10, 2))
	assert.Equal(t, 0.0, NoncentralTCDF(math.Inf(-1), 10, 2))
	assert.True(t, math.IsNaN(NoncentralTCDF(1, 0, 2)))

	// far past the series range the distribution sits almost entirely above t
	assert.Less(t, NoncentralTCDF(2, 1000, 60), 1e-10)
	assert.Greater(t, NoncentralTCDF(70, 1000, 60), 0.99)
}

func TestNoncentralTCDFMonotoneInT(t *testing.T) {
	prev := 0.0
	for x := -5.0; x <= 10; x += 0.25 {
		v := NoncentralTCDF(x, 30, 2.5)
		require.GreaterOrEqual(t, v, prev-1e-12, "CDF decreased at t=%v", x)
		prev = v
	}
}

func TestBrent(t *testing.T) {
	root, err := Brent(func(x float64) float64 { return x*x - 2 }, 0, 2, 1e-12, 100)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, root, 1e-10)

	root, err = Brent(math.Cos, 1, 2, 1e-12, 100)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, root, 1e-10)
}

func TestBrentNotBracketed(t *testing.T) {
	_, err := Brent(func(x float64) float64 { return x*x + 1 }, -1, 1, 1e-12, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotBracketed))
}

func TestExpandUpper(t *testing.T) {
	f := func(x float64) float64 { return x - 1000 }
	hi, err := ExpandUpper(f, 1, 2, 1e6)
	require.NoError(t, err)
	assert.Equal(t, 1024.0, hi)

	_, err = ExpandUpper(f, 1, 2, 100)
	assert.ErrorIs(t, err, ErrNotBracketed)
}
