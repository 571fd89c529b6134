package divergence

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TFoldSV/internal/domain/models"
)

func TestFitGammaMoments(t *testing.T) {
	fit, err := FitGamma([]float64{1, 3})
	require.NoError(t, err)
	// mean 2, population variance 1
	assert.InDelta(t, 4, fit.Alpha, 1e-12)
	assert.InDelta(t, 2, fit.Beta, 1e-12)
	assert.InDelta(t, 0.5, fit.Theta(), 1e-12)
}

func TestFitGammaDegenerate(t *testing.T) {
	tests := map[string][]float64{
		"empty":        nil,
		"single row":   {1.5},
		"constant":     {0.1, 0.1, 0.1},
		"negative":     {-3, -1, -2},
		"not a number": {1, math.NaN(), 2},
	}
	for name, sample := range tests {
		_, err := FitGamma(sample)
		assert.ErrorIs(t, err, models.ErrDegenerateSample, name)
	}
}

func TestKLDGammaKnownValue(t *testing.T) {
	p := models.DistributionFit{Alpha: 2, Beta: 1}   // theta 1
	q := models.DistributionFit{Alpha: 1, Beta: 0.5} // theta 2
	got, err := KLDGamma(p, q)
	require.NoError(t, err)
	// (a1-a2)ψ(a1) - lnΓ(a1) + lnΓ(a2) + a2 ln(θ2/θ1) + a1(θ1-θ2)/θ2
	want := (1 - 0.5772156649015329) + math.Ln2 - 1
	assert.InDelta(t, want, got, 1e-9)
}

func TestKLDGammaLargeShapes(t *testing.T) {
	p := models.DistributionFit{Alpha: 900, Beta: 300}
	q := models.DistributionFit{Alpha: 850, Beta: 310}
	got, err := KLDGamma(p, q)
	require.NoError(t, err)
	assert.False(t, math.IsInf(got, 0) || math.IsNaN(got))
	assert.GreaterOrEqual(t, got, 0.0)
}

func TestFitAndDivergeSelf(t *testing.T) {
	sample := []float64{0.3, 1.2, 0.7, 2.5, 1.9, 0.4, 1.1}
	for _, shift := range []bool{false, true} {
		got, err := FitAndDiverge(sample, sample, Gamma, shift)
		require.NoError(t, err)
		assert.InDelta(t, 0, got, 1e-9, "shift=%v", shift)
	}
}

func TestFitAndDivergeAsymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := make([]float64, 200)
	q := make([]float64, 200)
	for i := range p {
		p[i] = rng.ExpFloat64() + rng.ExpFloat64()   // Gamma(2, 1)
		q[i] = 2*rng.ExpFloat64() + 0.2*rng.Float64() // close to Gamma(1, 2)
	}
	for _, shift := range []bool{false, true} {
		pq, err := FitAndDiverge(p, q, Gamma, shift)
		require.NoError(t, err)
		qp, err := FitAndDiverge(q, p, Gamma, shift)
		require.NoError(t, err)

		assert.Greater(t, pq, 0.0)
		assert.Greater(t, qp, 0.0)
		assert.NotEqual(t, pq, qp, "shift=%v", shift)

		sym, err := Symmetric(p, q, Gamma, shift)
		require.NoError(t, err)
		assert.InDelta(t, (pq+qp)/2, sym, 1e-12)
	}
}

func TestFitAndDivergeContinuousLabels(t *testing.T) {
	// close - open labels straddle zero; q has a negative mean and only admits a
	// Gamma fit after shifting.
	p := []float64{0.05, -0.05, 0.02, -0.01, 0.07, -0.03}
	q := []float64{0.01, -0.02, 0.04, -0.06, 0.03, -0.04}

	_, err := FitAndDiverge(p, q, Gamma, false)
	assert.ErrorIs(t, err, models.ErrDegenerateSample)

	got, err := FitAndDiverge(p, q, Gamma, true)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, 0.0)
}

func TestFitAndDivergeDegenerateFolds(t *testing.T) {
	ok := []float64{0, 1, 1, 0, 1}
	_, err := FitAndDiverge([]float64{1}, ok, Gamma, true)
	assert.ErrorIs(t, err, models.ErrDegenerateSample, "single row fold")

	_, err = FitAndDiverge(ok, []float64{1, 1, 1, 1}, Gamma, true)
	assert.ErrorIs(t, err, models.ErrDegenerateSample, "constant labels")

	_, err = FitAndDiverge(ok, []float64{0, 0, 0}, Gamma, true)
	assert.ErrorIs(t, err, models.ErrDegenerateSample, "all-zero labels cannot be scaled")
}

func TestFitAndDivergeUnsupportedDistribution(t *testing.T) {
	s := []float64{1, 2, 3}
	_, err := FitAndDiverge(s, s, Distribution("weibull"), true)
	assert.ErrorIs(t, err, models.ErrConfig)

	_, err = ParseDistribution("binomial")
	assert.ErrorIs(t, err, models.ErrConfig)

	d, err := ParseDistribution(" Gamma ")
	require.NoError(t, err)
	assert.Equal(t, Gamma, d)
}

func TestShift(t *testing.T) {
	got, err := Shift([]float64{-1, 0, 1, 3})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1.0 / 3, 2.0 / 3, 4.0 / 3}, got, 1e-12)

	got, err = Shift([]float64{0, 1, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1, 0}, got, "binary labels are left as is")

	_, err = Shift([]float64{0, 0})
	assert.ErrorIs(t, err, models.ErrDegenerateSample)
}

func TestFitAndDivergeShuffledLargeShape(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		p := make([]float64, 500)
		for i := range p {
			p[i] = 1 + 0.01*rng.NormFloat64()
		}
		q := append([]float64(nil), p...)
		rng.Shuffle(len(q), func(i, j int) { q[i], q[j] = q[j], q[i] })

		got, err := FitAndDiverge(p, q, Gamma, false)
		require.NoError(t, err, "trial %d", trial)
		assert.InDelta(t, 0, got, 1e-6, "trial %d", trial)
	}
}
