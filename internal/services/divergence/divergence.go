package divergence

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"

	"TFoldSV/internal/domain/models"
)

// Distribution names the parametric family fitted to label samples.
type Distribution string

// Gamma is the only implemented family.
const Gamma Distribution = "gamma"

// negativeTolerance absorbs rounding noise around a zero divergence, relative to the
// largest term of the closed form.
const negativeTolerance = 1e-12

// Distributions returns the implemented families.
func Distributions() []Distribution { return []Distribution{Gamma} }

// ParseDistribution converts a raw family name into a Distribution.
func ParseDistribution(s string) (Distribution, error) {
	d := Distribution(strings.ToLower(strings.TrimSpace(s)))
	if d == Gamma {
		return d, nil
	}
	return "", fmt.Errorf("%w: unsupported distribution %q", models.ErrConfig, s)
}

// Shift maps sample to x' = (x + |min x|) / max x. The result is non-negative when
// max x > 0; a zero maximum cannot be scaled and is reported as degenerate.
func Shift(sample []float64) ([]float64, error) {
	if len(sample) == 0 {
		return nil, fmt.Errorf("%w: empty sample", models.ErrDegenerateSample)
	}
	lo, hi := floats.Min(sample), floats.Max(sample)
	if hi == 0 || math.IsNaN(hi) || math.IsNaN(lo) {
		return nil, fmt.Errorf("%w: cannot scale by max %v", models.ErrDegenerateSample, hi)
	}
	off := math.Abs(lo)
	out := make([]float64, len(sample))
	for i, x := range sample {
		out[i] = (x + off) / hi
	}
	return out, nil
}

// FitGamma estimates Gamma shape and rate by the method of moments, using the population
// variance. Samples with fewer than two values, non-finite values, zero variance or a
// non-positive mean have no valid Gamma fit.
func FitGamma(sample []float64) (models.DistributionFit, error) {
	if len(sample) < 2 {
		return models.DistributionFit{}, fmt.Errorf("%w: %d observations", models.ErrDegenerateSample, len(sample))
	}
	for _, x := range sample {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return models.DistributionFit{}, fmt.Errorf("%w: non-finite observation", models.ErrDegenerateSample)
		}
	}
	mean, variance := stat.PopMeanVariance(sample, nil)
	if variance == 0 || floats.Min(sample) == floats.Max(sample) {
		return models.DistributionFit{}, fmt.Errorf("%w: zero variance", models.ErrDegenerateSample)
	}
	if mean <= 0 {
		return models.DistributionFit{}, fmt.Errorf("%w: non-positive mean %g", models.ErrDegenerateSample, mean)
	}
	return models.DistributionFit{
		Alpha: mean * mean / variance,
		Beta:  mean / variance,
	}, nil
}

// KLDGamma returns KLD(P||Q) for P ~ Gamma(alpha1, theta1) and Q ~ Gamma(alpha2, theta2):
//
//	ln(a/b) + c + (d/e)*f - g
//	a = theta2^alpha2 * Γ(alpha2)    b = theta1^alpha1 * Γ(alpha1)
//	c = (ψ(alpha1) + ln theta1) * (alpha1 - alpha2)
//	d/e = Γ(alpha1+1)/Γ(alpha1) = alpha1
//	f = theta1/theta2                g = alpha1
//
// ln(a/b) is evaluated with lnΓ so large shapes do not overflow.
func KLDGamma(p, q models.DistributionFit) (float64, error) {
	a1, t1 := p.Alpha, p.Theta()
	a2, t2 := q.Alpha, q.Theta()
	if !(a1 > 0 && a2 > 0 && t1 > 0 && t2 > 0) {
		return 0, fmt.Errorf("%w: invalid gamma parameters p=%+v q=%+v", models.ErrDegenerateSample, p, q)
	}

	lg1, _ := math.Lgamma(a1)
	lg2, _ := math.Lgamma(a2)
	lnA := a2*math.Log(t2) + lg2
	lnB := a1*math.Log(t1) + lg1
	c := (mathext.Digamma(a1) + math.Log(t1)) * (a1 - a2)
	f := t1 / t2

	kld := (lnA - lnB) + c + a1*f - a1
	tol := negativeTolerance * maxAbs(1, lnA, lnB, c, a1*f, a1)
	switch {
	case math.IsNaN(kld) || math.IsInf(kld, 0):
		return 0, fmt.Errorf("%w: divergence is not finite", models.ErrDegenerateSample)
	case kld < 0 && kld >= -tol:
		return 0, nil
	case kld < 0:
		return 0, fmt.Errorf("%w: gamma divergence is negative (%g)", models.ErrDegenerateSample, kld)
	}
	return kld, nil
}

func maxAbs(xs ...float64) float64 {
	m := 0.0
	for _, x := range xs {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// FitAndDiverge fits dist to both samples, optionally shifting each one first, and
// returns KLD(P||Q).
func FitAndDiverge(p, q []float64, dist Distribution, shift bool) (float64, error) {
	if dist != Gamma {
		return 0, fmt.Errorf("%w: unsupported distribution %q", models.ErrConfig, dist)
	}
	fp, err := fitSample(p, shift)
	if err != nil {
		return 0, fmt.Errorf("p sample: %w", err)
	}
	fq, err := fitSample(q, shift)
	if err != nil {
		return 0, fmt.Errorf("q sample: %w", err)
	}
	return KLDGamma(fp, fq)
}

// Symmetric returns the mean of KLD(P||Q) and KLD(Q||P).
func Symmetric(p, q []float64, dist Distribution, shift bool) (float64, error) {
	pq, err := FitAndDiverge(p, q, dist, shift)
	if err != nil {
		return 0, err
	}
	qp, err := FitAndDiverge(q, p, dist, shift)
	if err != nil {
		return 0, err
	}
	return (pq + qp) / 2, nil
}

func fitSample(sample []float64, shift bool) (models.DistributionFit, error) {
	if shift {
		shifted, err := Shift(sample)
		if err != nil {
			return models.DistributionFit{}, err
		}
		sample = shifted
	}
	return FitGamma(sample)
}
