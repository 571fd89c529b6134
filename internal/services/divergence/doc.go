// Package divergence fits Gamma distributions to label samples and measures how far
// apart two fits are with the Kullback-Leibler divergence.
//
// The estimator is split into independently testable steps:
//
//	Shift       optional positivity transform x' = (x + |min x|) / max x
//	FitGamma    method-of-moments fit: alpha = mean²/var, beta = mean/var
//	KLDGamma    closed-form KLD(P||Q) between two fits
//
// FitAndDiverge composes them. The divergence is asymmetric; Symmetric averages both
// directions for callers that need a distance-like score.
//
// Shift is applied to each sample on its own, so two shifted samples are generally not on
// a common scale. Scores computed with shift enabled compare shapes, not levels.
//
// Reference: Bauckhage, C. (2014). Computing the Kullback-Leibler Divergence between two
// Generalized Gamma Distributions. arXiv:1401.6853. With p=1 on both sides the generalized
// gamma reduces to the ordinary gamma used here.
package divergence
