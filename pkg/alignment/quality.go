package alignment

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// klEpsilon keeps both spectrum distributions strictly positive inside the
// KL divergence, so the log never sees a zero.
const klEpsilon = 1e-10

// DefaultBaselineEpsilon is the reference alignment loss of an un-aligned
// vector, used by EstimateFidelityBoost when no measured baseline exists.
const DefaultBaselineEpsilon = 0.1

// meanSquaredError returns the mean over rows of the squared Euclidean
// distance between corresponding rows of aligned and tgt.
func meanSquaredError(aligned, tgt *mat.Dense) float64 {
	n, d := aligned.Dims()
	if n == 0 {
		return 0
	}
	var total float64
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			diff := aligned.At(i, j) - tgt.At(i, j)
			total += diff * diff
		}
	}
	return total / float64(n)
}

// fidelityScore maps an alignment loss into (0,1]; lower loss scores higher.
func fidelityScore(epsilonFinal float64) float64 {
	return 1.0 / (1.0 + epsilonFinal)
}

// improvementPct is the percentage reduction of the corrected error over the
// base error, clamped to zero for degenerate or regressing cases.
func improvementPct(epsilonBase, epsilonFinal float64) float64 {
	if epsilonBase <= 0 {
		return 0
	}
	return math.Max(0, (epsilonBase-epsilonFinal)/epsilonBase*100)
}

// informationRetention compares the singular-value spectra of the raw source
// vectors and the corrected aligned vectors. Each spectrum is normalized to
// sum to one and treated as a distribution over singular directions; the KL
// divergence of source relative to aligned is mapped through exp(-KL) into a
// (0,1] similarity. When the thin spectra differ in length (possible when
// N exceeds the smaller dimension and D_source != D_target) the shorter one
// is zero-padded.
func informationRetention(src, aligned *mat.Dense) float64 {
	sSource := singularSpectrum(src)
	sAligned := singularSpectrum(aligned)
	if sSource == nil || sAligned == nil {
		return 0
	}

	normalizeSpectrum(sSource)
	normalizeSpectrum(sAligned)

	var kl float64
	for i := 0; i < max(len(sSource), len(sAligned)); i++ {
		var p, q float64
		if i < len(sSource) {
			p = sSource[i]
		}
		if i < len(sAligned) {
			q = sAligned[i]
		}
		kl += p * math.Log((p+klEpsilon)/(q+klEpsilon))
	}
	return math.Exp(-kl)
}

// singularSpectrum returns the singular values of m in descending order, or
// nil if the factorization does not converge.
func singularSpectrum(m *mat.Dense) []float64 {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		return nil
	}
	return svd.Values(nil)
}

// normalizeSpectrum scales s in place to sum to one. An all-zero spectrum is
// left as zeros rather than producing NaNs.
func normalizeSpectrum(s []float64) {
	var sum float64
	for _, v := range s {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i := range s {
		s[i] /= sum
	}
}

// EstimateFidelityBoost converts an absolute alignment loss into a 0-100
// percentage improvement over a caller-supplied baseline loss. Losses at or
// above the baseline yield zero.
func EstimateFidelityBoost(epsilon, baselineEpsilon float64) float64 {
	if epsilon >= baselineEpsilon {
		return 0
	}
	boost := (baselineEpsilon - epsilon) / baselineEpsilon * 100
	return math.Min(100, math.Max(0, boost))
}
