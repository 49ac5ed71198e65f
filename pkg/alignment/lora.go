package alignment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// solveResidualCorrection learns a rank-limited correction on top of the
// base transform. It fits a full correction matrix W_full so that
// src·W_full ≈ tgt - alignedBase, factors W_full by SVD, and keeps the top-k
// singular triplets with the square root of each singular value split
// between the two factors, so neither A nor B dominates in magnitude.
//
// The effective rank is clamped to min(requestedRank, D_source, D_target, N).
// requestedRank must be positive; callers disable correction by not calling
// this at all.
func solveResidualCorrection(src, tgt, alignedBase *mat.Dense, requestedRank int) (*LoRAAdapter, error) {
	n, sourceDim := src.Dims()
	_, targetDim := tgt.Dims()

	var residual mat.Dense
	residual.Sub(tgt, alignedBase)

	wFull, err := leastSquares(src, &residual)
	if err != nil {
		return nil, fmt.Errorf("residual correction: %w", err)
	}

	var svd mat.SVD
	if !svd.Factorize(wFull, mat.SVDThin) {
		return nil, fmt.Errorf("residual correction: SVD of correction matrix did not converge")
	}
	s := svd.Values(nil)

	k := min(requestedRank, sourceDim, targetDim, n, len(s))

	var u, v mat.Dense
	svd.UTo(&u) // D_source x min(D_source, D_target)
	svd.VTo(&v) // D_target x min(D_source, D_target)

	a := mat.NewDense(sourceDim, k, nil)
	b := mat.NewDense(k, targetDim, nil)
	for j := 0; j < k; j++ {
		root := math.Sqrt(s[j])
		for i := 0; i < sourceDim; i++ {
			a.Set(i, j, u.At(i, j)*root)
		}
		for i := 0; i < targetDim; i++ {
			b.Set(j, i, v.At(i, j)*root)
		}
	}

	return &LoRAAdapter{A: a, B: b, Rank: k}, nil
}
