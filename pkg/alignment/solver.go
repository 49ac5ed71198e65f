package alignment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Solver method labels, also used for instrumentation.
const (
	methodProcrustes   = "procrustes"
	methodLeastSquares = "least_squares"
)

// machineEpsilon is the float64 unit roundoff (2^-52), used for the
// rank-detection cutoff in the least-squares solve.
const machineEpsilon = 2.220446049250313e-16

// orthogonalProcrustes finds the orthogonal matrix W minimizing the
// Frobenius norm of src·W - tgt, via SVD of srcᵀ·tgt: W = U·Vᵀ. Both inputs
// must have the same column count.
func orthogonalProcrustes(src, tgt *mat.Dense) (*mat.Dense, error) {
	var m mat.Dense
	m.Mul(src.T(), tgt)

	var svd mat.SVD
	if !svd.Factorize(&m, mat.SVDThin) {
		return nil, fmt.Errorf("procrustes: SVD of cross-covariance did not converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var w mat.Dense
	w.Mul(&u, v.T())
	return &w, nil
}

// leastSquares solves src·W ≈ tgt in the least-squares sense through the
// SVD pseudoinverse. Rank-deficient and under-determined systems produce the
// minimum-norm best-fit solution rather than an error.
func leastSquares(src, tgt *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(src, mat.SVDThin) {
		return nil, fmt.Errorf("least squares: SVD of source anchors did not converge")
	}

	_, sourceDim := src.Dims()
	_, targetDim := tgt.Dims()

	rank := effectiveRank(&svd, src)
	if rank == 0 {
		// All-zero source anchors: the minimum-norm solution is zero.
		return mat.NewDense(sourceDim, targetDim, nil), nil
	}

	var w mat.Dense
	svd.SolveTo(&w, tgt, rank)
	return &w, nil
}

// effectiveRank counts singular values above max(m,n)·s_max·eps, the same
// cutoff numpy's lstsq applies by default.
func effectiveRank(svd *mat.SVD, a mat.Matrix) int {
	s := svd.Values(nil)
	if len(s) == 0 || s[0] <= 0 {
		return 0
	}
	r, c := a.Dims()
	tol := float64(max(r, c)) * s[0] * machineEpsilon
	rank := 0
	for _, v := range s {
		if v > tol {
			rank++
		}
	}
	return rank
}
