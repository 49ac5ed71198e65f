package alignment

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func denseFromRowsT(t *testing.T, rows [][]float64) *mat.Dense {
	t.Helper()
	m, err := denseFromRows(rows)
	if err != nil {
		t.Fatalf("denseFromRows failed: %v", err)
	}
	return m
}

// The Procrustes solution must be orthogonal: WᵀW = I.
func TestProcrustesOrthogonality(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	const n, d = 50, 9

	src := denseFromRowsT(t, randomRows(rng, n, d))
	tgt := denseFromRowsT(t, randomRows(rng, n, d))

	w, err := orthogonalProcrustes(src, tgt)
	if err != nil {
		t.Fatalf("orthogonalProcrustes failed: %v", err)
	}

	var gram mat.Dense
	gram.Mul(w.T(), w)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if !floatsAlmostEqual(gram.At(i, j), want, 1e-9) {
				t.Fatalf("WᵀW[%d,%d] = %g, expected %g", i, j, gram.At(i, j), want)
			}
		}
	}
}

// When the target really is an orthogonal image of the source, Procrustes
// recovers that exact matrix.
func TestProcrustesRecoversRotation(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	const n, d = 64, 8

	source := randomRows(rng, n, d)
	// A coordinate permutation is orthogonal and easy to verify.
	perm := rng.Perm(d)
	target := make([][]float64, n)
	for i := range target {
		target[i] = make([]float64, d)
		for j := 0; j < d; j++ {
			target[i][j] = source[i][perm[j]]
		}
	}

	src := denseFromRowsT(t, source)
	tgt := denseFromRowsT(t, target)
	w, err := orthogonalProcrustes(src, tgt)
	if err != nil {
		t.Fatalf("orthogonalProcrustes failed: %v", err)
	}

	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			want := 0.0
			if perm[j] == i {
				want = 1.0
			}
			if !floatsAlmostEqual(w.At(i, j), want, 1e-9) {
				t.Fatalf("W[%d,%d] = %g, expected %g (permutation not recovered)", i, j, w.At(i, j), want)
			}
		}
	}
}

// With noiseless targets and more anchors than dimensions, the least-squares
// solve reproduces the generating projection up to round-off.
func TestLeastSquaresExactFit(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	const n, ds, dt = 60, 7, 12

	src := denseFromRowsT(t, randomRows(rng, n, ds))
	proj := denseFromRowsT(t, randomRows(rng, ds, dt))
	var tgt mat.Dense
	tgt.Mul(src, proj)

	w, err := leastSquares(src, &tgt)
	if err != nil {
		t.Fatalf("leastSquares failed: %v", err)
	}

	var fitted mat.Dense
	fitted.Mul(src, w)
	for i := 0; i < n; i++ {
		for j := 0; j < dt; j++ {
			if !floatsAlmostEqual(fitted.At(i, j), tgt.At(i, j), 1e-8) {
				t.Fatalf("fit[%d,%d] = %g, expected %g", i, j, fitted.At(i, j), tgt.At(i, j))
			}
		}
	}
}

// All-zero anchors are rank zero; the minimum-norm solution is the zero
// matrix, not an error.
func TestLeastSquaresZeroSource(t *testing.T) {
	src := mat.NewDense(5, 4, nil)
	tgt := denseFromRowsT(t, randomRows(rand.New(rand.NewSource(37)), 5, 6))

	w, err := leastSquares(src, tgt)
	if err != nil {
		t.Fatalf("leastSquares failed on zero source: %v", err)
	}
	rows, cols := w.Dims()
	if rows != 4 || cols != 6 {
		t.Fatalf("W is %dx%d, expected 4x6", rows, cols)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if w.At(i, j) != 0 {
				t.Fatalf("W[%d,%d] = %g, expected 0", i, j, w.At(i, j))
			}
		}
	}
}

func TestEffectiveRank(t *testing.T) {
	rng := rand.New(rand.NewSource(41))

	// Every row identical: rank one regardless of shape.
	row := randomRows(rng, 1, 6)[0]
	rows := make([][]float64, 10)
	for i := range rows {
		rows[i] = row
	}
	m := denseFromRowsT(t, rows)

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		t.Fatal("SVD did not converge")
	}
	if got := effectiveRank(&svd, m); got != 1 {
		t.Errorf("effectiveRank = %d, expected 1 for repeated rows", got)
	}
}
