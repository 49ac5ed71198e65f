package alignment

import (
	"math"
	"math/rand"
	"testing"
)

func TestFidelityScore(t *testing.T) {
	testCases := []struct {
		name    string
		epsilon float64
		want    float64
	}{
		{name: "zero error", epsilon: 0, want: 1.0},
		{name: "unit error", epsilon: 1, want: 0.5},
		{name: "large error", epsilon: 999, want: 1.0 / 1000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := fidelityScore(tc.epsilon)
			if !floatsAlmostEqual(got, tc.want, 1e-12) {
				t.Errorf("fidelityScore(%g) = %g, expected %g", tc.epsilon, got, tc.want)
			}
			if got <= 0 || got > 1 {
				t.Errorf("fidelityScore(%g) = %g, outside (0,1]", tc.epsilon, got)
			}
		})
	}
}

func TestImprovementPct(t *testing.T) {
	testCases := []struct {
		name        string
		base, final float64
		want        float64
	}{
		{name: "halved error", base: 2, final: 1, want: 50},
		{name: "no change", base: 1, final: 1, want: 0},
		{name: "regression clamps to zero", base: 1, final: 2, want: 0},
		{name: "zero base", base: 0, final: 0, want: 0},
		{name: "perfect correction", base: 0.5, final: 0, want: 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := improvementPct(tc.base, tc.final); !floatsAlmostEqual(got, tc.want, 1e-12) {
				t.Errorf("improvementPct(%g, %g) = %g, expected %g", tc.base, tc.final, got, tc.want)
			}
		})
	}
}

func TestEstimateFidelityBoost(t *testing.T) {
	testCases := []struct {
		name              string
		epsilon, baseline float64
		want              float64
	}{
		{name: "at baseline", epsilon: 0.1, baseline: 0.1, want: 0},
		{name: "above baseline", epsilon: 0.5, baseline: 0.1, want: 0},
		{name: "zero loss", epsilon: 0, baseline: 0.1, want: 100},
		{name: "half of baseline", epsilon: 0.05, baseline: 0.1, want: 50},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := EstimateFidelityBoost(tc.epsilon, tc.baseline)
			if !floatsAlmostEqual(got, tc.want, 1e-9) {
				t.Errorf("EstimateFidelityBoost(%g, %g) = %g, expected %g",
					tc.epsilon, tc.baseline, got, tc.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("boost %g outside [0,100]", got)
			}
		})
	}
}

// Identical matrices have identical spectra: KL is exactly zero and the
// retention score exactly one.
func TestInformationRetentionIdentical(t *testing.T) {
	rng := rand.New(rand.NewSource(47))
	m := denseFromRowsT(t, randomRows(rng, 20, 6))

	if got := informationRetention(m, m); got != 1.0 {
		t.Errorf("informationRetention(m, m) = %g, expected exactly 1", got)
	}
}

func TestInformationRetentionBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(53))

	testCases := []struct {
		name string
		a, b [][]float64
	}{
		{name: "same shape", a: randomRows(rng, 20, 6), b: randomRows(rng, 20, 6)},
		{name: "different dimensions", a: randomRows(rng, 20, 6), b: randomRows(rng, 20, 11)},
		{name: "spectra of different length", a: randomRows(rng, 30, 5), b: randomRows(rng, 30, 25)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := informationRetention(denseFromRowsT(t, tc.a), denseFromRowsT(t, tc.b))
			if math.IsNaN(got) || got <= 0 || got > 1+1e-9 {
				t.Errorf("informationRetention = %g, outside (0,1]", got)
			}
		})
	}
}

func TestMeanSquaredError(t *testing.T) {
	a := denseFromRowsT(t, [][]float64{{1, 2}, {3, 4}})
	b := denseFromRowsT(t, [][]float64{{1, 2}, {0, 0}})

	// Row errors: 0 and 3^2+4^2 = 25, mean 12.5.
	if got := meanSquaredError(a, b); !floatsAlmostEqual(got, 12.5, 1e-12) {
		t.Errorf("meanSquaredError = %g, expected 12.5", got)
	}
}
