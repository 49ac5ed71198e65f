package alignment

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DefaultSyntheticSeed is the seed used by the demo and the marketplace
// calibration fixtures. Tests override it through SyntheticConfig.
const DefaultSyntheticSeed int64 = 42

// SyntheticConfig controls GenerateSyntheticAnchors. All randomness flows
// from Seed, so equal configs produce identical anchor sets.
type SyntheticConfig struct {
	SourceDim    int
	TargetDim    int
	AnchorPoints int
	NoiseLevel   float64
	Seed         int64
}

// GenerateSyntheticAnchors creates correlated source/target anchor pairs for
// testing and calibrating alignments. Source vectors are iid standard
// Gaussian; targets are the sources pushed through a fixed random projection
// (scaled by 1/sqrt(D_source)) plus Gaussian noise of the configured level.
func GenerateSyntheticAnchors(cfg SyntheticConfig) (source, target [][]float64, err error) {
	if cfg.SourceDim <= 0 || cfg.TargetDim <= 0 {
		return nil, nil, fmt.Errorf("synthetic anchors: dimensions must be positive, got %dx%d",
			cfg.SourceDim, cfg.TargetDim)
	}
	if cfg.AnchorPoints <= 0 {
		return nil, nil, fmt.Errorf("synthetic anchors: anchor count must be positive, got %d",
			cfg.AnchorPoints)
	}
	if cfg.NoiseLevel < 0 {
		return nil, nil, fmt.Errorf("synthetic anchors: noise level must be non-negative, got %g",
			cfg.NoiseLevel)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	scale := 1 / math.Sqrt(float64(cfg.SourceDim))
	projection := mat.NewDense(cfg.SourceDim, cfg.TargetDim, nil)
	for i := 0; i < cfg.SourceDim; i++ {
		for j := 0; j < cfg.TargetDim; j++ {
			projection.Set(i, j, rng.NormFloat64()*scale)
		}
	}

	src := mat.NewDense(cfg.AnchorPoints, cfg.SourceDim, nil)
	for i := 0; i < cfg.AnchorPoints; i++ {
		for j := 0; j < cfg.SourceDim; j++ {
			src.Set(i, j, rng.NormFloat64())
		}
	}

	var tgt mat.Dense
	tgt.Mul(src, projection)
	for i := 0; i < cfg.AnchorPoints; i++ {
		for j := 0; j < cfg.TargetDim; j++ {
			tgt.Set(i, j, tgt.At(i, j)+rng.NormFloat64()*cfg.NoiseLevel)
		}
	}

	return rowsFromDense(src), rowsFromDense(&tgt), nil
}
