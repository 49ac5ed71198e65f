// Package alignment implements the W-Matrix alignment engine: it learns a
// transformation that maps latent vectors from one model's embedding space
// into another's, using Orthogonal Procrustes analysis combined with a
// low-rank (LoRA-style) residual correction.
//
// The engine is a pure computational unit. It consumes plain numeric
// matrices, produces a transform plus quality metrics, and leaves fetching
// vectors, persisting the serialized transform, and any network exposure to
// the caller. A computed transform is immutable: Transform, ComputeEpsilon
// and Serialize are safe to call concurrently on the same engine, while
// ComputeAlignment replaces the stored matrices and must not race with them.
package alignment

import (
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/awareness/walign/pkg/metrics"
)

// Supported standard dimensions for the unified latent space.
const (
	// StandardDimEdge is the edge/lightweight canonical dimension.
	StandardDimEdge = 4096
	// StandardDimExpert is the expert/flagship canonical dimension.
	StandardDimExpert = 8192
)

// StandardDims lists the canonical dimensions accepted by NewEngine.
var StandardDims = []int{StandardDimEdge, StandardDimExpert}

// LoRAAdapter is a rank-limited residual correction applied on top of the
// base transform: correction(x) = x·A·B.
type LoRAAdapter struct {
	A    *mat.Dense // D_source x rank
	B    *mat.Dense // rank x D_target
	Rank int
}

// Metadata records facts about the last solve. Field names follow the wire
// format used by the marketplace services.
type Metadata struct {
	SourceDim         int   `json:"source_dim"`
	TargetDim         int   `json:"target_dim"`
	AnchorPoints      int   `json:"n_anchor_points"`
	UseLoRA           bool  `json:"use_lora"`
	LoRARank          int   `json:"lora_rank"`
	ComputationTimeMS int64 `json:"computation_time_ms"`
}

// QualityMetrics summarizes how well a computed transform aligns the anchor
// set. EpsilonBase and EpsilonFinal are mean squared alignment errors before
// and after the residual correction.
type QualityMetrics struct {
	EpsilonBase          float64 `json:"epsilon_base"`
	EpsilonFinal         float64 `json:"epsilon_final"`
	FidelityScore        float64 `json:"fidelity_score"`
	ImprovementPct       float64 `json:"improvement_pct"`
	InformationRetention float64 `json:"information_retention"`
}

// Result packages the outcome of one ComputeAlignment call.
type Result struct {
	WMatrix  *mat.Dense
	LoRA     *LoRAAdapter
	Metrics  QualityMetrics
	Metadata Metadata
}

// Engine learns and applies alignments into one standard dimension. The zero
// value is not usable; construct with NewEngine or Deserialize.
//
// State machine: Uninitialized -> (ComputeAlignment | Deserialize) -> Ready
// -> (Transform | ComputeEpsilon | Serialize)*. There is no way back to
// Uninitialized; construct a new engine instead.
type Engine struct {
	standardDim int
	wMatrix     *mat.Dense
	lora        *LoRAAdapter
	meta        Metadata
}

// NewEngine creates an engine targeting the given canonical dimension.
// Returns ErrUnsupportedDimension for anything outside StandardDims.
func NewEngine(standardDim int) (*Engine, error) {
	if standardDim != StandardDimEdge && standardDim != StandardDimExpert {
		return nil, fmt.Errorf("%w: standard_dim must be one of %v, got %d",
			ErrUnsupportedDimension, StandardDims, standardDim)
	}
	return &Engine{standardDim: standardDim}, nil
}

// StandardDim returns the canonical dimension the engine was configured for.
func (e *Engine) StandardDim() int { return e.standardDim }

// Metadata returns the metadata of the last solve (zero value before Ready).
func (e *Engine) Metadata() Metadata { return e.meta }

// Ready reports whether a transform has been computed or loaded.
func (e *Engine) Ready() bool { return e.wMatrix != nil }

// ComputeAlignment learns the W-matrix mapping source space into target
// space from paired anchor vectors.
//
// When source and target dimensions match, the base transform is the
// Orthogonal Procrustes solution, which preserves the relative geometry of
// the source space. When they differ, an unconstrained least-squares
// projection is used instead. With useLoRA and loraRank > 0, a rank-limited
// residual correction is fitted on top; the effective rank is clamped to
// min(loraRank, D_source, D_target, N) and reported in the metadata.
//
// Under-determined anchor sets (N smaller than the dimensions) are accepted
// and produce a best-fit, possibly non-unique, solution. An empty anchor set
// returns ErrInsufficientAnchors.
func (e *Engine) ComputeAlignment(source, target [][]float64, useLoRA bool, loraRank int) (*Result, error) {
	start := time.Now()

	if len(source) != len(target) {
		return nil, fmt.Errorf("%w: %d source vs %d target anchor points",
			ErrDimensionMismatch, len(source), len(target))
	}
	if len(source) == 0 {
		return nil, fmt.Errorf("%w: at least one anchor pair is required", ErrInsufficientAnchors)
	}

	src, err := denseFromRows(source)
	if err != nil {
		return nil, fmt.Errorf("source vectors: %w", err)
	}
	tgt, err := denseFromRows(target)
	if err != nil {
		return nil, fmt.Errorf("target vectors: %w", err)
	}

	n, sourceDim := src.Dims()
	_, targetDim := tgt.Dims()

	slog.Debug("computing alignment",
		"source_dim", sourceDim, "target_dim", targetDim, "anchor_points", n)

	var (
		wBase  *mat.Dense
		method string
	)
	if sourceDim == targetDim {
		method = methodProcrustes
		wBase, err = orthogonalProcrustes(src, tgt)
	} else {
		method = methodLeastSquares
		wBase, err = leastSquares(src, tgt)
	}
	if err != nil {
		return nil, err
	}

	var alignedBase mat.Dense
	alignedBase.Mul(src, wBase)
	epsilonBase := meanSquaredError(&alignedBase, tgt)

	slog.Debug("base alignment solved", "method", method, "epsilon_base", epsilonBase)

	var adapter *LoRAAdapter
	alignedFinal := &alignedBase
	epsilonFinal := epsilonBase
	if useLoRA && loraRank > 0 {
		adapter, err = solveResidualCorrection(src, tgt, &alignedBase, loraRank)
		if err != nil {
			return nil, err
		}
		var corrected mat.Dense
		corrected.Add(&alignedBase, applyAdapter(src, adapter))
		alignedFinal = &corrected
		epsilonFinal = meanSquaredError(alignedFinal, tgt)

		slog.Debug("residual correction applied", "rank", adapter.Rank, "epsilon_final", epsilonFinal)
	}

	qm := QualityMetrics{
		EpsilonBase:          epsilonBase,
		EpsilonFinal:         epsilonFinal,
		FidelityScore:        fidelityScore(epsilonFinal),
		ImprovementPct:       improvementPct(epsilonBase, epsilonFinal),
		InformationRetention: informationRetention(src, alignedFinal),
	}

	effectiveRank := 0
	if adapter != nil {
		effectiveRank = adapter.Rank
	}
	meta := Metadata{
		SourceDim:         sourceDim,
		TargetDim:         targetDim,
		AnchorPoints:      n,
		UseLoRA:           adapter != nil,
		LoRARank:          effectiveRank,
		ComputationTimeMS: time.Since(start).Milliseconds(),
	}

	e.wMatrix = wBase
	e.lora = adapter
	e.meta = meta

	metrics.AlignmentsTotal.WithLabelValues(method).Inc()
	metrics.AlignmentDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	metrics.AlignmentEpsilon.WithLabelValues("base").Set(epsilonBase)
	metrics.AlignmentEpsilon.WithLabelValues("final").Set(epsilonFinal)

	return &Result{
		WMatrix:  wBase,
		LoRA:     adapter,
		Metrics:  qm,
		Metadata: meta,
	}, nil
}

// Transform projects vectors from the source space into the target space
// using the stored transform. With applyLoRA, the residual correction is
// added when one was computed. An empty input yields an empty output.
func (e *Engine) Transform(vectors [][]float64, applyLoRA bool) ([][]float64, error) {
	if e.wMatrix == nil {
		return nil, fmt.Errorf("%w: call ComputeAlignment or Deserialize first", ErrTransformNotReady)
	}
	if len(vectors) == 0 {
		return [][]float64{}, nil
	}

	in, err := denseFromRows(vectors)
	if err != nil {
		return nil, fmt.Errorf("input vectors: %w", err)
	}
	_, d := in.Dims()
	sourceDim, _ := e.wMatrix.Dims()
	if d != sourceDim {
		return nil, fmt.Errorf("%w: input vectors are %d-dimensional, transform expects %d",
			ErrDimensionMismatch, d, sourceDim)
	}

	var out mat.Dense
	out.Mul(in, e.wMatrix)
	if applyLoRA && e.lora != nil {
		out.Add(&out, applyAdapter(in, e.lora))
	}

	metrics.TransformsTotal.Add(float64(len(vectors)))
	return rowsFromDense(&out), nil
}

// ComputeEpsilon returns the alignment loss for a single vector pair:
// the squared Euclidean distance between the transformed source vector
// (correction included) and the true target vector.
func (e *Engine) ComputeEpsilon(source, target []float64) (float64, error) {
	aligned, err := e.Transform([][]float64{source}, true)
	if err != nil {
		return 0, err
	}
	row := aligned[0]
	if len(target) != len(row) {
		return 0, fmt.Errorf("%w: target vector is %d-dimensional, transform produces %d",
			ErrDimensionMismatch, len(target), len(row))
	}
	var sum float64
	for i, v := range row {
		d := v - target[i]
		sum += d * d
	}
	return sum, nil
}

// applyAdapter computes vectors·A·B, multiplying through the rank-k factors
// so the full D_source x D_target product is never materialized.
func applyAdapter(vectors *mat.Dense, adapter *LoRAAdapter) *mat.Dense {
	var va, correction mat.Dense
	va.Mul(vectors, adapter.A)
	correction.Mul(&va, adapter.B)
	return &correction
}

// denseFromRows copies a row-major [][]float64 into a Dense matrix,
// rejecting empty and ragged input.
func denseFromRows(rows [][]float64) (*mat.Dense, error) {
	n := len(rows)
	if n == 0 {
		return nil, ErrInsufficientAnchors
	}
	d := len(rows[0])
	if d == 0 {
		return nil, fmt.Errorf("%w: vector 0 has zero dimension", ErrRaggedAnchors)
	}
	data := make([]float64, 0, n*d)
	for i, row := range rows {
		if len(row) != d {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d",
				ErrRaggedAnchors, i, len(row), d)
		}
		data = append(data, row...)
	}
	return mat.NewDense(n, d, data), nil
}

// rowsFromDense copies a Dense matrix into a row-major [][]float64.
func rowsFromDense(m *mat.Dense) [][]float64 {
	n, d := m.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, d)
		copy(rows[i], m.RawRowView(i))
	}
	return rows
}
