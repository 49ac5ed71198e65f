package alignment

import "errors"

// Sentinel errors returned by the engine. Callers match them with errors.Is;
// the returned errors wrap these with call-site context.
var (
	// ErrUnsupportedDimension indicates a standard dimension outside the
	// canonical set (4096, 8192), either at construction or inside a
	// serialized transform.
	ErrUnsupportedDimension = errors.New("unsupported standard dimension")

	// ErrDimensionMismatch indicates source/target anchor counts that differ,
	// or input vectors whose width does not match the stored transform.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInsufficientAnchors indicates an empty anchor set. The solve is
	// undefined with zero pairs, so the engine rejects it explicitly rather
	// than returning a degenerate transform.
	ErrInsufficientAnchors = errors.New("insufficient anchor points")

	// ErrRaggedAnchors indicates that vectors within one sequence do not all
	// share the same dimension.
	ErrRaggedAnchors = errors.New("ragged anchor vectors")

	// ErrTransformNotReady indicates a call that needs a computed transform
	// before ComputeAlignment or Deserialize has produced one.
	ErrTransformNotReady = errors.New("transform not computed")

	// ErrMalformedTransform indicates serialized input that cannot be decoded
	// back into a transform.
	ErrMalformedTransform = errors.New("malformed serialized transform")
)
