package alignment

import (
	"encoding/json"
	"fmt"
)

// serializedAdapter mirrors the wire layout of the LoRA adapter. Field names
// match the marketplace services, which store and exchange transforms as
// JSON blobs.
type serializedAdapter struct {
	A    [][]float64 `json:"A"`
	B    [][]float64 `json:"B"`
	Rank int         `json:"rank"`
}

type serializedTransform struct {
	WMatrix     [][]float64        `json:"w_matrix"`
	LoRAAdapter *serializedAdapter `json:"lora_adapter"`
	Metadata    Metadata           `json:"metadata"`
	StandardDim int                `json:"standard_dim"`
}

// Serialize encodes the computed transform (matrices, metadata, standard
// dimension) as a self-describing JSON document. The matrices round-trip
// through Deserialize bit-exactly, since Go emits the shortest decimal that
// reproduces each float64.
func (e *Engine) Serialize() ([]byte, error) {
	if e.wMatrix == nil {
		return nil, fmt.Errorf("%w: nothing to serialize", ErrTransformNotReady)
	}

	out := serializedTransform{
		WMatrix:     rowsFromDense(e.wMatrix),
		Metadata:    e.meta,
		StandardDim: e.standardDim,
	}
	if e.lora != nil {
		out.LoRAAdapter = &serializedAdapter{
			A:    rowsFromDense(e.lora.A),
			B:    rowsFromDense(e.lora.B),
			Rank: e.lora.Rank,
		}
	}
	return json.Marshal(out)
}

// Deserialize reconstructs a Ready engine from the output of Serialize.
// Structurally invalid input returns ErrMalformedTransform; a well-formed
// document whose standard_dim is not a supported canonical size returns
// ErrUnsupportedDimension.
func Deserialize(data []byte) (*Engine, error) {
	var in serializedTransform
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransform, err)
	}

	engine, err := NewEngine(in.StandardDim)
	if err != nil {
		return nil, err
	}

	if len(in.WMatrix) == 0 {
		return nil, fmt.Errorf("%w: missing w_matrix", ErrMalformedTransform)
	}
	w, err := denseFromRows(in.WMatrix)
	if err != nil {
		return nil, fmt.Errorf("%w: w_matrix: %v", ErrMalformedTransform, err)
	}
	sourceDim, targetDim := w.Dims()
	engine.wMatrix = w

	if in.LoRAAdapter != nil {
		a, err := denseFromRows(in.LoRAAdapter.A)
		if err != nil {
			return nil, fmt.Errorf("%w: lora_adapter.A: %v", ErrMalformedTransform, err)
		}
		b, err := denseFromRows(in.LoRAAdapter.B)
		if err != nil {
			return nil, fmt.Errorf("%w: lora_adapter.B: %v", ErrMalformedTransform, err)
		}

		aRows, aCols := a.Dims()
		bRows, bCols := b.Dims()
		switch {
		case aCols != in.LoRAAdapter.Rank || bRows != in.LoRAAdapter.Rank:
			return nil, fmt.Errorf("%w: lora_adapter factors are %dx%d and %dx%d, rank says %d",
				ErrMalformedTransform, aRows, aCols, bRows, bCols, in.LoRAAdapter.Rank)
		case aRows != sourceDim || bCols != targetDim:
			return nil, fmt.Errorf("%w: lora_adapter factors do not match the %dx%d w_matrix",
				ErrMalformedTransform, sourceDim, targetDim)
		}
		engine.lora = &LoRAAdapter{A: a, B: b, Rank: in.LoRAAdapter.Rank}
	}

	engine.meta = in.Metadata
	return engine, nil
}
