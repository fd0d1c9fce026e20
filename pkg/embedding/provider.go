package embedding

import (
	"context"
	"math"
)

// EmbeddingProvider turns text into a fixed-dimension unit vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// normalizeVector scales a vector to unit length. A zero vector is returned as is.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		magnitude = 1
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}

// FitDim truncates or zero-pads vec to dim and renormalizes it.
func FitDim(vec []float32, dim int) []float32 {
	if dim <= 0 {
		return normalizeVector(vec)
	}
	out := make([]float32, dim)
	copy(out, vec)
	return normalizeVector(out)
}
