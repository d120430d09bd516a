// Package matching implements the face-match aggregation engine: similarity
// scoring of embedding vectors against the case registry, threshold ranking,
// frame sampling, coarse position inference and temporal aggregation of
// per-frame matches across a video.
package matching

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two embedding vectors of different
// dimensions are compared. It is never coerced into a numeric score.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Confidence computes the cosine similarity of two embedding vectors scaled to
// a percentage. The raw value lies in [-100, 100] and is deliberately not
// clamped; downstream thresholding excludes low and negative scores. A
// zero-norm vector yields 0 confidence rather than a division by zero.
func Confidence(query, candidate []float64) (float64, error) {
	if len(query) != len(candidate) {
		return 0, fmt.Errorf("%w: query has %d dimensions, candidate has %d",
			ErrDimensionMismatch, len(query), len(candidate))
	}
	if len(query) == 0 {
		return 0, nil
	}

	var dot, normQ, normC float64
	for i := range query {
		dot += query[i] * candidate[i]
		normQ += query[i] * query[i]
		normC += candidate[i] * candidate[i]
	}

	if normQ == 0 || normC == 0 {
		return 0, nil
	}

	similarity := dot / (math.Sqrt(normQ) * math.Sqrt(normC))
	return similarity * 100, nil
}

// roundConfidence rounds a confidence percentage to one decimal for responses.
func roundConfidence(confidence float64) float64 {
	return math.Round(confidence*10) / 10
}
