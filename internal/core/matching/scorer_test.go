package matching

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidence(t *testing.T) {
	tests := []struct {
		name      string
		query     []float64
		candidate []float64
		want      float64
	}{
		{
			name:      "identical vectors score 100",
			query:     []float64{0.5, -0.2, 0.8},
			candidate: []float64{0.5, -0.2, 0.8},
			want:      100,
		},
		{
			name:      "opposite vectors score -100",
			query:     []float64{1, 0, 0},
			candidate: []float64{-1, 0, 0},
			want:      -100,
		},
		{
			name:      "orthogonal vectors score 0",
			query:     []float64{1, 0},
			candidate: []float64{0, 1},
			want:      0,
		},
		{
			name:      "zero-norm query scores 0",
			query:     []float64{0, 0, 0},
			candidate: []float64{0.1, 0.2, 0.3},
			want:      0,
		},
		{
			name:      "zero-norm candidate scores 0",
			query:     []float64{0.1, 0.2, 0.3},
			candidate: []float64{0, 0, 0},
			want:      0,
		},
		{
			name:      "empty vectors score 0",
			query:     []float64{},
			candidate: []float64{},
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Confidence(tt.query, tt.candidate)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConfidenceScaleInvariance(t *testing.T) {
	query := []float64{0.3, -0.7, 0.1, 0.9}
	scaled := make([]float64, len(query))
	for i, v := range query {
		scaled[i] = v * 42.5
	}

	got, err := Confidence(query, scaled)
	require.NoError(t, err)
	assert.InDelta(t, 100, got, 1e-9)
}

func TestConfidenceDimensionMismatch(t *testing.T) {
	_, err := Confidence(make([]float64, 128), make([]float64, 512))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Contains(t, err.Error(), "128")
	assert.Contains(t, err.Error(), "512")
}

func TestConfidenceBounds(t *testing.T) {
	// A few arbitrary vector pairs must always stay within [-100, 100].
	pairs := [][2][]float64{
		{{0.1, 0.9, -0.4}, {0.8, 0.8, 0.8}},
		{{-1, -1}, {1, 0.5}},
		{{3, 4}, {4, 3}},
	}
	for _, p := range pairs {
		got, err := Confidence(p[0], p[1])
		require.NoError(t, err)
		assert.LessOrEqual(t, got, 100+1e-9)
		assert.GreaterOrEqual(t, got, -100-1e-9)
	}
}

func TestRoundConfidence(t *testing.T) {
	assert.Equal(t, 51.3, roundConfidence(51.34999))
	assert.Equal(t, 51.4, roundConfidence(51.35001))
	assert.Equal(t, 100.0, roundConfidence(100.0))
	assert.Equal(t, -12.5, roundConfidence(-12.46))
	assert.False(t, math.Signbit(roundConfidence(0.01)))
}
