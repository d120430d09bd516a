package matching

import (
	"testing"

	"echoplex-server/internal/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameWith(matches ...models.ScoredMatch) models.FrameResult {
	return models.FrameResult{Matches: matches}
}

func TestAggregatorAccumulatesHitsAndBestConfidence(t *testing.T) {
	agg := NewAggregator()

	agg.Fold(frameWith(models.ScoredMatch{CaseID: "a", FullName: "Alice", Confidence: 80}), models.PositionLeft)
	agg.Fold(frameWith(models.ScoredMatch{CaseID: "a", FullName: "Alice", Confidence: 95}), models.PositionLeft)
	agg.Fold(frameWith(models.ScoredMatch{CaseID: "a", FullName: "Alice", Confidence: 70}), models.PositionRight)

	result := agg.Finalize()
	require.Len(t, result, 1)

	a := result[0]
	assert.Equal(t, "a", a.CaseID)
	assert.Equal(t, "Alice", a.FullName)
	assert.Equal(t, 3, a.Hits)
	assert.Equal(t, 95.0, a.BestConfidence)
	assert.Equal(t, map[models.PositionLabel]int{
		models.PositionLeft:   2,
		models.PositionCenter: 0,
		models.PositionRight:  1,
	}, a.PositionCounts)
	assert.Equal(t, models.PositionLeft, a.Position)
}

func TestAggregatorCountsEveryOccurrenceInOneFrame(t *testing.T) {
	agg := NewAggregator()

	// Two faces in the same frame matching the same case.
	agg.Fold(frameWith(
		models.ScoredMatch{CaseID: "a", Confidence: 60},
		models.ScoredMatch{CaseID: "a", Confidence: 75},
	), models.PositionCenter)

	result := agg.Finalize()
	require.Len(t, result, 1)
	assert.Equal(t, 2, result[0].Hits)
	assert.Equal(t, 75.0, result[0].BestConfidence)
	assert.Equal(t, 2, result[0].PositionCounts[models.PositionCenter])
}

func TestAggregatorBestConfidenceNeverDecreases(t *testing.T) {
	agg := NewAggregator()
	confidences := []float64{50, 90, 41, 60}

	var best float64
	for _, c := range confidences {
		agg.Fold(frameWith(models.ScoredMatch{CaseID: "a", Confidence: c}), "")
		if c > best {
			best = c
		}
		result := agg.Finalize()
		require.Len(t, result, 1)
		assert.Equal(t, best, result[0].BestConfidence)
	}
}

func TestAggregatorPositionTieBreak(t *testing.T) {
	tests := []struct {
		name      string
		positions []models.PositionLabel
		want      models.PositionLabel
	}{
		{"left wins ties against right", []models.PositionLabel{models.PositionRight, models.PositionLeft}, models.PositionLeft},
		{"center wins ties against right", []models.PositionLabel{models.PositionRight, models.PositionCenter}, models.PositionCenter},
		{"majority beats priority", []models.PositionLabel{models.PositionRight, models.PositionRight, models.PositionLeft}, models.PositionRight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			for _, pos := range tt.positions {
				agg.Fold(frameWith(models.ScoredMatch{CaseID: "a", Confidence: 50}), pos)
			}
			result := agg.Finalize()
			require.Len(t, result, 1)
			assert.Equal(t, tt.want, result[0].Position)
		})
	}
}

func TestAggregatorIgnoresEmptyFramePosition(t *testing.T) {
	agg := NewAggregator()
	agg.Fold(frameWith(models.ScoredMatch{CaseID: "a", Confidence: 50}), "")

	result := agg.Finalize()
	require.Len(t, result, 1)
	assert.Equal(t, models.PositionLabel(""), result[0].Position)
	assert.Equal(t, 0, result[0].PositionCounts[models.PositionLeft])
	assert.Equal(t, 0, result[0].PositionCounts[models.PositionCenter])
	assert.Equal(t, 0, result[0].PositionCounts[models.PositionRight])
}

func TestAggregatorFinalizeSortsByBestConfidence(t *testing.T) {
	agg := NewAggregator()
	agg.Fold(frameWith(
		models.ScoredMatch{CaseID: "weak", Confidence: 45},
		models.ScoredMatch{CaseID: "strong", Confidence: 98},
		models.ScoredMatch{CaseID: "mid", Confidence: 70},
	), models.PositionCenter)

	result := agg.Finalize()
	require.Len(t, result, 3)
	assert.Equal(t, "strong", result[0].CaseID)
	assert.Equal(t, "mid", result[1].CaseID)
	assert.Equal(t, "weak", result[2].CaseID)
}

func TestAggregatorNoMatchesFinalizesEmpty(t *testing.T) {
	agg := NewAggregator()
	agg.Fold(models.FrameResult{}, models.PositionLeft)

	result := agg.Finalize()
	assert.NotNil(t, result)
	assert.Empty(t, result)
}
