package matching

import (
	"testing"

	"echoplex-server/internal/core/models"

	"github.com/stretchr/testify/assert"
)

func person(x1, x2 float64) models.Detection {
	return models.Detection{X1: x1, X2: x2, ClassName: "person", Confidence: 0.9}
}

func TestEstimatePosition(t *testing.T) {
	tests := []struct {
		name       string
		detections []models.Detection
		frameWidth int
		want       models.PositionLabel
	}{
		{
			name:       "no detections yields no label",
			detections: nil,
			frameWidth: 1000,
			want:       "",
		},
		{
			name:       "unknown frame width yields no label",
			detections: []models.Detection{person(10, 20)},
			frameWidth: 0,
			want:       "",
		},
		{
			name:       "box on the left",
			detections: []models.Detection{person(0, 100)},
			frameWidth: 1000,
			want:       models.PositionLeft,
		},
		{
			name:       "box in the center",
			detections: []models.Detection{person(400, 600)},
			frameWidth: 1000,
			want:       models.PositionCenter,
		},
		{
			name:       "box on the right",
			detections: []models.Detection{person(800, 1000)},
			frameWidth: 1000,
			want:       models.PositionRight,
		},
		{
			name: "non-person boxes are ignored",
			detections: []models.Detection{
				{X1: 900, X2: 1000, ClassName: "car"},
				person(0, 200),
			},
			frameWidth: 1000,
			want:       models.PositionLeft,
		},
		{
			name: "only non-person boxes yields no label",
			detections: []models.Detection{
				{X1: 400, X2: 600, ClassName: "dog"},
			},
			frameWidth: 1000,
			want:       "",
		},
		{
			name:       "mean of two boxes decides",
			detections: []models.Detection{person(0, 100), person(800, 1000)},
			frameWidth: 1000,
			want:       models.PositionCenter,
		},
		{
			name:       "left boundary belongs to center",
			detections: []models.Detection{person(0, 660)},
			frameWidth: 1000,
			want:       models.PositionCenter,
		},
		{
			name:       "center boundary belongs to right",
			detections: []models.Detection{person(320, 1000)},
			frameWidth: 1000,
			want:       models.PositionRight,
		},
		{
			name:       "degenerate box outside the frame still maps",
			detections: []models.Detection{person(1100, 1300)},
			frameWidth: 1000,
			want:       models.PositionRight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimatePosition(tt.detections, tt.frameWidth))
		})
	}
}
