package matching

import (
	"echoplex-server/internal/core/models"
)

// Thirds of the frame used for coarse position labelling.
const (
	leftBoundary   = 0.33
	centerBoundary = 0.66
)

// EstimatePosition derives a coarse left/center/right label from the person
// detections of one frame: the mean horizontal box center is normalized by the
// frame width and mapped onto thirds. Returns "" when there are no person
// boxes or the frame width is unknown. This is a heuristic assuming a single
// dominant subject region, not a calibrated spatial model.
func EstimatePosition(detections []models.Detection, frameWidth int) models.PositionLabel {
	if frameWidth == 0 {
		return ""
	}

	var sum float64
	var count int
	for _, det := range detections {
		if det.ClassName != "person" {
			continue
		}
		sum += (det.X1 + det.X2) / 2
		count++
	}
	if count == 0 {
		return ""
	}

	// Malformed boxes can push rel outside [0,1]; the boundaries below still
	// map every value to a label, so no clamping is needed.
	rel := (sum / float64(count)) / float64(frameWidth)
	switch {
	case rel < leftBoundary:
		return models.PositionLeft
	case rel < centerBoundary:
		return models.PositionCenter
	default:
		return models.PositionRight
	}
}
