package matching

import (
	"sort"

	"echoplex-server/internal/core/models"
)

// positionPriority breaks ties between equal position counts deterministically:
// left wins over center, center over right.
var positionPriority = []models.PositionLabel{
	models.PositionLeft,
	models.PositionCenter,
	models.PositionRight,
}

// Aggregator folds per-frame match results into a per-case evidence summary
// over one video scan. It is request-scoped: create one per scan, fold every
// sampled frame, then call Finalize. Not safe for concurrent use, which the
// strictly sequential frame loop never needs.
type Aggregator struct {
	state map[string]*models.AggregatedMatch
	order []string // caseIds in first-seen order, for deterministic iteration
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		state: make(map[string]*models.AggregatedMatch),
	}
}

// Fold merges one frame's matches into the running state. Hits count
// occurrences, not frames: two faces in the same frame matching the same case
// count twice. framePosition contributes to positionCounts unless it is empty.
func (a *Aggregator) Fold(frame models.FrameResult, framePosition models.PositionLabel) {
	for _, m := range frame.Matches {
		agg, ok := a.state[m.CaseID]
		if !ok {
			agg = &models.AggregatedMatch{
				CaseID:   m.CaseID,
				FullName: m.FullName,
				PhotoURL: m.PhotoURL,
				PositionCounts: map[models.PositionLabel]int{
					models.PositionLeft:   0,
					models.PositionCenter: 0,
					models.PositionRight:  0,
				},
			}
			a.state[m.CaseID] = agg
			a.order = append(a.order, m.CaseID)
		}

		agg.Hits++
		if m.Confidence > agg.BestConfidence {
			agg.BestConfidence = m.Confidence
		}

		if framePosition != "" {
			agg.PositionCounts[framePosition]++
			agg.Position = dominantPosition(agg.PositionCounts)
		}
	}
}

// Finalize returns all aggregated cases sorted by bestConfidence descending.
// Every case with at least one hit is included; there is no truncation at the
// aggregate level.
func (a *Aggregator) Finalize() []models.AggregatedMatch {
	result := make([]models.AggregatedMatch, 0, len(a.order))
	for _, caseID := range a.order {
		result = append(result, *a.state[caseID])
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].BestConfidence > result[j].BestConfidence
	})
	return result
}

// dominantPosition picks the label with the highest count, resolving ties by
// the fixed left > center > right priority.
func dominantPosition(counts map[models.PositionLabel]int) models.PositionLabel {
	var best models.PositionLabel
	bestCount := -1
	for _, label := range positionPriority {
		if counts[label] > bestCount {
			best = label
			bestCount = counts[label]
		}
	}
	return best
}
