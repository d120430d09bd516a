package matching

import (
	"sort"

	"echoplex-server/internal/core/models"

	log "github.com/sirupsen/logrus"
)

// Default ranking parameters, matching the reference pipeline.
const (
	DefaultThreshold = 40.0
	DefaultTopK      = 5
)

// Rank scores a query embedding against a registry snapshot and returns the
// candidates whose confidence strictly exceeds threshold, sorted by confidence
// descending and truncated to topK. Ties keep the snapshot's iteration order.
// Cases that are inactive or carry no embedding are skipped. The snapshot is
// never mutated.
func Rank(query []float64, snapshot []models.Case, threshold float64, topK int) []models.ScoredMatch {
	matches := make([]models.ScoredMatch, 0, topK)

	for i := range snapshot {
		c := &snapshot[i]
		if !c.Active {
			continue
		}
		reference := c.EmbeddingVector()
		if len(reference) == 0 {
			continue
		}

		confidence, err := Confidence(query, reference)
		if err != nil {
			// Dimension mismatches indicate a registry entry produced by a
			// different embedding model; skip it rather than fail the scan.
			log.WithField("caseId", c.ID).Warnf("Skipping incomparable case embedding: %v", err)
			continue
		}

		if confidence > threshold {
			matches = append(matches, models.ScoredMatch{
				CaseID:      c.ID,
				FullName:    c.FullName,
				Confidence:  roundConfidence(confidence),
				PhotoURL:    c.PhotoURL,
				Age:         c.Age,
				Description: c.Description,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// MergeTopK combines per-embedding match lists from one frame into a single
// list, re-sorted by confidence descending and truncated to topK. A frame may
// show multiple faces, so the same case can appear more than once.
func MergeTopK(lists [][]models.ScoredMatch, topK int) []models.ScoredMatch {
	merged := make([]models.ScoredMatch, 0)
	for _, l := range lists {
		merged = append(merged, l...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
