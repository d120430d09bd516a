// Package processor orchestrates the scan pipelines: per-frame detection and
// matching, and the sampled video loop that feeds the temporal aggregator.
package processor

import (
	"context"
	"fmt"

	"echoplex-server/config"
	"echoplex-server/internal/core/matching"
	"echoplex-server/internal/core/models"

	log "github.com/sirupsen/logrus"
)

// PersonDetector is the consumed contract of the external object detector.
type PersonDetector interface {
	Enabled() bool
	Detect(ctx context.Context, imageData []byte) ([]models.Detection, error)
}

// EmbeddingExtractor is the consumed contract of the external face embedding
// service.
type EmbeddingExtractor interface {
	Enabled() bool
	Represent(ctx context.Context, imageData []byte, nonStrict bool) ([][]float64, error)
}

// FrameProcessor runs the single-frame match pipeline: detect persons, extract
// face embeddings, rank them against a registry snapshot.
type FrameProcessor struct {
	detector  PersonDetector
	extractor EmbeddingExtractor
	scanCfg   config.ScanConfig
}

// NewFrameProcessor creates a frame processor. Extractor availability is an
// explicit capability: with a disabled extractor every frame yields zero
// matches, which is a normal outcome rather than an error.
func NewFrameProcessor(detector PersonDetector, extractor EmbeddingExtractor, scanCfg config.ScanConfig) *FrameProcessor {
	if scanCfg.MatchThreshold == 0 {
		scanCfg.MatchThreshold = matching.DefaultThreshold
	}
	if scanCfg.TopK == 0 {
		scanCfg.TopK = matching.DefaultTopK
	}
	return &FrameProcessor{
		detector:  detector,
		extractor: extractor,
		scanCfg:   scanCfg,
	}
}

// MatchingEnabled reports whether the face matching capability is active.
func (p *FrameProcessor) MatchingEnabled() bool {
	return p.extractor != nil && p.extractor.Enabled()
}

// ProcessFrame runs the pipeline on one image against the given registry
// snapshot. A detector failure is returned to the caller; an extractor failure
// is absorbed and the frame simply contributes no matches.
func (p *FrameProcessor) ProcessFrame(ctx context.Context, imageData []byte, snapshot []models.Case) (models.FrameResult, error) {
	result := models.FrameResult{
		Detections: []models.Detection{},
		Matches:    []models.ScoredMatch{},
	}

	detections, err := p.detector.Detect(ctx, imageData)
	if err != nil {
		return result, fmt.Errorf("detection failed: %w", err)
	}
	result.Detections = detections

	for _, det := range detections {
		if det.ClassName == "person" {
			result.PersonCount++
		}
	}

	// No persons, or matching disabled: a normal empty outcome.
	if result.PersonCount == 0 || !p.MatchingEnabled() {
		return result, nil
	}

	// Non-strict extraction: zero detected faces come back as an empty list.
	// Any extractor error is absorbed here so it can never abort a video scan.
	embeddings, err := p.extractor.Represent(ctx, imageData, true)
	if err != nil {
		log.Warnf("Face extraction failed, frame contributes no matches: %v", err)
		return result, nil
	}
	result.FacesDetected = len(embeddings)

	if len(embeddings) == 0 {
		return result, nil
	}

	result.Matches = p.rankEmbeddings(embeddings, snapshot)

	return result, nil
}

// MatchFace extracts faces from an image and ranks them against the snapshot
// without running the object detector first. Used by the direct face-match
// endpoint, where the caller already believes a face is present.
func (p *FrameProcessor) MatchFace(ctx context.Context, imageData []byte, snapshot []models.Case) ([]models.ScoredMatch, int, error) {
	if !p.MatchingEnabled() {
		return []models.ScoredMatch{}, 0, nil
	}

	embeddings, err := p.extractor.Represent(ctx, imageData, true)
	if err != nil {
		return nil, 0, fmt.Errorf("face extraction failed: %w", err)
	}

	return p.rankEmbeddings(embeddings, snapshot), len(embeddings), nil
}

// rankEmbeddings ranks each extracted embedding against the snapshot and
// merges the per-face lists into one topK result for the frame.
func (p *FrameProcessor) rankEmbeddings(embeddings [][]float64, snapshot []models.Case) []models.ScoredMatch {
	perFace := make([][]models.ScoredMatch, 0, len(embeddings))
	for _, embedding := range embeddings {
		perFace = append(perFace, matching.Rank(embedding, snapshot, p.scanCfg.MatchThreshold, p.scanCfg.TopK))
	}
	return matching.MergeTopK(perFace, p.scanCfg.TopK)
}
