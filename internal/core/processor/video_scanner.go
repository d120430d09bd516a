package processor

import (
	"context"
	"fmt"

	"echoplex-server/internal/core/matching"
	"echoplex-server/internal/core/models"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// VideoScanResult is the aggregate outcome of scanning one video.
type VideoScanResult struct {
	FramesAnalyzed int                      `json:"frames_analyzed"`
	Matches        []models.AggregatedMatch `json:"matches"`
}

// VideoScanner decodes an uploaded video and runs the frame pipeline on a
// sampled subset of its frames, folding the results into one aggregate.
type VideoScanner struct {
	processor     *FrameProcessor
	frameInterval int
}

// NewVideoScanner creates a video scanner using the given frame pipeline.
func NewVideoScanner(processor *FrameProcessor, frameInterval int) *VideoScanner {
	return &VideoScanner{
		processor:     processor,
		frameInterval: frameInterval,
	}
}

// ScanFile analyzes the video at path against the registry snapshot. Frames
// are processed strictly sequentially; the snapshot is fixed for the whole
// scan so hits and bestConfidence stay consistent. Per-frame detector or
// extractor failures are logged and skipped, never aborting the scan. The
// caller owns the file and its cleanup.
func (v *VideoScanner) ScanFile(ctx context.Context, path string, snapshot []models.Case) (*VideoScanResult, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open video file: %w", err)
	}
	defer capture.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	sampler := matching.NewFrameSampler(v.frameInterval)
	aggregator := matching.NewAggregator()
	framesAnalyzed := 0

	for {
		// Abandon in-flight work when the request is cancelled or timed out.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if ok := capture.Read(&frame); !ok {
			break
		}
		if frame.Empty() {
			continue
		}

		if !sampler.Next() {
			continue
		}
		framesAnalyzed++

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
		if err != nil {
			log.Warnf("Failed to encode video frame, skipping: %v", err)
			continue
		}
		frameBytes := make([]byte, len(buf.GetBytes()))
		copy(frameBytes, buf.GetBytes())
		buf.Close()

		result, err := v.processor.ProcessFrame(ctx, frameBytes, snapshot)
		if err != nil {
			// Unlike single-image scans, a per-frame detector failure only
			// costs this frame's contribution to the aggregate.
			log.Warnf("Frame pipeline failed, skipping frame: %v", err)
			continue
		}

		position := matching.EstimatePosition(result.Detections, frame.Cols())
		aggregator.Fold(result, position)
	}

	return &VideoScanResult{
		FramesAnalyzed: framesAnalyzed,
		Matches:        aggregator.Finalize(),
	}, nil
}
