package matching

// DefaultFrameInterval is the sampling stride used when none is configured:
// every 15th frame keeps processing time reasonable on long videos.
const DefaultFrameInterval = 15

// FrameSampler selects every Nth frame of a video stream to bound per-video
// processing cost. It is restartable: a fresh sampler starts counting at
// frame 1.
type FrameSampler struct {
	interval int
	index    int
}

// NewFrameSampler returns a sampler with the given stride. A stride below 1
// falls back to DefaultFrameInterval.
func NewFrameSampler(interval int) *FrameSampler {
	if interval < 1 {
		interval = DefaultFrameInterval
	}
	return &FrameSampler{interval: interval}
}

// Next advances the frame counter and reports whether the current frame
// should be analyzed.
func (s *FrameSampler) Next() bool {
	s.index++
	return s.index%s.interval == 0
}

// Reset restarts the counter for a new video.
func (s *FrameSampler) Reset() {
	s.index = 0
}
