package processor

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// ScanPool bounds how many scan requests run against the external model
// services at once. The detector and extractor are typically a single loaded
// model instance that degrades badly under unbounded concurrent invocation,
// so whole scans queue for a slot; frames within one scan stay sequential.
type ScanPool struct {
	slots chan struct{}
}

// NewScanPool creates a pool with the given number of concurrent scan slots.
func NewScanPool(maxConcurrent int) *ScanPool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	log.Infof("Initializing scan pool with %d concurrent slot(s)", maxConcurrent)
	return &ScanPool{
		slots: make(chan struct{}, maxConcurrent),
	}
}

// Acquire blocks until a scan slot is free or the request context ends.
func (p *ScanPool) Acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (p *ScanPool) Release() {
	select {
	case <-p.slots:
	default:
		log.Warn("Scan pool release without matching acquire")
	}
}

// Active returns the number of scans currently holding a slot.
func (p *ScanPool) Active() int {
	return len(p.slots)
}

// Capacity returns the configured concurrent scan limit.
func (p *ScanPool) Capacity() int {
	return cap(p.slots)
}
