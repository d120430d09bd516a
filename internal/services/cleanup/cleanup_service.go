package cleanup

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Prefixes of request-scoped files in the upload directory. Reference photos
// carry neither prefix and are never touched by the sweep.
var tempPrefixes = []string{"scan_", "video_"}

// Service removes stray temporary scan files from the upload directory.
// Requests delete their own temp files on every exit path; this sweep only
// covers files left behind by a crash or kill.
type Service struct {
	uploadDir     string
	retention     time.Duration
	checkInterval time.Duration
	stopChan      chan struct{}
}

// NewService creates a new cleanup service. Returns nil when cleanup is
// disabled (retentionHours <= 0) or the upload directory is unknown.
func NewService(uploadDir string, retentionHours int, checkInterval time.Duration) *Service {
	if retentionHours <= 0 {
		log.Info("Upload cleanup disabled (retention_hours <= 0)")
		return nil
	}
	if uploadDir == "" {
		log.Error("Cannot initialize cleanup service: upload directory is empty")
		return nil
	}
	log.Infof("Initializing cleanup service: RetentionHours=%d, UploadDir='%s', CheckInterval=%s",
		retentionHours, uploadDir, checkInterval)
	return &Service{
		uploadDir:     uploadDir,
		retention:     time.Duration(retentionHours) * time.Hour,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
	}
}

// Start launches the periodic sweep in a background goroutine.
func (s *Service) Start() {
	if s == nil {
		return
	}

	go func() {
		log.Info("Running initial upload cleanup check on startup...")
		s.RunCleanupCycle()
	}()

	ticker := time.NewTicker(s.checkInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunCleanupCycle()
			case <-s.stopChan:
				log.Info("Stopping upload cleanup routine")
				return
			}
		}
	}()
}

// Stop signals the background routine to stop.
func (s *Service) Stop() {
	if s == nil || s.stopChan == nil {
		return
	}
	select {
	case <-s.stopChan:
		// Already closed
	default:
		close(s.stopChan)
	}
}

// RunCleanupCycle performs one sweep, deleting stray temp files older than
// the retention period.
func (s *Service) RunCleanupCycle() {
	if s == nil {
		return
	}

	cutoff := time.Now().Add(-s.retention)

	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		log.Errorf("Cleanup: failed to read upload directory: %v", err)
		return
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !isTempFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Warnf("Cleanup: failed to stat %s: %v", entry.Name(), err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.uploadDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Warnf("Cleanup: failed to delete stray temp file %s: %v", path, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		log.Infof("Cleanup cycle finished, deleted %d stray temp file(s)", deleted)
	}
}

// isTempFile reports whether a filename belongs to a request-scoped scan file.
func isTempFile(name string) bool {
	for _, prefix := range tempPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
