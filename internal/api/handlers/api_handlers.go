package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"echoplex-server/config"
	"echoplex-server/internal/core/processor"
	"echoplex-server/internal/db/repository"
	"echoplex-server/internal/integrations/detector"
	"echoplex-server/internal/integrations/facerec"
	"echoplex-server/internal/integrations/mqtt"
	"echoplex-server/internal/server/sse"
	"echoplex-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// APIHandler handles all API requests of the matching server.
type APIHandler struct {
	cfg            *config.Config
	repo           repository.CaseRepository
	detectorClient *detector.Client
	facerecClient  *facerec.Client
	frameProcessor *processor.FrameProcessor
	videoScanner   *processor.VideoScanner
	scanPool       *processor.ScanPool
	sseHub         *sse.Hub
	alerter        *mqtt.Publisher
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(cfg *config.Config, repo repository.CaseRepository, detectorClient *detector.Client,
	facerecClient *facerec.Client, frameProcessor *processor.FrameProcessor, videoScanner *processor.VideoScanner,
	scanPool *processor.ScanPool, sseHub *sse.Hub, alerter *mqtt.Publisher) *APIHandler {
	return &APIHandler{
		cfg:            cfg,
		repo:           repo,
		detectorClient: detectorClient,
		facerecClient:  facerecClient,
		frameProcessor: frameProcessor,
		videoScanner:   videoScanner,
		scanPool:       scanPool,
		sseHub:         sseHub,
		alerter:        alerter,
	}
}

// RegisterRoutes registers all API routes.
func (h *APIHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/detect", h.Detect)
		api.POST("/match-face", h.MatchFace)
		api.POST("/scan", h.ScanImage)
		api.POST("/scan-video", h.ScanVideo)
		api.GET("/status", h.GetStatus)
		api.GET("/events", h.Events)
	}

	router.POST("/cases", h.CreateCase)
	router.GET("/cases", h.ListCases)
	router.GET("/cases/:id", h.GetCase)
	router.DELETE("/cases/:id", h.DeactivateCase)
}

// readUpload reads the uploaded file of a multipart request into memory.
func readUpload(c *gin.Context, field string) ([]byte, string, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("no file uploaded or invalid form data")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("uploaded file is empty")
	}
	return data, header.Filename, nil
}

// Detect runs the raw object detector on an uploaded image and returns its
// detections unchanged.
func (h *APIHandler) Detect(c *gin.Context) {
	imageData, _, err := readUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detections, err := h.detectorClient.Detect(c.Request.Context(), imageData)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Detection failed: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"detections": detections})
}

// MatchFace compares the faces of an uploaded image against all active cases
// and returns the top matches.
func (h *APIHandler) MatchFace(c *gin.Context) {
	if !h.frameProcessor.MatchingEnabled() {
		c.JSON(http.StatusOK, gin.H{
			"matches":        []gin.H{},
			"faces_detected": 0,
			"message":        "Face recognition not available",
		})
		return
	}

	imageData, _, err := readUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := h.repo.ActiveSnapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("Case registry unavailable: %v", err)})
		return
	}

	if err := h.scanPool.Acquire(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan cancelled while waiting for a slot"})
		return
	}
	defer h.scanPool.Release()

	matches, facesDetected, err := h.frameProcessor.MatchFace(c.Request.Context(), imageData, snapshot)
	if err != nil {
		// Extraction failure degrades to an empty result, like a frame that
		// shows no usable face.
		log.Warnf("Face matching failed: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"matches":        []gin.H{},
			"faces_detected": 0,
			"message":        "Face matching failed",
		})
		return
	}

	message := "Scan complete"
	if facesDetected == 0 {
		message = "No faces detected in frame"
	}

	h.alerter.PublishImageMatches(matches)

	c.JSON(http.StatusOK, gin.H{
		"matches":        matches,
		"faces_detected": facesDetected,
		"message":        message,
	})
}

// ScanImage runs the combined pipeline (person detection plus face matching)
// on a single uploaded image.
func (h *APIHandler) ScanImage(c *gin.Context) {
	imageData, _, err := readUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := h.repo.ActiveSnapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("Case registry unavailable: %v", err)})
		return
	}

	if err := h.scanPool.Acquire(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan cancelled while waiting for a slot"})
		return
	}
	defer h.scanPool.Release()

	result, err := h.frameProcessor.ProcessFrame(c.Request.Context(), imageData, snapshot)
	if err != nil {
		// There is no sensible partial result for a single image.
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Scan failed: %v", err)})
		return
	}

	h.sseHub.BroadcastImageScan(result)
	h.alerter.PublishImageMatches(result.Matches)

	c.JSON(http.StatusOK, gin.H{
		"detections":     result.Detections,
		"person_count":   result.PersonCount,
		"faces_detected": result.FacesDetected,
		"matches":        result.Matches,
	})
}

// ScanVideo analyzes an uploaded video with sampled frames and returns the
// matches aggregated across the whole video.
func (h *APIHandler) ScanVideo(c *gin.Context) {
	if !h.frameProcessor.MatchingEnabled() {
		c.JSON(http.StatusOK, gin.H{
			"matches":         []gin.H{},
			"frames_analyzed": 0,
			"message":         "Face recognition not available",
		})
		return
	}

	videoData, filename, err := readUpload(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The video decoder works on files, so the upload is spilled to a temp
	// file that is removed on every exit path.
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".mp4"
	}
	tempPath := filepath.Join(h.cfg.Server.UploadDir, fmt.Sprintf("video_%s%s", uuid.NewString(), ext))
	if err := os.WriteFile(tempPath, videoData, 0640); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to store video upload: %v", err)})
		return
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			log.Warnf("Failed to delete temp video file %s: %v", tempPath, err)
		}
	}()

	// One registry snapshot for the entire scan keeps hits and bestConfidence
	// bookkeeping consistent across frames.
	snapshot, err := h.repo.ActiveSnapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("Case registry unavailable: %v", err)})
		return
	}

	if err := h.scanPool.Acquire(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan cancelled while waiting for a slot"})
		return
	}
	defer h.scanPool.Release()

	result, err := h.videoScanner.ScanFile(c.Request.Context(), tempPath, snapshot)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Could not analyze video file: %v", err)})
		return
	}

	h.sseHub.BroadcastVideoScan(result.FramesAnalyzed, result.Matches)
	h.alerter.PublishVideoMatches(result.Matches)

	c.JSON(http.StatusOK, gin.H{
		"frames_analyzed": result.FramesAnalyzed,
		"matches":         result.Matches,
	})
}

// GetStatus returns service health, capability and system statistics.
func (h *APIHandler) GetStatus(c *gin.Context) {
	status := gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
		"detector": gin.H{
			"enabled": h.cfg.Detector.Enabled,
		},
		"facerec": gin.H{
			"enabled": h.cfg.FaceRec.Enabled,
		},
		"mqtt": gin.H{
			"enabled":   h.cfg.MQTT.Enabled,
			"connected": h.alerter.IsConnected(),
		},
		"system": utils.CollectSystemStats(h.scanPool.Active(), h.scanPool.Capacity()),
	}

	ctx := c.Request.Context()
	if h.cfg.Detector.Enabled {
		reachable, err := h.detectorClient.Ping(ctx)
		status["detector"].(gin.H)["reachable"] = reachable
		if err != nil {
			status["detector"].(gin.H)["error"] = err.Error()
		}
	}
	if h.cfg.FaceRec.Enabled {
		reachable, err := h.facerecClient.Ping(ctx)
		status["facerec"].(gin.H)["reachable"] = reachable
		if err != nil {
			status["facerec"].(gin.H)["error"] = err.Error()
		}
	}

	c.JSON(http.StatusOK, status)
}

// Events streams scan results to the client as server-sent events.
func (h *APIHandler) Events(c *gin.Context) {
	client := make(sse.Client, 16)
	h.sseHub.Register(client)
	defer h.sseHub.Unregister(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("scan", string(message))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
