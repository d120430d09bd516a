// Package detector is the HTTP client for the external object detection
// service (a YOLO model behind a small REST API). The service is a black box:
// it receives an image and returns bounding boxes with class labels.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"echoplex-server/config"
	"echoplex-server/internal/core/models"

	log "github.com/sirupsen/logrus"
)

var logFields = log.Fields{
	"component": "detector",
}

// Client communicates with the detection service.
type Client struct {
	config     config.DetectorConfig
	httpClient *http.Client
}

// apiDetectResponse is the wire format of the detection endpoint.
type apiDetectResponse struct {
	Detections []models.Detection `json:"detections"`
}

// NewClient creates a new detector client.
func NewClient(cfg config.DetectorConfig) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Enabled reports whether the detector capability is configured.
func (c *Client) Enabled() bool {
	return c.config.Enabled
}

// Detect sends an image to the detection service and returns its bounding
// boxes. Confidence values and the class taxonomy are detector-defined; the
// caller relies only on className "person".
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]models.Detection, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("detector is not enabled")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form field: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(imageData)); err != nil {
		return nil, fmt.Errorf("failed to copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/detect", c.config.URL), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected detector status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp apiDetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode detector response: %w", err)
	}

	log.WithFields(logFields).Debugf("Detector returned %d detections", len(apiResp.Detections))
	return apiResp.Detections, nil
}

// Ping checks whether the detection service is reachable.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	if !c.config.Enabled {
		return false, fmt.Errorf("detector is not enabled")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/health", c.config.URL), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to reach detector: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
