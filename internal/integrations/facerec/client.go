// Package facerec is the HTTP client for the external face embedding service
// (an ArcFace model behind a small REST API). In non-strict mode the service
// returns an empty embedding list instead of failing when no face geometry is
// found in the image.
package facerec

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

	log "github.com/sirupsen/logrus"
)

var logFields = log.Fields{
	"component": "facerec",
}

// Client communicates with the embedding service.
type Client struct {
	config     config.FaceRecConfig
	httpClient *http.Client
}

// apiRepresentResponse is the wire format of the represent endpoint.
type apiRepresentResponse struct {
	FacesCount int         `json:"faces_count"`
	Embeddings [][]float64 `json:"embeddings"`
}

// NewClient creates a new face embedding client.
func NewClient(cfg config.FaceRecConfig) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Enabled reports whether the face recognition capability is configured.
// When false, every matching feature degrades to "no matches" instead of
// failing.
func (c *Client) Enabled() bool {
	return c.config.Enabled
}

// Represent extracts face embeddings from an image. With nonStrict set, an
// image without detectable face geometry yields an empty slice, not an error.
func (c *Client) Represent(ctx context.Context, imageData []byte, nonStrict bool) ([][]float64, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("face recognition is not enabled")
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

	if err := writer.WriteField("model", c.config.Model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("enforce_detection", fmt.Sprintf("%t", !nonStrict)); err != nil {
		return nil, fmt.Errorf("failed to write enforce_detection field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/represent", c.config.URL), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected embedding service status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp apiRepresentResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	log.WithFields(logFields).Debugf("Embedding service returned %d face(s)", apiResp.FacesCount)
	return apiResp.Embeddings, nil
}

// Ping checks whether the embedding service is reachable.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	if !c.config.Enabled {
		return false, fmt.Errorf("face recognition is not enabled")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/health", c.config.URL), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to reach embedding service: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
