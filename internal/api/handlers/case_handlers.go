package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"echoplex-server/internal/core/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CreateCase registers a new missing-person case with a reference photo.
func (h *APIHandler) CreateCase(c *gin.Context) {
	fullName := strings.TrimSpace(c.PostForm("fullName"))
	if fullName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fullName is required"})
		return
	}

	photoData, filename, err := readUpload(c, "referencePhoto")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	caseID := uuid.NewString()
	photoName := fmt.Sprintf("case_%s%s", caseID, ext)
	photoPath := filepath.Join(h.cfg.Server.UploadDir, photoName)
	if err := os.WriteFile(photoPath, photoData, 0640); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to store reference photo: %v", err)})
		return
	}

	newCase := &models.Case{
		ID:               caseID,
		FullName:         fullName,
		Age:              c.PostForm("age"),
		Gender:           c.PostForm("gender"),
		TopColor:         c.PostForm("topColor"),
		BottomColor:      c.PostForm("bottomColor"),
		Description:      c.PostForm("description"),
		LastSeenLocation: c.PostForm("lastSeenLocation"),
		ReportedBy:       c.PostForm("reportedBy"),
		PhotoURL:         h.cfg.Server.PublicURL + h.cfg.Server.UploadURL + "/" + photoName,
		Active:           true,
	}

	// Reference embeddings are computed best-effort. A case without an
	// embedding is still registered and simply never matched until the photo
	// is replaced.
	if h.facerecClient.Enabled() {
		embeddings, err := h.facerecClient.Represent(c.Request.Context(), photoData, false)
		if err != nil {
			log.WithFields(log.Fields{"component": "CaseHandler", "caseId": caseID}).
				Warnf("Failed to compute reference embedding: %v", err)
		} else if len(embeddings) > 0 {
			if err := newCase.SetEmbedding(embeddings[0]); err != nil {
				log.WithFields(log.Fields{"component": "CaseHandler", "caseId": caseID}).
					Errorf("Failed to encode reference embedding: %v", err)
			}
		}
	}

	if err := h.repo.CreateCase(newCase); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create case: %v", err)})
		return
	}

	log.WithFields(log.Fields{
		"component": "CaseHandler",
		"caseId":    newCase.ID,
		"embedding": newCase.HasEmbedding(),
	}).Info("Case registered")

	c.JSON(http.StatusCreated, gin.H{
		"caseId":   newCase.ID,
		"status":   "ok",
		"photoUrl": newCase.PhotoURL,
	})
}

// ListCases returns all cases, newest first.
func (h *APIHandler) ListCases(c *gin.Context) {
	cases, err := h.repo.ListCases()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to list cases: %v", err)})
		return
	}
	c.JSON(http.StatusOK, cases)
}

// GetCase returns one case by its ID.
func (h *APIHandler) GetCase(c *gin.Context) {
	found, err := h.repo.GetCase(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to load case: %v", err)})
		return
	}
	if found == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Case not found"})
		return
	}
	c.JSON(http.StatusOK, found)
}

// DeactivateCase marks a case inactive. Inactive cases keep their data but
// are no longer considered during scans.
func (h *APIHandler) DeactivateCase(c *gin.Context) {
	id := c.Param("id")
	if err := h.repo.DeactivateCase(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Case not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to deactivate case: %v", err)})
		return
	}

	log.WithFields(log.Fields{"component": "CaseHandler", "caseId": id}).Info("Case deactivated")
	c.JSON(http.StatusOK, gin.H{"caseId": id, "status": "deactivated"})
}
