package repository

import (
	"errors"
	"fmt"

	"echoplex-server/internal/core/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseRepository defines the registry operations used by the handlers and the
// scan pipelines.
type CaseRepository interface {
	CreateCase(c *models.Case) error
	GetCase(id string) (*models.Case, error)
	ListCases() ([]models.Case, error)
	DeactivateCase(id string) error

	// ActiveSnapshot returns the active cases as a point-in-time snapshot.
	// Scans read it once per request so the case set cannot shift mid-scan.
	ActiveSnapshot() ([]models.Case, error)
}

// SQLiteCaseRepository implements CaseRepository on GORM/SQLite.
type SQLiteCaseRepository struct {
	db *gorm.DB
}

// NewSQLiteCaseRepository creates a new repository instance.
func NewSQLiteCaseRepository(db *gorm.DB) *SQLiteCaseRepository {
	return &SQLiteCaseRepository{db: db}
}

// CreateCase stores a new case. An empty ID is filled with a fresh UUID and
// the case starts active.
func (r *SQLiteCaseRepository) CreateCase(c *models.Case) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Active = true
	if err := r.db.Create(c).Error; err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

// GetCase fetches one case by ID. Returns (nil, nil) when it does not exist.
func (r *SQLiteCaseRepository) GetCase(id string) (*models.Case, error) {
	var c models.Case
	result := r.db.First(&c, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &c, nil
}

// ListCases returns all cases, newest first.
func (r *SQLiteCaseRepository) ListCases() ([]models.Case, error) {
	var cases []models.Case
	if err := r.db.Order("created_at DESC").Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

// DeactivateCase soft-deletes a case by clearing its active flag. This is the
// only delete mechanism in the matching path; inactive cases are excluded
// from every snapshot but remain queryable.
func (r *SQLiteCaseRepository) DeactivateCase(id string) error {
	result := r.db.Model(&models.Case{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ActiveSnapshot returns all active cases in stable creation order.
func (r *SQLiteCaseRepository) ActiveSnapshot() ([]models.Case, error) {
	var cases []models.Case
	if err := r.db.Where("active = ?", true).Order("created_at ASC").Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to read case registry: %w", err)
	}
	return cases, nil
}
