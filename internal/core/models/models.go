package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Case represents a registered missing-person case with a reference embedding.
type Case struct {
	ID               string         `gorm:"primaryKey" json:"caseId"`
	FullName         string         `gorm:"index;not null" json:"fullName"`
	Age              string         `json:"age"`
	Gender           string         `json:"gender"`
	TopColor         string         `json:"topColor"`
	BottomColor      string         `json:"bottomColor"`
	Description      string         `json:"description"`
	LastSeenLocation string         `json:"lastSeenLocation"`
	ReportedBy       string         `json:"reportedBy"`
	PhotoURL         string         `json:"photoUrl"`
	Active           bool           `gorm:"index" json:"active"`
	Embedding        datatypes.JSON `gorm:"type:json" json:"-"` // Reference face embedding, JSON float array; null when extraction failed
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// EmbeddingVector decodes the stored embedding. Returns nil when the case has none.
func (c *Case) EmbeddingVector() []float64 {
	if len(c.Embedding) == 0 {
		return nil
	}
	var vec []float64
	if err := json.Unmarshal(c.Embedding, &vec); err != nil {
		return nil
	}
	return vec
}

// SetEmbedding stores an embedding vector as the JSON column value.
func (c *Case) SetEmbedding(vec []float64) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	c.Embedding = datatypes.JSON(data)
	return nil
}

// HasEmbedding reports whether the case carries a usable reference embedding.
func (c *Case) HasEmbedding() bool {
	return len(c.EmbeddingVector()) > 0
}

// Detection is one bounding box returned by the external object detector.
type Detection struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
}

// ScoredMatch is one case candidate that cleared the confidence threshold.
type ScoredMatch struct {
	CaseID      string  `json:"caseId"`
	FullName    string  `json:"fullName"`
	Confidence  float64 `json:"confidence"` // Percentage, rounded to one decimal
	PhotoURL    string  `json:"photoUrl"`
	Age         string  `json:"age,omitempty"`
	Description string  `json:"description,omitempty"`
}

// FrameResult is the outcome of running the match pipeline on a single frame.
type FrameResult struct {
	Detections    []Detection   `json:"detections"`
	PersonCount   int           `json:"person_count"`
	FacesDetected int           `json:"faces_detected"`
	Matches       []ScoredMatch `json:"matches"`
}

// PositionLabel is a coarse horizontal location of the subject within a frame.
type PositionLabel string

const (
	PositionLeft   PositionLabel = "left"
	PositionCenter PositionLabel = "center"
	PositionRight  PositionLabel = "right"
)

// AggregatedMatch is the per-case evidence summary accumulated across one video scan.
type AggregatedMatch struct {
	CaseID         string                `json:"caseId"`
	FullName       string                `json:"fullName"`
	PhotoURL       string                `json:"photoUrl"`
	BestConfidence float64               `json:"bestConfidence"`
	Hits           int                   `json:"hits"`
	PositionCounts map[PositionLabel]int `json:"positionCounts"`
	Position       PositionLabel         `json:"position,omitempty"` // Dominant position, empty until one is known
}
