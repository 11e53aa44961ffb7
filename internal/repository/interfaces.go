package repository

import (
	"intruderwatch/internal/model"
)

// CaptureRepository defines the interface for capture data operations.
type CaptureRepository interface {
	// Create operations
	Insert(c *model.Capture) (int64, error)

	// Read operations
	GetByUUID(uuid string) (*model.Capture, error)
	GetAll(filter *model.CaptureFilter) ([]model.Capture, error)
	GetTotalCount(filter *model.CaptureFilter) (int, error)
	GetStats() (*model.CaptureStats, error)

	// Delete operations
	Delete(id int64) error
	DeleteAll() error
}

// ArtifactRepository defines the interface for artifact data operations.
type ArtifactRepository interface {
	// Create operations
	InsertBatch(artifacts []model.Artifact) error

	// Read operations
	GetByCaptureID(captureID int64) ([]model.Artifact, error)
	GetTotalSize() (int64, error)
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []model.Detection) error

	// Read operations
	GetByCaptureID(captureID int64) ([]model.Detection, error)
	GetLabelsByCaptureID(captureID int64) ([]string, error)
	GetAllLabels() ([]string, error)
}
