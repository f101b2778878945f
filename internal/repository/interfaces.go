package repository

import (
	"kioskcam/internal/model"
)

// CaptureRepository defines the interface for capture data operations.
type CaptureRepository interface {
	// Create operations
	Insert(c *model.Capture) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Capture, error)
	GetByUID(uid string) (*model.Capture, error)
	GetByFilename(filename string) (*model.Capture, error)
	Exists(filename string) (bool, error)
	GetAll(filter *model.CaptureFilter) ([]model.Capture, error)
	GetTotalCount(filter *model.CaptureFilter) (int, error)
	GetTotalSize() (int64, error)

	// Delete operations
	Delete(id int64) error
	DeleteByFilename(filename string) error
	DeleteAll() error
}

// CaptureFaceRepository defines the interface for face boxes stored with captures.
type CaptureFaceRepository interface {
	// Create operations
	InsertBatch(faces []model.CaptureFace) error

	// Read operations
	GetByCaptureID(captureID int64) ([]model.CaptureFace, error)

	// Delete operations
	DeleteByCaptureID(captureID int64) error
}
