package sqlite

import (
	"fmt"

	"kioskcam/internal/model"
)

// FaceRepository implements repository.CaptureFaceRepository for SQLite.
type FaceRepository struct {
	db *DB
}

// NewFaceRepository creates a new SQLite capture face repository.
func NewFaceRepository(db *DB) *FaceRepository {
	return &FaceRepository{db: db}
}

// InsertBatch adds multiple faces in a single transaction.
func (r *FaceRepository) InsertBatch(faces []model.CaptureFace) error {
	if len(faces) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO capture_faces (capture_id, x, y, width, height, age, gender)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range faces {
		if _, err := stmt.Exec(f.CaptureID, f.X, f.Y, f.Width, f.Height, f.Age, f.Gender); err != nil {
			return fmt.Errorf("failed to insert capture face: %w", err)
		}
	}

	return tx.Commit()
}

// GetByCaptureID retrieves all faces stored for a capture.
func (r *FaceRepository) GetByCaptureID(captureID int64) ([]model.CaptureFace, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, capture_id, x, y, width, height, age, gender
		FROM capture_faces WHERE capture_id = ? ORDER BY id
	`, captureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query capture faces: %w", err)
	}
	defer rows.Close()

	var faces []model.CaptureFace
	for rows.Next() {
		var f model.CaptureFace
		if err := rows.Scan(&f.ID, &f.CaptureID, &f.X, &f.Y, &f.Width, &f.Height, &f.Age, &f.Gender); err != nil {
			return nil, fmt.Errorf("failed to scan capture face: %w", err)
		}
		faces = append(faces, f)
	}

	return faces, rows.Err()
}

// DeleteByCaptureID removes all faces for a specific capture.
func (r *FaceRepository) DeleteByCaptureID(captureID int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM capture_faces WHERE capture_id = ?`, captureID); err != nil {
		return fmt.Errorf("failed to delete capture faces: %w", err)
	}
	return nil
}
