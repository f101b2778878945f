package sqlite

import (
	"database/sql"
	"fmt"

	"kioskcam/internal/model"
)

const captureColumns = `id, uid, filename, trigger_type, timestamp, filepath, filesize, width, height, face_count`

// CaptureRepository implements repository.CaptureRepository for SQLite.
type CaptureRepository struct {
	db *DB
}

// NewCaptureRepository creates a new SQLite capture repository.
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCapture(row scanner) (*model.Capture, error) {
	var c model.Capture
	var trigger string
	if err := row.Scan(&c.ID, &c.UID, &c.Filename, &trigger, &c.Timestamp, &c.FilePath, &c.FileSize, &c.Width, &c.Height, &c.FaceCount); err != nil {
		return nil, err
	}
	c.Trigger = model.CaptureTrigger(trigger)
	return &c, nil
}

// Insert adds a new capture record to the database.
func (r *CaptureRepository) Insert(c *model.Capture) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO captures (uid, filename, trigger_type, timestamp, filepath, filesize, width, height, face_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.UID, c.Filename, string(c.Trigger), c.Timestamp, c.FilePath, c.FileSize, c.Width, c.Height, c.FaceCount)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture: %w", err)
	}

	return result.LastInsertId()
}

// GetByID retrieves a capture by its ID. It returns nil, nil when not found.
func (r *CaptureRepository) GetByID(id int64) (*model.Capture, error) {
	return r.getOne(`SELECT `+captureColumns+` FROM captures WHERE id = ?`, id)
}

// GetByUID retrieves a capture by its UID.
func (r *CaptureRepository) GetByUID(uid string) (*model.Capture, error) {
	return r.getOne(`SELECT `+captureColumns+` FROM captures WHERE uid = ?`, uid)
}

// GetByFilename retrieves a capture by its filename.
func (r *CaptureRepository) GetByFilename(filename string) (*model.Capture, error) {
	return r.getOne(`SELECT `+captureColumns+` FROM captures WHERE filename = ?`, filename)
}

func (r *CaptureRepository) getOne(query string, arg interface{}) (*model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	c, err := scanCapture(r.db.Conn().QueryRow(query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return c, nil
}

// Exists checks if a capture with the given filename exists.
func (r *CaptureRepository) Exists(filename string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM captures WHERE filename = ?`, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check capture existence: %w", err)
	}
	return count > 0, nil
}

func whereClause(filter *model.CaptureFilter) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	if filter.Trigger != "" {
		query += " AND trigger_type = ?"
		args = append(args, string(filter.Trigger))
	}

	if !filter.StartDate.IsZero() {
		query += " AND DATE(timestamp) >= DATE(?)"
		args = append(args, filter.StartDate.Format("2006-01-02"))
	}

	if !filter.EndDate.IsZero() {
		query += " AND DATE(timestamp) <= DATE(?)"
		args = append(args, filter.EndDate.Format("2006-01-02"))
	}

	return query, args
}

// GetAll retrieves captures, newest first, based on filter criteria.
func (r *CaptureRepository) GetAll(filter *model.CaptureFilter) ([]model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `SELECT ` + captureColumns + ` FROM captures` + where + ` ORDER BY timestamp DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var captures []model.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		captures = append(captures, *c)
	}

	return captures, rows.Err()
}

// GetTotalCount returns the total count of captures matching the filter.
func (r *CaptureRepository) GetTotalCount(filter *model.CaptureFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM captures`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count captures: %w", err)
	}

	return count, nil
}

// GetTotalSize returns the summed file size of all captures in bytes.
func (r *CaptureRepository) GetTotalSize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM captures`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum capture sizes: %w", err)
	}
	return size, nil
}

// Delete removes a capture by its ID.
func (r *CaptureRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	// First delete related faces
	if _, err := r.db.Conn().Exec(`DELETE FROM capture_faces WHERE capture_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete capture faces: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM captures WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}
	return nil
}

// DeleteByFilename removes a capture by its filename.
func (r *CaptureRepository) DeleteByFilename(filename string) error {
	r.db.Lock()
	defer r.db.Unlock()

	var captureID int64
	err := r.db.Conn().QueryRow(`SELECT id FROM captures WHERE filename = ?`, filename).Scan(&captureID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get capture id: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM capture_faces WHERE capture_id = ?`, captureID); err != nil {
		return fmt.Errorf("failed to delete capture faces: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM captures WHERE id = ?`, captureID); err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}
	return nil
}

// DeleteAll removes all captures and their faces.
func (r *CaptureRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM capture_faces`); err != nil {
		return fmt.Errorf("failed to delete capture faces: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM captures`); err != nil {
		return fmt.Errorf("failed to delete captures: %w", err)
	}

	return nil
}
