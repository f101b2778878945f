package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"kioskcam/internal/config"
	"kioskcam/internal/dto"
	"kioskcam/internal/logger"
	"kioskcam/internal/model"
	"kioskcam/internal/repository"
)

// GetCapturesHandler returns a filtered, paginated list of captures from the database.
func GetCapturesHandler(logger *logger.Logger, captureRepo repository.CaptureRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &model.CaptureFilter{
			Trigger:   model.CaptureTrigger(q.Get("trigger")),
			StartDate: parseDate(q.Get("dateAfter")),
			EndDate:   parseDate(q.Get("dateBefore")),
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}

		captures, err := captureRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying captures from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalSize, err := captureRepo.GetTotalSize()
		if err != nil {
			logger.Error("Error getting capture directory size: %v", err)
			totalSize = 0
		}

		totalCount, err := captureRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting captures: %v", err)
			totalCount = len(captures)
		}

		infos := make([]dto.CaptureInfo, 0, len(captures))
		for _, c := range captures {
			infos = append(infos, dto.CaptureInfo{
				Name:      c.Filename,
				UID:       c.UID,
				Trigger:   string(c.Trigger),
				Date:      c.Timestamp,
				TimeOfDay: c.Timestamp,
				FaceCount: c.FaceCount,
				Width:     c.Width,
				Height:    c.Height,
			})
		}

		data := dto.CapturesData{
			Captures:    infos,
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}
		writeJSON(w, http.StatusOK, data, logger)
	}
}

// DeleteCaptureHandler removes a capture from disk and database.
func DeleteCaptureHandler(cfg *config.Config, logger *logger.Logger, captureRepo repository.CaptureRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		filename := filepath.Base(r.URL.Query().Get("filename"))
		if filename == "." || filename == "/" {
			http.Error(w, "Filename required", http.StatusBadRequest)
			return
		}

		filePath := filepath.Join(cfg.CaptureDirectory, filename)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", filePath, err)
		}

		if err := captureRepo.DeleteByFilename(filename); err != nil {
			logger.Error("Failed to delete from database: %v", err)
			http.Error(w, "Failed to delete capture", http.StatusInternalServerError)
			return
		}

		logger.Info("Deleted capture: %s", filename)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "filename": filename}, logger)
	}
}

// ClearCapturesHandler deletes all files from the capture directory and clears the database.
func ClearCapturesHandler(cfg *config.Config, logger *logger.Logger, captureRepo repository.CaptureRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		files, err := os.ReadDir(cfg.CaptureDirectory)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading capture directory: %v", err)
			http.Error(w, "Unable to read capture directory", http.StatusInternalServerError)
			return
		}

		for _, file := range files {
			if !file.IsDir() {
				filePath := filepath.Join(cfg.CaptureDirectory, file.Name())
				if err := os.Remove(filePath); err != nil {
					logger.Error("Error deleting file %s: %v", file.Name(), err)
				}
			}
		}

		if err := captureRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing database: %v", err)
		}

		logger.Info("All captures cleared from directory: %s", cfg.CaptureDirectory)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ViewCaptureHandler serves a single capture file specified via the "image" query parameter.
func ViewCaptureHandler(config *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if image == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		filePath := filepath.Join(config.CaptureDirectory, filepath.Base(image))
		http.ServeFile(w, r, filePath)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
