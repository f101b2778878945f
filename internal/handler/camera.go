package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"kioskcam/internal/dto"
	"kioskcam/internal/logger"
	"kioskcam/internal/service"
)

// Kiosk is the control surface the camera endpoints drive.
type Kiosk interface {
	StartStream(ctx context.Context, realTime bool) error
	StopStream(ctx context.Context) error
	CaptureFrame(ctx context.Context) (*dto.ImageCaptured, error)
	RestartCamera(ctx context.Context) error
	TakeAutoCapturePhoto(ctx context.Context) (*dto.ImageCaptured, error)
	RestartAutoCaptureCycle() error
	Status() dto.Status
}

// StartStreamHandler handles POST /api/stream/start?realtime=true|false.
func StartStreamHandler(kiosk Kiosk, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		realTime, _ := strconv.ParseBool(r.URL.Query().Get("realtime"))
		if err := kiosk.StartStream(r.Context(), realTime); err != nil {
			logger.Error("Failed to start stream: %v", err)
			http.Error(w, "Failed to start stream", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, kiosk.Status(), logger)
	}
}

// StopStreamHandler handles POST /api/stream/stop.
func StopStreamHandler(kiosk Kiosk, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := kiosk.StopStream(r.Context()); err != nil {
			logger.Error("Failed to stop stream: %v", err)
			http.Error(w, "Failed to stop stream", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, kiosk.Status(), logger)
	}
}

// CaptureHandler handles POST /api/capture.
func CaptureHandler(kiosk Kiosk, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		captured, err := kiosk.CaptureFrame(r.Context())
		writeCaptureResult(w, captured, err, logger)
	}
}

// RestartCameraHandler handles POST /api/camera/restart.
func RestartCameraHandler(kiosk Kiosk, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := kiosk.RestartCamera(r.Context()); err != nil {
			http.Error(w, "Failed to restart camera", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, kiosk.Status(), logger)
	}
}

// AutoCapturePhotoHandler handles POST /api/autocapture/capture, called when
// the viewer's countdown finishes.
func AutoCapturePhotoHandler(kiosk Kiosk, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		captured, err := kiosk.TakeAutoCapturePhoto(r.Context())
		writeCaptureResult(w, captured, err, logger)
	}
}

// AutoCaptureRestartHandler handles POST /api/autocapture/restart.
func AutoCaptureRestartHandler(kiosk Kiosk, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := kiosk.RestartAutoCaptureCycle(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusOK, kiosk.Status(), logger)
	}
}

// StatusHandler handles GET /api/status.
func StatusHandler(kiosk Kiosk, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, kiosk.Status(), logger)
	}
}

func writeCaptureResult(w http.ResponseWriter, captured *dto.ImageCaptured, err error, logger *logger.Logger) {
	switch {
	case errors.Is(err, service.ErrStreamNotStarted), errors.Is(err, service.ErrAutoCaptureDisabled):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		http.Error(w, "Capture failed", http.StatusInternalServerError)
	case captured == nil:
		// gate stayed busy; the client may retry
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "busy"}, logger)
	default:
		writeJSON(w, http.StatusOK, captured, logger)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
