package route

import (
	"net/http"
	"os"
	"path/filepath"

	"kioskcam/internal/config"
	"kioskcam/internal/handler"
	"kioskcam/internal/logger"
	"kioskcam/internal/middleware"
	"kioskcam/internal/repository"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean(path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(kiosk handler.Kiosk, viewers handler.ViewerRegistry, recognitions handler.RecognitionSink,
	cfg *config.Config, logger *logger.Logger, captureRepo repository.CaptureRepository) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Kiosk control
	mux.HandleFunc("/api/stream/start", handler.StartStreamHandler(kiosk, logger))
	mux.HandleFunc("/api/stream/stop", handler.StopStreamHandler(kiosk, logger))
	mux.HandleFunc("/api/capture", handler.CaptureHandler(kiosk, logger))
	mux.HandleFunc("/api/camera/restart", handler.RestartCameraHandler(kiosk, logger))
	mux.HandleFunc("/api/autocapture/capture", handler.AutoCapturePhotoHandler(kiosk, logger))
	mux.HandleFunc("/api/autocapture/restart", handler.AutoCaptureRestartHandler(kiosk, logger))
	mux.HandleFunc("/api/status", handler.StatusHandler(kiosk, logger))
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(viewers, logger))
	mux.HandleFunc("/api/recognition", handler.RecognitionHandler(recognitions, logger))

	// Gallery
	mux.HandleFunc("/api/captures", handler.GetCapturesHandler(logger, captureRepo))
	mux.HandleFunc("/api/captures/view", handler.ViewCaptureHandler(cfg))
	mux.HandleFunc("/api/captures/delete", handler.DeleteCaptureHandler(cfg, logger, captureRepo))
	mux.HandleFunc("/api/captures/clear", handler.ClearCapturesHandler(cfg, logger, captureRepo))

	// Log endpoints
	for name, file := range handler.LogFiles {
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(cfg, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /gallery -> /static/gallery.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	// Apply middleware
	return middleware.AuthMiddleware(mux)
}
