package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"kioskcam/internal/config"
	"kioskcam/internal/logger"
	"kioskcam/internal/repository/sqlite"
	"kioskcam/internal/route"
	"kioskcam/internal/service"
	"kioskcam/internal/service/ai"
	"kioskcam/internal/service/camera"
	"kioskcam/internal/service/dispatch"
	"kioskcam/internal/service/recognition"
	"kioskcam/internal/service/storage"
	"kioskcam/internal/service/websocket"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	detector   *ai.CascadeDetector
	queue      *dispatch.Queue
	store      *storage.CaptureStore
	faceCache  *recognition.Cache
	hubService *websocket.HubService
	manager    *service.Manager
	tracer     io.Closer
	handler    http.Handler
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	tracer, err := openTracer(cfg.JaegerAgent)
	if err != nil {
		// tracing is optional
		log.Warning("Could not initialize jaeger tracer: %v", err)
		tracer = nopCloser{}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	captureRepo := sqlite.NewCaptureRepository(db)
	faceRepo := sqlite.NewFaceRepository(db)

	source := camera.NewGocvSource(cfg, log)
	detector := ai.NewCascadeDetector(cfg, log)
	queue := dispatch.NewQueue(log)
	store := storage.NewCaptureStore(cfg, log, storage.JPEGEncoder{}, captureRepo, faceRepo)
	hub := websocket.NewHubService(log)

	faceCache := recognition.NewCache()

	mng := service.NewManager(cfg, log, source, detector, store, queue)
	mng.Subscribe(hub)
	mng.SetRecognitionProvider(faceCache)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		detector:   detector,
		queue:      queue,
		store:      store,
		faceCache:  faceCache,
		hubService: hub,
		manager:    mng,
		tracer:     tracer,
		handler:    route.SetupRoutes(mng, hub, faceCache, cfg, log, captureRepo),
	}, nil
}

// Run serves HTTP until ctx is done, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start background services
	storeDone := make(chan struct{})
	go func() {
		a.store.Run(ctx)
		close(storeDone)
	}()
	go a.hubService.Run(ctx)
	go a.faceCache.Run(ctx, a.config.RecognitionMaxAge, a.config.RecognitionMaxAge)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: a.handler,
	}

	fmt.Printf("🚀 Kiosk Camera Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Captures: %s\n", a.config.CaptureDirectory)
	fmt.Printf("🤖 Cascade: %s\n", a.config.CascadePath)
	fmt.Printf("📸 Auto-capture: %t\n", a.config.EnableAutoCaptureMode)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Error("HTTP shutdown: %v", shutdownErr)
	}

	if closeErr := a.manager.Close(shutdownCtx); closeErr != nil {
		a.logger.Error("Stopping stream: %v", closeErr)
	}
	cancel()
	<-storeDone
	a.queue.Close()
	a.detector.Close()
	a.db.Close()
	a.tracer.Close()

	a.logger.Info("Server stopped")
	return err
}
