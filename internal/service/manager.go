// Package service exposes the kiosk control surface: streaming, manual and
// automatic capture, and the events viewers subscribe to.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kioskcam/internal/config"
	"kioskcam/internal/dto"
	"kioskcam/internal/logger"
	"kioskcam/internal/model"
	"kioskcam/internal/service/ai"
	"kioskcam/internal/service/autocapture"
	"kioskcam/internal/service/camera"
	"kioskcam/internal/service/capture"
	"kioskcam/internal/service/dispatch"
	"kioskcam/internal/service/gate"
	"kioskcam/internal/service/recognition"
	"kioskcam/internal/service/sampler"
	"kioskcam/internal/service/storage"
)

var (
	// ErrStreamNotStarted is returned by capture operations while the camera is stopped.
	ErrStreamNotStarted = errors.New("stream not started")
	// ErrAutoCaptureDisabled is returned by auto-capture operations when AUTO_CAPTURE is off.
	ErrAutoCaptureDisabled = errors.New("auto-capture mode is disabled")
)

// Listener observes kiosk events. Methods are called on the dispatch context,
// one at a time and in order.
type Listener interface {
	FacesDetected(result dto.FaceResult)
	AutoCaptureStateChanged(state model.AutoCaptureState)
	ImageCaptured(captured dto.ImageCaptured)
	CameraRestarted()
	CaptureFailed(report dto.ErrorReport)
}

type Manager struct {
	config *config.Config
	logger *logger.Logger

	source   camera.Source
	gate     *gate.Gate
	sampler  *sampler.Sampler
	engine   *autocapture.Engine
	capturer *capture.Controller
	store    *storage.CaptureStore
	poster   dispatch.Poster

	mu        sync.Mutex
	listeners []Listener
	provider  recognition.Provider
	realTime  bool
}

// NewManager wires the frame pipeline. The engine is only created when
// auto-capture mode is enabled.
func NewManager(config *config.Config, logger *logger.Logger, source camera.Source, detector ai.FaceDetector,
	store *storage.CaptureStore, poster dispatch.Poster, engineOpts ...autocapture.Option) *Manager {
	m := &Manager{
		config: config,
		logger: logger,
		source: source,
		gate:   gate.New(),
		store:  store,
		poster: poster,
	}

	m.capturer = capture.NewController(source, m.gate, logger)

	opts := sampler.Options{Interval: config.SamplingInterval, StopGrace: config.CaptureTimeout}
	if config.FilterOutSmallFaces {
		opts.SizeFilter = ai.SizeFilter(config.MinFaceCoveragePercent)
	}
	if config.EnableAutoCaptureMode {
		m.engine = autocapture.NewEngine(m.capturer, config.CaptureTimeout, poster, logger, engineOpts...)
		m.engine.AddListener(m.onStateChanged)
		opts.AutoCapture = m.engine
	}

	m.sampler = sampler.New(source, detector, m.gate, poster, logger, opts)
	m.sampler.AddListener(m.onResult)

	if store != nil {
		store.OnSaved(func(c model.Capture) {
			m.logger.Info("Capture %s saved (%d bytes)", c.Filename, c.FileSize)
		})
		store.OnError(func(err error) {
			m.reportError("saveCapture", err)
		})
	}

	return m
}

// Subscribe registers l for all subsequent events.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// SetRecognitionProvider installs (or, with nil, removes) the enrichment used
// for face overlays.
func (m *Manager) SetRecognitionProvider(provider recognition.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider = provider
}

// StartStream starts the camera preview and the sampler. A running stream is
// restarted; a cycle stalled from the previous session is evicted from the gate.
func (m *Manager) StartStream(ctx context.Context, realTime bool) error {
	m.stopSampler()

	if err := m.source.StartPreview(ctx, camera.PreviewOptions{RealTime: realTime}); err != nil {
		return fmt.Errorf("start preview: %w", err)
	}

	m.mu.Lock()
	m.realTime = realTime
	m.mu.Unlock()

	if m.engine != nil {
		m.engine.Reset()
	}

	// the sampler outlives the request that started it
	m.sampler.Start(context.Background())

	w, h := m.source.Resolution()
	m.logger.Info("Stream started at %dx%d (real-time: %t)", w, h, realTime)
	return nil
}

// StopStream stops the sampler and the preview.
func (m *Manager) StopStream(ctx context.Context) error {
	m.stopSampler()

	if err := m.source.StopPreview(ctx); err != nil {
		return fmt.Errorf("stop preview: %w", err)
	}
	m.logger.Info("Stream stopped")
	return nil
}

// CaptureFrame takes a manual still, queues it for saving and pauses the
// stream so the photo stays on screen until RestartCamera. It returns nil
// without error when the frame gate stayed busy.
func (m *Manager) CaptureFrame(ctx context.Context) (*dto.ImageCaptured, error) {
	if !m.source.IsStreaming() {
		return nil, ErrStreamNotStarted
	}

	frame, err := m.capturer.CaptureOnce(ctx, m.config.CaptureTimeout)
	if err != nil {
		m.reportError("captureFrame", err)
		return nil, err
	}
	if frame == nil {
		return nil, nil
	}

	captured, err := m.persist(frame, model.TriggerManual)
	if err != nil {
		m.reportError("captureFrame", err)
		return nil, err
	}

	if err := m.StopStream(ctx); err != nil {
		m.logger.Warning("Could not pause stream after capture: %v", err)
	}
	return captured, nil
}

// RestartCamera resumes the stream after a manual capture.
func (m *Manager) RestartCamera(ctx context.Context) error {
	m.mu.Lock()
	realTime := m.realTime
	m.mu.Unlock()

	if err := m.StartStream(ctx, realTime); err != nil {
		m.reportError("restartCamera", err)
		return err
	}

	m.notify(func(l Listener) { l.CameraRestarted() })
	return nil
}

// TakeAutoCapturePhoto captures the still at the end of the countdown and
// moves auto-capture to ShowingCapturedPhoto.
func (m *Manager) TakeAutoCapturePhoto(ctx context.Context) (*dto.ImageCaptured, error) {
	if m.engine == nil {
		return nil, ErrAutoCaptureDisabled
	}

	frame, err := m.engine.RequestCapture(ctx)
	if err != nil {
		m.reportError("takeAutoCapturePhoto", err)
		return nil, err
	}
	if frame == nil {
		return nil, nil
	}

	captured, err := m.persist(frame, model.TriggerAuto)
	if err != nil {
		m.reportError("takeAutoCapturePhoto", err)
		return nil, err
	}
	return captured, nil
}

// RestartAutoCaptureCycle returns auto-capture to WaitingForFaces.
func (m *Manager) RestartAutoCaptureCycle() error {
	if m.engine == nil {
		return ErrAutoCaptureDisabled
	}
	m.engine.Reset()
	return nil
}

// Status reports the pipeline state.
func (m *Manager) Status() dto.Status {
	m.mu.Lock()
	realTime := m.realTime
	m.mu.Unlock()

	w, h := m.source.Resolution()
	stats := m.sampler.Stats()

	status := dto.Status{
		Streaming:           m.source.IsStreaming(),
		RealTime:            realTime,
		Width:               w,
		Height:              h,
		NumFacesOnLastFrame: m.sampler.NumFacesOnLastFrame(),
		AutoCaptureEnabled:  m.engine != nil,
		TicksProcessed:      stats.Processed,
		TicksSkipped:        stats.Skipped,
		TicksFailed:         stats.Failed,
	}
	if h > 0 {
		status.AspectRatio = float64(w) / float64(h)
	}
	if m.engine != nil {
		status.AutoCaptureState = m.engine.State().String()
	}
	return status
}

// Close stops the stream.
func (m *Manager) Close(ctx context.Context) error {
	return m.StopStream(ctx)
}

// stopSampler stops ticking. Only a cycle that outlives the grace period is
// evicted from the gate; a capture holding it is left alone.
func (m *Manager) stopSampler() {
	if m.sampler.Stop() {
		return
	}
	if m.gate.Reset() {
		m.logger.Warning("Evicted a stalled frame cycle from the gate")
	}
}

func (m *Manager) persist(frame *model.Frame, trigger model.CaptureTrigger) (*dto.ImageCaptured, error) {
	captured := &dto.ImageCaptured{
		Trigger: string(trigger),
		Width:   frame.Width,
		Height:  frame.Height,
	}

	if m.store != nil {
		faces := m.sampler.LastResult().Faces
		c, err := m.store.Add(frame, trigger, faces)
		if err != nil {
			return nil, fmt.Errorf("queue capture: %w", err)
		}
		captured.UID = c.UID
	}

	m.logger.Info("Image captured (%s, %dx%d)", trigger, frame.Width, frame.Height)
	event := *captured
	m.notify(func(l Listener) { l.ImageCaptured(event) })
	return captured, nil
}

// onResult runs on the dispatch context.
func (m *Manager) onResult(result model.DetectionResult) {
	m.mu.Lock()
	provider := m.provider
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	payload := dto.FaceResult{
		Count:       len(result.Faces),
		FrameWidth:  result.FrameSize.X,
		FrameHeight: result.FrameSize.Y,
		Faces:       recognition.Annotate(result.Faces, result.FrameSize, provider, m.config.ShowDebugInfo),
		Timestamp:   result.Timestamp,
	}
	for _, l := range listeners {
		l.FacesDetected(payload)
	}
}

// onStateChanged runs on the dispatch context.
func (m *Manager) onStateChanged(state model.AutoCaptureState) {
	m.mu.Lock()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l.AutoCaptureStateChanged(state)
	}
}

func (m *Manager) notify(fn func(l Listener)) {
	m.mu.Lock()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.poster.Post(func() {
		for _, l := range listeners {
			fn(l)
		}
	})
}

// reportError logs a capture-path failure and, if enabled, surfaces it to viewers.
func (m *Manager) reportError(operation string, err error) {
	m.logger.Error("%s failed: %v", operation, err)
	if !m.config.ShowDialogOnAPIErrors {
		return
	}
	report := dto.ErrorReport{Operation: operation, Message: err.Error()}
	m.notify(func(l Listener) { l.CaptureFailed(report) })
}
