// Package sampler drives periodic frame sampling and face detection.
package sampler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"

	"kioskcam/internal/logger"
	"kioskcam/internal/model"
	"kioskcam/internal/service/ai"
	"kioskcam/internal/service/camera"
	"kioskcam/internal/service/dispatch"
	"kioskcam/internal/service/gate"
)

// DefaultInterval is the sampling period (about 15 Hz).
const DefaultInterval = 66 * time.Millisecond

// DefaultStopGrace bounds how long Stop waits for an in-flight tick.
const DefaultStopGrace = 250 * time.Millisecond

// ResultListener receives every published detection result on the dispatch context.
type ResultListener func(result model.DetectionResult)

// ResultSink consumes results synchronously inside the tick. The auto-capture
// engine is the only implementation.
type ResultSink interface {
	NotifyResult(result model.DetectionResult)
}

// Options configure a Sampler.
type Options struct {
	Interval time.Duration
	// Format is requested from the source for detection.
	Format model.PixelFormat
	// SizeFilter, if set, keeps only faces for which it returns true.
	SizeFilter func(faceHeight, frameHeight int) bool
	// AutoCapture, if set, receives every result.
	AutoCapture ResultSink
	// StopGrace is how long Stop waits for a tick that is still running.
	StopGrace time.Duration
}

// Stats counts tick outcomes since the sampler was created.
type Stats struct {
	Processed uint64
	Skipped   uint64
	Failed    uint64
}

// Sampler runs the gated sampling cycle on a fixed cadence.
type Sampler struct {
	source   camera.Source
	detector ai.FaceDetector
	gate     *gate.Gate
	poster   dispatch.Poster
	logger   *logger.Logger
	opts     Options

	mu        sync.Mutex
	listeners []ResultListener
	cancel    context.CancelFunc
	done      chan struct{}
	ticks     *sync.WaitGroup
	last      model.DetectionResult

	lastFaceCount atomic.Int64
	processed     atomic.Uint64
	skipped       atomic.Uint64
	failed        atomic.Uint64
	failing       atomic.Bool
}

// New creates a stopped sampler.
func New(source camera.Source, detector ai.FaceDetector, g *gate.Gate, poster dispatch.Poster, logger *logger.Logger, opts Options) *Sampler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	if opts.Format == model.PixelFormatUnknown {
		opts.Format = model.PixelFormatGray8
	}
	return &Sampler{
		source:   source,
		detector: detector,
		gate:     g,
		poster:   poster,
		logger:   logger,
		opts:     opts,
	}
}

// AddListener registers l for subsequent results.
func (s *Sampler) AddListener(l ResultListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Start schedules ticks until Stop or ctx is done. A sampler that is already
// running is stopped first.
func (s *Sampler) Start(ctx context.Context) {
	s.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	// one WaitGroup per session, a stalled tick may outlive Stop
	ticks := &sync.WaitGroup{}

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.ticks = ticks
	s.mu.Unlock()

	go s.loop(ctx, done, ticks)
	s.logger.Info("Frame sampler started (interval %v)", s.opts.Interval)
}

// Stop cancels the schedule, waits for the timer loop to exit and then up to
// StopGrace for the tick in flight. It reports false when that tick is still
// running afterwards, which means the cycle is stalled and still holds the gate.
func (s *Sampler) Stop() bool {
	s.mu.Lock()
	cancel, done, ticks := s.cancel, s.done, s.ticks
	s.cancel, s.done, s.ticks = nil, nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return true
	}
	cancel()
	<-done

	if !waitTimeout(ticks, s.opts.StopGrace) {
		s.logger.Warning("Frame sampler stopped with a tick still running after %v", s.opts.StopGrace)
		return false
	}
	s.logger.Info("Frame sampler stopped")
	return true
}

// Running reports whether ticks are scheduled.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// NumFacesOnLastFrame returns the face count of the last published result.
func (s *Sampler) NumFacesOnLastFrame() int {
	return int(s.lastFaceCount.Load())
}

// LastResult returns the last published result.
func (s *Sampler) LastResult() model.DetectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Stats returns the tick counters.
func (s *Sampler) Stats() Stats {
	return Stats{
		Processed: s.processed.Load(),
		Skipped:   s.skipped.Load(),
		Failed:    s.failed.Load(),
	}
}

func (s *Sampler) loop(ctx context.Context, done chan struct{}, ticks *sync.WaitGroup) {
	defer close(done)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Each tick runs on its own goroutine so a slow cycle never delays
			// the timer; overlapping ticks are refused by the gate.
			ticks.Add(1)
			go func() {
				defer ticks.Done()
				s.Tick(ctx)
			}()
		}
	}
}

// Tick runs one sampling cycle. It reports whether a result was published.
// A tick while the gate is held is skipped, not queued.
func (s *Sampler) Tick(ctx context.Context) bool {
	if !s.source.IsStreaming() {
		return false
	}

	token, ok := s.gate.TryAcquire()
	if !ok {
		s.skipped.Add(1)
		return false
	}
	defer s.gate.Release(token)

	return s.process(ctx)
}

func (s *Sampler) process(ctx context.Context) (published bool) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "frame_tick")
	defer span.Finish()

	defer func() {
		if r := recover(); r != nil {
			span.SetTag("error", true)
			s.failed.Add(1)
			if s.failing.CompareAndSwap(false, true) {
				s.logger.Error("Frame tick panic: %v\n%s", r, debug.Stack())
			}
			published = false
		}
	}()

	frame, err := s.source.GetFrame(ctx, s.opts.Format)
	if ctx.Err() != nil {
		// stopped mid-cycle
		return false
	}
	if err != nil {
		s.fail("get frame: %v", err)
		return false
	}
	if frame == nil || !s.detector.SupportsFormat(frame.Format) {
		s.fail("detector cannot use frame format %v", formatOf(frame))
		return false
	}

	faces, err := s.detect(ctx, frame)
	if ctx.Err() != nil {
		// results from a stopped session must not reach the next one
		return false
	}
	if err != nil {
		s.fail("detect faces: %v", err)
		return false
	}

	if s.opts.SizeFilter != nil {
		faces = filterFaces(faces, frame.Height, s.opts.SizeFilter)
	}

	timestamp := frame.CapturedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	result := model.DetectionResult{
		Faces:     faces,
		FrameSize: frame.Size(),
		Timestamp: timestamp,
	}

	s.lastFaceCount.Store(int64(len(faces)))
	s.publish(result)
	if s.opts.AutoCapture != nil {
		s.opts.AutoCapture.NotifyResult(result)
	}

	s.processed.Add(1)
	if s.failing.CompareAndSwap(true, false) {
		s.logger.Info("Frame sampling recovered")
	}
	span.SetTag("faces", len(faces))
	return true
}

func (s *Sampler) detect(ctx context.Context, frame *model.Frame) (model.FaceSet, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "detect_faces")
	defer span.Finish()

	faces, err := s.detector.Detect(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	return faces, nil
}

func (s *Sampler) publish(result model.DetectionResult) {
	s.mu.Lock()
	s.last = result
	listeners := append([]ResultListener(nil), s.listeners...)
	s.mu.Unlock()

	if len(listeners) == 0 {
		return
	}
	s.poster.Post(func() {
		for _, l := range listeners {
			l(result)
		}
	})
}

// fail counts a failed tick and logs it once per streak of failures.
func (s *Sampler) fail(format string, args ...interface{}) {
	s.failed.Add(1)
	if s.failing.CompareAndSwap(false, true) {
		s.logger.Warning("Frame tick failed: "+format, args...)
	}
}

func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-finished:
		return true
	case <-timer.C:
		return false
	}
}

func filterFaces(faces model.FaceSet, frameHeight int, keep func(faceHeight, frameHeight int) bool) model.FaceSet {
	filtered := make(model.FaceSet, 0, len(faces))
	for _, f := range faces {
		if keep(f.Height, frameHeight) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

func formatOf(frame *model.Frame) model.PixelFormat {
	if frame == nil {
		return model.PixelFormatUnknown
	}
	return frame.Format
}
