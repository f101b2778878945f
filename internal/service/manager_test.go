package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kioskcam/internal/config"
	"kioskcam/internal/dto"
	"kioskcam/internal/logger"
	"kioskcam/internal/model"
	"kioskcam/internal/service/autocapture"
	"kioskcam/internal/service/camera"
	"kioskcam/internal/service/dispatch"
	"kioskcam/internal/service/recognition"
	"kioskcam/internal/service/storage"
)

type fakeSource struct {
	streaming atomic.Bool
	realTime  atomic.Bool
	starts    atomic.Int32
	frameErr  error
}

func (s *fakeSource) IsStreaming() bool { return s.streaming.Load() }

func (s *fakeSource) GetFrame(ctx context.Context, format model.PixelFormat) (*model.Frame, error) {
	if !s.streaming.Load() {
		return nil, camera.ErrNotStreaming
	}
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	w, h := s.Resolution()
	return &model.Frame{Data: make([]byte, w*h*format.BytesPerPixel()), Width: w, Height: h, Format: format, CapturedAt: time.Now()}, nil
}

func (s *fakeSource) StartPreview(ctx context.Context, opts camera.PreviewOptions) error {
	s.starts.Add(1)
	s.realTime.Store(opts.RealTime)
	s.streaming.Store(true)
	return nil
}

func (s *fakeSource) StopPreview(ctx context.Context) error {
	s.streaming.Store(false)
	return nil
}

func (s *fakeSource) Resolution() (int, int) {
	if s.realTime.Load() {
		return 32, 18
	}
	return 64, 36
}

type fakeDetector struct {
	mu    sync.Mutex
	faces model.FaceSet
}

func (d *fakeDetector) SupportsFormat(format model.PixelFormat) bool {
	return format == model.PixelFormatGray8
}

func (d *fakeDetector) Detect(ctx context.Context, frame *model.Frame) (model.FaceSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.faces, nil
}

type fakeEncoder struct{}

func (fakeEncoder) Extension() string                          { return ".jpg" }
func (fakeEncoder) Encode(frame *model.Frame) ([]byte, error) { return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil }

type recordingListener struct {
	mu        sync.Mutex
	faces     []dto.FaceResult
	states    []model.AutoCaptureState
	captured  []dto.ImageCaptured
	restarted int
	failures  []dto.ErrorReport
}

func (l *recordingListener) FacesDetected(r dto.FaceResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.faces = append(l.faces, r)
}

func (l *recordingListener) AutoCaptureStateChanged(s model.AutoCaptureState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *recordingListener) ImageCaptured(c dto.ImageCaptured) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.captured = append(l.captured, c)
}

func (l *recordingListener) CameraRestarted() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.restarted++
}

func (l *recordingListener) CaptureFailed(r dto.ErrorReport) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, r)
}

func (l *recordingListener) stateCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}

func (l *recordingListener) lastState() model.AutoCaptureState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[len(l.states)-1]
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		SamplingInterval:      time.Hour, // ticks are driven by the tests
		CaptureTimeout:        250 * time.Millisecond,
		EnableAutoCaptureMode: true,
		ShowDialogOnAPIErrors: true,
		CaptureDirectory:      filepath.Join(t.TempDir(), "captures"),
		CaptureBufferLimit:    10,
		CaptureFlushInterval:  time.Hour,
	}
}

func newTestManager(t *testing.T, cfg *config.Config, opts ...autocapture.Option) (*Manager, *fakeSource, *fakeDetector, *storage.CaptureStore, *recordingListener) {
	t.Helper()
	src := &fakeSource{}
	det := &fakeDetector{}
	log := logger.NewDiscard()
	store := storage.NewCaptureStore(cfg, log, fakeEncoder{}, nil, nil)

	m := NewManager(cfg, log, src, det, store, dispatch.Immediate{}, opts...)
	rec := &recordingListener{}
	m.Subscribe(rec)
	t.Cleanup(func() { m.Close(context.Background()) })
	return m, src, det, store, rec
}

func TestManager_StartStreamReportsResolution(t *testing.T) {
	m, _, _, _, rec := newTestManager(t, testConfig(t))

	require.NoError(t, m.StartStream(context.Background(), true))

	status := m.Status()
	assert.True(t, status.Streaming)
	assert.True(t, status.RealTime)
	assert.Equal(t, 32, status.Width)
	assert.InDelta(t, 32.0/18.0, status.AspectRatio, 1e-9)
	assert.True(t, status.AutoCaptureEnabled)
	assert.Equal(t, "waiting_for_faces", status.AutoCaptureState)
	assert.Equal(t, []model.AutoCaptureState{model.WaitingForFaces}, rec.states)

	require.NoError(t, m.StopStream(context.Background()))
	assert.False(t, m.Status().Streaming)
}

func TestManager_FacesPublishedWithOverlay(t *testing.T) {
	cfg := testConfig(t)
	cfg.ShowDebugInfo = true
	m, _, det, _, rec := newTestManager(t, cfg)
	det.faces = model.FaceSet{{X: 4, Y: 4, Width: 18, Height: 18}}

	cache := recognition.NewCache()
	cache.Put(det.faces[0], recognition.Update{Person: &recognition.Person{Name: "Ada", Confidence: 0.5}})
	m.SetRecognitionProvider(cache)

	require.NoError(t, m.StartStream(context.Background(), false))
	require.True(t, m.sampler.Tick(context.Background()))

	require.Len(t, rec.faces, 1)
	assert.Equal(t, 1, rec.faces[0].Count)
	assert.Equal(t, 64, rec.faces[0].FrameWidth)
	require.Len(t, rec.faces[0].Faces, 1)
	assert.Equal(t, "Ada", rec.faces[0].Faces[0].Name)
	assert.Equal(t, uint(50), rec.faces[0].Faces[0].Confidence)
	assert.NotNil(t, rec.faces[0].Faces[0].CoveragePercent)
	assert.Equal(t, 1, m.Status().NumFacesOnLastFrame)
	assert.Equal(t, model.WaitingForStillFaces, rec.lastState())
}

func TestManager_AutoCaptureCycle(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		clockMu.Lock()
		defer clockMu.Unlock()
		now = now.Add(d)
	}

	m, _, det, store, rec := newTestManager(t, testConfig(t), autocapture.WithClock(clock))
	det.faces = model.FaceSet{{X: 10, Y: 10, Width: 20, Height: 20}}

	require.NoError(t, m.StartStream(context.Background(), false))
	require.True(t, m.sampler.Tick(context.Background()))
	advance(600 * time.Millisecond)
	require.True(t, m.sampler.Tick(context.Background()))
	require.Equal(t, model.ShowingCountdownForCapture, rec.lastState())

	captured, err := m.TakeAutoCapturePhoto(context.Background())
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "auto", captured.Trigger)
	assert.NotEmpty(t, captured.UID)
	assert.Equal(t, model.ShowingCapturedPhoto, rec.lastState())
	require.Len(t, rec.captured, 1)
	assert.Equal(t, captured.UID, rec.captured[0].UID)
	assert.Equal(t, 1, store.Pending())

	require.NoError(t, m.RestartAutoCaptureCycle())
	assert.Equal(t, model.WaitingForFaces, rec.lastState())
	assert.Equal(t, []model.AutoCaptureState{
		model.WaitingForFaces, // stream start
		model.WaitingForStillFaces,
		model.ShowingCountdownForCapture,
		model.ShowingCapturedPhoto,
		model.WaitingForFaces,
	}, rec.states)
}

func TestManager_ManualCaptureAndRestart(t *testing.T) {
	m, src, _, store, rec := newTestManager(t, testConfig(t))

	_, err := m.CaptureFrame(context.Background())
	assert.ErrorIs(t, err, ErrStreamNotStarted)

	require.NoError(t, m.StartStream(context.Background(), false))
	captured, err := m.CaptureFrame(context.Background())
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "manual", captured.Trigger)
	assert.Equal(t, 64, captured.Width)
	assert.Equal(t, 1, store.Pending())
	assert.False(t, src.IsStreaming(), "stream pauses on the captured photo")

	require.NoError(t, m.RestartCamera(context.Background()))
	assert.True(t, src.IsStreaming())
	assert.Equal(t, int32(2), src.starts.Load())
	assert.Equal(t, 1, rec.restarted)
	assert.Len(t, rec.captured, 1)
}

func TestManager_CaptureUnavailableWhileGateBusy(t *testing.T) {
	m, _, _, store, rec := newTestManager(t, testConfig(t))
	require.NoError(t, m.StartStream(context.Background(), false))

	token, ok := m.gate.TryAcquire()
	require.True(t, ok)
	defer m.gate.Release(token)

	captured, err := m.CaptureFrame(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, captured)
	assert.Zero(t, store.Pending())
	assert.Empty(t, rec.captured)
}

func TestManager_CaptureErrorSurfaced(t *testing.T) {
	m, src, _, _, rec := newTestManager(t, testConfig(t))
	require.NoError(t, m.StartStream(context.Background(), false))
	src.frameErr = errors.New("usb unplugged")

	_, err := m.CaptureFrame(context.Background())
	require.Error(t, err)
	require.Len(t, rec.failures, 1)
	assert.Equal(t, "captureFrame", rec.failures[0].Operation)
	assert.Contains(t, rec.failures[0].Message, "usb unplugged")
}

func TestManager_CaptureErrorHiddenWhenDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.ShowDialogOnAPIErrors = false
	m, src, _, _, rec := newTestManager(t, cfg)
	require.NoError(t, m.StartStream(context.Background(), false))
	src.frameErr = errors.New("usb unplugged")

	_, err := m.CaptureFrame(context.Background())
	require.Error(t, err)
	assert.Empty(t, rec.failures)
}

func TestManager_AutoCaptureDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnableAutoCaptureMode = false
	m, _, det, _, rec := newTestManager(t, cfg)
	det.faces = model.FaceSet{{X: 1, Y: 1, Width: 10, Height: 10}}

	require.NoError(t, m.StartStream(context.Background(), false))
	require.True(t, m.sampler.Tick(context.Background()))

	assert.Zero(t, rec.stateCount())
	assert.False(t, m.Status().AutoCaptureEnabled)
	_, err := m.TakeAutoCapturePhoto(context.Background())
	assert.ErrorIs(t, err, ErrAutoCaptureDisabled)
	assert.ErrorIs(t, m.RestartAutoCaptureCycle(), ErrAutoCaptureDisabled)
}

func TestManager_SmallFacesFiltered(t *testing.T) {
	cfg := testConfig(t)
	cfg.FilterOutSmallFaces = true
	cfg.MinFaceCoveragePercent = 25
	m, _, det, _, rec := newTestManager(t, cfg)
	det.faces = model.FaceSet{{X: 0, Y: 0, Width: 4, Height: 4}, {X: 20, Y: 5, Width: 20, Height: 20}}

	require.NoError(t, m.StartStream(context.Background(), false))
	require.True(t, m.sampler.Tick(context.Background()))

	require.Len(t, rec.faces, 1)
	assert.Equal(t, 1, rec.faces[0].Count)
}

// slowDetector records how many Detect calls run at once.
type slowDetector struct {
	delay   time.Duration
	blockFn func(call int32) <-chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
	calls   atomic.Int32
}

func (d *slowDetector) SupportsFormat(format model.PixelFormat) bool {
	return format == model.PixelFormatGray8
}

func (d *slowDetector) Detect(ctx context.Context, frame *model.Frame) (model.FaceSet, error) {
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}

	call := d.calls.Add(1)
	if d.blockFn != nil {
		if ch := d.blockFn(call); ch != nil {
			<-ch
		}
	}
	time.Sleep(d.delay)
	return nil, nil
}

func newSlowManager(t *testing.T, cfg *config.Config, det *slowDetector) (*Manager, *fakeSource) {
	t.Helper()
	src := &fakeSource{}
	m := NewManager(cfg, logger.NewDiscard(), src, det, nil, dispatch.Immediate{})
	t.Cleanup(func() { m.Close(context.Background()) })
	return m, src
}

func TestManager_RestartNeverOverlapsCycles(t *testing.T) {
	cfg := testConfig(t)
	cfg.SamplingInterval = 5 * time.Millisecond
	det := &slowDetector{delay: 40 * time.Millisecond}
	m, _ := newSlowManager(t, cfg, det)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.StartStream(context.Background(), false))
		require.Eventually(t, func() bool { return det.active.Load() == 1 }, time.Second, time.Millisecond)

		require.NoError(t, m.StopStream(context.Background()))
		assert.Zero(t, det.active.Load(), "stop waits for the cycle in flight")
		assert.False(t, m.gate.Held())
	}

	// a restart straight over a running cycle
	require.NoError(t, m.StartStream(context.Background(), false))
	require.Eventually(t, func() bool { return det.active.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, m.StartStream(context.Background(), false))
	require.Eventually(t, func() bool { return det.calls.Load() >= 6 }, time.Second, time.Millisecond)
	require.NoError(t, m.StopStream(context.Background()))

	assert.Equal(t, int32(1), det.peak.Load())
}

func TestManager_ManualCaptureThenRestartNeverOverlaps(t *testing.T) {
	cfg := testConfig(t)
	cfg.SamplingInterval = 5 * time.Millisecond
	det := &slowDetector{delay: 20 * time.Millisecond}
	m, src := newSlowManager(t, cfg, det)

	require.NoError(t, m.StartStream(context.Background(), false))
	require.Eventually(t, func() bool { return det.calls.Load() >= 1 }, time.Second, time.Millisecond)

	captured, err := m.CaptureFrame(context.Background())
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.False(t, src.IsStreaming())

	require.NoError(t, m.RestartCamera(context.Background()))
	before := det.calls.Load()
	require.Eventually(t, func() bool { return det.calls.Load() >= before+3 }, time.Second, time.Millisecond)
	require.NoError(t, m.StopStream(context.Background()))

	assert.Equal(t, int32(1), det.peak.Load())
}

func TestManager_StalledCycleEvictedOnRestart(t *testing.T) {
	cfg := testConfig(t)
	cfg.SamplingInterval = 5 * time.Millisecond
	cfg.CaptureTimeout = 20 * time.Millisecond
	stall := make(chan struct{})
	defer close(stall)
	det := &slowDetector{blockFn: func(call int32) <-chan struct{} {
		if call == 1 {
			return stall
		}
		return nil
	}}
	m, _ := newSlowManager(t, cfg, det)

	require.NoError(t, m.StartStream(context.Background(), false))
	require.Eventually(t, func() bool { return det.calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, m.StartStream(context.Background(), false))
	assert.Eventually(t, func() bool { return m.Status().TicksProcessed >= 2 }, time.Second, time.Millisecond,
		"the new session runs while the stalled cycle is still blocked")
}
