// Package storage persists captured stills: frames are buffered in memory
// and periodically encoded, written to disk and recorded in the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"kioskcam/internal/config"
	"kioskcam/internal/logger"
	"kioskcam/internal/model"
	"kioskcam/internal/repository"
)

const (
	// DefaultBufferLimit is how many stills are buffered before an early flush.
	DefaultBufferLimit = 10
	// DefaultFlushInterval defines how often buffered stills are flushed to disk.
	DefaultFlushInterval = 2 * time.Second

	timestampLayout = "2006-01-02_15-04-05.000"
)

// ErrNoFrame is returned when Add is called without a frame.
var ErrNoFrame = errors.New("no frame to store")

type bufferedCapture struct {
	capture model.Capture
	frame   *model.Frame
	faces   model.FaceSet
}

// CaptureStore buffers captured frames and flushes them in the background.
// Callers hand the frame over and learn about the outcome through the
// OnSaved / OnError callbacks.
type CaptureStore struct {
	dir      string
	limit    int
	interval time.Duration
	encoder  Encoder
	logger   *logger.Logger

	captureRepo repository.CaptureRepository
	faceRepo    repository.CaptureFaceRepository

	mu       sync.Mutex
	pending  []bufferedCapture
	onSaved  []func(model.Capture)
	onError  []func(error)
	flushNow chan struct{}
	now      func() time.Time
}

// NewCaptureStore creates a CaptureStore writing into config.CaptureDirectory.
// Both repositories may be nil, in which case only files are written.
func NewCaptureStore(config *config.Config, logger *logger.Logger, encoder Encoder, captureRepo repository.CaptureRepository, faceRepo repository.CaptureFaceRepository) *CaptureStore {
	limit := config.CaptureBufferLimit
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	interval := config.CaptureFlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}

	return &CaptureStore{
		dir:         config.CaptureDirectory,
		limit:       limit,
		interval:    interval,
		encoder:     encoder,
		logger:      logger,
		captureRepo: captureRepo,
		faceRepo:    faceRepo,
		flushNow:    make(chan struct{}, 1),
		now:         time.Now,
	}
}

// OnSaved registers fn to be called after each still is persisted.
func (s *CaptureStore) OnSaved(fn func(model.Capture)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSaved = append(s.onSaved, fn)
}

// OnError registers fn to be called when persisting a still fails.
func (s *CaptureStore) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = append(s.onError, fn)
}

// Run flushes the buffer every interval, or early once it is full, until ctx
// is done. Whatever is still buffered is flushed before returning.
func (s *CaptureStore) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return
		case <-ticker.C:
			s.Flush()
		case <-s.flushNow:
			s.Flush()
		}
	}
}

// Add takes ownership of frame and queues it for persistence. The returned
// record has its UID, filename and timestamp assigned; ID and FileSize are set
// once it is flushed.
func (s *CaptureStore) Add(frame *model.Frame, trigger model.CaptureTrigger, faces model.FaceSet) (model.Capture, error) {
	if frame == nil {
		return model.Capture{}, ErrNoFrame
	}

	ts := frame.CapturedAt
	if ts.IsZero() {
		ts = s.now()
	}
	uid := uuid.NewString()
	filename := fmt.Sprintf("%s_%s_%s%s", ts.Format(timestampLayout), trigger, uid[:8], s.encoder.Extension())

	c := model.Capture{
		UID:       uid,
		Filename:  filename,
		Trigger:   trigger,
		Timestamp: ts,
		FilePath:  filepath.Join(s.dir, filename),
		Width:     frame.Width,
		Height:    frame.Height,
		FaceCount: len(faces),
	}

	s.mu.Lock()
	s.pending = append(s.pending, bufferedCapture{capture: c, frame: frame, faces: faces})
	full := len(s.pending) >= s.limit
	s.logger.Info("Capture buffer size: %d/%d", len(s.pending), s.limit)
	s.mu.Unlock()

	if full {
		select {
		case s.flushNow <- struct{}{}:
		default:
		}
	}
	return c, nil
}

// Pending returns how many stills wait for the next flush.
func (s *CaptureStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush encodes and writes buffered stills and returns how many were saved.
func (s *CaptureStore) Flush() int {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	onSaved := append([]func(model.Capture){}, s.onSaved...)
	onError := append([]func(error){}, s.onError...)
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.fail(onError, fmt.Errorf("create capture directory: %w", err))
		return 0
	}

	savedCount := 0
	for _, item := range batch {
		saved, err := s.persist(item)
		if err != nil {
			s.fail(onError, err)
			continue
		}
		for _, fn := range onSaved {
			fn(saved)
		}
		savedCount++
	}

	s.logger.Info("Flushed %d captures to disk", savedCount)
	return savedCount
}

func (s *CaptureStore) persist(item bufferedCapture) (model.Capture, error) {
	c := item.capture

	data, err := s.encoder.Encode(item.frame)
	if err != nil {
		return c, fmt.Errorf("encode %s: %w", c.Filename, err)
	}

	if err := os.WriteFile(c.FilePath, data, 0644); err != nil {
		return c, fmt.Errorf("write %s: %w", c.Filename, err)
	}
	c.FileSize = int64(len(data))

	if s.captureRepo == nil {
		return c, nil
	}

	id, err := s.captureRepo.Insert(&c)
	if err != nil {
		return c, fmt.Errorf("save %s to database: %w", c.Filename, err)
	}
	c.ID = id

	if s.faceRepo != nil && len(item.faces) > 0 {
		faces := make([]model.CaptureFace, 0, len(item.faces))
		for _, f := range item.faces {
			cf := model.CaptureFace{CaptureID: id, X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
			if f.Attributes != nil {
				cf.Age = f.Attributes.Age
				cf.Gender = f.Attributes.Gender
			}
			faces = append(faces, cf)
		}
		// the still itself is saved; a face failure is only logged
		if err := s.faceRepo.InsertBatch(faces); err != nil {
			s.logger.Error("Error saving faces of %s: %v", c.Filename, err)
		}
	}

	return c, nil
}

func (s *CaptureStore) fail(onError []func(error), err error) {
	s.logger.Error("Error persisting capture: %v", err)
	for _, fn := range onError {
		fn(err)
	}
}
