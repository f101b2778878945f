// Package autocapture decides, from the stream of face detection results,
// when a still photo should be taken without user interaction.
package autocapture

import (
	"context"
	"sync"
	"time"

	"kioskcam/internal/logger"
	"kioskcam/internal/model"
	"kioskcam/internal/service/dispatch"
)

const (
	// StillCheckDelay is how long faces must be present before the stillness
	// check runs against the baseline.
	StillCheckDelay = 500 * time.Millisecond
	// FaceAbsenceTimeout reverts WaitingForStillFaces to WaitingForFaces when no
	// face has been seen for longer than this.
	FaceAbsenceTimeout = 3 * time.Second
)

// Capturer takes one still frame out of band from the sampler.
type Capturer interface {
	CaptureOnce(ctx context.Context, timeout time.Duration) (*model.Frame, error)
}

// StateListener observes state changes, in transition order.
type StateListener func(state model.AutoCaptureState)

type baseline struct {
	faces model.FaceSet
	since time.Time
}

// machine is the engine's owned state. It is only mutated under Engine.mu.
type machine struct {
	current      model.AutoCaptureState
	baseline     *baseline // set iff current == WaitingForStillFaces
	lastFaceSeen time.Time
}

// Engine is the auto-capture state machine.
type Engine struct {
	mu        sync.Mutex
	state     machine
	listeners []StateListener

	capturer       Capturer
	captureTimeout time.Duration
	poster         dispatch.Poster
	now            func() time.Time
	logger         *logger.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine in WaitingForFaces. Notifications are delivered
// through poster.
func NewEngine(capturer Capturer, captureTimeout time.Duration, poster dispatch.Poster, logger *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		state:          machine{current: model.WaitingForFaces},
		capturer:       capturer,
		captureTimeout: captureTimeout,
		poster:         poster,
		now:            time.Now,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddListener registers l for subsequent state changes.
func (e *Engine) AddListener(l StateListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// State returns the current state.
func (e *Engine) State() model.AutoCaptureState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.current
}

// NotifyResult feeds one sampler result into the state machine.
func (e *Engine) NotifyResult(result model.DetectionResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	if len(result.Faces) == 0 {
		if e.state.current == model.WaitingForStillFaces && now.Sub(e.state.lastFaceSeen) > FaceAbsenceTimeout {
			e.transitionLocked(model.WaitingForFaces)
		}
		return
	}

	e.state.lastFaceSeen = now

	switch e.state.current {
	case model.WaitingForFaces:
		e.state.baseline = &baseline{faces: result.Faces, since: now}
		e.transitionLocked(model.WaitingForStillFaces)

	case model.WaitingForStillFaces:
		if now.Sub(e.state.baseline.since) < StillCheckDelay {
			return
		}
		if AreFacesStill(e.state.baseline.faces, result.Faces, result.FrameSize) {
			e.transitionLocked(model.ShowingCountdownForCapture)
			return
		}
		// moved too much, restart the dwell from here
		e.state.baseline = &baseline{faces: result.Faces, since: now}

	case model.ShowingCountdownForCapture, model.ShowingCapturedPhoto:
		// wait for RequestCapture / Reset
	}
}

// RequestCapture takes the still for a finished countdown and moves to
// ShowingCapturedPhoto from whatever state the engine is in. The frame is nil
// when the gate stayed busy.
func (e *Engine) RequestCapture(ctx context.Context) (*model.Frame, error) {
	frame, err := e.capturer.CaptureOnce(ctx, e.captureTimeout)

	e.mu.Lock()
	e.forceLocked(model.ShowingCapturedPhoto)
	e.mu.Unlock()

	return frame, err
}

// Reset starts a new cycle from WaitingForFaces.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forceLocked(model.WaitingForFaces)
}

func (e *Engine) transitionLocked(next model.AutoCaptureState) {
	if next == e.state.current {
		return
	}
	e.forceLocked(next)
}

// forceLocked sets the state and notifies even when it is unchanged.
func (e *Engine) forceLocked(next model.AutoCaptureState) {
	prev := e.state.current
	e.state.current = next
	if next != model.WaitingForStillFaces {
		e.state.baseline = nil
	}

	if e.logger != nil {
		e.logger.Info("Auto-capture state %s -> %s", prev, next)
	}

	// Posting under the lock keeps notifications in transition order.
	listeners := append([]StateListener(nil), e.listeners...)
	e.poster.Post(func() {
		for _, l := range listeners {
			l(next)
		}
	})
}
