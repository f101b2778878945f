// Package capture takes single still frames on demand, sharing the frame
// gate with the periodic sampler.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"

	"kioskcam/internal/logger"
	"kioskcam/internal/model"
	"kioskcam/internal/service/camera"
	"kioskcam/internal/service/gate"
)

// Controller performs out-of-band still capture.
type Controller struct {
	source camera.Source
	gate   *gate.Gate
	logger *logger.Logger
}

// NewController creates a Controller over source, serialized by g.
func NewController(source camera.Source, g *gate.Gate, logger *logger.Logger) *Controller {
	return &Controller{source: source, gate: g, logger: logger}
}

// CaptureOnce waits up to timeout for the gate and pulls one BGRA8 frame.
// It returns (nil, nil) when the gate stayed busy; that is not an error.
func (c *Controller) CaptureOnce(ctx context.Context, timeout time.Duration) (*model.Frame, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "capture_once")
	defer span.Finish()

	token, ok := c.gate.AcquireWithTimeout(ctx, timeout)
	if !ok {
		span.SetTag("unavailable", true)
		c.logger.Warning("Capture skipped: frame gate busy for %v", timeout)
		return nil, nil
	}
	defer c.gate.Release(token)

	frame, err := c.source.GetFrame(ctx, model.PixelFormatBGRA8)
	if err != nil {
		span.SetTag("error", true)
		return nil, fmt.Errorf("capture frame: %w", err)
	}

	span.SetTag("width", frame.Width)
	span.SetTag("height", frame.Height)
	return frame, nil
}
