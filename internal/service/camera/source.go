package camera

import (
	"context"
	"errors"

	"kioskcam/internal/model"
)

var (
	// ErrNotStreaming is returned by GetFrame when the preview is not running.
	ErrNotStreaming = errors.New("camera is not streaming")
	// ErrUnsupportedFormat is returned when the source cannot convert to the requested pixel format.
	ErrUnsupportedFormat = errors.New("pixel format not supported by camera")
)

// RealTimeMaxHeight caps the preview height when the stream feeds real-time processing.
const RealTimeMaxHeight = 720

// PreviewOptions configure StartPreview.
type PreviewOptions struct {
	// RealTime selects the highest mode with height <= RealTimeMaxHeight
	// instead of the highest available mode.
	RealTime bool
}

// Source is the live camera/media stream consumed by the sampler and the
// capture controller.
type Source interface {
	IsStreaming() bool
	// GetFrame pulls one frame converted to format. The caller owns the result.
	GetFrame(ctx context.Context, format model.PixelFormat) (*model.Frame, error)
	StartPreview(ctx context.Context, opts PreviewOptions) error
	StopPreview(ctx context.Context) error
	// Resolution reports the negotiated preview size (0x0 before the first start).
	Resolution() (width, height int)
}
