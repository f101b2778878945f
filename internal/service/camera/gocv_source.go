package camera

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"kioskcam/internal/config"
	"kioskcam/internal/logger"
	"kioskcam/internal/model"

	"gocv.io/x/gocv"
)

// GocvSource reads frames from a local capture device through OpenCV.
type GocvSource struct {
	device    interface{}
	maxWidth  int
	maxHeight int
	logger    *logger.Logger

	mu        sync.Mutex
	capture   *gocv.VideoCapture
	streaming bool
	width     int
	height    int
}

// NewGocvSource creates a source for the configured device. A numeric
// CAMERA_DEVICE is treated as a device index, anything else as a URL/path.
func NewGocvSource(config *config.Config, logger *logger.Logger) *GocvSource {
	var device interface{} = config.CameraDevice
	if id, err := strconv.Atoi(config.CameraDevice); err == nil {
		device = id
	}

	return &GocvSource{
		device:    device,
		maxWidth:  config.CameraWidth,
		maxHeight: config.CameraHeight,
		logger:    logger,
	}
}

// IsStreaming reports whether the preview is running.
func (s *GocvSource) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Resolution returns the negotiated frame size.
func (s *GocvSource) Resolution() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// StartPreview opens the device (if needed) and negotiates the resolution.
func (s *GocvSource) StartPreview(ctx context.Context, opts PreviewOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		capture, err := gocv.OpenVideoCapture(s.device)
		if err != nil {
			return fmt.Errorf("failed to open camera %v: %w", s.device, err)
		}
		s.capture = capture
	}

	width, height := s.maxWidth, s.maxHeight
	if opts.RealTime && height > RealTimeMaxHeight {
		// keep the aspect ratio of the configured mode
		width = width * RealTimeMaxHeight / height
		height = RealTimeMaxHeight
	}
	s.capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	s.capture.Set(gocv.VideoCaptureFrameHeight, float64(height))

	// The driver may pick a different mode; report what we actually got.
	s.width = int(s.capture.Get(gocv.VideoCaptureFrameWidth))
	s.height = int(s.capture.Get(gocv.VideoCaptureFrameHeight))
	s.streaming = true

	s.logger.Info("Camera %v streaming at %dx%d (real-time: %t)", s.device, s.width, s.height, opts.RealTime)
	return nil
}

// StopPreview stops streaming and releases the device.
func (s *GocvSource) StopPreview(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streaming = false
	if s.capture == nil {
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	if err != nil {
		return fmt.Errorf("failed to close camera: %w", err)
	}
	s.logger.Info("Camera %v stopped", s.device)
	return nil
}

// GetFrame reads the next frame from the device and converts it.
func (s *GocvSource) GetFrame(ctx context.Context, format model.PixelFormat) (*model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.streaming || s.capture == nil {
		return nil, ErrNotStreaming
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("failed to read frame from camera %v", s.device)
	}

	converted, err := convert(mat, format)
	if err != nil {
		return nil, err
	}
	defer converted.Close()

	return &model.Frame{
		Data:       converted.ToBytes(),
		Width:      converted.Cols(),
		Height:     converted.Rows(),
		Format:     format,
		CapturedAt: time.Now(),
	}, nil
}

// convert returns a new Mat in the requested format. Camera frames arrive as BGR.
func convert(src gocv.Mat, format model.PixelFormat) (gocv.Mat, error) {
	dst := gocv.NewMat()

	var err error
	switch format {
	case model.PixelFormatBGR8:
		err = src.CopyTo(&dst)
	case model.PixelFormatGray8:
		err = gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	case model.PixelFormatBGRA8:
		err = gocv.CvtColor(src, &dst, gocv.ColorBGRToBGRA)
	default:
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if err != nil {
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("failed to convert frame to %s: %w", format, err)
	}
	return dst, nil
}

// MatFromFrame wraps frame data into a new Mat. The caller must Close it.
func MatFromFrame(frame *model.Frame) (gocv.Mat, error) {
	var matType gocv.MatType
	switch frame.Format {
	case model.PixelFormatGray8:
		matType = gocv.MatTypeCV8UC1
	case model.PixelFormatBGR8:
		matType = gocv.MatTypeCV8UC3
	case model.PixelFormatBGRA8:
		matType = gocv.MatTypeCV8UC4
	default:
		return gocv.Mat{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, frame.Format)
	}

	return gocv.NewMatFromBytes(frame.Height, frame.Width, matType, frame.Data)
}
