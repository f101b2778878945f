package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"kioskcam/internal/config"
	"kioskcam/internal/logger"
	"kioskcam/internal/model"
	"kioskcam/internal/service/camera"

	"gocv.io/x/gocv"
)

// ErrDetectorNotReady is returned when the cascade model could not be loaded.
var ErrDetectorNotReady = errors.New("face detector not initialized")

// FaceDetector finds faces in a frame.
type FaceDetector interface {
	Detect(ctx context.Context, frame *model.Frame) (model.FaceSet, error)
	SupportsFormat(format model.PixelFormat) bool
}

// CascadeDetector detects frontal faces with an OpenCV Haar cascade.
type CascadeDetector struct {
	classifier  gocv.CascadeClassifier
	ready       bool
	cascadePath string
	mu          sync.Mutex // CascadeClassifier is not safe for concurrent use
	logger      *logger.Logger
}

// NewCascadeDetector creates a detector and attempts to load the cascade file.
// A missing model leaves the detector unready; Detect then returns ErrDetectorNotReady.
func NewCascadeDetector(config *config.Config, logger *logger.Logger) *CascadeDetector {
	detector := &CascadeDetector{
		cascadePath: config.CascadePath,
		logger:      logger,
	}

	if err := detector.initializeClassifier(); err != nil {
		detector.logger.Warning("Could not initialize face detector: %v", err)
		return detector
	}

	return detector
}

// initializeClassifier loads the cascade model from disk.
func (d *CascadeDetector) initializeClassifier() error {
	if _, err := os.Stat(d.cascadePath); os.IsNotExist(err) {
		return fmt.Errorf("cascade file not found: %s", d.cascadePath)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(d.cascadePath) {
		classifier.Close()
		return fmt.Errorf("failed to load cascade: %s", d.cascadePath)
	}

	d.classifier = classifier
	d.ready = true
	d.logger.Info("Face detector initialized from %s", d.cascadePath)
	return nil
}

// SupportsFormat reports whether Detect accepts frames of this format.
func (d *CascadeDetector) SupportsFormat(format model.PixelFormat) bool {
	return format == model.PixelFormatGray8
}

// Detect returns the faces found in a grayscale frame.
func (d *CascadeDetector) Detect(ctx context.Context, frame *model.Frame) (model.FaceSet, error) {
	if !d.ready {
		return nil, ErrDetectorNotReady
	}
	if !d.SupportsFormat(frame.Format) {
		return nil, fmt.Errorf("%w: %s", camera.ErrUnsupportedFormat, frame.Format)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := camera.MatFromFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap frame: %w", err)
	}
	defer mat.Close()

	equalized := gocv.NewMat()
	defer equalized.Close()
	if err := gocv.EqualizeHist(mat, &equalized); err != nil {
		return nil, fmt.Errorf("failed to equalize frame: %w", err)
	}

	d.mu.Lock()
	rects := d.classifier.DetectMultiScale(equalized)
	d.mu.Unlock()

	faces := make(model.FaceSet, 0, len(rects))
	for _, r := range rects {
		faces = append(faces, model.FaceFromRect(r))
	}
	return faces, nil
}

// Close releases the classifier.
func (d *CascadeDetector) Close() {
	if d.ready {
		d.classifier.Close()
		d.ready = false
	}
}

// IsFaceBigEnough reports whether a face covers at least minCoveragePercent of
// the frame height.
func IsFaceBigEnough(faceHeight, frameHeight int, minCoveragePercent float64) bool {
	if frameHeight <= 0 {
		return false
	}
	coverage := 100 * float64(faceHeight) / float64(frameHeight)
	return coverage >= minCoveragePercent
}

// SizeFilter returns a predicate bound to a coverage threshold.
func SizeFilter(minCoveragePercent float64) func(faceHeight, frameHeight int) bool {
	return func(faceHeight, frameHeight int) bool {
		return IsFaceBigEnough(faceHeight, frameHeight, minCoveragePercent)
	}
}
