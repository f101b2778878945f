package storage

import (
	"fmt"

	"gocv.io/x/gocv"

	"kioskcam/internal/model"
	"kioskcam/internal/service/camera"
)

// DefaultJPEGQuality is used when JPEGEncoder.Quality is zero.
const DefaultJPEGQuality = 90

// Encoder turns a captured frame into file bytes.
type Encoder interface {
	Encode(frame *model.Frame) ([]byte, error)
	Extension() string
}

// JPEGEncoder encodes stills with OpenCV.
type JPEGEncoder struct {
	Quality int
}

func (e JPEGEncoder) Extension() string { return ".jpg" }

// Encode converts frame to BGR and compresses it as JPEG.
func (e JPEGEncoder) Encode(frame *model.Frame) ([]byte, error) {
	mat, err := camera.MatFromFrame(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if frame.Format == model.PixelFormatBGRA8 {
		bgr := gocv.NewMat()
		defer bgr.Close()
		if err := gocv.CvtColor(mat, &bgr, gocv.ColorBGRAToBGR); err != nil {
			return nil, fmt.Errorf("convert to bgr: %w", err)
		}
		return e.encodeMat(bgr)
	}
	return e.encodeMat(mat)
}

func (e JPEGEncoder) encodeMat(mat gocv.Mat) ([]byte, error) {
	quality := e.Quality
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	defer buf.Close()

	// the native buffer is freed on Close
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
