package model

import (
	"image"
	"time"
)

// PixelFormat identifies the memory layout of Frame.Data.
type PixelFormat int

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatGray8               // 1 byte per pixel, detector input
	PixelFormatBGR8                // 3 bytes per pixel, native camera layout
	PixelFormatBGRA8               // 4 bytes per pixel, still capture layout
	PixelFormatNV12                // planar YUV 4:2:0
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatGray8:
		return "gray8"
	case PixelFormatBGR8:
		return "bgr8"
	case PixelFormatBGRA8:
		return "bgra8"
	case PixelFormatNV12:
		return "nv12"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the packed pixel size, or 0 for planar/unknown formats.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixelFormatGray8:
		return 1
	case PixelFormatBGR8:
		return 3
	case PixelFormatBGRA8:
		return 4
	default:
		return 0
	}
}

// Frame is a pixel buffer pulled from the camera. The holder owns it and must
// not mutate Data after it has been read.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	Format     PixelFormat
	CapturedAt time.Time
}

// Size returns the frame dimensions as a point.
func (f *Frame) Size() image.Point {
	return image.Pt(f.Width, f.Height)
}
