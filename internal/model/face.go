package model

import (
	"image"
	"time"
)

// FaceAttributes is optional detail owned by the detection source.
type FaceAttributes struct {
	Age    float64 `json:"age"`
	Gender string  `json:"gender"`
}

// Face is an axis-aligned face box in frame pixel coordinates. Boxes carry no
// identity across frames.
type Face struct {
	X          int             `json:"x"`
	Y          int             `json:"y"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Attributes *FaceAttributes `json:"attributes,omitempty"`
}

// Rect returns the face box as an image.Rectangle.
func (f Face) Rect() image.Rectangle {
	return image.Rect(f.X, f.Y, f.X+f.Width, f.Y+f.Height)
}

// FaceFromRect converts a detector rectangle into a Face.
func FaceFromRect(r image.Rectangle) Face {
	return Face{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// FaceSet holds the faces found in one sampled frame. It is replaced as a
// whole every cycle.
type FaceSet []Face

// DetectionResult is one sampler cycle's output.
type DetectionResult struct {
	Faces     FaceSet
	FrameSize image.Point
	Timestamp time.Time
}
