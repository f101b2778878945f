package dto

import "time"

// FaceOverlay is everything a viewer needs to draw one face box.
type FaceOverlay struct {
	X               int      `json:"x"`
	Y               int      `json:"y"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	Emotion         string   `json:"emotion,omitempty"`
	Age             float64  `json:"age,omitempty"`
	Gender          string   `json:"gender,omitempty"`
	Name            string   `json:"name,omitempty"`
	Confidence      uint     `json:"confidence,omitempty"` // percent
	UniqueID        string   `json:"uniqueId,omitempty"`
	CoveragePercent *float64 `json:"coverage,omitempty"`
}

// FaceResult is the per-tick detection payload.
type FaceResult struct {
	Count       int           `json:"count"`
	FrameWidth  int           `json:"frameWidth"`
	FrameHeight int           `json:"frameHeight"`
	Faces       []FaceOverlay `json:"faces"`
	Timestamp   time.Time     `json:"timestamp"`
}
