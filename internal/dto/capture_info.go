package dto

import (
	"encoding/json"
	"time"
)

// CaptureInfo is a gallery entry.
type CaptureInfo struct {
	Name      string    `json:"name"`
	UID       string    `json:"uid"`
	Trigger   string    `json:"trigger"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
	FaceCount int       `json:"faceCount"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
}

// MarshalJSON customizes JSON output for CaptureInfo to format date and time-of-day.
func (c CaptureInfo) MarshalJSON() ([]byte, error) {
	type Alias CaptureInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      c.Date.Format("02-01-2006"),
		TimeOfDay: c.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(c),
	})
}

// CapturesData is a paginated response payload for the capture gallery.
type CapturesData struct {
	Captures    []CaptureInfo `json:"captures"`
	Size        int64         `json:"size"`
	Length      int           `json:"length"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Limit       int           `json:"pageSize"`
}

// ImageCaptured is the payload of an image_captured event.
type ImageCaptured struct {
	UID     string `json:"uid"`
	Trigger string `json:"trigger"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}
