package model

import "time"

// CaptureTrigger records which path produced a still.
type CaptureTrigger string

const (
	TriggerManual CaptureTrigger = "manual"
	TriggerAuto   CaptureTrigger = "auto"
)

// Capture represents a persisted still image record.
type Capture struct {
	ID        int64          `json:"id"`
	UID       string         `json:"uid"`
	Filename  string         `json:"filename"`
	Trigger   CaptureTrigger `json:"trigger"`
	Timestamp time.Time      `json:"timestamp"`
	FilePath  string         `json:"filepath"`
	FileSize  int64          `json:"filesize"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	FaceCount int            `json:"face_count"`
}

// CaptureFace is a face box stored alongside a capture.
type CaptureFace struct {
	ID        int64   `json:"id"`
	CaptureID int64   `json:"capture_id"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Age       float64 `json:"age"`
	Gender    string  `json:"gender"`
}

// CaptureFilter narrows capture listings.
type CaptureFilter struct {
	Trigger   CaptureTrigger
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}
