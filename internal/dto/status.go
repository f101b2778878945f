package dto

// Status reports the kiosk pipeline state to the control panel.
type Status struct {
	Streaming           bool    `json:"streaming"`
	RealTime            bool    `json:"realTime"`
	Width               int     `json:"width"`
	Height              int     `json:"height"`
	AspectRatio         float64 `json:"aspectRatio"`
	NumFacesOnLastFrame int     `json:"numFacesOnLastFrame"`
	AutoCaptureEnabled  bool    `json:"autoCaptureEnabled"`
	AutoCaptureState    string  `json:"autoCaptureState"`
	TicksProcessed      uint64  `json:"ticksProcessed"`
	TicksSkipped        uint64  `json:"ticksSkipped"`
	TicksFailed         uint64  `json:"ticksFailed"`
}
