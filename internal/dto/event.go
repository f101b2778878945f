package dto

// Event types pushed to viewers.
const (
	EventFaces            = "faces"
	EventAutoCaptureState = "autocapture_state"
	EventImageCaptured    = "image_captured"
	EventCameraRestarted  = "camera_restarted"
	EventError            = "error"
)

// Event is the envelope of every websocket message sent to viewers.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// StateChange is the payload of an autocapture_state event.
type StateChange struct {
	State string `json:"state"`
}

// ErrorReport is the payload of an error event.
type ErrorReport struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
}
