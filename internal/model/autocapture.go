package model

// AutoCaptureState enumerates the states of the hands-free capture cycle.
type AutoCaptureState int

const (
	WaitingForFaces AutoCaptureState = iota
	WaitingForStillFaces
	ShowingCountdownForCapture
	ShowingCapturedPhoto
)

func (s AutoCaptureState) String() string {
	switch s {
	case WaitingForFaces:
		return "waiting_for_faces"
	case WaitingForStillFaces:
		return "waiting_for_still_faces"
	case ShowingCountdownForCapture:
		return "showing_countdown_for_capture"
	case ShowingCapturedPhoto:
		return "showing_captured_photo"
	default:
		return "unknown"
	}
}
