package websocket

import (
	"kioskcam/internal/dto"
	"kioskcam/internal/model"
)

// The methods below let the hub subscribe to the kiosk manager directly.

func (h *HubService) FacesDetected(result dto.FaceResult) {
	h.BroadcastEvent(dto.Event{Type: dto.EventFaces, Data: result})
}

func (h *HubService) AutoCaptureStateChanged(state model.AutoCaptureState) {
	h.BroadcastEvent(dto.Event{Type: dto.EventAutoCaptureState, Data: dto.StateChange{State: state.String()}})
}

func (h *HubService) ImageCaptured(captured dto.ImageCaptured) {
	h.BroadcastEvent(dto.Event{Type: dto.EventImageCaptured, Data: captured})
}

func (h *HubService) CameraRestarted() {
	h.BroadcastEvent(dto.Event{Type: dto.EventCameraRestarted})
}

func (h *HubService) CaptureFailed(report dto.ErrorReport) {
	h.BroadcastEvent(dto.Event{Type: dto.EventError, Data: report})
}
