package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kioskcam/internal/dto"
	"kioskcam/internal/logger"
	"kioskcam/internal/service"
)

type fakeKiosk struct {
	realTime   *bool
	captured   *dto.ImageCaptured
	captureErr error
	restartErr error
	resets     int
}

func (k *fakeKiosk) StartStream(ctx context.Context, realTime bool) error {
	k.realTime = &realTime
	return nil
}
func (k *fakeKiosk) StopStream(ctx context.Context) error    { return nil }
func (k *fakeKiosk) RestartCamera(ctx context.Context) error { return k.restartErr }
func (k *fakeKiosk) CaptureFrame(ctx context.Context) (*dto.ImageCaptured, error) {
	return k.captured, k.captureErr
}
func (k *fakeKiosk) TakeAutoCapturePhoto(ctx context.Context) (*dto.ImageCaptured, error) {
	return k.captured, k.captureErr
}
func (k *fakeKiosk) RestartAutoCaptureCycle() error {
	k.resets++
	return k.restartErr
}
func (k *fakeKiosk) Status() dto.Status {
	return dto.Status{Streaming: true, AutoCaptureState: "waiting_for_faces"}
}

func TestStartStreamHandler(t *testing.T) {
	kiosk := &fakeKiosk{}
	h := StartStreamHandler(kiosk, logger.NewDiscard())

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/stream/start?realtime=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, kiosk.realTime)
	assert.True(t, *kiosk.realTime)

	var status dto.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.True(t, status.Streaming)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/stream/start", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCaptureHandler_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		kiosk  *fakeKiosk
		status int
	}{
		{"captured", &fakeKiosk{captured: &dto.ImageCaptured{UID: "abc", Trigger: "manual"}}, http.StatusOK},
		{"busy", &fakeKiosk{}, http.StatusServiceUnavailable},
		{"not streaming", &fakeKiosk{captureErr: service.ErrStreamNotStarted}, http.StatusConflict},
		{"failure", &fakeKiosk{captureErr: errors.New("boom")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			CaptureHandler(tt.kiosk, logger.NewDiscard())(rec, httptest.NewRequest(http.MethodPost, "/api/capture", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAutoCaptureHandlers(t *testing.T) {
	kiosk := &fakeKiosk{captured: &dto.ImageCaptured{UID: "u1", Trigger: "auto"}}

	rec := httptest.NewRecorder()
	AutoCapturePhotoHandler(kiosk, logger.NewDiscard())(rec, httptest.NewRequest(http.MethodPost, "/api/autocapture/capture", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var captured dto.ImageCaptured
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&captured))
	assert.Equal(t, "u1", captured.UID)

	rec = httptest.NewRecorder()
	AutoCaptureRestartHandler(kiosk, logger.NewDiscard())(rec, httptest.NewRequest(http.MethodPost, "/api/autocapture/restart", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, kiosk.resets)

	kiosk.restartErr = service.ErrAutoCaptureDisabled
	rec = httptest.NewRecorder()
	AutoCaptureRestartHandler(kiosk, logger.NewDiscard())(rec, httptest.NewRequest(http.MethodPost, "/api/autocapture/restart", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatusHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	StatusHandler(&fakeKiosk{}, logger.NewDiscard())(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"autoCaptureState":"waiting_for_faces"`)
}
