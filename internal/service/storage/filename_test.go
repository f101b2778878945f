package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kioskcam/internal/model"
)

func TestParseCaptureFilename(t *testing.T) {
	ts, trigger, err := ParseCaptureFilename("2025-02-03_04-05-06.789_auto_1a2b3c4d.jpg")
	require.NoError(t, err)
	assert.Equal(t, model.TriggerAuto, trigger)
	assert.Equal(t, time.Date(2025, 2, 3, 4, 5, 6, 789000000, time.Local), ts)

	_, trigger, err = ParseCaptureFilename("/captures/2025-02-03_04-05-06.000_manual_ffffffff.jpg")
	require.NoError(t, err)
	assert.Equal(t, model.TriggerManual, trigger)

	for _, bad := range []string{"photo.jpg", "2025-02-03_04-05-06.000_camera1_x.jpg", "not-a-date-at-all-really_auto_x.jpg"} {
		_, _, err := ParseCaptureFilename(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseCaptureFilename_RoundTripsStoreNames(t *testing.T) {
	store, _, _ := newTestStore(t, fakeEncoder{}, false)
	frame := testFrame()
	frame.CapturedAt = time.Date(2025, 7, 8, 9, 10, 11, 0, time.Local)

	c, err := store.Add(frame, model.TriggerAuto, nil)
	require.NoError(t, err)

	ts, trigger, err := ParseCaptureFilename(c.Filename)
	require.NoError(t, err)
	assert.True(t, frame.CapturedAt.Equal(ts))
	assert.Equal(t, model.TriggerAuto, trigger)
}
