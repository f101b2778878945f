package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"kioskcam/internal/model"
)

// ParseCaptureFilename recovers the timestamp and trigger from a filename
// written by CaptureStore: <timestamp>_<trigger>_<uid prefix>.<ext>.
func ParseCaptureFilename(name string) (time.Time, model.CaptureTrigger, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	if len(base) < len(timestampLayout)+1 {
		return time.Time{}, "", fmt.Errorf("filename too short: %s", name)
	}

	ts, err := time.ParseInLocation(timestampLayout, base[:len(timestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid timestamp in %s: %w", name, err)
	}

	parts := strings.Split(base[len(timestampLayout)+1:], "_")
	trigger := model.CaptureTrigger(parts[0])
	if trigger != model.TriggerManual && trigger != model.TriggerAuto {
		return time.Time{}, "", fmt.Errorf("unknown trigger %q in %s", parts[0], name)
	}

	return ts, trigger, nil
}
