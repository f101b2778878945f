package autocapture

import (
	"image"

	"kioskcam/internal/model"
)

// MovementThresholdPercent is how far (per axis, as a percentage of the frame
// dimension) a face's top-left corner may move and still count as still.
const MovementThresholdPercent = 2

// AreFacesStill compares the baseline faces against the current ones. A
// baseline face is still when some current face has its top-left corner within
// the horizontal and vertical thresholds. The group is still once at least one
// face, and at least half of the baseline (rounded down), is still.
//
// The comparison is driven by previous, so swapping the arguments can change
// the verdict.
func AreFacesStill(previous, current model.FaceSet, frameSize image.Point) bool {
	horizontal := frameSize.X * MovementThresholdPercent / 100
	vertical := frameSize.Y * MovementThresholdPercent / 100

	quorum := len(previous) / 2
	stillFaces := 0

	for _, before := range previous {
		if stillFaces > 0 && stillFaces >= quorum {
			break
		}
		for _, now := range current {
			if abs(before.X-now.X) <= horizontal && abs(before.Y-now.Y) <= vertical {
				stillFaces++
				break
			}
		}
	}

	return stillFaces > 0 && stillFaces >= quorum
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
