package autocapture

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"kioskcam/internal/model"
)

func face(x, y int) model.Face {
	return model.Face{X: x, Y: y, Width: 100, Height: 100}
}

func TestAreFacesStill(t *testing.T) {
	frame := image.Pt(1000, 1000)

	tests := []struct {
		name     string
		previous model.FaceSet
		current  model.FaceSet
		frame    image.Point
		want     bool
	}{
		{"single face moved one pixel", model.FaceSet{face(0, 0)}, model.FaceSet{face(1, 1)}, frame, true},
		{"exactly on threshold", model.FaceSet{face(100, 100)}, model.FaceSet{face(120, 80)}, frame, true},
		{"just past horizontal threshold", model.FaceSet{face(100, 100)}, model.FaceSet{face(121, 100)}, frame, false},
		{"just past vertical threshold", model.FaceSet{face(100, 100)}, model.FaceSet{face(100, 121)}, frame, false},
		{"empty previous", nil, model.FaceSet{face(0, 0)}, frame, false},
		{"empty current", model.FaceSet{face(0, 0)}, nil, frame, false},
		{"half of four is enough", model.FaceSet{face(0, 0), face(200, 0), face(400, 0), face(600, 0)},
			model.FaceSet{face(0, 0), face(200, 0)}, frame, true},
		{"one of four is not", model.FaceSet{face(0, 0), face(200, 0), face(400, 0), face(600, 0)},
			model.FaceSet{face(5, 5)}, frame, false},
		{"one of three is enough", model.FaceSet{face(0, 0), face(200, 0), face(400, 0)},
			model.FaceSet{face(400, 3)}, frame, true},
		{"threshold truncates", model.FaceSet{face(0, 0)}, model.FaceSet{face(13, 0)}, image.Pt(640, 480), false},
		{"threshold truncates inside", model.FaceSet{face(0, 0)}, model.FaceSet{face(12, 9)}, image.Pt(640, 480), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AreFacesStill(tt.previous, tt.current, tt.frame))
		})
	}
}

func TestAreFacesStill_Asymmetric(t *testing.T) {
	frame := image.Pt(1000, 1000)
	// two of four baseline faces match: still
	previous := model.FaceSet{face(0, 0), face(200, 0), face(400, 0), face(600, 0)}
	current := model.FaceSet{face(0, 0), face(200, 0)}
	assert.True(t, AreFacesStill(previous, current, frame))

	// driven from a larger current set, one match of a two-face previous is enough
	previous = model.FaceSet{face(0, 0), face(900, 900)}
	current = model.FaceSet{face(0, 0), face(300, 300), face(500, 500), face(700, 700)}
	assert.True(t, AreFacesStill(previous, current, frame))
	assert.False(t, AreFacesStill(current, model.FaceSet{face(0, 0)}, frame))
}
