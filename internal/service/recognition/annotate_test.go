package recognition

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kioskcam/internal/model"
)

func TestAnnotate_WithoutProvider(t *testing.T) {
	faces := model.FaceSet{{X: 1, Y: 2, Width: 3, Height: 4}}
	overlays := Annotate(faces, image.Pt(100, 100), nil, false)

	require.Len(t, overlays, 1)
	assert.Equal(t, 1, overlays[0].X)
	assert.Equal(t, 4, overlays[0].Height)
	assert.Empty(t, overlays[0].Name)
	assert.Nil(t, overlays[0].CoveragePercent)
}

func TestAnnotate_FromCache(t *testing.T) {
	known := model.Face{X: 0, Y: 0, Width: 100, Height: 100}
	stranger := model.Face{X: 400, Y: 0, Width: 100, Height: 100}

	c := NewCache()
	c.Put(known, Update{
		Emotion:       map[string]float64{"neutral": 0.2, "happiness": 0.7, "surprise": 0.1},
		Attributes:    &model.FaceAttributes{Age: 41, Gender: "male"},
		Person:        &Person{Name: "Grace", Confidence: 0.876},
		SimilarFaceID: "3fa85f64-5717",
	})
	c.Put(stranger, Update{Attributes: &model.FaceAttributes{Age: 25, Gender: "female"}})

	overlays := Annotate(model.FaceSet{known, stranger}, image.Pt(1000, 500), c, true)
	require.Len(t, overlays, 2)

	assert.Equal(t, "happiness", overlays[0].Emotion)
	assert.Equal(t, "Grace", overlays[0].Name)
	assert.Equal(t, uint(88), overlays[0].Confidence)
	assert.Equal(t, "3fa8", overlays[0].UniqueID)
	assert.Equal(t, 41.0, overlays[0].Age)
	require.NotNil(t, overlays[0].CoveragePercent)
	assert.InDelta(t, 20.0, *overlays[0].CoveragePercent, 1e-9)

	assert.Equal(t, UnknownPerson, overlays[1].Name)
	assert.Equal(t, "female", overlays[1].Gender)
	assert.Zero(t, overlays[1].Confidence)
}

func TestAnnotate_DetectorAttributesWin(t *testing.T) {
	face := model.Face{X: 0, Y: 0, Width: 10, Height: 10, Attributes: &model.FaceAttributes{Age: 9, Gender: "male"}}
	c := NewCache()
	c.Put(face, Update{Attributes: &model.FaceAttributes{Age: 70, Gender: "female"}})

	overlays := Annotate(model.FaceSet{face}, image.Pt(10, 10), c, false)
	require.Len(t, overlays, 1)
	assert.Equal(t, 9.0, overlays[0].Age)
	assert.Equal(t, UnknownPerson, overlays[0].Name)
}

func TestDominantEmotion(t *testing.T) {
	assert.Equal(t, "", DominantEmotion(nil))
	assert.Equal(t, "anger", DominantEmotion(map[string]float64{"anger": 0.5, "fear": 0.5}))
	assert.Equal(t, "fear", DominantEmotion(map[string]float64{"anger": 0.1, "fear": 0.5}))
}
