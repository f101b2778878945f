package recognition

import (
	"image"
	"math"
	"sort"

	"kioskcam/internal/dto"
	"kioskcam/internal/model"
)

// UnknownPerson labels a face with attributes but no identity match.
const UnknownPerson = "Unknown"

const uniqueIDLength = 4

// Annotate builds the viewer overlay for each face. provider may be nil. With
// debug set, each overlay carries the face's frame-height coverage.
func Annotate(faces model.FaceSet, frameSize image.Point, provider Provider, debug bool) []dto.FaceOverlay {
	overlays := make([]dto.FaceOverlay, 0, len(faces))

	for _, face := range faces {
		overlay := dto.FaceOverlay{
			X:      face.X,
			Y:      face.Y,
			Width:  face.Width,
			Height: face.Height,
		}

		attributes := face.Attributes
		if provider != nil {
			if scores, ok := provider.LastEmotion(face); ok {
				overlay.Emotion = DominantEmotion(scores)
			}
			if attributes == nil {
				if a, ok := provider.LastAttributes(face); ok {
					attributes = a
				}
			}
			if person, ok := provider.LastIdentifiedPerson(face); ok {
				overlay.Name = person.Name
				overlay.Confidence = uint(math.Round(person.Confidence * 100))
			}
			if id, ok := provider.LastSimilarFace(face); ok {
				overlay.UniqueID = shortID(id)
			}
		}

		if attributes != nil {
			overlay.Age = attributes.Age
			overlay.Gender = attributes.Gender
			if overlay.Name == "" {
				overlay.Name = UnknownPerson
			}
		}

		if debug && frameSize.Y > 0 {
			coverage := 100 * float64(face.Height) / float64(frameSize.Y)
			overlay.CoveragePercent = &coverage
		}

		overlays = append(overlays, overlay)
	}

	return overlays
}

// DominantEmotion returns the highest scoring emotion. Ties go to the name
// that sorts first.
func DominantEmotion(scores map[string]float64) string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	bestScore := math.Inf(-1)
	for _, name := range names {
		if scores[name] > bestScore {
			best, bestScore = name, scores[name]
		}
	}
	return best
}

func shortID(id string) string {
	if len(id) <= uniqueIDLength {
		return id
	}
	return id[:uniqueIDLength]
}
