// Package recognition holds advisory per-face enrichment (emotion, attributes,
// identity) and turns detected faces into viewer overlays.
package recognition

import "kioskcam/internal/model"

// Person is an identified-person match.
type Person struct {
	Name string
	// Confidence is in [0, 1].
	Confidence float64
}

// Provider returns the last known enrichment for a face box. Every lookup may
// come back empty.
type Provider interface {
	LastEmotion(face model.Face) (map[string]float64, bool)
	LastAttributes(face model.Face) (*model.FaceAttributes, bool)
	LastIdentifiedPerson(face model.Face) (Person, bool)
	// LastSimilarFace returns the id of a persisted face that matches.
	LastSimilarFace(face model.Face) (string, bool)
}
