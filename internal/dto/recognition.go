package dto

// PersonMatch is an identity match reported by a recognition service.
type PersonMatch struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"` // 0..1
}

// RecognitionUpdate is enrichment for one face box pushed by a recognition
// service. Omitted fields keep what was stored before.
type RecognitionUpdate struct {
	X             int                `json:"x"`
	Y             int                `json:"y"`
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	Emotion       map[string]float64 `json:"emotion,omitempty"`
	Age           *float64           `json:"age,omitempty"`
	Gender        string             `json:"gender,omitempty"`
	Person        *PersonMatch       `json:"person,omitempty"`
	SimilarFaceID string             `json:"similarFaceId,omitempty"`
}
