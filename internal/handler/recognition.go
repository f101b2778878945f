package handler

import (
	"encoding/json"
	"net/http"

	"kioskcam/internal/dto"
	"kioskcam/internal/logger"
	"kioskcam/internal/model"
	"kioskcam/internal/service/recognition"
)

// RecognitionSink stores enrichment that face overlays are annotated with.
type RecognitionSink interface {
	Put(box model.Face, u recognition.Update)
}

// RecognitionHandler handles POST /api/recognition with a single update or a
// JSON array of updates.
func RecognitionHandler(sink RecognitionSink, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var raw json.RawMessage
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&raw); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		var updates []dto.RecognitionUpdate
		if len(raw) > 0 && raw[0] == '[' {
			if err := json.Unmarshal(raw, &updates); err != nil {
				http.Error(w, "Invalid JSON", http.StatusBadRequest)
				return
			}
		} else {
			var u dto.RecognitionUpdate
			if err := json.Unmarshal(raw, &u); err != nil {
				http.Error(w, "Invalid JSON", http.StatusBadRequest)
				return
			}
			updates = append(updates, u)
		}

		for _, u := range updates {
			if u.Width <= 0 || u.Height <= 0 {
				http.Error(w, "Face box must have a positive size", http.StatusBadRequest)
				return
			}
			if u.Person != nil && (u.Person.Confidence < 0 || u.Person.Confidence > 1) {
				http.Error(w, "Confidence must be between 0 and 1", http.StatusBadRequest)
				return
			}
		}

		for _, u := range updates {
			box, update := toRecognitionUpdate(u)
			sink.Put(box, update)
		}
		logger.Info("Stored recognition data for %d face(s)", len(updates))
		writeJSON(w, http.StatusOK, map[string]int{"stored": len(updates)}, logger)
	}
}

func toRecognitionUpdate(u dto.RecognitionUpdate) (model.Face, recognition.Update) {
	box := model.Face{X: u.X, Y: u.Y, Width: u.Width, Height: u.Height}
	update := recognition.Update{
		Emotion:       u.Emotion,
		SimilarFaceID: u.SimilarFaceID,
	}
	if u.Age != nil || u.Gender != "" {
		update.Attributes = &model.FaceAttributes{Gender: u.Gender}
		if u.Age != nil {
			update.Attributes.Age = *u.Age
		}
	}
	if u.Person != nil {
		update.Person = &recognition.Person{Name: u.Person.Name, Confidence: u.Person.Confidence}
	}
	return box, update
}
