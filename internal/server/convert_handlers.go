package server

import (
	"encoding/json"
	"net/http"

	"textkit/internal/classify"
)

// handleConvert handles POST /api/convert - classify text into JSON.
// A missing or non-string "text" field is treated as empty input.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	text, _ := body["text"].(string)

	result := classify.ClassifyWith(text, classify.Options{
		KeepOther: s.config.ConvertKeepOther,
	})

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}
