package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// envelope is the body of every JSON response the daemon produces.
type envelope struct {
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Data    any            `json:"data"`
	Meta    map[string]any `json:"meta"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Status:  status,
		Message: message,
		Data:    data,
		Meta:    map[string]any{"time": time.Now().UTC().Format(time.RFC3339Nano)},
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, message, nil)
}
