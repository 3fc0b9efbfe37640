package main

import (
	"encoding/json"
	"net/http"
)

// respondWithError logs the underlying error (if any) and sends a JSON
// error body, mirroring the teacher's json.go.
func (a *app) respondWithError(w http.ResponseWriter, code int, msg string, err error) {
	if err != nil {
		a.logger.Error(msg, "error", err)
	}
	type errorResponse struct {
		Error string `json:"error"`
	}
	a.respondWithJSON(w, code, errorResponse{Error: msg})
}

// respondWithJSON marshals payload, sets the content-type header and
// writes the status code and body, exactly as the teacher's
// respondWithJSON does.
func (a *app) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(payload)
	if err != nil {
		a.logger.Error("error marshalling JSON", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		a.logger.Error("error writing response", "error", err)
	}
}
