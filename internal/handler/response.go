package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
	Type    string `json:"type"`
	Reason  string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON")
	}
}

func writeError(w http.ResponseWriter, message, detail, errType string, status int) {
	writeErrorResponse(w, ErrorResponse{Error: message, Detail: detail, Type: errType}, status)
}

func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse, status int) {
	resp.Success = false
	writeJSON(w, resp, status)
}
