package api

import (
	"encoding/json"
	"net/http"
)

// Client-facing error messages. Internal failure details stay in the
// logs.
const (
	msgMissingInput  = "userInput is required"
	msgInvalidBody   = "invalid request body"
	msgInvalidChatID = "invalid chatId"
	msgInternalError = "something went wrong"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding failures at this point cannot be reported to the client.
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
