package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/parley-ai/parley/internal/agent"
	"github.com/parley-ai/parley/internal/log"
	"github.com/parley-ai/parley/internal/session"
)

// maxBodyBytes caps chat request bodies.
const maxBodyBytes = 1 << 20

type handlers struct {
	runner  Runner
	history HistoryReader
	logger  log.Logger
}

type chatRequest struct {
	ChatID    string `json:"chatId"`
	UserInput string `json:"userInput"`
}

type chatResponse struct {
	ChatID     string `json:"chatId"`
	AIResponse string `json:"aiResponse"`
}

type messageDTO struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type messagesResponse struct {
	ChatID   string       `json:"chatId"`
	Messages []messageDTO `json:"messages"`
}

// postChat runs one agent turn. A request without a chatId starts a new
// session under a fresh id, which the response reports back.
func (h *handlers) postChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if strings.TrimSpace(req.UserInput) == "" {
		writeError(w, http.StatusBadRequest, msgMissingInput)
		return
	}

	chatID := req.ChatID
	if chatID == "" {
		chatID = uuid.NewString()
	}

	result, err := h.runner.RunTurn(r.Context(), chatID, req.UserInput)
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrEmptyInput):
			writeError(w, http.StatusBadRequest, msgMissingInput)
		case errors.Is(err, session.ErrInvalidID):
			writeError(w, http.StatusBadRequest, msgInvalidChatID)
		default:
			h.logger.Error("agent turn failed",
				"chat_id", chatID,
				"request_id", requestID(r.Context()),
				"error", err)
			writeError(w, http.StatusInternalServerError, msgInternalError)
		}
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ChatID:     chatID,
		AIResponse: result.Answer,
	})
}

// getMessages returns the transcript for a session. An unknown id is an
// empty transcript, not an error.
func (h *handlers) getMessages(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chatId")

	turns, err := h.history.History(r.Context(), chatID)
	if err != nil {
		if errors.Is(err, session.ErrInvalidID) {
			writeError(w, http.StatusBadRequest, msgInvalidChatID)
			return
		}
		h.logger.Error("loading transcript failed",
			"chat_id", chatID,
			"request_id", requestID(r.Context()),
			"error", err)
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	messages := make([]messageDTO, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, messageDTO{Role: t.Role, Message: t.Message})
	}

	writeJSON(w, http.StatusOK, messagesResponse{
		ChatID:   chatID,
		Messages: messages,
	})
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
