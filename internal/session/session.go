// Package session persists conversation logs as durable JSON files, one
// file per conversation.
//
// A session is a JSON array of turns in append order. Files are named
// chat_history_<id>.json under the store's data directory. Writes go
// through a per-session in-process mutex plus a cross-process file lock,
// so concurrent appends to the same session serialize instead of
// clobbering each other.
package session

import (
	"errors"
	"strings"
)

// Turn roles. Every persisted turn is attributed to exactly one side of
// the conversation.
const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

var (
	// ErrInvalidID indicates a session id that cannot name a log file.
	ErrInvalidID = errors.New("invalid session id")

	// ErrCorruptLog indicates a session file that no longer parses as a
	// JSON turn array.
	ErrCorruptLog = errors.New("corrupt session log")
)

// Turn is a single utterance in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Human builds a human turn.
func Human(message string) Turn {
	return Turn{Role: RoleHuman, Message: message}
}

// AI builds an ai turn.
func AI(message string) Turn {
	return Turn{Role: RoleAI, Message: message}
}

// validateID rejects ids that could escape the data directory or
// produce surprising file names. Accepted: letters, digits, '-', '_'
// and '.', with '.' forbidden as the sole content.
func validateID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if strings.Trim(id, ".") == "" {
		return ErrInvalidID
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return ErrInvalidID
		}
	}
	return nil
}
