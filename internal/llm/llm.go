// Package llm is the boundary to the language model provider.
//
// The central type is Decision: every completion is parsed into either a
// final answer or a single tool call before it leaves this package, so
// callers never inspect raw model output. The Google Gemini
// implementation lives in google.go; embeddings in embedder.go.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrGatewayTimeout indicates the provider call exceeded its
	// deadline, including after retries.
	ErrGatewayTimeout = errors.New("llm gateway timeout")

	// ErrGatewayUnavailable indicates the provider call failed after
	// exhausting retries.
	ErrGatewayUnavailable = errors.New("llm gateway unavailable")

	// ErrEmptyEmbedding indicates the provider returned no usable
	// vector for an embedding request.
	ErrEmptyEmbedding = errors.New("empty embedding")
)

// Message roles as seen by the provider.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of provider-visible context. Tool observations
// are materialized as user-role messages by the agent before the next
// completion.
type Message struct {
	Role string
	Text string
}

// ToolDescriptor advertises one callable capability to the model. Every
// tool takes a single free-text input.
type ToolDescriptor struct {
	Name        string
	Description string
}

// ToolCall is the model's request to run a named tool.
type ToolCall struct {
	Name  string
	Input string
}

// Decision is the parsed outcome of one completion: exactly one of
// Answer or Call is meaningful. Call set means the model wants a tool
// run; Call nil means Answer is the final reply.
type Decision struct {
	Answer string
	Call   *ToolCall
}

// IsToolCall reports whether the decision requests a tool run.
func (d Decision) IsToolCall() bool {
	return d.Call != nil
}

// Request is one completion request. Tools may be empty, in which case
// the model can only answer in text.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolDescriptor
}

// Gateway produces decisions from completion requests. Implementations
// own timeouts, retries and rate limiting; callers see only the parsed
// decision or a sentinel-wrapped error.
type Gateway interface {
	Complete(ctx context.Context, req Request) (Decision, error)
}
