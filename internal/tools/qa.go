package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parley-ai/parley/internal/llm"
	"github.com/parley-ai/parley/internal/log"
	"github.com/parley-ai/parley/internal/retrieval"
)

const qaSystemPrompt = "You answer questions using only the provided context. " +
	"If the context does not contain the answer, say you don't know. Be concise."

// retrievalQA answers questions against an in-memory index. DocumentQA
// and WebpageQA differ only in source loading and the not-loaded
// message.
type retrievalQA struct {
	name         string
	description  string
	notLoadedMsg string

	index   *retrieval.Index
	gateway llm.Gateway
	k       int
	logger  log.Logger
}

func (q *retrievalQA) Name() string        { return q.name }
func (q *retrievalQA) Description() string { return q.description }

// Invoke retrieves the top-k chunks for the question and asks the model
// to answer from them. A never-loaded source is an ordinary
// observation, not an error.
func (q *retrievalQA) Invoke(ctx context.Context, input string) (string, error) {
	question := strings.TrimSpace(input)
	if question == "" {
		return "", fmt.Errorf("%s: empty question", q.name)
	}

	matches, err := q.index.Query(ctx, question, q.k)
	if err != nil {
		if errors.Is(err, retrieval.ErrNotLoaded) {
			return q.notLoadedMsg, nil
		}
		return "", fmt.Errorf("%s: retrieving context: %w", q.name, err)
	}

	var sb strings.Builder
	for i, m := range matches {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(m.Chunk.Text)
	}

	decision, err := q.gateway.Complete(ctx, llm.Request{
		System: qaSystemPrompt,
		Messages: []llm.Message{{
			Role: llm.RoleUser,
			Text: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", sb.String(), question),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("%s: generating answer: %w", q.name, err)
	}

	q.logger.Debug("retrieval qa answered", "tool", q.name, "chunks", len(matches))
	return decision.Answer, nil
}
