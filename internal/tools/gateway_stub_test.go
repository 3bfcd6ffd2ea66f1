package tools

import (
	"context"
	"sync"

	"github.com/parley-ai/parley/internal/llm"
)

// stubGateway returns a scripted decision and records requests.
type stubGateway struct {
	decision llm.Decision
	err      error

	mu       sync.Mutex
	requests []llm.Request
}

func (s *stubGateway) Complete(_ context.Context, req llm.Request) (llm.Decision, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.err != nil {
		return llm.Decision{}, s.err
	}
	return s.decision, nil
}

// stubEmbedder embeds every text to the same unit vector, which is
// enough for load/query plumbing tests.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
