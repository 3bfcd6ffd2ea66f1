package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/parley-ai/parley/internal/log"
)

// embeddingDim is the requested output dimensionality. 768 balances
// retrieval quality against index memory for in-process search.
const embeddingDim = 768

// GeminiEmbedder implements retrieval.Embedder over the Gemini
// embedding API.
type GeminiEmbedder struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	retry   retryConfig
	logger  log.Logger
}

// NewGeminiEmbedder dials the Gemini API backend for embeddings.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, timeout time.Duration, logger log.Logger) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini embedder: empty API key")
	}
	if model == "" {
		return nil, fmt.Errorf("gemini embedder: empty model name")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiEmbedder{
		client:  client,
		model:   model,
		timeout: timeout,
		retry:   defaultRetryConfig(),
		logger:  logger,
	}, nil
}

// Embed returns one vector per input text, in order.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	config := &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr[int32](embeddingDim),
	}

	var resp *genai.EmbedContentResponse
	err := withRetry(ctx, e.logger, e.retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		var callErr error
		resp, callErr = e.client.Models.EmbedContent(callCtx, e.model, contents, config)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmptyEmbedding, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: text %d", ErrEmptyEmbedding, i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
