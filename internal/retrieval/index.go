package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/parley-ai/parley/internal/log"
)

var (
	// ErrNotLoaded indicates a query against an index that has never
	// completed a successful Load.
	ErrNotLoaded = errors.New("source not loaded")

	// ErrEmptySource indicates a Load whose text yields no chunks.
	ErrEmptySource = errors.New("empty source")

	// ErrEmbedding wraps embedder failures during load or query.
	ErrEmbedding = errors.New("embedding failed")
)

// Embedder turns texts into vectors. Defined here, on the consumer
// side; the Gemini implementation lives in internal/llm.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Match is one query result: the matched chunk with its cosine
// similarity to the query.
type Match struct {
	Chunk Chunk
	Score float64
}

type record struct {
	chunk  Chunk
	vector []float32
}

// Index is an in-memory vector index over a single source. Load and
// Query are mutually exclusive; concurrent queries run in parallel.
type Index struct {
	embedder Embedder
	logger   log.Logger

	size    int
	overlap int

	mu      sync.RWMutex
	records []record
	loaded  bool
}

// NewIndex returns an index that chunks sources with the given
// window/overlap profile.
func NewIndex(embedder Embedder, size, overlap int, logger log.Logger) *Index {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Index{
		embedder: embedder,
		logger:   logger,
		size:     size,
		overlap:  overlap,
	}
}

// Load chunks and embeds text, then atomically replaces the index
// contents. On failure the previous contents, if any, stay in place.
func (ix *Index) Load(ctx context.Context, text string) error {
	chunks := Split(text, ix.size, ix.overlap)
	if len(chunks) == 0 {
		return ErrEmptySource
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), len(chunks))
	}

	records := make([]record, len(chunks))
	for i := range chunks {
		records[i] = record{chunk: chunks[i], vector: vectors[i]}
	}

	ix.mu.Lock()
	ix.records = records
	ix.loaded = true
	ix.mu.Unlock()

	ix.logger.Debug("index loaded", "chunks", len(records), "chunk_size", ix.size, "overlap", ix.overlap)
	return nil
}

// Loaded reports whether the index has completed a successful Load.
func (ix *Index) Loaded() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.loaded
}

// Query embeds q and returns the top k chunks by descending cosine
// similarity. Equal scores resolve to the chunk that appears earlier in
// the source. k larger than the index returns everything.
func (ix *Index) Query(ctx context.Context, q string, k int) ([]Match, error) {
	if k < 1 {
		return nil, fmt.Errorf("invalid k: %d", k)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if !ix.loaded {
		return nil, ErrNotLoaded
	}

	vectors, err := ix.embedder.Embed(ctx, []string{q})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for one query", ErrEmbedding, len(vectors))
	}
	qv := vectors[0]

	matches := make([]Match, len(ix.records))
	for i, r := range ix.records {
		matches[i] = Match{Chunk: r.chunk, Score: cosine(qv, r.vector)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Chunk.Offset < matches[j].Chunk.Offset
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// cosine computes cosine similarity with float64 accumulation. Length
// mismatches compare the shared prefix; a zero-norm vector scores 0.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, na, nb float64
	for i := 0; i < n; i++ {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
