// Package retrieval implements the in-memory retrieval engine: a
// deterministic overlapping chunker and a volatile vector index queried
// by cosine similarity.
//
// An Index holds exactly one source at a time. Load replaces the whole
// index; Query answers against whatever was last loaded successfully and
// reports ErrNotLoaded before the first load.
package retrieval

import "strings"

// Chunk is a contiguous window of the source text. Offset is the rune
// offset of the window start in the original text, used for stable tie
// breaking when scores are equal.
type Chunk struct {
	Text   string
	Offset int
}

// Split cuts text into overlapping windows of size runes advancing by
// size-overlap runes per step. The final window is shorter when the text
// runs out. Splitting is deterministic: same input, same profile, same
// chunks.
//
// Whitespace-only and empty input produce no chunks. Out-of-range
// profiles are clamped: size below 1 becomes 1, overlap is forced into
// [0, size).
func Split(text string, size, overlap int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size < 1 {
		size = 1
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	step := size - overlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Text:   string(runes[start:end]),
			Offset: start,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
