package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parley-ai/parley/internal/llm"
	"github.com/parley-ai/parley/internal/log"
	"github.com/parley-ai/parley/internal/retrieval"
)

// MsgDocumentNotLoaded is the observation returned when the document QA
// tool runs before a document was loaded.
const MsgDocumentNotLoaded = "Document not loaded. Please load a document first."

// ErrUnsupportedFileType indicates a document with an extension the
// loader does not handle.
var ErrUnsupportedFileType = errors.New("Unsupported file type. Please provide a PDF or TXT file.")

// DocumentQA answers questions about a loaded text document.
type DocumentQA struct {
	retrievalQA
}

// NewDocumentQA builds the document QA tool over the given index.
func NewDocumentQA(index *retrieval.Index, gateway llm.Gateway, k int, logger log.Logger) *DocumentQA {
	if logger == nil {
		logger = log.NewNop()
	}
	return &DocumentQA{retrievalQA{
		name: "document_qa",
		description: "Answers questions about the loaded document. " +
			"Input should be a fully formed question.",
		notLoadedMsg: MsgDocumentNotLoaded,
		index:        index,
		gateway:      gateway,
		k:            k,
		logger:       logger,
	}}
}

// LoadFile reads a .txt or .md file and indexes its contents. Other
// extensions are rejected without touching the index.
func (d *DocumentQA) LoadFile(ctx context.Context, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
	default:
		return ErrUnsupportedFileType
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading document %s: %w", path, err)
	}

	if err := d.index.Load(ctx, string(data)); err != nil {
		return fmt.Errorf("indexing document %s: %w", path, err)
	}

	d.logger.Info("document loaded successfully", "path", path)
	return nil
}
