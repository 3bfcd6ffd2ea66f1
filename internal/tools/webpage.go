package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/parley-ai/parley/internal/llm"
	"github.com/parley-ai/parley/internal/log"
	"github.com/parley-ai/parley/internal/retrieval"
	"github.com/parley-ai/parley/internal/security"
)

// MsgWebpageNotLoaded is the observation returned when the webpage QA
// tool runs before a page was loaded.
const MsgWebpageNotLoaded = "Webpage not loaded. Please load a webpage first."

// maxPageBytes caps how much of a fetched page is read.
const maxPageBytes = 4 << 20

// WebpageQA answers questions about a fetched webpage.
type WebpageQA struct {
	retrievalQA
	client *http.Client
	guard  *security.Guard
}

// NewWebpageQA builds the webpage QA tool over the given index. A nil
// client falls back to http.DefaultClient; a nil guard skips URL
// validation.
func NewWebpageQA(index *retrieval.Index, gateway llm.Gateway, k int, client *http.Client, guard *security.Guard, logger log.Logger) *WebpageQA {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &WebpageQA{
		retrievalQA: retrievalQA{
			name: "webpage_qa",
			description: "Answers questions about the loaded webpage. " +
				"Input should be a fully formed question.",
			notLoadedMsg: MsgWebpageNotLoaded,
			index:        index,
			gateway:      gateway,
			k:            k,
			logger:       logger,
		},
		client: client,
		guard:  guard,
	}
}

// LoadURL fetches pageURL, extracts its readable text and indexes it.
func (w *WebpageQA) LoadURL(ctx context.Context, pageURL string) error {
	if w.guard != nil {
		if err := w.guard.ValidateURL(pageURL); err != nil {
			return fmt.Errorf("validating webpage URL: %w", err)
		}
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("parsing webpage URL %q: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fmt.Errorf("building webpage request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching webpage %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching webpage %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return fmt.Errorf("reading webpage %s: %w", pageURL, err)
	}

	text := extractText(body, parsed)
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("webpage %s has no extractable text", pageURL)
	}

	if err := w.index.Load(ctx, text); err != nil {
		return fmt.Errorf("indexing webpage %s: %w", pageURL, err)
	}

	w.logger.Info("webpage loaded successfully", "url", pageURL, "bytes", len(text))
	return nil
}

// extractText prefers readability's article extraction and falls back
// to stripping scripts and styles from the raw DOM.
func extractText(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return normalizeWhitespace(doc.Text())
}

// normalizeWhitespace collapses runs of whitespace so the chunker sees
// prose rather than layout gaps.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
