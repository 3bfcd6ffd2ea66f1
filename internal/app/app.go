// Package app assembles the application: configuration, provider
// clients, session store, tool set and the agent loop. Everything is
// constructed explicitly and passed down; there are no package-level
// singletons.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/parley-ai/parley/internal/agent"
	"github.com/parley-ai/parley/internal/config"
	"github.com/parley-ai/parley/internal/llm"
	"github.com/parley-ai/parley/internal/log"
	"github.com/parley-ai/parley/internal/retrieval"
	"github.com/parley-ai/parley/internal/security"
	"github.com/parley-ai/parley/internal/session"
	"github.com/parley-ai/parley/internal/tools"
)

// defaultRequestsPerSecond gates outgoing provider calls ahead of quota
// enforcement on the free tier.
const defaultRequestsPerSecond = 2

// App holds the wired application.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Store    *session.Store
	Registry *tools.Registry
	Agent    *agent.Agent
}

// New wires the full application. Startup source loading (document
// path, webpage URL) is attempted here and failure is non-fatal: the
// corresponding QA tool simply reports not-loaded when used.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	gateway, err := llm.NewGoogleGateway(ctx, llm.GoogleConfig{
		APIKey:            apiKey,
		Model:             cfg.ModelName,
		Temperature:       cfg.Temperature,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: defaultRequestsPerSecond,
	}, logger.With("component", "llm"))
	if err != nil {
		return nil, fmt.Errorf("wiring gateway: %w", err)
	}

	embedder, err := llm.NewGeminiEmbedder(ctx, apiKey, cfg.EmbedderModel, cfg.Timeout(), logger.With("component", "embedder"))
	if err != nil {
		return nil, fmt.Errorf("wiring embedder: %w", err)
	}

	store, err := session.NewStore(cfg.DataDir, logger.With("component", "session"))
	if err != nil {
		return nil, fmt.Errorf("wiring session store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout()}

	docIndex := retrieval.NewIndex(embedder,
		cfg.DocumentChunks.Size, cfg.DocumentChunks.Overlap,
		logger.With("component", "retrieval", "source", "document"))
	pageIndex := retrieval.NewIndex(embedder,
		cfg.PageChunks.Size, cfg.PageChunks.Overlap,
		logger.With("component", "retrieval", "source", "webpage"))

	docQA := tools.NewDocumentQA(docIndex, gateway, cfg.RetrievalK, logger.With("tool", "document_qa"))
	webQA := tools.NewWebpageQA(pageIndex, gateway, cfg.RetrievalK, httpClient, security.NewGuard(), logger.With("tool", "webpage_qa"))
	doctorList := tools.NewDoctorList(cfg.DoctorListURL, httpClient, logger.With("tool", "doctor_list"))
	booking := tools.NewDoctorAppointment(cfg.BookingURL, gateway, httpClient, logger.With("tool", "doctor_appointment"))

	registry := tools.NewRegistry(logger.With("component", "tools"))
	for _, t := range []tools.Tool{docQA, webQA, doctorList, booking} {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("registering %s: %w", t.Name(), err)
		}
	}

	if cfg.DocumentPath != "" {
		if err := docQA.LoadFile(ctx, cfg.DocumentPath); err != nil {
			logger.Warn("startup document load failed", "path", cfg.DocumentPath, "error", err)
		}
	}
	if cfg.WebpageURL != "" {
		if err := webQA.LoadURL(ctx, cfg.WebpageURL); err != nil {
			logger.Warn("startup webpage load failed", "url", cfg.WebpageURL, "error", err)
		}
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Registry: registry,
		Agent:    agent.New(gateway, registry, store, cfg.MaxTurns, logger.With("component", "agent")),
	}, nil
}
