// Package api exposes the conversational agent over HTTP.
//
// Routes:
//
//	POST /chat                     run one agent turn
//	GET  /chat/{chatId}/messages   fetch a session transcript
//	GET  /health                   liveness probe
//
// All handlers sit behind the recovery, request-id and logging
// middleware, innermost first.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/parley-ai/parley/internal/agent"
	"github.com/parley-ai/parley/internal/log"
	"github.com/parley-ai/parley/internal/session"
)

// Runner is the slice of the agent the API needs.
type Runner interface {
	RunTurn(ctx context.Context, sessionID, userInput string) (*agent.TurnResult, error)
}

// HistoryReader is the slice of the session store the API needs.
type HistoryReader interface {
	History(ctx context.Context, id string) ([]session.Turn, error)
}

// Server hosts the HTTP API.
type Server struct {
	httpServer *http.Server
	logger     log.Logger
}

// New builds the server with its routes and middleware wired.
func New(addr string, runner Runner, history HistoryReader, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}

	h := &handlers{
		runner:  runner,
		history: history,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", h.postChat)
	mux.HandleFunc("GET /chat/{chatId}/messages", h.getMessages)
	mux.HandleFunc("GET /health", h.health)

	handler := chain(mux,
		loggingMiddleware(logger),
		requestIDMiddleware(),
		recoveryMiddleware(logger),
	)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       2 * time.Minute,
		},
		logger: logger,
	}
}

// Handler exposes the wired handler stack, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
