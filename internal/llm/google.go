package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/parley-ai/parley/internal/log"
)

// GoogleConfig configures the Gemini-backed gateway.
type GoogleConfig struct {
	APIKey      string
	Model       string
	Temperature float32

	// Timeout bounds each individual provider call.
	Timeout time.Duration

	// RequestsPerSecond gates outgoing calls ahead of the provider's
	// own quota enforcement. Zero disables the limiter.
	RequestsPerSecond float64
}

// GoogleGateway implements Gateway over the Gemini API.
type GoogleGateway struct {
	client  *genai.Client
	cfg     GoogleConfig
	retry   retryConfig
	limiter *rate.Limiter
	logger  log.Logger
}

// NewGoogleGateway dials the Gemini API backend.
func NewGoogleGateway(ctx context.Context, cfg GoogleConfig, logger log.Logger) (*GoogleGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google gateway: empty API key")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("google gateway: empty model name")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &GoogleGateway{
		client:  client,
		cfg:     cfg,
		retry:   defaultRetryConfig(),
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Complete sends one completion request and parses the response into a
// Decision. Transient provider failures retry with backoff; exhaustion
// maps to ErrGatewayUnavailable, deadline overruns to
// ErrGatewayTimeout.
func (g *GoogleGateway) Complete(ctx context.Context, req Request) (Decision, error) {
	contents := buildContents(req.Messages)
	config := g.buildConfig(req)

	var resp *genai.GenerateContentResponse
	err := withRetry(ctx, g.logger, g.retry, func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()

		var callErr error
		resp, callErr = g.client.Models.GenerateContent(callCtx, g.cfg.Model, contents, config)
		return callErr
	})
	if err != nil {
		return Decision{}, g.classify(err)
	}

	decision := parseDecision(resp, g.logger)
	if decision.IsToolCall() {
		g.logger.Debug("model requested tool", "tool", decision.Call.Name)
	}
	return decision, nil
}

// classify maps provider errors onto the package sentinels.
func (g *GoogleGateway) classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
}

// buildContents converts conversation messages to provider contents.
// Unknown roles are treated as user text.
func buildContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	return contents
}

func (g *GoogleGateway) buildConfig(req Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.cfg.Temperature),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{
			FunctionDeclarations: declarations(req.Tools),
		}}
	}
	return config
}

// declarations renders tool descriptors as function declarations with a
// single required free-text input parameter.
func declarations(tools []ToolDescriptor) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					inputParam: {
						Type:        genai.TypeString,
						Description: "Input for the tool, in plain text.",
					},
				},
				Required: []string{inputParam},
			},
		})
	}
	return decls
}
