// Package agent implements the conversational control loop: load
// history, deliberate with the model, dispatch requested tools, and
// persist exactly one human/ai turn pair per run.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parley-ai/parley/internal/llm"
	"github.com/parley-ai/parley/internal/log"
	"github.com/parley-ai/parley/internal/session"
)

// DefaultMaxTurns caps deliberation passes per user utterance.
const DefaultMaxTurns = 6

// ErrEmptyInput indicates a run with a blank user utterance.
var ErrEmptyInput = errors.New("empty user input")

const systemPrompt = "You are a helpful assistant. You can call the " +
	"available tools to look things up or take actions; call at most one " +
	"tool at a time and use its result before deciding your next step. " +
	"When you have enough information, reply to the user directly."

// exhaustedAnswer is the reply when the loop cap is hit with no
// observation to fall back on.
const exhaustedAnswer = "I couldn't reach a final answer for that. Could you rephrase or simplify the request?"

// Dispatcher is the tool surface the loop needs: what can be called,
// and a dispatch that always yields an observation.
type Dispatcher interface {
	Descriptors() []llm.ToolDescriptor
	Dispatch(ctx context.Context, name, input string) string
}

// Store is the slice of the session store the loop needs.
type Store interface {
	History(ctx context.Context, id string) ([]session.Turn, error)
	Append(ctx context.Context, id string, turns ...session.Turn) error
}

// Step records one tool dispatch within a run.
type Step struct {
	Tool        string
	Input       string
	Observation string
}

// TurnResult is the outcome of one user utterance. LoopExceeded marks a
// best-effort answer produced because the deliberation cap was hit.
type TurnResult struct {
	Answer       string
	Steps        []Step
	LoopExceeded bool
}

// Agent runs the control loop. Safe for concurrent use across
// sessions; concurrent runs against the same session serialize at the
// store.
type Agent struct {
	gateway  llm.Gateway
	tools    Dispatcher
	store    Store
	maxTurns int
	logger   log.Logger
}

// New wires a loop. maxTurns below 1 falls back to DefaultMaxTurns.
func New(gateway llm.Gateway, tools Dispatcher, store Store, maxTurns int, logger log.Logger) *Agent {
	if maxTurns < 1 {
		maxTurns = DefaultMaxTurns
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Agent{
		gateway:  gateway,
		tools:    tools,
		store:    store,
		maxTurns: maxTurns,
		logger:   logger,
	}
}

// RunTurn processes one user utterance for the given session.
//
// Failures split two ways: store failures and a gateway failure on the
// first deliberation pass abort the run; everything after the loop has
// started degrades to an observation the model can react to. On any
// non-error return, exactly one human turn and one ai turn have been
// appended to the session.
func (a *Agent) RunTurn(ctx context.Context, sessionID, userInput string) (*TurnResult, error) {
	if strings.TrimSpace(userInput) == "" {
		return nil, ErrEmptyInput
	}

	history, err := a.store.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == session.RoleAI {
			role = llm.RoleModel
		}
		messages = append(messages, llm.Message{Role: role, Text: turn.Message})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Text: userInput})

	result := &TurnResult{}
	descriptors := a.tools.Descriptors()

	for pass := 1; pass <= a.maxTurns; pass++ {
		decision, err := a.gateway.Complete(ctx, llm.Request{
			System:   systemPrompt,
			Messages: messages,
			Tools:    descriptors,
		})
		if err != nil {
			if pass == 1 {
				return nil, fmt.Errorf("first deliberation for session %s: %w", sessionID, err)
			}
			// Mid-loop gateway trouble becomes an observation; the
			// next pass may still produce an answer or the cap will
			// produce a best-effort one.
			a.logger.Warn("mid-loop gateway failure", "session_id", sessionID, "pass", pass, "error", err)
			messages = append(messages, llm.Message{
				Role: llm.RoleUser,
				Text: fmt.Sprintf("ERROR: the language model call failed: %v. Answer with what you have.", err),
			})
			continue
		}

		if !decision.IsToolCall() {
			result.Answer = decision.Answer
			return a.finish(ctx, sessionID, userInput, result)
		}

		call := decision.Call
		observation := a.tools.Dispatch(ctx, call.Name, call.Input)
		result.Steps = append(result.Steps, Step{
			Tool:        call.Name,
			Input:       call.Input,
			Observation: observation,
		})

		a.logger.Debug("tool dispatched",
			"session_id", sessionID,
			"pass", pass,
			"tool", call.Name,
			"observation_len", len(observation))

		messages = append(messages,
			llm.Message{Role: llm.RoleModel, Text: fmt.Sprintf("Calling tool %s with input: %s", call.Name, call.Input)},
			llm.Message{Role: llm.RoleUser, Text: fmt.Sprintf("Observation from %s: %s", call.Name, observation)},
		)
	}

	// Cap exhausted: fall back to the last observation if there is one.
	result.LoopExceeded = true
	if n := len(result.Steps); n > 0 {
		result.Answer = result.Steps[n-1].Observation
	} else {
		result.Answer = exhaustedAnswer
	}
	a.logger.Warn("deliberation cap exhausted",
		"session_id", sessionID,
		"max_turns", a.maxTurns,
		"steps", len(result.Steps))

	return a.finish(ctx, sessionID, userInput, result)
}

// finish persists the turn pair and logs the step trace.
func (a *Agent) finish(ctx context.Context, sessionID, userInput string, result *TurnResult) (*TurnResult, error) {
	err := a.store.Append(ctx, sessionID,
		session.Human(userInput),
		session.AI(result.Answer))
	if err != nil {
		return nil, fmt.Errorf("persisting session %s: %w", sessionID, err)
	}

	a.logger.Info("turn complete",
		"session_id", sessionID,
		"steps", len(result.Steps),
		"loop_exceeded", result.LoopExceeded)
	for i, step := range result.Steps {
		a.logger.Debug("turn step",
			"session_id", sessionID,
			"step", i+1,
			"tool", step.Tool,
			"input", step.Input)
	}
	return result, nil
}
