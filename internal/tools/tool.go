// Package tools defines the agent's callable capabilities and the
// registry that dispatches them.
//
// A tool is a plain capability record: name, description, invoke. The
// dispatcher is the failure boundary between tools and the agent loop —
// it never returns an error and never panics; every failure becomes an
// "ERROR:"-prefixed observation the model can read and react to.
package tools

import (
	"context"
	"errors"
)

// ErrDuplicateTool indicates a Register with an already-taken name.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Tool is one callable capability. Invoke takes the model-provided
// free-text input and returns the observation text.
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, input string) (string, error)
}
