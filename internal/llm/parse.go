package llm

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/parley-ai/parley/internal/log"
)

// inputParam is the single argument every advertised tool accepts.
const inputParam = "input"

// parseDecision classifies a provider response as either a tool call or
// a final answer. A response carrying function calls becomes a tool
// call; the first call wins and any extras are logged and discarded.
// Anything else, including an empty response, degrades to a text
// answer.
func parseDecision(resp *genai.GenerateContentResponse, logger log.Logger) Decision {
	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		return Decision{Answer: resp.Text()}
	}
	if len(calls) > 1 {
		extra := make([]string, 0, len(calls)-1)
		for _, c := range calls[1:] {
			extra = append(extra, c.Name)
		}
		logger.Warn("model requested multiple tool calls, honoring the first",
			"honored", calls[0].Name,
			"discarded", extra)
	}

	return Decision{Call: &ToolCall{
		Name:  calls[0].Name,
		Input: callInput(calls[0]),
	}}
}

// callInput extracts the free-text input argument. Models occasionally
// send a non-string value or omit the argument; both degrade rather
// than fail.
func callInput(call *genai.FunctionCall) string {
	v, ok := call.Args[inputParam]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
