// Package llm is the reasoning-engine boundary: it maps conversation history
// plus a tool vocabulary to either freeform text or requested action
// invocations, via the Gemini API.
package llm

import (
	"context"

	"github.com/BuildWithWisdom/VentroPay/internal/conversation"
)

// Result is the engine's answer for one completion call. Text and Calls may
// both be present; callers decide which to honor.
type Result struct {
	Text  string
	Calls []conversation.ToolCall
}

// Client defines the interface for reasoning-engine completions. It must
// support multi-turn context replay, including injected function-response
// turns.
type Client interface {
	Complete(ctx context.Context, turns []conversation.Turn, tools []conversation.ToolDefinition) (*Result, error)
}
