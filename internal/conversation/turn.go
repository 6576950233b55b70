// Package conversation holds the turn-level domain model shared by the
// reasoning-engine client, the action router, and the orchestrator, plus the
// in-process history store keyed by conversation key.
package conversation

import "sort"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	// RoleFunction carries an action outcome back to the model. The legacy
	// "function" role tag is what the Gemini API expects for function
	// responses in replayed history.
	RoleFunction Role = "function"
)

// ToolCall is an action invocation requested by the model.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is the normalized outcome of one dispatched action, in the shape
// fed back to the model as a function response.
type ToolResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
	IsError  bool           `json:"is_error"`
}

// Turn is one unit of a conversation's ordered history: user text, model
// text, a model-requested action, or an action outcome. Turns are immutable
// once appended; their order is the model's working memory.
type Turn struct {
	Role   Role        `json:"role"`
	Text   string      `json:"text,omitempty"`
	Call   *ToolCall   `json:"call,omitempty"`
	Result *ToolResult `json:"result,omitempty"`
}

// UserTurn builds a user text turn.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// ModelTurn builds a model text turn.
func ModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Text: text}
}

// CallTurn builds a model turn carrying an action invocation.
func CallTurn(call ToolCall) Turn {
	return Turn{Role: RoleModel, Call: &call}
}

// ResultTurn builds the function-response turn for a dispatched action.
func ResultTurn(result ToolResult) Turn {
	return Turn{Role: RoleFunction, Result: &result}
}

// ArgSpec describes one argument of a tool.
type ArgSpec struct {
	Type        string
	Description string
	Required    bool
}

// ToolDefinition describes one action the model may request: a name, a
// description, and a flat argument schema. The registry of definitions is
// passed verbatim to the reasoning engine on every call.
type ToolDefinition struct {
	Name        string
	Description string
	Args        map[string]ArgSpec
}

// RequiredArgs returns the sorted names of the definition's required
// arguments.
func (d ToolDefinition) RequiredArgs() []string {
	var required []string
	for name, arg := range d.Args {
		if arg.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return required
}
