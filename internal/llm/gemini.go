package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/BuildWithWisdom/VentroPay/internal/conversation"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiClient implements Client on the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Complete sends the conversation and tool declarations to Gemini and parses
// the response into text and requested tool calls.
func (c *GeminiClient) Complete(ctx context.Context, turns []conversation.Turn, tools []conversation.ToolDefinition) (*Result, error) {
	// Auto-apply timeout if the context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()

	contents := contentsFromTurns(turns)
	if len(contents) == 0 {
		return nil, fmt.Errorf("empty conversation")
	}

	var config *genai.GenerateContentConfig
	if len(tools) > 0 {
		config = &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{FunctionDeclarations: declarationsFromTools(tools)}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini completion failed: %w", err)
	}

	result := &Result{}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var text strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				result.Calls = append(result.Calls, conversation.ToolCall{
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				})
			}
		}
		result.Text = strings.TrimSpace(text.String())
	}

	c.logger.Debug("gemini completion",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("turns", len(turns)),
		zap.Int("text_len", len(result.Text)),
		zap.Int("tool_calls", len(result.Calls)))

	return result, nil
}

// contentsFromTurns maps domain turns to the Gemini wire shape. Model turns
// carrying a call become functionCall parts; function-role turns become
// functionResponse parts.
func contentsFromTurns(turns []conversation.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case conversation.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: t.Text}},
			})
		case conversation.RoleModel:
			part := &genai.Part{}
			if t.Call != nil {
				part.FunctionCall = &genai.FunctionCall{Name: t.Call.Name, Args: t.Call.Args}
			} else {
				part.Text = t.Text
			}
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{part},
			})
		case conversation.RoleFunction:
			if t.Result == nil {
				continue
			}
			contents = append(contents, &genai.Content{
				Role: string(conversation.RoleFunction),
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     t.Result.Name,
						Response: t.Result.Response,
					},
				}},
			})
		}
	}
	return contents
}

// declarationsFromTools converts the registry's flat argument schemas to
// Gemini function declarations.
func declarationsFromTools(tools []conversation.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, tool := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
		}
		if len(tool.Args) > 0 {
			properties := make(map[string]*genai.Schema, len(tool.Args))
			for name, arg := range tool.Args {
				properties[name] = &genai.Schema{
					Type:        schemaType(arg.Type),
					Description: arg.Description,
				}
			}
			decl.Parameters = &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   tool.RequiredArgs(),
			}
		}
		decls[i] = decl
	}
	return decls
}

func schemaType(t string) genai.Type {
	switch t {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
