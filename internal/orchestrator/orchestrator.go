// Package orchestrator drives one conversational turn: reasoning call,
// optional action dispatch, and the follow-up reasoning call that phrases the
// action outcome as a reply.
package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BuildWithWisdom/VentroPay/internal/conversation"
	"github.com/BuildWithWisdom/VentroPay/internal/identity"
	"github.com/BuildWithWisdom/VentroPay/internal/llm"
	"github.com/BuildWithWisdom/VentroPay/internal/onboarding"
)

// systemInstruction frames the model's role. On the first turn of a
// conversation it is merged into the user turn rather than sent on a
// dedicated system role, for compatibility with completion APIs that ignore
// or reject a separate system channel.
const systemInstruction = `You are VentroPay, a friendly WhatsApp assistant that helps new users open their account.

Guide the user through onboarding, one step at a time:
1. Ask for their email address and register it.
2. Ask for the one-time password sent to that email and verify it.
3. Ask for their first and last name to finish creating their payment and bank accounts.

Use the provided tools whenever the user supplies an email address, a numeric code, or their name. If the user seems stuck or asks a general question, check their onboarding status first. Keep replies short and conversational; never mention tools, systems, or internal errors.`

// Fixed replies for failure paths. The model never narrates failures: the
// true cause may include sensitive collaborator detail.
const (
	actionFailedReply  = "Sorry, I couldn't complete that just now. Please try again in a moment."
	internalErrorReply = "Sorry, I encountered an error. Please try again."
)

// ActionDispatcher routes a model-requested action to its handler.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, user *identity.User, call conversation.ToolCall) onboarding.Outcome
}

// Orchestrator runs the turn-taking protocol between the chat transport, the
// reasoning engine, and the action router. It mutates no shared state: the
// caller appends the returned turns to the conversation history once the
// reply has been delivered.
type Orchestrator struct {
	client llm.Client
	router ActionDispatcher
	tools  []conversation.ToolDefinition
	logger *zap.Logger
}

// New creates an orchestrator exposing the onboarding tool registry to the
// reasoning engine.
func New(client llm.Client, router ActionDispatcher, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		client: client,
		router: router,
		tools:  onboarding.Registry(),
		logger: logger,
	}
}

// RunTurn executes one request/response cycle and returns the reply text
// plus the turns to append to the history, in order. A reasoning-engine
// failure propagates as an error and fails the whole turn; every other
// failure resolves to a fixed reply.
func (o *Orchestrator) RunTurn(ctx context.Context, user *identity.User, history []conversation.Turn, message string) (string, []conversation.Turn, error) {
	userText := message
	if len(history) == 0 {
		userText = systemInstruction + "\n\nUser message: " + message
	}
	userTurn := conversation.UserTurn(userText)

	contextTurns := make([]conversation.Turn, 0, len(history)+1)
	contextTurns = append(contextTurns, history...)
	contextTurns = append(contextTurns, userTurn)

	first, err := o.client.Complete(ctx, contextTurns, o.tools)
	if err != nil {
		return "", nil, fmt.Errorf("reasoning call failed: %w", err)
	}

	if len(first.Calls) == 0 {
		reply := first.Text
		if reply == "" {
			o.logger.Error("model returned neither text nor an action",
				zap.String("user_id", user.ID))
			reply = internalErrorReply
		}
		return reply, []conversation.Turn{userTurn, conversation.ModelTurn(reply)}, nil
	}

	// Only the first requested action is honored.
	call := first.Calls[0]
	if len(first.Calls) > 1 {
		o.logger.Warn("model requested multiple actions; honoring the first",
			zap.String("action", call.Name),
			zap.Int("requested", len(first.Calls)))
	}

	if call.Args == nil {
		// Malformed engine output: an invocation with no argument payload at
		// all. Short-circuit without touching the router.
		o.logger.Error("model emitted action without arguments",
			zap.String("action", call.Name),
			zap.String("user_id", user.ID))
		return internalErrorReply, []conversation.Turn{userTurn, conversation.ModelTurn(internalErrorReply)}, nil
	}

	o.logger.Info("dispatching action",
		zap.String("action", call.Name),
		zap.String("user_id", user.ID))

	outcome := o.router.Dispatch(ctx, user, call)
	callTurn := conversation.CallTurn(call)
	resultTurn := conversation.ResultTurn(conversation.ToolResult{
		Name:     call.Name,
		Response: outcome.Response(),
		IsError:  !outcome.OK,
	})

	if !outcome.OK {
		// No second reasoning call on failure: the model must not guess at
		// causes it cannot see.
		o.logger.Warn("action failed",
			zap.String("action", call.Name),
			zap.String("reason", outcome.Reason),
			zap.String("user_id", user.ID))
		return actionFailedReply, []conversation.Turn{
			userTurn, callTurn, resultTurn, conversation.ModelTurn(actionFailedReply),
		}, nil
	}

	followUp := make([]conversation.Turn, 0, len(contextTurns)+2)
	followUp = append(followUp, contextTurns...)
	followUp = append(followUp, callTurn, resultTurn)

	second, err := o.client.Complete(ctx, followUp, o.tools)
	if err != nil {
		return "", nil, fmt.Errorf("reasoning call failed: %w", err)
	}

	reply := second.Text
	if reply == "" {
		o.logger.Error("model returned no text for action outcome",
			zap.String("action", call.Name))
		reply = internalErrorReply
	}

	return reply, []conversation.Turn{
		userTurn, callTurn, resultTurn, conversation.ModelTurn(reply),
	}, nil
}
