package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/BuildWithWisdom/VentroPay/internal/conversation"
	"github.com/BuildWithWisdom/VentroPay/internal/identity"
	"github.com/BuildWithWisdom/VentroPay/internal/llm"
	"github.com/BuildWithWisdom/VentroPay/internal/onboarding"
)

func TestMain(m *testing.M) {
	// opencensus (a transitive dependency of google.golang.org/genai) starts
	// this worker goroutine in its package init; it is not stoppable and is
	// unrelated to the code under test.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// scriptedClient returns one queued result per Complete call, recording the
// turns each call saw.
type scriptedClient struct {
	results []*llm.Result
	errs    []error
	seen    [][]conversation.Turn
}

func (c *scriptedClient) Complete(_ context.Context, turns []conversation.Turn, _ []conversation.ToolDefinition) (*llm.Result, error) {
	call := len(c.seen)
	c.seen = append(c.seen, append([]conversation.Turn(nil), turns...))
	if call < len(c.errs) && c.errs[call] != nil {
		return nil, c.errs[call]
	}
	if call < len(c.results) {
		return c.results[call], nil
	}
	return &llm.Result{}, nil
}

type recordingDispatcher struct {
	outcome onboarding.Outcome
	calls   []conversation.ToolCall
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ *identity.User, call conversation.ToolCall) onboarding.Outcome {
	d.calls = append(d.calls, call)
	return d.outcome
}

func testUser() *identity.User {
	return &identity.User{ID: "u1", PhoneNumberText: "+2348012345678"}
}

func TestRunTurn_DirectReply(t *testing.T) {
	client := &scriptedClient{results: []*llm.Result{{Text: "Hi! What's your email?"}}}
	dispatcher := &recordingDispatcher{}
	orch := New(client, dispatcher, nil)

	history := []conversation.Turn{
		conversation.UserTurn("hello"),
		conversation.ModelTurn("welcome"),
	}
	reply, turns, err := orch.RunTurn(context.Background(), testUser(), history, "hi")

	require.NoError(t, err)
	assert.Equal(t, "Hi! What's your email?", reply)
	require.Len(t, turns, 2)
	assert.Equal(t, conversation.RoleUser, turns[0].Role)
	assert.Equal(t, "hi", turns[0].Text, "instruction is not merged mid-conversation")
	assert.Equal(t, conversation.RoleModel, turns[1].Role)
	assert.Equal(t, reply, turns[1].Text)
	assert.Empty(t, dispatcher.calls)
}

func TestRunTurn_FirstTurnMergesInstruction(t *testing.T) {
	client := &scriptedClient{results: []*llm.Result{{Text: "Welcome!"}}}
	orch := New(client, &recordingDispatcher{}, nil)

	_, turns, err := orch.RunTurn(context.Background(), testUser(), nil, "hello")

	require.NoError(t, err)
	require.Len(t, client.seen, 1)
	require.Len(t, client.seen[0], 1)

	sent := client.seen[0][0].Text
	assert.True(t, strings.HasSuffix(sent, "User message: hello"))
	assert.Contains(t, sent, "VentroPay")
	// The merged form is what gets recorded, so replays see the same context.
	assert.Equal(t, sent, turns[0].Text)
}

func TestRunTurn_ActionSuccess(t *testing.T) {
	client := &scriptedClient{results: []*llm.Result{
		{Calls: []conversation.ToolCall{{
			Name: "registerEmail",
			Args: map[string]any{"email": "ada@example.com"},
		}}},
		{Text: "Done! Check your inbox for the code."},
	}}
	dispatcher := &recordingDispatcher{outcome: onboarding.Outcome{
		OK:      true,
		Payload: map[string]any{"email": "ada@example.com", "otp_sent": true},
	}}
	orch := New(client, dispatcher, nil)

	history := []conversation.Turn{conversation.UserTurn("x"), conversation.ModelTurn("y")}
	reply, turns, err := orch.RunTurn(context.Background(), testUser(), history, "my email is ada@example.com")

	require.NoError(t, err)
	assert.Equal(t, "Done! Check your inbox for the code.", reply)
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, "registerEmail", dispatcher.calls[0].Name)

	require.Len(t, turns, 4)
	assert.Equal(t, conversation.RoleUser, turns[0].Role)
	assert.Equal(t, conversation.RoleModel, turns[1].Role)
	require.NotNil(t, turns[1].Call)
	assert.Equal(t, "registerEmail", turns[1].Call.Name)
	assert.Equal(t, conversation.RoleFunction, turns[2].Role)
	require.NotNil(t, turns[2].Result)
	assert.Equal(t, true, turns[2].Result.Response["success"])
	assert.False(t, turns[2].Result.IsError)
	assert.Equal(t, reply, turns[3].Text)

	// The second reasoning call sees the full context plus the call and
	// result turns.
	require.Len(t, client.seen, 2)
	second := client.seen[1]
	require.Len(t, second, 5)
	assert.NotNil(t, second[3].Call)
	assert.NotNil(t, second[4].Result)
}

func TestRunTurn_ActionFailure_NoSecondCall(t *testing.T) {
	client := &scriptedClient{results: []*llm.Result{
		{Calls: []conversation.ToolCall{{
			Name: "verifyEmailOtp",
			Args: map[string]any{"otp": "000000"},
		}}},
	}}
	dispatcher := &recordingDispatcher{outcome: onboarding.Outcome{
		OK: false, Reason: onboarding.ReasonInvalidOTP,
	}}
	orch := New(client, dispatcher, nil)

	reply, turns, err := orch.RunTurn(context.Background(), testUser(),
		[]conversation.Turn{conversation.UserTurn("x")}, "000000")

	require.NoError(t, err)
	assert.Equal(t, actionFailedReply, reply)
	assert.Len(t, client.seen, 1, "no follow-up reasoning call on failure")

	require.Len(t, turns, 4)
	assert.Equal(t, conversation.RoleFunction, turns[2].Role)
	assert.True(t, turns[2].Result.IsError)
	assert.Equal(t, false, turns[2].Result.Response["success"])
	assert.Equal(t, "invalid-otp", turns[2].Result.Response["reason"])
	assert.Equal(t, actionFailedReply, turns[3].Text)
}

func TestRunTurn_NilArgs_ShortCircuits(t *testing.T) {
	client := &scriptedClient{results: []*llm.Result{
		{Calls: []conversation.ToolCall{{Name: "registerEmail"}}},
	}}
	dispatcher := &recordingDispatcher{}
	orch := New(client, dispatcher, nil)

	reply, turns, err := orch.RunTurn(context.Background(), testUser(),
		[]conversation.Turn{conversation.UserTurn("x")}, "hi")

	require.NoError(t, err)
	assert.Equal(t, internalErrorReply, reply)
	assert.Empty(t, dispatcher.calls, "router must not run for a call without arguments")
	require.Len(t, turns, 2)
	assert.Nil(t, turns[1].Call)
}

func TestRunTurn_OnlyFirstCallHonored(t *testing.T) {
	client := &scriptedClient{results: []*llm.Result{
		{Calls: []conversation.ToolCall{
			{Name: "registerEmail", Args: map[string]any{"email": "a@b.c"}},
			{Name: "getOnboardingStatus", Args: map[string]any{}},
		}},
		{Text: "ok"},
	}}
	dispatcher := &recordingDispatcher{outcome: onboarding.Outcome{OK: true}}
	orch := New(client, dispatcher, nil)

	_, _, err := orch.RunTurn(context.Background(), testUser(),
		[]conversation.Turn{conversation.UserTurn("x")}, "hi")

	require.NoError(t, err)
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, "registerEmail", dispatcher.calls[0].Name)
}

func TestRunTurn_EngineErrorPropagates(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("quota exceeded")}}
	orch := New(client, &recordingDispatcher{}, nil)

	_, turns, err := orch.RunTurn(context.Background(), testUser(), nil, "hi")

	require.Error(t, err)
	assert.Nil(t, turns, "a failed turn leaves nothing to append")
}

func TestRunTurn_SecondEngineErrorPropagates(t *testing.T) {
	client := &scriptedClient{
		results: []*llm.Result{
			{Calls: []conversation.ToolCall{{Name: "getOnboardingStatus", Args: map[string]any{}}}},
		},
		errs: []error{nil, errors.New("quota exceeded")},
	}
	dispatcher := &recordingDispatcher{outcome: onboarding.Outcome{OK: true}}
	orch := New(client, dispatcher, nil)

	_, turns, err := orch.RunTurn(context.Background(), testUser(), nil, "hi")

	require.Error(t, err)
	assert.Nil(t, turns)
	// The action itself already ran; its effects are not undone.
	assert.Len(t, dispatcher.calls, 1)
}

func TestRunTurn_EmptyFirstReply_FallsBack(t *testing.T) {
	client := &scriptedClient{results: []*llm.Result{{}}}
	dispatcher := &recordingDispatcher{}
	orch := New(client, dispatcher, nil)

	reply, turns, err := orch.RunTurn(context.Background(), testUser(), nil, "hi")

	require.NoError(t, err)
	assert.Equal(t, internalErrorReply, reply)
	assert.Empty(t, dispatcher.calls)
	// The recorded model turn carries the fallback, never an empty body.
	require.Len(t, turns, 2)
	assert.Equal(t, internalErrorReply, turns[1].Text)
}

func TestRunTurn_EmptySecondReply_FallsBack(t *testing.T) {
	client := &scriptedClient{results: []*llm.Result{
		{Calls: []conversation.ToolCall{{Name: "getOnboardingStatus", Args: map[string]any{}}}},
		{Text: ""},
	}}
	dispatcher := &recordingDispatcher{outcome: onboarding.Outcome{OK: true}}
	orch := New(client, dispatcher, nil)

	reply, turns, err := orch.RunTurn(context.Background(), testUser(), nil, "hi")

	require.NoError(t, err)
	assert.Equal(t, internalErrorReply, reply)
	require.Len(t, turns, 4)
	assert.Equal(t, internalErrorReply, turns[3].Text)
}
