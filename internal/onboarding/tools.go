// Package onboarding defines the closed set of actions the reasoning engine
// may request during user onboarding, and the router that executes them
// against the identity and payment collaborators.
package onboarding

import (
	"fmt"

	"github.com/BuildWithWisdom/VentroPay/internal/conversation"
)

// Action names the closed set of dispatchable onboarding actions.
type Action string

const (
	ActionGetOnboardingStatus Action = "getOnboardingStatus"
	ActionRegisterEmail       Action = "registerEmail"
	ActionVerifyEmailOTP      Action = "verifyEmailOtp"
	ActionRegisterFullName    Action = "registerFullNameAndCreateAccounts"
)

// actions is the dispatch table's vocabulary. Registry() and the router's
// switch must stay in lock-step with it; CheckRegistry verifies that at
// startup.
var actions = []Action{
	ActionGetOnboardingStatus,
	ActionRegisterEmail,
	ActionVerifyEmailOTP,
	ActionRegisterFullName,
}

// Registry returns the tool declarations exposed to the reasoning engine on
// every completion call.
func Registry() []conversation.ToolDefinition {
	return []conversation.ToolDefinition{
		{
			Name: string(ActionGetOnboardingStatus),
			Description: "Checks the user's current onboarding status to see what the next step is. " +
				"Use this to guide the user if they seem stuck or are asking general questions.",
		},
		{
			Name: string(ActionRegisterEmail),
			Description: "Saves the user's email address and sends a verification OTP. " +
				"Use this when the user provides their email address.",
			Args: map[string]conversation.ArgSpec{
				"email": {
					Type:        "string",
					Description: "The email address of the user. e.g. user@gmail.com",
					Required:    true,
				},
			},
		},
		{
			Name: string(ActionVerifyEmailOTP),
			Description: "Verifies the user's email using the provided One-Time Password. " +
				"Use this when the user provides a numeric code.",
			Args: map[string]conversation.ArgSpec{
				"otp": {
					Type:        "string",
					Description: "The 6-digit One-Time Password sent to the user's email.",
					Required:    true,
				},
			},
		},
		{
			Name: string(ActionRegisterFullName),
			Description: "Saves the user's full name and completes the account setup by creating " +
				"payment and bank accounts. Use this when the user provides their first and last name.",
			Args: map[string]conversation.ArgSpec{
				"firstName": {
					Type:        "string",
					Description: "The user's first name.",
					Required:    true,
				},
				"lastName": {
					Type:        "string",
					Description: "The user's last name.",
					Required:    true,
				},
			},
		},
	}
}

// definitionByName looks a tool up in the registry.
func definitionByName(name string) (conversation.ToolDefinition, bool) {
	for _, def := range Registry() {
		if def.Name == name {
			return def, true
		}
	}
	return conversation.ToolDefinition{}, false
}

// CheckRegistry verifies that the registry and the dispatch table cover the
// same action set. A schema entry without a handler, or a handler without a
// schema entry, is a configuration error detectable at startup.
func CheckRegistry() error {
	registered := make(map[string]bool, len(Registry()))
	for _, def := range Registry() {
		registered[def.Name] = true
	}

	dispatchable := make(map[string]bool, len(actions))
	for _, action := range actions {
		dispatchable[string(action)] = true
	}

	for name := range registered {
		if !dispatchable[name] {
			return fmt.Errorf("tool %q has a schema entry but no handler", name)
		}
	}
	for name := range dispatchable {
		if !registered[name] {
			return fmt.Errorf("action %q has a handler but no schema entry", name)
		}
	}
	return nil
}
