package onboarding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BuildWithWisdom/VentroPay/internal/conversation"
	"github.com/BuildWithWisdom/VentroPay/internal/flutterwave"
	"github.com/BuildWithWisdom/VentroPay/internal/identity"
)

// Failure reasons surfaced in outcomes. Reasons are stable identifiers, not
// user-facing text; collaborator error detail stays in the logs.
const (
	ReasonMissingArguments = "missing-arguments"
	ReasonUnknownAction    = "unknown-action"
	ReasonIdentityUpdate   = "identity-update-failed"
	ReasonOTPSend          = "otp-send-failed"
	ReasonInvalidOTP       = "invalid-otp"
	ReasonOTPVerify        = "otp-verify-failed"
	ReasonNoEmail          = "no-registered-email"
	ReasonCustomerCreate   = "customer-creation-failed"
	ReasonAccountCreate    = "account-creation-failed"
)

// Outcome is the normalized result of one dispatched action.
type Outcome struct {
	OK      bool
	Payload map[string]any
	Reason  string
}

// Response shapes the outcome for the function-response turn fed back to the
// reasoning engine.
func (o Outcome) Response() map[string]any {
	resp := map[string]any{"success": o.OK}
	if o.Reason != "" {
		resp["reason"] = o.Reason
	}
	for k, v := range o.Payload {
		resp[k] = v
	}
	return resp
}

func success(payload map[string]any) Outcome {
	return Outcome{OK: true, Payload: payload}
}

func failure(reason string) Outcome {
	return Outcome{OK: false, Reason: reason}
}

// IdentityStore is the slice of the identity collaborator the router writes
// through.
type IdentityStore interface {
	UpdateEmail(ctx context.Context, userID, email string) error
	UpdateEmailVerified(ctx context.Context, userID string, verified bool) error
	UpdateFullName(ctx context.Context, userID string, name identity.FullName) error
	UpdateCustomerID(ctx context.Context, userID, customerID string) error
	UpdateVirtualAccount(ctx context.Context, userID, accountNumber, bankName string) error
}

// OTPChannel sends and verifies email one-time passcodes.
type OTPChannel interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (bool, error)
}

// PaymentProvider provisions customers and virtual accounts.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, profile flutterwave.CustomerProfile) (*flutterwave.Customer, error)
	CreateDynamicVirtualAccount(ctx context.Context, customerID string) (*flutterwave.VirtualAccount, error)
}

// Router maps a requested action to its handler. Exactly one handler runs
// per invocation; handlers call collaborators in a fixed order and stop at
// the first failure. Completed steps are not retried or undone.
type Router struct {
	identity IdentityStore
	otp      OTPChannel
	payments PaymentProvider
	logger   *zap.Logger
}

// NewRouter creates an action router.
func NewRouter(store IdentityStore, otp OTPChannel, payments PaymentProvider, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{identity: store, otp: otp, payments: payments, logger: logger}
}

// Dispatch executes one action invocation against the user's record and
// returns the normalized outcome. Collaborator errors never escape: they are
// converted to ok:false outcomes here, with detail retained in the logs.
func (r *Router) Dispatch(ctx context.Context, user *identity.User, call conversation.ToolCall) Outcome {
	def, known := definitionByName(call.Name)
	if !known {
		// A name outside the registry is a contract violation by the
		// reasoning engine, not a user error.
		r.logger.Error("model requested unknown action",
			zap.String("action", call.Name),
			zap.String("user_id", user.ID))
		return failure(ReasonUnknownAction)
	}

	// Required arguments are checked in full before any collaborator call.
	if missing := missingRequired(def, call.Args); len(missing) > 0 {
		r.logger.Warn("model omitted required arguments",
			zap.String("action", call.Name),
			zap.Strings("missing", missing))
		return failure(ReasonMissingArguments)
	}

	switch Action(call.Name) {
	case ActionGetOnboardingStatus:
		return r.getOnboardingStatus(user)
	case ActionRegisterEmail:
		return r.registerEmail(ctx, user, stringArg(call.Args, "email"))
	case ActionVerifyEmailOTP:
		return r.verifyEmailOTP(ctx, user, stringArg(call.Args, "otp"))
	case ActionRegisterFullName:
		return r.registerFullNameAndCreateAccounts(ctx, user,
			stringArg(call.Args, "firstName"), stringArg(call.Args, "lastName"))
	}

	// Unreachable while CheckRegistry passes.
	return failure(ReasonUnknownAction)
}

// getOnboardingStatus reads the user record and reports the next onboarding
// step. Read-only.
func (r *Router) getOnboardingStatus(user *identity.User) Outcome {
	return success(map[string]any{"status": string(StatusFor(user))})
}

// registerEmail writes the email, then triggers the verification OTP. If the
// write succeeds but the send fails, the outcome is a failure and the write
// stays in place.
func (r *Router) registerEmail(ctx context.Context, user *identity.User, email string) Outcome {
	if err := r.identity.UpdateEmail(ctx, user.ID, email); err != nil {
		r.logger.Error("email update failed", zap.String("user_id", user.ID), zap.Error(err))
		return failure(ReasonIdentityUpdate)
	}
	user.Email = email

	if err := r.otp.SendOTP(ctx, email); err != nil {
		r.logger.Error("OTP send failed", zap.String("user_id", user.ID), zap.Error(err))
		return failure(ReasonOTPSend)
	}

	return success(map[string]any{"email": email, "otp_sent": true})
}

// verifyEmailOTP checks the passcode against the user's registered email and
// marks the email verified on success. A wrong or expired code is an expected
// outcome, not an incident.
func (r *Router) verifyEmailOTP(ctx context.Context, user *identity.User, code string) Outcome {
	if user.Email == "" {
		return failure(ReasonNoEmail)
	}

	valid, err := r.otp.VerifyOTP(ctx, user.Email, code)
	if err != nil {
		r.logger.Error("OTP verification failed", zap.String("user_id", user.ID), zap.Error(err))
		return failure(ReasonOTPVerify)
	}
	if !valid {
		return failure(ReasonInvalidOTP)
	}

	if err := r.identity.UpdateEmailVerified(ctx, user.ID, true); err != nil {
		r.logger.Error("verified-flag update failed", zap.String("user_id", user.ID), zap.Error(err))
		return failure(ReasonIdentityUpdate)
	}
	user.EmailVerified = true

	return success(map[string]any{"email_verified": true})
}

// registerFullNameAndCreateAccounts writes the structured name, creates the
// payment customer, persists the customer id, requests a dynamic virtual
// account, and persists its details, strictly in that order. Any step's
// failure aborts the rest; completed steps are left in place.
func (r *Router) registerFullNameAndCreateAccounts(ctx context.Context, user *identity.User, firstName, lastName string) Outcome {
	name := identity.FullName{First: firstName, Last: lastName}
	if err := r.identity.UpdateFullName(ctx, user.ID, name); err != nil {
		r.logger.Error("full-name update failed", zap.String("user_id", user.ID), zap.Error(err))
		return failure(ReasonIdentityUpdate)
	}
	user.FullName = &name

	profile := flutterwave.CustomerProfile{
		Email: user.Email,
		Name:  flutterwave.CustomerName{First: firstName, Last: lastName},
	}
	if user.PhoneNumber != nil {
		profile.Phone = flutterwave.CustomerPhone{
			CountryCode: user.PhoneNumber.Code,
			Number:      user.PhoneNumber.Number,
		}
	}

	customer, err := r.payments.CreateCustomer(ctx, profile)
	if err != nil {
		r.logger.Error("customer creation failed", zap.String("user_id", user.ID), zap.Error(err))
		return failure(ReasonCustomerCreate)
	}

	if err := r.identity.UpdateCustomerID(ctx, user.ID, customer.ID); err != nil {
		r.logger.Error("customer-id update failed", zap.String("user_id", user.ID), zap.Error(err))
		return failure(ReasonIdentityUpdate)
	}
	user.CustomerID = customer.ID

	account, err := r.payments.CreateDynamicVirtualAccount(ctx, customer.ID)
	if err != nil {
		r.logger.Error("virtual account creation failed",
			zap.String("user_id", user.ID),
			zap.String("customer_id", customer.ID),
			zap.Error(err))
		return failure(ReasonAccountCreate)
	}

	if err := r.identity.UpdateVirtualAccount(ctx, user.ID, account.AccountNumber, account.BankName); err != nil {
		r.logger.Error("virtual-account update failed", zap.String("user_id", user.ID), zap.Error(err))
		return failure(ReasonIdentityUpdate)
	}
	user.VirtualAccountNumber = account.AccountNumber
	user.VirtualBankName = account.BankName

	return success(map[string]any{
		"first_name":     firstName,
		"last_name":      lastName,
		"account_number": account.AccountNumber,
		"bank_name":      account.BankName,
	})
}

// missingRequired returns the required arguments absent from args. An
// argument present with an empty string value counts as missing.
func missingRequired(def conversation.ToolDefinition, args map[string]any) []string {
	var missing []string
	for _, name := range def.RequiredArgs() {
		if stringArg(args, name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func stringArg(args map[string]any, name string) string {
	if args == nil {
		return ""
	}
	value, ok := args[name]
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		// Models occasionally emit numeric arguments (e.g. an OTP) as JSON
		// numbers.
		return fmt.Sprint(v)
	}
}
