package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// SendOTP asks the auth service to email a one-time passcode to the address.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	payload := map[string]any{
		"email":       email,
		"create_user": true,
	}
	if _, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/otp", payload, nil); err != nil {
		return fmt.Errorf("could not send OTP: %w", err)
	}
	c.logger.Debug("sent OTP", zap.String("email", email))
	return nil
}

// VerifyOTP checks a one-time passcode against the address it was sent to.
// A wrong or expired code returns (false, nil): that is an expected outcome
// of normal usage, not a collaborator failure.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (bool, error) {
	payload := map[string]any{
		"type":  "email",
		"email": email,
		"token": code,
	}

	_, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/v1/verify", payload, nil)
	if err == nil {
		return true, nil
	}

	// The verify endpoint rejects a bad or expired code with a 4xx. Anything
	// else is a collaborator failure and surfaces as an error.
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		c.logger.Debug("OTP rejected", zap.String("email", email), zap.Int("status", apiErr.Status))
		return false, nil
	}
	return false, fmt.Errorf("could not verify OTP: %w", err)
}
