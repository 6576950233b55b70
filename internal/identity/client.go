package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"
)

// Config holds configuration for the Supabase client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the Supabase REST surface (PostgREST for the users table,
// GoTrue for the OTP channel).
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("supabase base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// FindOrCreateByWhatsApp resolves the user record for a raw WhatsApp address
// ("whatsapp:+2349064265399"), creating it on first contact. The number is
// validated and normalized to E.164 before lookup.
func (c *Client) FindOrCreateByWhatsApp(ctx context.Context, rawAddress string) (*User, error) {
	e164 := strings.TrimPrefix(strings.TrimSpace(rawAddress), "whatsapp:")

	parsed, err := phonenumbers.Parse(e164, "")
	if err != nil {
		return nil, fmt.Errorf("invalid phone number %q: %w", rawAddress, err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return nil, fmt.Errorf("invalid phone number %q", rawAddress)
	}
	e164 = phonenumbers.Format(parsed, phonenumbers.E164)

	user, err := c.findByPhone(ctx, e164)
	if err != nil {
		return nil, err
	}
	if user != nil {
		c.logger.Debug("found existing user", zap.String("user_id", user.ID))
		return user, nil
	}

	structured := &StructuredPhone{
		Code:   fmt.Sprintf("+%d", parsed.GetCountryCode()),
		Number: phonenumbers.GetNationalSignificantNumber(parsed),
	}
	created, err := c.createUser(ctx, e164, structured)
	if err != nil {
		return nil, err
	}
	c.logger.Info("created user", zap.String("user_id", created.ID))
	return created, nil
}

func (c *Client) findByPhone(ctx context.Context, e164 string) (*User, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/users?select=*&phone_number_text=eq.%s",
		c.baseURL, url.QueryEscape(e164))

	body, err := c.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("error finding user: %w", err)
	}

	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("failed to parse user lookup response: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (c *Client) createUser(ctx context.Context, e164 string, phone *StructuredPhone) (*User, error) {
	payload := []map[string]any{{
		"phone_number_text": e164,
		"phone_number":      phone,
	}}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/rest/v1/users", payload,
		map[string]string{"Prefer": "return=representation"})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("failed to parse created user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user insert returned no rows")
	}
	return &users[0], nil
}

// UpdateEmail writes the user's email address.
func (c *Client) UpdateEmail(ctx context.Context, userID, email string) error {
	return c.updateUser(ctx, userID, map[string]any{"email": email})
}

// UpdateEmailVerified writes the user's email verification flag.
func (c *Client) UpdateEmailVerified(ctx context.Context, userID string, verified bool) error {
	return c.updateUser(ctx, userID, map[string]any{"email_verified": verified})
}

// UpdateFullName writes the user's structured full name.
func (c *Client) UpdateFullName(ctx context.Context, userID string, name FullName) error {
	return c.updateUser(ctx, userID, map[string]any{"full_name": name})
}

// UpdateCustomerID persists the payment-provider customer id.
func (c *Client) UpdateCustomerID(ctx context.Context, userID, customerID string) error {
	return c.updateUser(ctx, userID, map[string]any{"flutterwave_customer_id": customerID})
}

// UpdateVirtualAccount persists the user's virtual account details.
func (c *Client) UpdateVirtualAccount(ctx context.Context, userID, accountNumber, bankName string) error {
	return c.updateUser(ctx, userID, map[string]any{
		"flutterwave_virtual_account_number": accountNumber,
		"flutterwave_virtual_bank_name":      bankName,
	})
}

// UpdateNIN persists the user's national identification number.
func (c *Client) UpdateNIN(ctx context.Context, userID, nin string) error {
	return c.updateUser(ctx, userID, map[string]any{"nin": nin})
}

func (c *Client) updateUser(ctx context.Context, userID string, fields map[string]any) error {
	endpoint := fmt.Sprintf("%s/rest/v1/users?id=eq.%s", c.baseURL, url.QueryEscape(userID))
	if _, err := c.do(ctx, http.MethodPatch, endpoint, fields, nil); err != nil {
		return fmt.Errorf("could not update user %s: %w", userID, err)
	}
	return nil
}

// ListUsers fetches all user records. Development and admin tooling only.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/rest/v1/users?select=*", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching users: %w", err)
	}

	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users: %w", err)
	}
	return users, nil
}

// DeleteAllUsers removes every user record. Development and testing only; it
// permanently deletes all rows in the users table.
func (c *Client) DeleteAllUsers(ctx context.Context) error {
	endpoint := c.baseURL + "/rest/v1/users?id=not.is.null"
	if _, err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("error deleting all users: %w", err)
	}
	c.logger.Warn("deleted all users")
	return nil
}

// do performs one authenticated Supabase request and returns the response
// body. Non-2xx statuses become errors carrying the status and trimmed body.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// apiError is a non-2xx response from the Supabase surface.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("supabase request failed with status %d: %s", e.Status, e.Body)
}
