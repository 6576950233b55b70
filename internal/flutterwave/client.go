// Package flutterwave is the client for the payment and account provisioning
// collaborator: customers and dynamic virtual accounts.
package flutterwave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL  = "https://api.flutterwave.cloud/developersandbox"
	defaultTokenURL = "https://idp.flutterwave.com/realms/flutterwave/protocol/openid-connect/token"

	// Fixed convention for onboarding virtual accounts.
	accountExpirySeconds = 3600
	accountAmount        = 100
	accountCurrency      = "NGN"
	accountType          = "dynamic"
	accountNarration     = "VentroPay wallet funding"
)

// Config holds configuration for the Flutterwave client. OAuth client
// credentials are preferred; SecretKey is a static bearer fallback.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	SecretKey    string
	Timeout      time.Duration
}

// Client talks to the Flutterwave v4 sandbox API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	tokenGroup  singleflight.Group
}

// NewClient creates a Flutterwave client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if (cfg.ClientID == "" || cfg.ClientSecret == "") && cfg.SecretKey == "" {
		return nil, fmt.Errorf("flutterwave credentials not configured: set client id and secret, or a secret key")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// accessToken returns a bearer token, reusing the cached OAuth token until
// shortly before expiry. Concurrent refreshes collapse into one request.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return c.cfg.SecretKey, nil
	}

	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-5*time.Second)) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	token, err, _ := c.tokenGroup.Do("token", func() (any, error) {
		return c.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("no access_token in token response")
	}
	if payload.ExpiresIn <= 0 {
		payload.ExpiresIn = 600
	}

	c.mu.Lock()
	c.token = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	c.mu.Unlock()

	c.logger.Debug("refreshed flutterwave token", zap.Int("expires_in", payload.ExpiresIn))
	return payload.AccessToken, nil
}

// CreateCustomer registers a customer with the provider and returns the
// created record, including the provider-assigned id.
func (c *Client) CreateCustomer(ctx context.Context, profile CustomerProfile) (*Customer, error) {
	if profile.Email == "" || profile.Name.First == "" || profile.Phone.Number == "" {
		return nil, fmt.Errorf("customer profile requires email, name and phone")
	}

	var out envelope[Customer]
	if err := c.do(ctx, http.MethodPost, "/customers", profile, &out); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &out.Data, nil
}

// UpdateCustomer replaces a customer's profile.
func (c *Client) UpdateCustomer(ctx context.Context, customerID string, profile CustomerProfile) (*Customer, error) {
	var out envelope[Customer]
	if err := c.do(ctx, http.MethodPut, "/customers/"+url.PathEscape(customerID), profile, &out); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return &out.Data, nil
}

// GetCustomer fetches a customer by id.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var out envelope[Customer]
	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(customerID), nil, &out); err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &out.Data, nil
}

// ListCustomers fetches the first page of customers.
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var out envelope[[]Customer]
	if err := c.do(ctx, http.MethodGet, "/customers?page=1&size=10", nil, &out); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out.Data, nil
}

// CreateDynamicVirtualAccount requests a dynamic virtual account for the
// customer under the fixed onboarding expiry/amount/currency/narration
// convention.
func (c *Client) CreateDynamicVirtualAccount(ctx context.Context, customerID string) (*VirtualAccount, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customer id is required")
	}

	payload := map[string]any{
		"reference":    "vp_" + uuid.NewString(),
		"customer_id":  customerID,
		"expiry":       accountExpirySeconds,
		"amount":       accountAmount,
		"currency":     accountCurrency,
		"account_type": accountType,
		"narration":    accountNarration,
	}

	var out envelope[VirtualAccount]
	if err := c.do(ctx, http.MethodPost, "/virtual-accounts", payload, &out); err != nil {
		return nil, fmt.Errorf("create virtual account: %w", err)
	}
	return &out.Data, nil
}

// do performs one authenticated API request, decoding the standard response
// envelope into out.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Raw provider error JSON stays in the error for diagnostics; the
		// action router keeps it out of user-facing replies.
		c.logger.Error("flutterwave request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", strings.TrimSpace(string(body))))
		return fmt.Errorf("flutterwave request failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
