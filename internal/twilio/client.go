// Package twilio delivers WhatsApp messages through the Twilio Messages API.
package twilio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.twilio.com"

// Config holds configuration for the Twilio client.
type Config struct {
	AccountSID string
	AuthToken  string
	// From is the WhatsApp sender address, e.g. "whatsapp:+14155238886".
	From    string
	BaseURL string
	Timeout time.Duration
}

// Client sends outbound messages. Delivery is fire-and-forget from the
// orchestrator's perspective: a failure here never rolls back state changes
// already made during the turn.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Twilio client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio account SID and auth token are required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("twilio WhatsApp sender address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// SendWhatsApp delivers body to a WhatsApp address ("whatsapp:+234...").
func (c *Client) SendWhatsApp(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("From", c.cfg.From)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		c.cfg.BaseURL, url.PathEscape(c.cfg.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twilio send failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	c.logger.Debug("delivered message", zap.String("to", to), zap.Int("body_len", len(body)))
	return nil
}
