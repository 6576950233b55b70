// Package config loads service configuration from a YAML file with
// environment-variable overrides for secrets and deployment knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all VentroPay configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Server      ServerConfig      `yaml:"server"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Supabase    SupabaseConfig    `yaml:"supabase"`
	Twilio      TwilioConfig      `yaml:"twilio"`
	Flutterwave FlutterwaveConfig `yaml:"flutterwave"`
}

// ServerConfig configures the webhook HTTP server.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// AdminEndpoints exposes the user list/purge HTTP surface. Development
	// and testing only.
	AdminEndpoints bool `yaml:"admin_endpoints"`
}

// GeminiConfig configures the reasoning engine.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// SupabaseConfig configures the identity store and OTP channel.
type SupabaseConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// TwilioConfig configures the WhatsApp transport.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
}

// FlutterwaveConfig configures the payment provider.
type FlutterwaveConfig struct {
	BaseURL      string `yaml:"base_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	SecretKey    string `yaml:"secret_key"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "VentroPay",
		Version: "0.1.0",

		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.5-flash",
			Timeout: "120s",
		},
		Twilio: TwilioConfig{
			From: "whatsapp:+14155238886",
		},
		Flutterwave: FlutterwaveConfig{
			BaseURL: "https://api.flutterwave.cloud/developersandbox",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults;
// environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. Secrets are
// expected to arrive this way in deployment.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		c.Supabase.BaseURL = v
	}
	if v := os.Getenv("SUPABASE_KEY"); v != "" {
		c.Supabase.APIKey = v
	}
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		c.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		c.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_WHATSAPP_FROM"); v != "" {
		c.Twilio.From = v
	}
	if v := os.Getenv("FLW_API_BASE"); v != "" {
		c.Flutterwave.BaseURL = v
	}
	if v := os.Getenv("FLW_CLIENT_ID"); v != "" {
		c.Flutterwave.ClientID = v
	}
	if v := os.Getenv("FLW_CLIENT_SECRET"); v != "" {
		c.Flutterwave.ClientSecret = v
	}
	if v := os.Getenv("FLW_SECRET_KEY"); v != "" {
		c.Flutterwave.SecretKey = v
	}
	if v := os.Getenv("VENTRO_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
}
