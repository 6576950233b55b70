package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BuildWithWisdom/VentroPay/internal/config"
	"github.com/BuildWithWisdom/VentroPay/internal/conversation"
	"github.com/BuildWithWisdom/VentroPay/internal/flutterwave"
	"github.com/BuildWithWisdom/VentroPay/internal/identity"
	"github.com/BuildWithWisdom/VentroPay/internal/llm"
	"github.com/BuildWithWisdom/VentroPay/internal/onboarding"
	"github.com/BuildWithWisdom/VentroPay/internal/orchestrator"
	"github.com/BuildWithWisdom/VentroPay/internal/twilio"
	"github.com/BuildWithWisdom/VentroPay/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Twilio webhook server",
	Long: `Starts the HTTP server that receives inbound WhatsApp messages and
drives the onboarding conversation. Shuts down gracefully on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// A schema entry without a handler (or the reverse) is a configuration
	// error; refuse to start.
	if err := onboarding.CheckRegistry(); err != nil {
		return fmt.Errorf("tool registry check failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	geminiTimeout, err := time.ParseDuration(cfg.Gemini.Timeout)
	if err != nil {
		return fmt.Errorf("invalid gemini timeout: %w", err)
	}

	reasoner, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		Timeout: geminiTimeout,
	}, logger.Named("gemini"))
	if err != nil {
		return err
	}

	users, err := identity.NewClient(identity.Config{
		BaseURL: cfg.Supabase.BaseURL,
		APIKey:  cfg.Supabase.APIKey,
	}, logger.Named("identity"))
	if err != nil {
		return err
	}

	payments, err := flutterwave.NewClient(flutterwave.Config{
		BaseURL:      cfg.Flutterwave.BaseURL,
		ClientID:     cfg.Flutterwave.ClientID,
		ClientSecret: cfg.Flutterwave.ClientSecret,
		SecretKey:    cfg.Flutterwave.SecretKey,
	}, logger.Named("flutterwave"))
	if err != nil {
		return err
	}

	messenger, err := twilio.NewClient(twilio.Config{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		From:       cfg.Twilio.From,
	}, logger.Named("twilio"))
	if err != nil {
		return err
	}

	router := onboarding.NewRouter(users, users, payments, logger.Named("router"))
	turns := orchestrator.New(reasoner, router, logger.Named("orchestrator"))

	handler := webhook.NewHandler(webhook.Config{
		Orchestrator: turns,
		Users:        users,
		Messenger:    messenger,
		Store:        conversation.NewStore(),
		Admin:        users,
		AdminEnabled: cfg.Server.AdminEndpoints,
		Logger:       logger.Named("webhook"),
	})

	server := webhook.NewServer(cfg.Server.ListenAddr, handler, logger)
	return server.Run(ctx)
}
