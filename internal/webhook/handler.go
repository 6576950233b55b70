// Package webhook is the transport adapter: it receives inbound Twilio
// message events, resolves the user, runs the conversational turn, delivers
// the reply, and records the turn in the conversation store.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuildWithWisdom/VentroPay/internal/conversation"
	"github.com/BuildWithWisdom/VentroPay/internal/identity"
)

const (
	typingNotice  = "VentroPay is typing..."
	fallbackReply = "Sorry, I encountered an error. Please try again."
)

// TurnRunner executes one conversational turn.
type TurnRunner interface {
	RunTurn(ctx context.Context, user *identity.User, history []conversation.Turn, message string) (string, []conversation.Turn, error)
}

// UserResolver finds or creates the user for an inbound WhatsApp address.
type UserResolver interface {
	FindOrCreateByWhatsApp(ctx context.Context, rawAddress string) (*identity.User, error)
}

// Messenger delivers outbound messages.
type Messenger interface {
	SendWhatsApp(ctx context.Context, to, body string) error
}

// AdminStore exposes the development-only user administration surface.
type AdminStore interface {
	ListUsers(ctx context.Context) ([]identity.User, error)
	DeleteAllUsers(ctx context.Context) error
}

// Handler serves the Twilio webhook and, when enabled, the admin endpoints.
type Handler struct {
	orchestrator TurnRunner
	users        UserResolver
	messenger    Messenger
	store        *conversation.Store
	admin        AdminStore
	adminEnabled bool
	logger       *zap.Logger
}

// Config wires the handler's collaborators.
type Config struct {
	Orchestrator TurnRunner
	Users        UserResolver
	Messenger    Messenger
	Store        *conversation.Store
	Admin        AdminStore
	// AdminEnabled exposes GET /auth/users and DELETE /auth/all-users.
	// Development and testing only.
	AdminEnabled bool
	Logger       *zap.Logger
}

// NewHandler creates the webhook handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		orchestrator: cfg.Orchestrator,
		users:        cfg.Users,
		messenger:    cfg.Messenger,
		store:        cfg.Store,
		admin:        cfg.Admin,
		adminEnabled: cfg.AdminEnabled,
		logger:       logger,
	}
}

// Routes builds the HTTP mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /twilio/webhook", h.handleInbound)
	if h.adminEnabled && h.admin != nil {
		mux.HandleFunc("GET /auth/users", h.handleListUsers)
		mux.HandleFunc("DELETE /auth/all-users", h.handleDeleteAllUsers)
	}
	return mux
}

// handleInbound processes one inbound message event. Twilio expects a 2xx
// regardless of what happened downstream; failures resolve to the fallback
// reply rather than an error status.
func (h *Handler) handleInbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With(zap.String("request_id", uuid.NewString()))

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	from := r.FormValue("From")
	body := strings.TrimSpace(r.FormValue("Body"))
	if from == "" {
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}
	logger = logger.With(zap.String("from", from))
	logger.Info("inbound message", zap.Int("body_len", len(body)))

	// Typing indicator before the turn starts; best effort.
	if err := h.messenger.SendWhatsApp(ctx, from, typingNotice); err != nil {
		logger.Warn("typing notice delivery failed", zap.Error(err))
	}

	user, err := h.users.FindOrCreateByWhatsApp(ctx, from)
	if err != nil {
		logger.Error("user resolution failed", zap.Error(err))
		h.deliver(ctx, logger, from, fallbackReply)
		h.ok(w)
		return
	}

	key := conversation.Key(from)
	history := h.store.History(key)

	reply, turns, err := h.orchestrator.RunTurn(ctx, user, history, body)
	if err != nil {
		// Reasoning-engine failure is fatal for the turn: nothing is
		// appended, and the user gets the fixed fallback.
		logger.Error("turn failed", zap.Error(err))
		h.deliver(ctx, logger, from, fallbackReply)
		h.ok(w)
		return
	}

	h.deliver(ctx, logger, from, reply)

	// The history is updated only after a reply has been produced. Delivery
	// failure does not roll this back.
	h.store.Append(key, turns...)

	h.ok(w)
}

// deliver sends a reply, logging rather than failing on delivery errors.
func (h *Handler) deliver(ctx context.Context, logger *zap.Logger, to, body string) {
	if err := h.messenger.SendWhatsApp(ctx, to, body); err != nil {
		logger.Error("reply delivery failed", zap.Error(err))
	}
}

func (h *Handler) ok(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("user listing failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(users)
}

func (h *Handler) handleDeleteAllUsers(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteAllUsers(r.Context()); err != nil {
		h.logger.Error("user purge failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "All users deleted successfully."})
}
