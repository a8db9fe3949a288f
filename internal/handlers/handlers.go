package handlers

import (
	"context"

	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
	"github.com/coalharbourgroup/PM-email-vcs/internal/reconcile"
	"github.com/coalharbourgroup/PM-email-vcs/internal/validation"
)

// Lister lists every file of the template repository
type Lister interface {
	ListFiles(ctx context.Context, dir string) ([]string, error)
}

// Syncer reconciles a batch of repository paths into an outcome
type Syncer interface {
	Sync(ctx context.Context, paths []string, out *reconcile.Outcome) error
}

// Notifier reports the outcome of a sync run
type Notifier interface {
	Notify(ctx context.Context, sum reconcile.Summary) (string, error)
}

// DeliveryStore keeps the ledger of processed webhook deliveries
type DeliveryStore interface {
	Record(ctx context.Context, d models.Delivery) error
	Recent(ctx context.Context, limit int) ([]models.Delivery, error)
}

// ChatStatus reports whether the chat channel is online
type ChatStatus interface {
	IsConnected() bool
}

// Config holds the webhook settings
type Config struct {
	// WebhookSecret signs deliveries; empty rejects every delivery
	WebhookSecret string
	// Branch is the only branch whose pushes are synced
	Branch string
}

// Handler contains HTTP handlers
type Handler struct {
	cfg        Config
	lister     Lister
	syncer     Syncer
	notifier   Notifier
	deliveries DeliveryStore
	chat       ChatStatus
	validator  *validation.Validator
	log        *logger.Logger
}

// New creates a new handler instance
func New(cfg Config, lister Lister, syncer Syncer, notifier Notifier, log *logger.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		lister:    lister,
		syncer:    syncer,
		notifier:  notifier,
		validator: validation.New(),
		log:       log.Component("webhook"),
	}
}

// WithDeliveries enables the deliveries ledger
func (h *Handler) WithDeliveries(store DeliveryStore) *Handler {
	h.deliveries = store
	return h
}

// WithChat exposes the chat channel state on the health endpoint
func (h *Handler) WithChat(chat ChatStatus) *Handler {
	h.chat = chat
	return h
}
