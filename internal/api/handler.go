package api

import (
	"context"
	"log/slog"

	"github.com/SherClockHolmes/webpush-go"

	"charging-kiosk-backend/internal/gateway"
	"charging-kiosk-backend/internal/kiosk"
	"charging-kiosk-backend/internal/slot"
	"charging-kiosk-backend/internal/store"
)

// HealthChecker reports the device gateway's health.
type HealthChecker interface {
	Health(ctx context.Context) (gateway.HealthStatus, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	kiosk   *kiosk.Service
	store   store.Store
	health  HealthChecker
	webpush *webpush.Options
	logger  *slog.Logger
}

// NewHandler creates a new API handler. health may be nil.
func NewHandler(k *kiosk.Service, s store.Store, health HealthChecker, webpushOptions *webpush.Options, logger *slog.Logger) *Handler {
	return &Handler{
		kiosk:   k,
		store:   s,
		health:  health,
		webpush: webpushOptions,
		logger:  logger.With("component", "api"),
	}
}

func (h *Handler) slots() *slot.Orchestrator {
	return h.kiosk.Slots()
}
