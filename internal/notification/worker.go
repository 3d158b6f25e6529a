package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"charging-kiosk-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the store the workers read and prune.
type SubscriptionStore interface {
	SubscriptionsForSlot(ctx context.Context, slot int) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Event tells subscribers that a slot's session ended.
type Event struct {
	Slot   int
	Reason string
}

// Message renders the text pushed to subscribers.
func (e Event) Message() string {
	switch e.Reason {
	case model.EndExpired:
		return fmt.Sprintf("Slot %d charging time is up", e.Slot)
	case model.EndOutOfService:
		return fmt.Sprintf("Slot %d was taken out of service", e.Slot)
	default:
		return fmt.Sprintf("Slot %d charging session has ended", e.Slot)
	}
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Event
	store   SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	logger  *slog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, store SubscriptionStore, webpushOptions *webpush.Options, logger *slog.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, size*16),
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger.With("component", "notifications"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("worker started", "worker", id)
	for {
		select {
		case ev := <-wp.jobs:
			wp.sendNotificationsForSlot(ctx, ev)
		case <-ctx.Done():
			wp.logger.Debug("worker shutting down", "worker", id)
			return
		}
	}
}

// Dispatch queues an event. It never blocks; events are dropped when the
// queue is full.
func (wp *WorkerPool) Dispatch(ev Event) {
	select {
	case wp.jobs <- ev:
	default:
		wp.logger.Warn("notification queue full, dropping event", "slot", ev.Slot, "reason", ev.Reason)
	}
}

func (wp *WorkerPool) sendNotificationsForSlot(ctx context.Context, ev Event) {
	subscriptions, err := wp.store.SubscriptionsForSlot(ctx, ev.Slot)
	if err != nil {
		wp.logger.Error("failed to fetch subscriptions", "slot", ev.Slot, "error", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	wp.logger.Info("sending notifications", "slot", ev.Slot, "count", len(subscriptions))
	payload := []byte(ev.Message())
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("failed to send notification", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	// The push service forgot this subscription.
	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("subscription expired, deleting", "endpoint", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
