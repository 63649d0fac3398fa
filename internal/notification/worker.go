package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/store"
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

type job struct {
	recipientID string
	event       Event
}

// WorkerPool delivers events as web push messages to every subscription
// registered by the recipient.
type WorkerPool struct {
	size    int
	jobs    chan job
	store   store.SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size, queueSize int, s store.SubscriptionStore, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if queueSize < size {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan job, queueSize),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger.Named("webpush"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("worker started", zap.Int("worker", id))
	for {
		select {
		case j := <-wp.jobs:
			wp.sendNotificationsForRecipient(ctx, j.recipientID, j.event)
		case <-ctx.Done():
			wp.logger.Debug("worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Notify enqueues an event. It never blocks: when the queue is full the
// event is dropped and logged.
func (wp *WorkerPool) Notify(_ context.Context, recipientID string, ev Event) {
	select {
	case wp.jobs <- job{recipientID: recipientID, event: ev}:
	default:
		wp.logger.Warn("notification queue full, dropping event",
			zap.String("recipient", recipientID),
			zap.String("event", string(ev.Type)))
	}
}

func (wp *WorkerPool) sendNotificationsForRecipient(ctx context.Context, recipientID string, ev Event) {
	subscriptions, err := wp.store.ListSubscriptionsByRecipient(ctx, recipientID)
	if err != nil {
		wp.logger.Error("failed to fetch subscriptions", zap.String("recipient", recipientID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		wp.logger.Error("failed to encode event", zap.Error(err))
		return
	}

	wp.logger.Debug("sending notifications",
		zap.String("recipient", recipientID),
		zap.String("event", string(ev.Type)),
		zap.Int("subscriptions", len(subscriptions)))
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
		wp.logger.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
