package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Enqueuer submits stored notifications for asynchronous delivery.
// Implemented by the jobs package Asynq client.
type Enqueuer interface {
	EnqueueNotifyDeliver(ctx context.Context, notificationID uuid.UUID) error
}

// Dispatcher persists a notification row and hands delivery to the
// background queue. Dispatch is fire-and-forget: every failure is logged
// and swallowed, because notifications are side effects of state changes
// that have already committed and must never make those changes appear to
// have failed.
type Dispatcher struct {
	repo     Repository
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(repo Repository, enqueuer Enqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, enqueuer: enqueuer, logger: logger}
}

// Send stores and enqueues one notification.
func (d *Dispatcher) Send(ctx context.Context, msg Message) {
	if d == nil {
		return
	}
	if len(msg.RecipientIDs) == 0 {
		d.logger.Warn("notify: dropping message without recipients", slog.String("kind", string(msg.Kind)))
		return
	}
	if msg.DeliveryMode == "" {
		msg.DeliveryMode = ModePush
	}

	stored, err := d.repo.Insert(ctx, Notification{
		RecipientIDs:    msg.RecipientIDs,
		Kind:            msg.Kind,
		DeliveryMode:    msg.DeliveryMode,
		Title:           msg.Title,
		Body:            msg.Body,
		RelatedEntityID: msg.RelatedEntityID,
	})
	if err != nil {
		d.logger.Error("notify: store notification", slog.String("kind", string(msg.Kind)), slog.Any("error", err))
		return
	}

	if d.enqueuer == nil {
		return
	}
	if err := d.enqueuer.EnqueueNotifyDeliver(ctx, stored.ID); err != nil {
		d.logger.Error("notify: enqueue delivery", slog.String("id", stored.ID.String()), slog.Any("error", err))
	}
}
