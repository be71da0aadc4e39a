package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-hr/meridian-hr/internal/notify"
)

// NotifyDeliverJob delivers stored notifications out of band.
type NotifyDeliverJob struct {
	Repo   notify.Repository
	Logger *slog.Logger
}

// NewNotifyDeliverJob initialises the delivery handler.
func NewNotifyDeliverJob(repo notify.Repository, logger *slog.Logger) *NotifyDeliverJob {
	return &NotifyDeliverJob{Repo: repo, Logger: logger}
}

// Handle loads the notification and pushes it to the outbound channel.
func (j *NotifyDeliverJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Repo == nil {
		return errors.New("notify deliver: handler not configured")
	}
	var payload NotifyDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	n, err := j.Repo.Get(ctx, payload.NotificationID)
	if err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			return asynq.SkipRetry
		}
		return err
	}
	if n.Status == notify.StatusSent {
		return nil
	}

	if err := j.deliver(ctx, n); err != nil {
		if markErr := j.Repo.MarkStatus(ctx, n.ID, notify.StatusFailed); markErr != nil {
			j.logger().Error("mark failed", slog.String("id", n.ID.String()), slog.Any("error", markErr))
		}
		return err
	}
	return j.Repo.MarkStatus(ctx, n.ID, notify.StatusSent)
}

// deliver pushes to the configured channel. Placeholder: integrate with the
// push gateway and SMTP relay in phase 2.
func (j *NotifyDeliverJob) deliver(_ context.Context, n notify.Notification) error {
	j.logger().Info("deliver notification",
		slog.String("id", n.ID.String()),
		slog.String("kind", string(n.Kind)),
		slog.String("mode", string(n.DeliveryMode)),
		slog.Int("recipients", len(n.RecipientIDs)),
		slog.String("title", n.Title),
	)
	return nil
}

func (j *NotifyDeliverJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeNotifyDeliver))
	}
	return slog.Default().With(slog.String("job", TaskTypeNotifyDeliver))
}
