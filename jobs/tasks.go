package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifyDeliver delivers one stored notification.
	TaskTypeNotifyDeliver = "notify:deliver"
	// TaskTypeClearanceRemind nudges department heads about stale
	// clearance items. Scheduled via cron.
	TaskTypeClearanceRemind = "clearance:remind"
)

// NotifyDeliverPayload identifies the stored notification to deliver.
type NotifyDeliverPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

// NewNotifyDeliverTask constructs an Asynq task.
func NewNotifyDeliverTask(notificationID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(NotifyDeliverPayload{NotificationID: notificationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyDeliver, data), nil
}

// ClearanceRemindPayload configures the stale-item scan window.
type ClearanceRemindPayload struct {
	OlderThanHours int `json:"older_than_hours"`
}

// NewClearanceRemindTask constructs an Asynq task.
func NewClearanceRemindTask(payload ClearanceRemindPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeClearanceRemind, data), nil
}
