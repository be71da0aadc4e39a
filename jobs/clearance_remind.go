package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/meridian-hr/meridian-hr/internal/departments"
	"github.com/meridian-hr/meridian-hr/internal/notify"
	"github.com/meridian-hr/meridian-hr/internal/separation"
)

// ClearanceRemindJob scans for department items left PENDING past the
// reminder age and nudges the responsible department heads.
type ClearanceRemindJob struct {
	Repo     separation.Repository
	DeptDir  departmentDirectory
	Notifier reminderNotifier
	Logger   *slog.Logger
	clock    func() time.Time
}

type departmentDirectory interface {
	FindHead(ctx context.Context, name string) (*departments.Head, error)
}

type reminderNotifier interface {
	Send(ctx context.Context, msg notify.Message)
}

// NewClearanceRemindJob initialises the reminder handler.
func NewClearanceRemindJob(repo separation.Repository, deptDir departmentDirectory, notifier reminderNotifier, logger *slog.Logger) *ClearanceRemindJob {
	return &ClearanceRemindJob{
		Repo:     repo,
		DeptDir:  deptDir,
		Notifier: notifier,
		Logger:   logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one reminder sweep.
func (j *ClearanceRemindJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Repo == nil {
		return errors.New("clearance remind: handler not configured")
	}
	var payload ClearanceRemindPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OlderThanHours <= 0 {
		payload.OlderThanHours = 48
	}

	cutoff := j.now().Add(-time.Duration(payload.OlderThanHours) * time.Hour)
	stale, err := j.Repo.ListStaleItems(ctx, cutoff)
	if err != nil {
		j.logger().Error("stale item scan", slog.Any("error", err))
		return err
	}

	reminded := 0
	for _, item := range stale {
		head, err := j.DeptDir.FindHead(ctx, item.Department)
		if err != nil {
			j.logger().Warn("department head lookup", slog.String("department", item.Department), slog.Any("error", err))
			continue
		}
		if head == nil {
			continue
		}
		j.Notifier.Send(ctx, notify.Message{
			RecipientIDs:    []uuid.UUID{head.EmployeeID},
			Kind:            notify.KindClearanceReminder,
			Title:           "Exit clearance sign-off overdue",
			Body:            fmt.Sprintf("Department %s has a clearance sign-off pending for over %d hours.", item.Department, payload.OlderThanHours),
			RelatedEntityID: item.ChecklistID.String(),
		})
		reminded++
	}

	j.logger().Info("completed reminder sweep",
		slog.Int("stale_items", len(stale)),
		slog.Int("reminders_sent", reminded),
	)
	return nil
}

func (j *ClearanceRemindJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeClearanceRemind))
	}
	return slog.Default().With(slog.String("job", TaskTypeClearanceRemind))
}

func (j *ClearanceRemindJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
