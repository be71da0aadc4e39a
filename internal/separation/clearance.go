package separation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-hr/meridian-hr/internal/notify"
	"github.com/meridian-hr/meridian-hr/internal/observability"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// Aggregator owns clearance checklists: creation, per-department sign-off
// application and derivation of the aggregate clearance state. It never
// mutates the separation request itself.
type Aggregator struct {
	repo     Repository
	deptDir  DepartmentDirectory
	notifier Notifier
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewAggregator constructs the clearance aggregator.
func NewAggregator(repo Repository, deptDir DepartmentDirectory, notifier Notifier, metrics *observability.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		repo:     repo,
		deptDir:  deptDir,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// ChecklistInput carries checklist creation data after boundary validation.
type ChecklistInput struct {
	RequestID      uuid.UUID
	Departments    []string
	EquipmentItems []EquipmentItem
	CardReturned   bool
}

// InitiateChecklist creates the one checklist for a separation request.
// Department items always start PENDING no matter what the caller sent;
// the unique index on request_id makes a second creation fail with
// Conflict regardless of interleaving with the first.
func (a *Aggregator) InitiateChecklist(ctx context.Context, input ChecklistInput) (Checklist, error) {
	if len(input.Departments) == 0 {
		return Checklist{}, fmt.Errorf("%w: at least one department item required", httpx.ErrValidation)
	}
	seen := make(map[string]struct{}, len(input.Departments))
	for _, dept := range input.Departments {
		if dept == "" {
			return Checklist{}, fmt.Errorf("%w: department name required", httpx.ErrValidation)
		}
		if _, dup := seen[dept]; dup {
			return Checklist{}, fmt.Errorf("%w: duplicate department %q", httpx.ErrValidation, dept)
		}
		seen[dept] = struct{}{}
	}

	req, err := a.repo.GetRequest(ctx, input.RequestID)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return Checklist{}, fmt.Errorf("%w: separation request %s", httpx.ErrNotFound, input.RequestID)
		}
		return Checklist{}, err
	}

	checklist := Checklist{
		RequestID:      input.RequestID,
		CardReturned:   input.CardReturned,
		EquipmentItems: input.EquipmentItems,
	}
	for _, dept := range input.Departments {
		checklist.DepartmentItems = append(checklist.DepartmentItems, DepartmentItem{
			Department: dept,
			Status:     ItemPending,
		})
	}

	created, err := a.repo.CreateChecklist(ctx, checklist)
	if err != nil {
		if errors.Is(err, ErrChecklistExists) {
			return Checklist{}, fmt.Errorf("%w: checklist already exists for request %s", httpx.ErrConflict, input.RequestID)
		}
		return Checklist{}, err
	}

	a.notifyDepartmentHeads(ctx, created, req)

	return created, nil
}

// notifyDepartmentHeads fans out one notification per department head.
// Head lookups are best-effort: a failed or empty lookup is logged and
// skipped, never aborting checklist creation.
func (a *Aggregator) notifyDepartmentHeads(ctx context.Context, checklist Checklist, req Request) {
	for _, item := range checklist.DepartmentItems {
		head, err := a.deptDir.FindHead(ctx, item.Department)
		if err != nil {
			a.logger.Warn("department head lookup", slog.String("department", item.Department), slog.Any("error", err))
			continue
		}
		if head == nil {
			a.logger.Info("no department head configured", slog.String("department", item.Department))
			continue
		}
		a.notifier.Send(ctx, notify.Message{
			RecipientIDs:    []uuid.UUID{head.EmployeeID},
			Kind:            notify.KindSignOff,
			Title:           "Exit clearance sign-off required",
			Body:            fmt.Sprintf("Department %s must sign off on the exit clearance for employee %s.", item.Department, req.SubjectID),
			RelatedEntityID: checklist.ID.String(),
		})
	}
}

// SignOffInput carries a department decision after boundary validation.
type SignOffInput struct {
	ChecklistID uuid.UUID
	Department  string
	Status      ItemStatus
	ApproverID  uuid.UUID
	Comments    *string
}

// ApplyDepartmentSignOff overwrites one department item, last write wins,
// then recomputes the aggregate from a fresh read taken after the write.
func (a *Aggregator) ApplyDepartmentSignOff(ctx context.Context, input SignOffInput) (SignOffResult, error) {
	if !input.Status.Valid() {
		return SignOffResult{}, fmt.Errorf("%w: unknown sign-off status %q", httpx.ErrValidation, input.Status)
	}

	checklist, err := a.repo.GetChecklist(ctx, input.ChecklistID)
	if err != nil {
		if errors.Is(err, ErrChecklistNotFound) {
			return SignOffResult{}, fmt.Errorf("%w: clearance checklist %s", httpx.ErrNotFound, input.ChecklistID)
		}
		return SignOffResult{}, err
	}

	item, prevStatus, err := a.repo.UpdateDepartmentItem(ctx, input.ChecklistID, input.Department, input.Status, input.ApproverID, input.Comments)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			valid := make([]string, 0, len(checklist.DepartmentItems))
			for _, it := range checklist.DepartmentItems {
				valid = append(valid, it.Department)
			}
			return SignOffResult{}, fmt.Errorf("%w: department %q not on checklist (valid: %s)", httpx.ErrNotFound, input.Department, strings.Join(valid, ", "))
		}
		return SignOffResult{}, err
	}

	// Re-read after the targeted write so the aggregate reflects any
	// concurrent sibling sign-offs, not the stale pre-write snapshot.
	fresh, err := a.repo.GetChecklist(ctx, input.ChecklistID)
	if err != nil {
		return SignOffResult{}, fmt.Errorf("reload checklist: %w", err)
	}
	summary := Summarize(fresh.DepartmentItems)

	a.metrics.CountSignOff(string(input.Status))
	a.notifySignOff(ctx, fresh, item, prevStatus, summary)

	result := SignOffResult{
		Department: item.Department,
		Status:     item.Status,
		ApproverID: input.ApproverID,
		Summary:    summary,
	}
	if item.UpdatedAt != nil {
		result.UpdatedAt = *item.UpdatedAt
	}
	return result, nil
}

// notifySignOff applies the notification policy. Triggers are independent
// and best-effort: the subject always learns the decision and current
// counts; a full-clearance notice fires exactly when this call completed
// the set; an escalation fires exactly on a transition into REJECTED.
func (a *Aggregator) notifySignOff(ctx context.Context, checklist Checklist, item DepartmentItem, prevStatus ItemStatus, summary Summary) {
	req, err := a.repo.GetRequest(ctx, checklist.RequestID)
	if err != nil {
		a.logger.Warn("signoff notification: load request", slog.String("checklist", checklist.ID.String()), slog.Any("error", err))
		return
	}

	a.notifier.Send(ctx, notify.Message{
		RecipientIDs: []uuid.UUID{req.SubjectID},
		Kind:         notify.KindSignOff,
		Title:        fmt.Sprintf("%s clearance: %s", item.Department, item.Status),
		Body: fmt.Sprintf("Department %s recorded %s. Progress: %d approved, %d pending, %d rejected.",
			item.Department, item.Status, summary.Approved, summary.Pending, summary.Rejected),
		RelatedEntityID: checklist.ID.String(),
	})

	if summary.AllApproved && prevStatus != ItemApproved {
		a.notifier.Send(ctx, notify.Message{
			RecipientIDs:    []uuid.UUID{req.SubjectID},
			Kind:            notify.KindClearanceComplete,
			Title:           "Exit clearance complete",
			Body:            "All departments have approved the exit clearance.",
			RelatedEntityID: checklist.ID.String(),
		})
	}

	if item.Status == ItemRejected && prevStatus != ItemRejected {
		a.notifier.Send(ctx, notify.Message{
			RecipientIDs:    []uuid.UUID{req.SubjectID},
			Kind:            notify.KindEscalation,
			Title:           fmt.Sprintf("%s clearance rejected", item.Department),
			Body:            fmt.Sprintf("Department %s rejected the exit clearance; HR follow-up required.", item.Department),
			RelatedEntityID: checklist.ID.String(),
		})
	}
}

// GetChecklist returns a checklist together with its derived summary.
func (a *Aggregator) GetChecklist(ctx context.Context, id uuid.UUID) (Checklist, Summary, error) {
	checklist, err := a.repo.GetChecklist(ctx, id)
	if err != nil {
		if errors.Is(err, ErrChecklistNotFound) {
			return Checklist{}, Summary{}, fmt.Errorf("%w: clearance checklist %s", httpx.ErrNotFound, id)
		}
		return Checklist{}, Summary{}, err
	}
	return checklist, Summarize(checklist.DepartmentItems), nil
}
