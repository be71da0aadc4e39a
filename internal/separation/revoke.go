package separation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/notify"
	"github.com/meridian-hr/meridian-hr/internal/observability"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// Gate is the access revocation gate: the terminal, irreversible step of
// the separation workflow. It flips the subject's employment status and
// deactivates their system-access grant, but never mutates the separation
// request status or the checklist.
type Gate struct {
	repo      Repository
	directory EmployeeDirectory
	roleStore RoleStore
	audit     AuditPort
	notifier  Notifier
	metrics   *observability.Metrics
	logger    *slog.Logger

	// securityRecipients receive the security/audit channel summary.
	securityRecipients []uuid.UUID
}

// NewGate constructs the revocation gate.
func NewGate(repo Repository, directory EmployeeDirectory, roleStore RoleStore, audit AuditPort, notifier Notifier, metrics *observability.Metrics, logger *slog.Logger, securityRecipients []uuid.UUID) *Gate {
	return &Gate{
		repo:               repo,
		directory:          directory,
		roleStore:          roleStore,
		audit:              audit,
		notifier:           notifier,
		metrics:            metrics,
		logger:             logger,
		securityRecipients: securityRecipients,
	}
}

// Revoke terminates the subject of an APPROVED separation request and
// deactivates their role grant. Any other request status fails with
// Conflict. Retries are safe: revoked_at is claimed atomically, so a
// repeated call after success is a no-op with no second deactivation and
// no duplicate notifications. When a step after the claim fails, the
// claim is released before the error is returned, so a retry re-runs the
// remaining steps to completion.
func (g *Gate) Revoke(ctx context.Context, requestID uuid.UUID, reason *string) (RevocationResult, error) {
	req, err := g.repo.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return RevocationResult{}, fmt.Errorf("%w: separation request %s", httpx.ErrNotFound, requestID)
		}
		return RevocationResult{}, err
	}

	if req.Status != StatusApproved {
		return RevocationResult{}, fmt.Errorf("%w: revocation requires APPROVED status, request is %s", httpx.ErrConflict, req.Status)
	}

	if req.RevokedAt != nil {
		return g.alreadyRevoked(req), nil
	}

	prevStatus, err := g.directory.GetStatus(ctx, req.SubjectID)
	if err != nil {
		return RevocationResult{}, fmt.Errorf("lookup subject status: %w", err)
	}

	now := time.Now().UTC()
	claimed, err := g.repo.ClaimRevocation(ctx, requestID, now)
	if err != nil {
		return RevocationResult{}, err
	}
	if !claimed {
		// A concurrent retry won the claim; report success without
		// repeating any side effect.
		fresh, err := g.repo.GetRequest(ctx, requestID)
		if err != nil {
			return RevocationResult{}, err
		}
		return g.alreadyRevoked(fresh), nil
	}

	if _, err := g.directory.SetStatus(ctx, req.SubjectID, employees.StatusTerminated, now); err != nil {
		g.releaseClaim(ctx, requestID, now)
		return RevocationResult{}, fmt.Errorf("terminate subject: %w", err)
	}

	grant, err := g.roleStore.Deactivate(ctx, req.SubjectID)
	if err != nil {
		g.releaseClaim(ctx, requestID, now)
		return RevocationResult{}, fmt.Errorf("deactivate role grant: %w", err)
	}

	result := RevocationResult{
		SubjectID:      req.SubjectID,
		PreviousStatus: string(prevStatus),
		NewStatus:      string(employees.StatusTerminated),
		AccessRevoked:  true,
		RoleFound:      grant != nil,
		EffectiveAt:    &now,
	}
	meta := map[string]any{
		"request_id":      requestID.String(),
		"previous_status": string(prevStatus),
		"new_status":      string(employees.StatusTerminated),
	}
	if reason != nil {
		meta["reason"] = *reason
	}
	if grant != nil {
		result.RolesDeactivated = grant.Roles
		meta["roles"] = grant.Roles
		meta["permissions"] = grant.Permissions
	}

	if err := g.audit.Record(ctx, shared.AuditLog{
		ActorID:  "system",
		Action:   "ACCESS_REVOKED",
		Entity:   "separation_request",
		EntityID: requestID.String(),
		Meta:     meta,
		At:       now,
	}); err != nil {
		g.logger.Error("record revocation audit", slog.String("request", requestID.String()), slog.Any("error", err))
	}

	g.metrics.CountRevocation()
	g.sendNotifications(ctx, req, result)

	return result, nil
}

// releaseClaim undoes a revocation claim after a post-claim step failed,
// so the request is not left permanently claimed but unrevoked.
func (g *Gate) releaseClaim(ctx context.Context, id uuid.UUID, at time.Time) {
	if err := g.repo.ReleaseRevocation(ctx, id, at); err != nil {
		g.logger.Error("release revocation claim", slog.String("request", id.String()), slog.Any("error", err))
	}
}

func (g *Gate) alreadyRevoked(req Request) RevocationResult {
	return RevocationResult{
		SubjectID:      req.SubjectID,
		PreviousStatus: string(employees.StatusTerminated),
		NewStatus:      string(employees.StatusTerminated),
		AccessRevoked:  false,
		AlreadyRevoked: true,
		EffectiveAt:    req.RevokedAt,
	}
}

// sendNotifications emits the security summary and the subject notice.
// Both are best-effort and never roll back the revocation.
func (g *Gate) sendNotifications(ctx context.Context, req Request, result RevocationResult) {
	if len(g.securityRecipients) > 0 {
		body := fmt.Sprintf("Access revoked for employee %s (request %s).", req.SubjectID, req.ID)
		if result.RoleFound {
			body += " Deactivated roles: " + strings.Join(result.RolesDeactivated, ", ") + "."
		} else {
			body += " No system role grant was on record."
		}
		g.notifier.Send(ctx, notify.Message{
			RecipientIDs:    g.securityRecipients,
			Kind:            notify.KindRevocationSecurity,
			Title:           "System access revoked",
			Body:            body,
			RelatedEntityID: req.ID.String(),
		})
	} else {
		g.logger.Warn("no security recipients configured for revocation notice", slog.String("request", req.ID.String()))
	}

	g.notifier.Send(ctx, notify.Message{
		RecipientIDs:    []uuid.UUID{req.SubjectID},
		Kind:            notify.KindRevocationSubject,
		Title:           "Offboarding complete",
		Body:            "Your system access has been deactivated as part of offboarding.",
		RelatedEntityID: req.ID.String(),
	})
}
