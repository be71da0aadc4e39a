package separation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-hr/meridian-hr/internal/notify"
	"github.com/meridian-hr/meridian-hr/internal/observability"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// Service is the separation request manager. It exclusively owns request
// status transitions; the clearance aggregator and the revocation gate
// never touch them.
type Service struct {
	repo      Repository
	directory EmployeeDirectory
	contracts ContractStore
	reviews   ReviewSource
	notifier  Notifier
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewService constructs the request manager.
func NewService(repo Repository, directory EmployeeDirectory, contracts ContractStore, reviews ReviewSource, notifier Notifier, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		contracts: contracts,
		reviews:   reviews,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
	}
}

// InitiateInput carries the intake payload after boundary validation.
type InitiateInput struct {
	SubjectID              uuid.UUID
	ContractID             uuid.UUID
	Initiator              Initiator
	Reason                 string
	EmployeeComments       *string
	ProposedSeparationDate *time.Time
}

// Initiate validates the subject and contract, enforces the
// one-active-request-per-subject invariant and persists a PENDING request.
// The application-level active lookup is only a fast path; the partial
// unique index is the authoritative guard, so two concurrent calls cannot
// both insert.
func (s *Service) Initiate(ctx context.Context, input InitiateInput) (Request, error) {
	if !input.Initiator.Valid() {
		return Request{}, fmt.Errorf("%w: unknown initiator %q", httpx.ErrValidation, input.Initiator)
	}

	exists, err := s.directory.Exists(ctx, input.SubjectID)
	if err != nil {
		return Request{}, fmt.Errorf("verify employee: %w", err)
	}
	if !exists {
		return Request{}, fmt.Errorf("%w: employee %s", httpx.ErrNotFound, input.SubjectID)
	}

	exists, err = s.contracts.Exists(ctx, input.ContractID)
	if err != nil {
		return Request{}, fmt.Errorf("verify contract: %w", err)
	}
	if !exists {
		return Request{}, fmt.Errorf("%w: contract %s", httpx.ErrNotFound, input.ContractID)
	}

	if active, err := s.repo.FindActiveBySubject(ctx, input.SubjectID); err != nil {
		return Request{}, fmt.Errorf("check active request: %w", err)
	} else if active != nil {
		return Request{}, fmt.Errorf("%w: request %s is %s", httpx.ErrConflict, active.ID, active.Status)
	}

	req := Request{
		SubjectID:              input.SubjectID,
		ContractID:             input.ContractID,
		Initiator:              input.Initiator,
		Reason:                 input.Reason,
		Status:                 StatusPending,
		EmployeeComments:       input.EmployeeComments,
		ProposedSeparationDate: input.ProposedSeparationDate,
	}
	req.PerformanceNote = s.performanceSnapshot(ctx, input.SubjectID)

	created, err := s.repo.CreateRequest(ctx, req)
	if err != nil {
		if errors.Is(err, ErrActiveRequestExists) {
			status := "PENDING or UNDER_REVIEW"
			if active, lookupErr := s.repo.FindActiveBySubject(ctx, input.SubjectID); lookupErr == nil && active != nil {
				status = string(active.Status)
			}
			return Request{}, fmt.Errorf("%w: subject already has a %s separation request", httpx.ErrConflict, status)
		}
		return Request{}, err
	}

	s.metrics.CountSeparationEvent("initiated")
	s.notifier.Send(ctx, notify.Message{
		RecipientIDs:    []uuid.UUID{created.SubjectID},
		Kind:            notify.KindSeparationIntake,
		Title:           "Separation request received",
		Body:            fmt.Sprintf("A separation request was filed by %s and is pending review.", created.Initiator),
		RelatedEntityID: created.ID.String(),
	})

	return created, nil
}

// performanceSnapshot fetches the latest scored review as an informational
// note. Absence of a review is normal; lookup failures are logged and the
// intake proceeds without the snapshot.
func (s *Service) performanceSnapshot(ctx context.Context, subjectID uuid.UUID) *string {
	if s.reviews == nil {
		return nil
	}
	review, err := s.reviews.LatestScored(ctx, subjectID)
	if err != nil {
		s.logger.Warn("performance snapshot lookup", slog.String("subject", subjectID.String()), slog.Any("error", err))
		return nil
	}
	if review == nil {
		return nil
	}
	note := fmt.Sprintf("latest review %.1f on %s: %s", review.Score, review.ReviewedAt.Format("2006-01-02"), review.Summary)
	return &note
}

// Decide applies an HR decision to a request. Requests already in a
// terminal status are not re-decidable; UNDER_REVIEW is only reachable
// from PENDING.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, decision RequestStatus, comments *string) (Request, error) {
	switch decision {
	case StatusApproved, StatusRejected, StatusUnderReview:
	default:
		return Request{}, fmt.Errorf("%w: decision must be APPROVED, REJECTED or UNDER_REVIEW", httpx.ErrValidation)
	}

	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return Request{}, fmt.Errorf("%w: separation request %s", httpx.ErrNotFound, id)
		}
		return Request{}, err
	}

	if req.Status.Terminal() {
		return Request{}, fmt.Errorf("%w: request already %s", httpx.ErrConflict, req.Status)
	}
	if decision == StatusUnderReview && req.Status != StatusPending {
		return Request{}, fmt.Errorf("%w: cannot move %s request to UNDER_REVIEW", httpx.ErrConflict, req.Status)
	}

	updated, err := s.repo.UpdateRequestStatus(ctx, id, decision, comments)
	if err != nil {
		return Request{}, fmt.Errorf("apply decision: %w", err)
	}

	switch decision {
	case StatusApproved:
		s.metrics.CountSeparationEvent("approved")
	case StatusRejected:
		s.metrics.CountSeparationEvent("rejected")
	}

	return updated, nil
}

// TrackByEmployee lists a subject's requests, newest first. When
// selfService is set, only employee-initiated requests are returned.
func (s *Service) TrackByEmployee(ctx context.Context, subjectID uuid.UUID, selfService bool) ([]Request, error) {
	list, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("track requests: %w", err)
	}
	if !selfService {
		return list, nil
	}
	filtered := make([]Request, 0, len(list))
	for _, req := range list {
		if req.Initiator == InitiatorEmployee {
			filtered = append(filtered, req)
		}
	}
	return filtered, nil
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return Request{}, fmt.Errorf("%w: separation request %s", httpx.ErrNotFound, id)
		}
		return Request{}, err
	}
	return req, nil
}
