package separation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hr/meridian-hr/internal/platform/db"
)

var (
	// ErrRequestNotFound indicates an unknown separation request id.
	ErrRequestNotFound = errors.New("separation request not found")
	// ErrActiveRequestExists is the storage-level exclusivity violation:
	// the partial unique index on active requests rejected the insert.
	ErrActiveRequestExists = errors.New("active separation request already exists")
	// ErrChecklistNotFound indicates an unknown checklist id.
	ErrChecklistNotFound = errors.New("clearance checklist not found")
	// ErrChecklistExists indicates a checklist already exists for a request.
	ErrChecklistExists = errors.New("clearance checklist already exists for request")
	// ErrItemNotFound indicates no checklist item matches the department.
	ErrItemNotFound = errors.New("department item not found")
)

// uniqueViolation is the PostgreSQL error code backing both exclusivity
// guarantees (active request per subject, checklist per request).
const uniqueViolation = "23505"

// StaleItem identifies a department item left PENDING past the reminder age.
type StaleItem struct {
	ChecklistID uuid.UUID
	RequestID   uuid.UUID
	Department  string
	CreatedAt   time.Time
}

// Repository describes separation workflow persistence.
type Repository interface {
	CreateRequest(ctx context.Context, req Request) (Request, error)
	GetRequest(ctx context.Context, id uuid.UUID) (Request, error)
	FindActiveBySubject(ctx context.Context, subjectID uuid.UUID) (*Request, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]Request, error)
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, status RequestStatus, hrComments *string) (Request, error)
	// ClaimRevocation atomically stamps revoked_at when unset. It reports
	// whether this caller won the claim; a false return with no error means
	// a prior revocation already happened.
	ClaimRevocation(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// ReleaseRevocation clears a claim stamped at the given instant so a
	// retry can run the revocation again after a downstream failure. A
	// claim stamped at any other time is left untouched.
	ReleaseRevocation(ctx context.Context, id uuid.UUID, at time.Time) error

	CreateChecklist(ctx context.Context, c Checklist) (Checklist, error)
	GetChecklist(ctx context.Context, id uuid.UUID) (Checklist, error)
	GetChecklistByRequest(ctx context.Context, requestID uuid.UUID) (*Checklist, error)
	// UpdateDepartmentItem applies a targeted, single-statement mutation to
	// the matching item and returns the item's previous status alongside
	// the written row, so concurrent sibling updates are never dropped.
	UpdateDepartmentItem(ctx context.Context, checklistID uuid.UUID, department string, status ItemStatus, approverID uuid.UUID, comments *string) (DepartmentItem, ItemStatus, error)
	ListStaleItems(ctx context.Context, olderThan time.Time) ([]StaleItem, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const requestColumns = `id, subject_id, contract_id, initiator, reason, status, employee_comments, hr_comments,
proposed_separation_date, effective_date, performance_note, revoked_at, created_at, updated_at`

func (r *repository) CreateRequest(ctx context.Context, req Request) (Request, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	var proposed pgtype.Date
	if req.ProposedSeparationDate != nil {
		proposed = pgtype.Date{Time: *req.ProposedSeparationDate, Valid: true}
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO separation_requests
(id, subject_id, contract_id, initiator, reason, status, employee_comments, performance_note, proposed_separation_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+requestColumns,
		req.ID, req.SubjectID, req.ContractID, string(req.Initiator), req.Reason, string(req.Status),
		req.EmployeeComments, req.PerformanceNote, proposed)
	created, err := scanRequest(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Request{}, ErrActiveRequestExists
		}
		return Request{}, fmt.Errorf("separation: create request: %w", err)
	}
	return created, nil
}

func (r *repository) GetRequest(ctx context.Context, id uuid.UUID) (Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM separation_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrRequestNotFound
		}
		return Request{}, err
	}
	return req, nil
}

func (r *repository) FindActiveBySubject(ctx context.Context, subjectID uuid.UUID) (*Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM separation_requests
WHERE subject_id = $1 AND status IN ('PENDING', 'UNDER_REVIEW')
LIMIT 1`, subjectID)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *repository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM separation_requests
WHERE subject_id = $1 ORDER BY created_at DESC`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, req)
	}
	return list, rows.Err()
}

func (r *repository) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status RequestStatus, hrComments *string) (Request, error) {
	row := r.pool.QueryRow(ctx, `UPDATE separation_requests
SET status = $2,
    hr_comments = COALESCE($3, hr_comments),
    effective_date = CASE WHEN $2 = 'APPROVED' THEN NOW() ELSE effective_date END,
    updated_at = NOW()
WHERE id = $1
RETURNING `+requestColumns, id, string(status), hrComments)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrRequestNotFound
		}
		return Request{}, fmt.Errorf("separation: update status: %w", err)
	}
	return req, nil
}

func (r *repository) ClaimRevocation(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE separation_requests SET revoked_at = $2, updated_at = NOW()
WHERE id = $1 AND revoked_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("separation: claim revocation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) ReleaseRevocation(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE separation_requests SET revoked_at = NULL, updated_at = NOW()
WHERE id = $1 AND revoked_at = $2`, id, at)
	if err != nil {
		return fmt.Errorf("separation: release revocation: %w", err)
	}
	return nil
}

func (r *repository) CreateChecklist(ctx context.Context, c Checklist) (Checklist, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO clearance_checklists (id, request_id, card_returned)
VALUES ($1, $2, $3)`, c.ID, c.RequestID, c.CardReturned)
		if err != nil {
			return err
		}
		for pos, item := range c.DepartmentItems {
			_, err := tx.Exec(ctx, `INSERT INTO clearance_items (checklist_id, department, status, position)
VALUES ($1, $2, $3, $4)`, c.ID, item.Department, string(item.Status), pos)
			if err != nil {
				return err
			}
		}
		for _, item := range c.EquipmentItems {
			_, err := tx.Exec(ctx, `INSERT INTO equipment_items (checklist_id, equipment_id, name, returned, condition)
VALUES ($1, $2, $3, $4, $5)`, c.ID, item.EquipmentID, item.Name, item.Returned, item.Condition)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Checklist{}, ErrChecklistExists
		}
		return Checklist{}, fmt.Errorf("separation: create checklist: %w", err)
	}
	return r.GetChecklist(ctx, c.ID)
}

func (r *repository) GetChecklist(ctx context.Context, id uuid.UUID) (Checklist, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, request_id, card_returned, created_at, updated_at
FROM clearance_checklists WHERE id = $1`, id)
	var c Checklist
	if err := row.Scan(&c.ID, &c.RequestID, &c.CardReturned, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Checklist{}, ErrChecklistNotFound
		}
		return Checklist{}, err
	}
	if err := r.loadItems(ctx, &c); err != nil {
		return Checklist{}, err
	}
	return c, nil
}

func (r *repository) GetChecklistByRequest(ctx context.Context, requestID uuid.UUID) (*Checklist, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, request_id, card_returned, created_at, updated_at
FROM clearance_checklists WHERE request_id = $1`, requestID)
	var c Checklist
	if err := row.Scan(&c.ID, &c.RequestID, &c.CardReturned, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadItems(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) loadItems(ctx context.Context, c *Checklist) error {
	rows, err := r.pool.Query(ctx, `SELECT department, status, approver_id, comments, updated_at
FROM clearance_items WHERE checklist_id = $1 ORDER BY position`, c.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return err
		}
		c.DepartmentItems = append(c.DepartmentItems, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	eqRows, err := r.pool.Query(ctx, `SELECT equipment_id, name, returned, condition
FROM equipment_items WHERE checklist_id = $1 ORDER BY id`, c.ID)
	if err != nil {
		return err
	}
	defer eqRows.Close()
	for eqRows.Next() {
		var item EquipmentItem
		var condition pgtype.Text
		if err := eqRows.Scan(&item.EquipmentID, &item.Name, &item.Returned, &condition); err != nil {
			return err
		}
		if condition.Valid {
			val := condition.String
			item.Condition = &val
		}
		c.EquipmentItems = append(c.EquipmentItems, item)
	}
	return eqRows.Err()
}

func (r *repository) UpdateDepartmentItem(ctx context.Context, checklistID uuid.UUID, department string, status ItemStatus, approverID uuid.UUID, comments *string) (DepartmentItem, ItemStatus, error) {
	// The CTE captures the pre-write status in the same statement, so the
	// rejection-transition check never races a concurrent sign-off.
	row := r.pool.QueryRow(ctx, `WITH prev AS (
	SELECT status FROM clearance_items WHERE checklist_id = $1 AND department = $2
)
UPDATE clearance_items ci
SET status = $3, approver_id = $4, comments = COALESCE($5, ci.comments), updated_at = NOW()
WHERE ci.checklist_id = $1 AND ci.department = $2
RETURNING ci.department, ci.status, ci.approver_id, ci.comments, ci.updated_at, (SELECT status FROM prev)`,
		checklistID, department, string(status), approverID, comments)

	var item DepartmentItem
	var itemStatus, prevStatus string
	var approver pgtype.UUID
	var itemComments pgtype.Text
	var updatedAt pgtype.Timestamptz
	if err := row.Scan(&item.Department, &itemStatus, &approver, &itemComments, &updatedAt, &prevStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DepartmentItem{}, "", ErrItemNotFound
		}
		return DepartmentItem{}, "", fmt.Errorf("separation: update department item: %w", err)
	}
	item.Status = ItemStatus(itemStatus)
	if approver.Valid {
		val := uuid.UUID(approver.Bytes)
		item.ApproverID = &val
	}
	if itemComments.Valid {
		val := itemComments.String
		item.Comments = &val
	}
	if updatedAt.Valid {
		val := updatedAt.Time
		item.UpdatedAt = &val
	}
	return item, ItemStatus(prevStatus), nil
}

func (r *repository) ListStaleItems(ctx context.Context, olderThan time.Time) ([]StaleItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT ci.checklist_id, cc.request_id, ci.department, cc.created_at
FROM clearance_items ci
JOIN clearance_checklists cc ON cc.id = ci.checklist_id
WHERE ci.status = 'PENDING' AND COALESCE(ci.updated_at, cc.created_at) < $1
ORDER BY cc.created_at`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []StaleItem
	for rows.Next() {
		var s StaleItem
		if err := rows.Scan(&s.ChecklistID, &s.RequestID, &s.Department, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var initiator, status string
	var employeeComments, hrComments, performanceNote pgtype.Text
	var proposed pgtype.Date
	var effective, revoked pgtype.Timestamptz
	if err := row.Scan(&req.ID, &req.SubjectID, &req.ContractID, &initiator, &req.Reason, &status,
		&employeeComments, &hrComments, &proposed, &effective, &performanceNote, &revoked,
		&req.CreatedAt, &req.UpdatedAt); err != nil {
		return Request{}, err
	}
	req.Initiator = Initiator(initiator)
	req.Status = RequestStatus(status)
	if employeeComments.Valid {
		val := employeeComments.String
		req.EmployeeComments = &val
	}
	if hrComments.Valid {
		val := hrComments.String
		req.HRComments = &val
	}
	if performanceNote.Valid {
		val := performanceNote.String
		req.PerformanceNote = &val
	}
	if proposed.Valid {
		val := proposed.Time
		req.ProposedSeparationDate = &val
	}
	if effective.Valid {
		val := effective.Time
		req.EffectiveDate = &val
	}
	if revoked.Valid {
		val := revoked.Time
		req.RevokedAt = &val
	}
	return req, nil
}

func scanItem(row pgx.Row) (DepartmentItem, error) {
	var item DepartmentItem
	var status string
	var approver pgtype.UUID
	var comments pgtype.Text
	var updatedAt pgtype.Timestamptz
	if err := row.Scan(&item.Department, &status, &approver, &comments, &updatedAt); err != nil {
		return DepartmentItem{}, err
	}
	item.Status = ItemStatus(status)
	if approver.Valid {
		val := uuid.UUID(approver.Bytes)
		item.ApproverID = &val
	}
	if comments.Valid {
		val := comments.String
		item.Comments = &val
	}
	if updatedAt.Valid {
		val := updatedAt.Time
		item.UpdatedAt = &val
	}
	return item, nil
}
