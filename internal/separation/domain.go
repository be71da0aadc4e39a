package separation

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus enumerates separation request lifecycle statuses.
// PENDING and UNDER_REVIEW are jointly the "active" class: at most one
// request per subject may hold either at any time.
type RequestStatus string

const (
	StatusPending     RequestStatus = "PENDING"
	StatusUnderReview RequestStatus = "UNDER_REVIEW"
	StatusApproved    RequestStatus = "APPROVED"
	StatusRejected    RequestStatus = "REJECTED"
)

// Valid reports whether the status is a known value.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Active reports whether the status belongs to the active class.
func (s RequestStatus) Active() bool {
	return s == StatusPending || s == StatusUnderReview
}

// Terminal reports whether the status permits no further decision.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Initiator enumerates who filed the separation request.
type Initiator string

const (
	InitiatorEmployee Initiator = "EMPLOYEE"
	InitiatorHR       Initiator = "HR"
	InitiatorManager  Initiator = "MANAGER"
)

// Valid reports whether the initiator is a known value.
func (i Initiator) Valid() bool {
	switch i {
	case InitiatorEmployee, InitiatorHR, InitiatorManager:
		return true
	}
	return false
}

// Request records one separation intent. Requests are never deleted;
// rejected and approved ones remain as audit history.
type Request struct {
	ID                     uuid.UUID      `json:"id"`
	SubjectID              uuid.UUID      `json:"subject_id"`
	ContractID             uuid.UUID      `json:"contract_id"`
	Initiator              Initiator      `json:"initiator"`
	Reason                 string         `json:"reason"`
	Status                 RequestStatus  `json:"status"`
	EmployeeComments       *string        `json:"employee_comments,omitempty"`
	HRComments             *string        `json:"hr_comments,omitempty"`
	ProposedSeparationDate *time.Time     `json:"proposed_separation_date,omitempty"`
	EffectiveDate          *time.Time     `json:"effective_date,omitempty"`
	PerformanceNote        *string        `json:"performance_note,omitempty"`
	RevokedAt              *time.Time     `json:"revoked_at,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// ItemStatus enumerates per-department clearance statuses.
type ItemStatus string

const (
	ItemPending  ItemStatus = "PENDING"
	ItemApproved ItemStatus = "APPROVED"
	ItemRejected ItemStatus = "REJECTED"
)

// Valid reports whether the item status is a known value.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemApproved, ItemRejected:
		return true
	}
	return false
}

// DepartmentItem is one department's sign-off slot on a checklist. The
// department name is the item's natural key within its checklist.
type DepartmentItem struct {
	Department string     `json:"department"`
	Status     ItemStatus `json:"status"`
	ApproverID *uuid.UUID `json:"approver_id,omitempty"`
	Comments   *string    `json:"comments,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// EquipmentItem tracks returned company property. Informational only; it
// never gates clearance.
type EquipmentItem struct {
	EquipmentID string  `json:"equipment_id"`
	Name        string  `json:"name"`
	Returned    bool    `json:"returned"`
	Condition   *string `json:"condition,omitempty"`
}

// Checklist is the exit-clearance record, one per separation request.
type Checklist struct {
	ID              uuid.UUID        `json:"id"`
	RequestID       uuid.UUID        `json:"request_id"`
	DepartmentItems []DepartmentItem `json:"department_items"`
	EquipmentItems  []EquipmentItem  `json:"equipment_items"`
	CardReturned    bool             `json:"card_returned"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Summary is the aggregate clearance state. It is never stored; it is
// always derived from the department items so it cannot desynchronise
// from them under partial failure or replay.
type Summary struct {
	AllApproved        bool     `json:"all_approved"`
	AnyRejected        bool     `json:"any_rejected"`
	PendingDepartments []string `json:"pending_departments"`
	Approved           int      `json:"approved"`
	Rejected           int      `json:"rejected"`
	Pending            int      `json:"pending"`
}

// Summarize computes the aggregate clearance state from department items.
// An empty checklist is not all-approved.
func Summarize(items []DepartmentItem) Summary {
	var s Summary
	for _, item := range items {
		switch item.Status {
		case ItemApproved:
			s.Approved++
		case ItemRejected:
			s.Rejected++
		default:
			s.Pending++
			s.PendingDepartments = append(s.PendingDepartments, item.Department)
		}
	}
	s.AllApproved = len(items) > 0 && s.Approved == len(items)
	s.AnyRejected = s.Rejected > 0
	return s
}

// SignOffResult returns the written item together with the freshly
// recomputed aggregate, so callers can render feedback without a second
// read.
type SignOffResult struct {
	Department string     `json:"department"`
	Status     ItemStatus `json:"status"`
	ApproverID uuid.UUID  `json:"approver_id"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Summary    Summary    `json:"summary"`
}

// RevocationResult summarises an access revocation for the caller.
type RevocationResult struct {
	SubjectID        uuid.UUID  `json:"subject_id"`
	PreviousStatus   string     `json:"previous_status"`
	NewStatus        string     `json:"new_status"`
	AccessRevoked    bool       `json:"access_revoked"`
	AlreadyRevoked   bool       `json:"already_revoked"`
	RoleFound        bool       `json:"role_found"`
	RolesDeactivated []string   `json:"roles_deactivated,omitempty"`
	EffectiveAt      *time.Time `json:"effective_at,omitempty"`
}
