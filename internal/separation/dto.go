package separation

import "time"

// InitiateSeparationRequest is the intake payload.
type InitiateSeparationRequest struct {
	SubjectID              string     `json:"subject_id" validate:"required,uuid4"`
	ContractID             string     `json:"contract_id" validate:"required,uuid4"`
	Initiator              string     `json:"initiator" validate:"required,oneof=EMPLOYEE HR MANAGER"`
	Reason                 string     `json:"reason" validate:"required,min=10"`
	EmployeeComments       *string    `json:"employee_comments,omitempty"`
	ProposedSeparationDate *time.Time `json:"proposed_separation_date,omitempty"`
}

// DecisionRequest is the HR decision payload.
type DecisionRequest struct {
	Decision   string  `json:"decision" validate:"required,oneof=APPROVED REJECTED UNDER_REVIEW"`
	HRComments *string `json:"hr_comments,omitempty"`
}

// EquipmentItemRequest describes one piece of company property on intake.
type EquipmentItemRequest struct {
	EquipmentID string  `json:"equipment_id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Returned    bool    `json:"returned"`
	Condition   *string `json:"condition,omitempty"`
}

// ChecklistRequest is the clearance checklist creation payload.
type ChecklistRequest struct {
	Departments    []string               `json:"departments" validate:"required,min=1,dive,required"`
	EquipmentItems []EquipmentItemRequest `json:"equipment_items,omitempty" validate:"dive"`
	CardReturned   bool                   `json:"card_returned"`
}

// SignOffRequest is the department decision payload.
type SignOffRequest struct {
	Department string  `json:"department" validate:"required"`
	Status     string  `json:"status" validate:"required,oneof=PENDING APPROVED REJECTED"`
	ApproverID string  `json:"approver_id" validate:"required,uuid4"`
	Comments   *string `json:"comments,omitempty"`
}

// RevokeRequest is the access revocation payload.
type RevokeRequest struct {
	Reason *string `json:"reason,omitempty"`
}
