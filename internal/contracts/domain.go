package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Type enumerates employment contract types.
type Type string

const (
	TypePermanent Type = "PERMANENT"
	TypeFixedTerm Type = "FIXED_TERM"
	TypeContract  Type = "CONTRACT"
)

// Contract represents an employment contract record.
type Contract struct {
	ID         uuid.UUID
	EmployeeID uuid.UUID
	Type       Type
	StartDate  time.Time
	EndDate    *time.Time
	Active     bool
	CreatedAt  time.Time
}
