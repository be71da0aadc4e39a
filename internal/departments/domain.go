package departments

import (
	"time"

	"github.com/google/uuid"
)

// Department represents an organisational unit. Name is the natural key
// used by clearance checklist items.
type Department struct {
	ID             int64
	Name           string
	HeadEmployeeID *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Head identifies a department head for notification fan-out.
type Head struct {
	EmployeeID uuid.UUID `json:"employee_id"`
}
