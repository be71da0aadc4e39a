package roles

import (
	"time"

	"github.com/google/uuid"
)

// Grant represents the system-access grant attached to an employee. Not
// every employee has one; contractors and field staff often carry no
// system roles at all.
type Grant struct {
	ID            int64
	SubjectID     uuid.UUID
	Roles         []string
	Permissions   []string
	Active        bool
	DeactivatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
