package separation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-hr/meridian-hr/internal/departments"
	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/notify"
	"github.com/meridian-hr/meridian-hr/internal/performance"
	"github.com/meridian-hr/meridian-hr/internal/roles"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// EmployeeDirectory exposes the employee lookups and the terminal status
// flip the workflow depends on.
type EmployeeDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	GetStatus(ctx context.Context, id uuid.UUID) (employees.Status, error)
	SetStatus(ctx context.Context, id uuid.UUID, status employees.Status, effectiveFrom time.Time) (employees.Employee, error)
}

// ContractStore verifies contract references at intake.
type ContractStore interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// RoleStore resolves and deactivates system-access grants.
type RoleStore interface {
	FindBySubject(ctx context.Context, subjectID uuid.UUID) (*roles.Grant, error)
	Deactivate(ctx context.Context, subjectID uuid.UUID) (*roles.Grant, error)
}

// DepartmentDirectory resolves department heads for notification fan-out.
// A nil head is not an error.
type DepartmentDirectory interface {
	FindHead(ctx context.Context, name string) (*departments.Head, error)
}

// ReviewSource supplies the informational performance snapshot at intake.
type ReviewSource interface {
	LatestScored(ctx context.Context, employeeID uuid.UUID) (*performance.Review, error)
}

// Notifier dispatches best-effort notifications. Implementations must
// never fail the caller.
type Notifier interface {
	Send(ctx context.Context, msg notify.Message)
}

// AuditPort records audit trail entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}
