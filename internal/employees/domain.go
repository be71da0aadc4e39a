package employees

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates employment statuses.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusOnLeave    Status = "ON_LEAVE"
	StatusTerminated Status = "TERMINATED"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusOnLeave, StatusTerminated:
		return true
	}
	return false
}

// Employee represents a person in the HR directory.
type Employee struct {
	ID           uuid.UUID
	Number       string
	FullName     string
	Email        string
	Department   string
	Status       Status
	TerminatedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
