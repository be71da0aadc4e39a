package performance

import (
	"time"

	"github.com/google/uuid"
)

// Review is a scored performance review. Separation intake snapshots the
// latest one as informational context on the request.
type Review struct {
	ID         int64
	EmployeeID uuid.UUID
	Score      float64
	Summary    string
	ReviewedAt time.Time
}
