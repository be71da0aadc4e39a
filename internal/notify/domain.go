package notify

import (
	"time"

	"github.com/google/uuid"
)

// Kind enumerates notification kinds emitted by the separation workflow.
type Kind string

const (
	KindSeparationIntake   Kind = "SEPARATION_INTAKE"
	KindSignOff            Kind = "CLEARANCE_SIGNOFF"
	KindClearanceComplete  Kind = "CLEARANCE_COMPLETE"
	KindEscalation         Kind = "CLEARANCE_ESCALATION"
	KindClearanceReminder  Kind = "CLEARANCE_REMINDER"
	KindRevocationSecurity Kind = "REVOCATION_SECURITY"
	KindRevocationSubject  Kind = "REVOCATION_SUBJECT"
)

// DeliveryMode selects the outbound channel.
type DeliveryMode string

const (
	ModePush  DeliveryMode = "PUSH"
	ModeEmail DeliveryMode = "EMAIL"
)

// Status tracks delivery progress of a stored notification.
type Status string

const (
	StatusQueued Status = "QUEUED"
	StatusSent   Status = "SENT"
	StatusFailed Status = "FAILED"
)

// Message is the dispatch payload handed to the Dispatcher.
type Message struct {
	RecipientIDs    []uuid.UUID
	Kind            Kind
	DeliveryMode    DeliveryMode
	Title           string
	Body            string
	RelatedEntityID string
}

// Notification is the persisted form of a Message.
type Notification struct {
	ID              uuid.UUID
	RecipientIDs    []uuid.UUID
	Kind            Kind
	DeliveryMode    DeliveryMode
	Title           string
	Body            string
	RelatedEntityID string
	Status          Status
	CreatedAt       time.Time
	SentAt          *time.Time
}
