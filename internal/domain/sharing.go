package domain

import (
	"time"

	"github.com/google/uuid"
)

// SharedReminder grants another user access to a reminder.
type SharedReminder struct {
	ReminderID   uuid.UUID `json:"reminder_id" validate:"required"`
	OwnerID      uuid.UUID `json:"owner_id" validate:"required"`
	SharedWithID uuid.UUID `json:"shared_with_id" validate:"required"`
	CanEdit      bool      `json:"can_edit"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate rejects grants with missing ids and self-shares.
func (s *SharedReminder) Validate() error {
	const op = "sharing.validate"
	if err := validateStruct(op, s); err != nil {
		return err
	}
	if s.SharedWithID == s.OwnerID {
		return NewValidationError(op, "shared_with_id", "cannot share a reminder with its owner")
	}
	return nil
}

// NotificationStatus is the delivery state of one attempt.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// NotificationLog records one delivery attempt.
type NotificationLog struct {
	ID         uuid.UUID          `json:"id"`
	ReminderID uuid.UUID          `json:"reminder_id" validate:"required"`
	UserID     uuid.UUID          `json:"user_id" validate:"required"`
	Channel    Channel            `json:"channel" validate:"required,oneof=email push sms"`
	Status     NotificationStatus `json:"status" validate:"required,oneof=pending sent failed"`
	Error      *string            `json:"error,omitempty"`
	SentAt     time.Time          `json:"sent_at"`
}

// Validate checks enumerations. A failed attempt must carry its error text.
func (n *NotificationLog) Validate() error {
	const op = "notification.validate"
	if err := validateStruct(op, n); err != nil {
		return err
	}
	if n.Status == NotificationFailed && (n.Error == nil || *n.Error == "") {
		return NewValidationError(op, "error", "is required when status is failed")
	}
	return nil
}
