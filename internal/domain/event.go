package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a calendar entry synced from an external provider.
type Event struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	Title       string           `json:"title" validate:"required,max=500"`
	Description string           `json:"description,omitempty"`
	StartTime   time.Time        `json:"start_time" validate:"required"`
	EndTime     time.Time        `json:"end_time" validate:"required,gtefield=StartTime"`
	AllDay      bool             `json:"all_day"`
	Location    string           `json:"location,omitempty"`
	Provider    CalendarProvider `json:"provider" validate:"required,oneof=google outlook ical"`
	ExternalID  string           `json:"external_id" validate:"required"`
	SyncedAt    time.Time        `json:"synced_at"`
}

// Validate checks field constraints.
func (e *Event) Validate() error {
	return validateStruct("event.validate", e)
}

// TimeRange is an inclusive window of start times.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// DefaultEventWindow is the range used when a caller omits the upper bound.
const DefaultEventWindow = 7 * 24 * time.Hour

// Validate rejects inverted ranges.
func (tr TimeRange) Validate() error {
	if tr.To.Before(tr.From) {
		return Invalid("events.range", "to must not be before from")
	}
	return nil
}

// EventRepository reads a user's events. Implementations must filter by userID.
type EventRepository interface {
	ListInRange(ctx context.Context, userID uuid.UUID, tr TimeRange) ([]Event, error)
}
