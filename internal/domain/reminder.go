package domain

import (
	"time"

	"github.com/google/uuid"
)

// Recurrence frequencies.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Priority of a reminder.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
)

// GeofenceEdge selects whether a location trigger fires on entering or leaving the region.
type GeofenceEdge string

const (
	GeofenceEnter GeofenceEdge = "enter"
	GeofenceExit  GeofenceEdge = "exit"
)

// Recurrence repeats a reminder every Interval units of Frequency, optionally until a cutoff.
type Recurrence struct {
	Frequency Frequency  `json:"frequency" validate:"required,oneof=daily weekly monthly yearly"`
	Interval  int        `json:"interval" validate:"min=1,max=365"`
	Until     *time.Time `json:"until,omitempty"`
}

// LocationTrigger fires a reminder when the device crosses a circular geofence.
type LocationTrigger struct {
	Latitude     float64      `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64      `json:"longitude" validate:"gte=-180,lte=180"`
	RadiusMeters float64      `json:"radius_meters" validate:"gt=0,lte=100000"`
	On           GeofenceEdge `json:"on" validate:"required,oneof=enter exit"`
	Label        string       `json:"label,omitempty" validate:"max=120"`
}

// Reminder is a scheduled notification owned by one user.
type Reminder struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description,omitempty" validate:"max=2000"`
	RemindAt    time.Time        `json:"remind_at" validate:"required"`
	Recurrence  *Recurrence      `json:"recurrence,omitempty" validate:"omitempty"`
	Priority    Priority         `json:"priority" validate:"required,oneof=low medium high"`
	Tags        []string         `json:"tags,omitempty" validate:"max=20,dive,required,max=40"`
	Channels    []Channel        `json:"channels" validate:"min=1,dive,oneof=email push sms"`
	Location    *LocationTrigger `json:"location,omitempty" validate:"omitempty"`
	Completed   bool             `json:"completed"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Validate checks field ranges and enumerations, then cross-field rules.
func (r *Reminder) Validate() error {
	const op = "reminder.validate"

	if err := validateStruct(op, r); err != nil {
		return err
	}

	if r.Recurrence != nil && r.Recurrence.Until != nil && r.Recurrence.Until.Before(r.RemindAt) {
		return NewValidationError(op, "recurrence.until", "must not be before remind_at")
	}

	return nil
}

// Recurring reports whether the reminder repeats.
func (r *Reminder) Recurring() bool {
	return r.Recurrence != nil
}
