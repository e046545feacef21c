package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/remindr/internal/domain"
)

// EventStore implements domain.EventRepository using PostgreSQL.
type EventStore struct {
	db DBTX
}

var _ domain.EventRepository = (*EventStore)(nil)

// NewEventStore creates a new EventStore instance.
func NewEventStore(db DBTX) *EventStore {
	return &EventStore{db: db}
}

const listEventsInRange = `
SELECT id, user_id, title, description, start_time, end_time, all_day,
       location, provider, external_id, synced_at
FROM events
WHERE user_id = $1 AND start_time >= $2 AND start_time <= $3
ORDER BY start_time ASC, id ASC`

// ListInRange returns the user's events starting within tr, oldest first.
func (s *EventStore) ListInRange(ctx context.Context, userID uuid.UUID, tr domain.TimeRange) ([]domain.Event, error) {
	const op = "events.list_in_range"

	if userID == uuid.Nil {
		return nil, domain.Unauthorized(op, "user id is required")
	}
	if err := tr.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, listEventsInRange, pgUUID(userID), pgTimestamptz(tr.From), pgTimestamptz(tr.To))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list events")
	}

	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read events")
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

func scanEvent(row pgx.CollectableRow) (domain.Event, error) {
	var (
		e        domain.Event
		id       pgtype.UUID
		userID   pgtype.UUID
		provider string
	)
	err := row.Scan(
		&id, &userID, &e.Title, &e.Description, &e.StartTime, &e.EndTime, &e.AllDay,
		&e.Location, &provider, &e.ExternalID, &e.SyncedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}

	e.ID = uuid.UUID(id.Bytes)
	e.UserID = uuid.UUID(userID.Bytes)
	e.Provider = domain.CalendarProvider(provider)
	return e, nil
}
