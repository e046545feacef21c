package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/remindr/internal/domain"
)

// EventService reads the principal's synced calendar events.
type EventService interface {
	// ListEvents returns events starting in [from, to], oldest first.
	// A nil from means now; a nil to means from + domain.DefaultEventWindow.
	// The principal is checked before any query runs.
	ListEvents(ctx context.Context, from, to *time.Time) ([]domain.Event, error)
}

// eventService implements EventService
type eventService struct {
	events domain.EventRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewEventService creates a new EventService instance
func NewEventService(events domain.EventRepository, logger *slog.Logger) EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventService{
		events: events,
		logger: logger.With("service", "events"),
		now:    time.Now,
	}
}

func (s *eventService) ListEvents(ctx context.Context, from, to *time.Time) ([]domain.Event, error) {
	principal, err := domain.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	tr := domain.TimeRange{From: s.now().UTC()}
	if from != nil {
		tr.From = *from
	}
	tr.To = tr.From.Add(domain.DefaultEventWindow)
	if to != nil {
		tr.To = *to
	}
	if err := tr.Validate(); err != nil {
		return nil, err
	}

	events, err := s.events.ListInRange(ctx, principal.UserID, tr)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list events", "user_id", principal.UserID, "error", err)
		return nil, err
	}
	return events, nil
}
