package api

import (
	"net/http"
	"time"

	"github.com/dukerupert/remindr/internal/domain"
	"github.com/dukerupert/remindr/internal/handler"
	"github.com/dukerupert/remindr/internal/service"
)

// EventsHandler serves the signed-in user's calendar events.
type EventsHandler struct {
	events service.EventService
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(events service.EventService) *EventsHandler {
	return &EventsHandler{events: events}
}

type eventsResponse struct {
	Events []domain.Event `json:"events"`
}

// List handles GET /api/events?from=&to=
//
// from and to are RFC3339 timestamps. Both are optional: from defaults to
// now and to defaults to seven days after from.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var verr error
	from, err := parseTimeParam(q.Get("from"))
	if err != nil {
		verr = domain.AddFieldError(verr, "from", "must be an RFC3339 timestamp")
	}
	to, err := parseTimeParam(q.Get("to"))
	if err != nil {
		verr = domain.AddFieldError(verr, "to", "must be an RFC3339 timestamp")
	}
	if verr != nil {
		handler.ValidationErrorResponse(w, r, verr)
		return
	}

	events, err := h.events.ListEvents(r.Context(), from, to)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if events == nil {
		events = []domain.Event{}
	}
	handler.JSON(w, http.StatusOK, eventsResponse{Events: events})
}

// parseTimeParam returns nil for an empty value.
func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
