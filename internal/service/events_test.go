package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/remindr/internal/domain"
)

func TestEventService_ListEvents(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	newService := func(repo *mockEvents) *eventService {
		svc := NewEventService(repo, discardLogger()).(*eventService)
		svc.now = func() time.Time { return now }
		return svc
	}

	t.Run("unauthenticated fails before any query", func(t *testing.T) {
		repo := &mockEvents{}
		_, err := newService(repo).ListEvents(context.Background(), nil, nil)

		assert.True(t, domain.IsCode(err, domain.EUNAUTHORIZED))
		assert.Empty(t, repo.calls)
	})

	t.Run("defaults to the next seven days", func(t *testing.T) {
		repo := &mockEvents{events: []domain.Event{{Title: "standup"}}}
		events, err := newService(repo).ListEvents(withPrincipal(userID, "a@example.com"), nil, nil)

		require.NoError(t, err)
		assert.Len(t, events, 1)
		require.Len(t, repo.calls, 1)
		assert.Equal(t, now, repo.calls[0].From)
		assert.Equal(t, now.Add(7*24*time.Hour), repo.calls[0].To)
		assert.Equal(t, userID, repo.users[0], "query is scoped to the principal")
	})

	t.Run("explicit range", func(t *testing.T) {
		from := now.Add(-24 * time.Hour)
		to := now.Add(24 * time.Hour)
		repo := &mockEvents{}

		_, err := newService(repo).ListEvents(withPrincipal(userID, "a@example.com"), &from, &to)

		require.NoError(t, err)
		assert.Equal(t, domain.TimeRange{From: from, To: to}, repo.calls[0])
	})

	t.Run("from only extends by the default window", func(t *testing.T) {
		from := now.Add(48 * time.Hour)
		repo := &mockEvents{}

		_, err := newService(repo).ListEvents(withPrincipal(userID, "a@example.com"), &from, nil)

		require.NoError(t, err)
		assert.Equal(t, from.Add(domain.DefaultEventWindow), repo.calls[0].To)
	})

	t.Run("inverted range", func(t *testing.T) {
		from := now
		to := now.Add(-time.Second)
		repo := &mockEvents{}

		_, err := newService(repo).ListEvents(withPrincipal(userID, "a@example.com"), &from, &to)

		assert.True(t, domain.IsCode(err, domain.EINVALID))
		assert.Empty(t, repo.calls)
	})

	t.Run("store failure", func(t *testing.T) {
		repo := &mockEvents{err: domain.Internal(errors.New("timeout"), "events.list_in_range", "failed")}

		_, err := newService(repo).ListEvents(withPrincipal(userID, "a@example.com"), nil, nil)

		assert.True(t, domain.IsCode(err, domain.EINTERNAL))
	})
}
