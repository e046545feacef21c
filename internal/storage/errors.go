package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/remindr/internal/domain"
)

var (
	// ErrRedisURLRequired is returned when REDIS_URL is missing.
	ErrRedisURLRequired = domain.Errorf(domain.EINVALID, "storage.redis", "redis url is required")

	// ErrEmptyEventID is returned when a ledger call has no event id.
	ErrEmptyEventID = domain.Errorf(domain.EINVALID, "storage.ledger", "event id is required")
)

// IsUnavailable reports whether err came from an unreachable backend.
func IsUnavailable(err error) bool {
	return domain.IsCode(err, domain.EUNAVAILABLE)
}

// wrapRedisError tags a Redis failure as unavailable. Context errors pass
// through so callers can tell cancellation from an outage.
func wrapRedisError(action string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.WrapError(err, domain.EUNAVAILABLE, "storage.ledger", fmt.Sprintf("webhook ledger %s failed", action))
}
