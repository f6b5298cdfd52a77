package scrape

import (
	"errors"
	"fmt"
	"time"
)

// ErrLocked is returned when another run holds the brand's scrape lock.
// Callers map it to 409 (API) or skip the brand (scheduler).
var ErrLocked = errors.New("scrape already in progress for brand")

// LockedError carries the holding run's start time so the API can tell the
// caller how long the lock has been held. It matches ErrLocked under
// errors.Is.
type LockedError struct {
	StartedAt time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("scrape already in progress for brand since %s", e.StartedAt.Format(time.RFC3339))
}

func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}
