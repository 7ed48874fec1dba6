package ws

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time to activity bumps, snapshot timestamps
// and the restore suppression deadline. It is injected so the
// suppression-window state machine can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator mints ids for workspace and file records.
type IDGenerator interface {
	New() string
}

// UUIDGenerator issues random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
