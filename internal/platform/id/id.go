package id

import (
	"strconv"

	"cadence/internal/platform/clock"
)

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

// EpochMillis names records after their creation instant.
type EpochMillis struct {
	Clock clock.Clock
}

func (g EpochMillis) New() string {
	return strconv.FormatInt(g.Clock.Now().UnixMilli(), 10)
}
