package clock

import "time"

// Clock abstracts wall-clock and boot-relative time so services stay
// deterministic in tests. Elapsed is monotonic; platform samples carry
// offsets against it rather than wall-clock instants.
type Clock interface {
	Now() time.Time
	Elapsed() time.Duration
}

// BootInstant derives the wall-clock instant of the monotonic epoch.
// Both readings come from the same clock in one call, so every sample
// of one event converts against the same reference.
func BootInstant(c Clock) time.Time {
	return c.Now().Add(-c.Elapsed())
}

type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (c *SystemClock) Elapsed() time.Duration {
	return time.Since(c.start)
}
