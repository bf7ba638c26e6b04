package domain

import "time"

// Activity is a decoded recording from an external file, normalized to
// what the session tables can hold.
type Activity struct {
	Sport     string
	StartTime time.Time
	EndTime   *time.Time
	Duration  time.Duration
	Records   []ActivityRecord
}

// ActivityRecord is one timestamped sample from the recording. Optional
// channels are nil when the record did not carry them.
type ActivityRecord struct {
	Offset          time.Duration
	Instant         time.Time
	HRBPM           *int
	MetersPerSecond *float64
	DistanceMeters  *float64
}
