package domain

import "time"

// Exercise is one session row. Start and end stay nil until the state
// machine reaches InProgress and Ended respectively; rows are never
// deleted by this engine.
type Exercise struct {
	ID        string
	Title     string
	Kind      Kind
	StartTime *time.Time
	EndTime   *time.Time
	Duration  *time.Duration
}

// CurrentExercise is the durable pointer naming the live session, the
// single source of truth across process restarts. The persistence writer
// is its only writer.
type CurrentExercise struct {
	ExerciseID     string         `json:"exercise_id,omitempty"`
	InProgress     bool           `json:"in_progress"`
	LastTransition *time.Time     `json:"last_transition,omitempty"`
	ActiveDuration *time.Duration `json:"active_duration,omitempty"`
}

// DurationAt mirrors State.Duration for the persisted checkpoint; used
// to resolve the exercise duration of floating heart-rate samples.
func (c CurrentExercise) DurationAt(now time.Time) (time.Duration, bool) {
	if c.LastTransition == nil || c.ActiveDuration == nil {
		return 0, false
	}
	if c.InProgress {
		return *c.ActiveDuration + now.Sub(*c.LastTransition), true
	}
	return *c.ActiveDuration, true
}
