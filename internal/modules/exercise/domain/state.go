package domain

import (
	"time"

	"stride/internal/platform/clock"
)

// State is one snapshot of the exercise state machine. LastUpdated is a
// boot-relative offset used to order callbacks; the three pointer fields
// are absent until the platform has produced a full checkpoint.
type State struct {
	Status         Status
	LastUpdated    time.Duration
	StartTime      *time.Time
	LastTransition *time.Time
	ActiveDuration *time.Duration
}

// Partial reports whether any timing detail is still missing. Partial
// states are published for display but never persisted as authoritative
// start/end records.
func (s State) Partial() bool {
	return s.StartTime == nil || s.LastTransition == nil || s.ActiveDuration == nil
}

// Duration computes active elapsed time at now. While InProgress the
// accumulated duration keeps growing from the last transition; in every
// other status it is exact as reported.
func (s State) Duration(now time.Time) (time.Duration, bool) {
	if s.LastTransition == nil || s.ActiveDuration == nil {
		return 0, false
	}
	if s.Status == StatusInProgress {
		return *s.ActiveDuration + now.Sub(*s.LastTransition), true
	}
	return *s.ActiveDuration, true
}

// NewStateWithStatus builds a state with no timing detail, stamped with
// the current boot-relative time. Used for NotStarted, Loading and
// synthetic resets.
func NewStateWithStatus(status Status, clk clock.Clock) State {
	return State{Status: status, LastUpdated: clk.Elapsed()}
}

// StateFromUpdate maps a raw platform update into a state snapshot,
// carrying the checkpoint through verbatim.
func StateFromUpdate(update Update) State {
	var status Status
	switch update.State {
	case PlatformActive:
		status = StatusInProgress
	case PlatformUserStarting, PlatformUserPausing, PlatformUserResuming, PlatformEnding:
		status = StatusLoading
	case PlatformEnded:
		status = StatusEnded
	case PlatformUserPaused:
		status = StatusPaused
	default:
		status = StatusNotStarted
	}
	state := State{
		Status:      status,
		LastUpdated: update.UpdateDuration,
		StartTime:   update.StartTime,
	}
	if cp := update.Checkpoint; cp != nil {
		t := cp.Time
		d := cp.ActiveDuration
		state.LastTransition = &t
		state.ActiveDuration = &d
	}
	return state
}

// StateFromInfo classifies the bootstrap answer from the platform. It
// yields InProgress, UsedByDifferentApp or NotStarted only, never a
// partial or loading state.
func StateFromInfo(info Info, clk clock.Clock) State {
	switch info.Tracked {
	case TrackedOwned:
		return NewStateWithStatus(StatusInProgress, clk)
	case TrackedOtherApp:
		return NewStateWithStatus(StatusUsedByDifferentApp, clk)
	default:
		return NewStateWithStatus(StatusNotStarted, clk)
	}
}
