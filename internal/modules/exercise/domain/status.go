package domain

// Status is the single coherent exercise state derived from platform
// callbacks, regardless of how out-of-order they arrive.
type Status string

const (
	StatusNotStarted         Status = "not_started"
	StatusUsedByDifferentApp Status = "used_by_different_app"
	StatusLoading            Status = "loading"
	StatusInProgress         Status = "in_progress"
	StatusPaused             Status = "paused"
	StatusEnded              Status = "ended"
)

// Active reports whether the status belongs to a live session. Loading
// counts: it occurs between session creation and the first InProgress
// update, and the durable pointer must survive it.
func (s Status) Active() bool {
	switch s {
	case StatusInProgress, StatusPaused, StatusLoading:
		return true
	default:
		return false
	}
}

// Kind is the type of run the platform session is configured for.
type Kind string

const (
	KindIndoorRun  Kind = "indoor_run"
	KindOutdoorRun Kind = "outdoor_run"
)

func (k Kind) Valid() bool {
	return k == KindIndoorRun || k == KindOutdoorRun
}
