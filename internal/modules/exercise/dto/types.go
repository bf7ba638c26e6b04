package dto

import "time"

type StartInput struct {
	Kind             string
	IncludeHeartRate bool
}

type StartOutput struct {
	ExerciseID string
}

type StatusOutput struct {
	ExerciseID string
	Status     string
	InProgress bool
	Duration   time.Duration
	HasSession bool
}

// Snapshot is one fused live view for display: heart rate collapsed to
// external-if-present-else-internal, latest value per metric.
type Snapshot struct {
	Status           string
	Duration         time.Duration
	HeartRateBPM     int
	HeartRateSource  string
	DistanceMeters   float64
	Calories         int
	CurrentPacePerKM time.Duration
	AveragePacePerKM time.Duration
	PaceDerived      bool
	Error            string
}

type ExerciseOutput struct {
	ExerciseID string
	Title      string
	Kind       string
	StartTime  *time.Time
	EndTime    *time.Time
	Duration   *time.Duration
}
