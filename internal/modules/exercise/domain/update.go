package domain

import "time"

// PlatformState mirrors the raw state reported by the platform exercise
// client. It is mapped to Status via StateFromUpdate and never leaves
// the domain layer.
type PlatformState string

const (
	PlatformActive       PlatformState = "ACTIVE"
	PlatformUserStarting PlatformState = "USER_STARTING"
	PlatformUserPausing  PlatformState = "USER_PAUSING"
	PlatformUserPaused   PlatformState = "USER_PAUSED"
	PlatformUserResuming PlatformState = "USER_RESUMING"
	PlatformEnding       PlatformState = "ENDING"
	PlatformEnded        PlatformState = "ENDED"
)

// EndReason is set by the platform on ENDED updates.
type EndReason string

const (
	EndReasonNone      EndReason = ""
	EndReasonUserEnd   EndReason = "USER_END"
	EndReasonAutoEnd   EndReason = "AUTO_END"
	EndReasonAborted   EndReason = "ABORTED"
	EndReasonPermLost  EndReason = "AUTO_END_PERMISSION_LOST"
	EndReasonSuperside EndReason = "AUTO_END_SUPERSEDED"
)

// DataKind tags the metric a data point belongs to. Points travel in a
// shared untyped container on the wire, so every derivation filters on it.
type DataKind string

const (
	KindHeartRateBPM  DataKind = "heart_rate_bpm"
	KindSpeed         DataKind = "speed"
	KindPace          DataKind = "pace"
	KindDistance      DataKind = "distance"
	KindDistanceTotal DataKind = "distance_total"
	KindCaloriesTotal DataKind = "calories_total"
	KindSpeedStats    DataKind = "speed_stats"
	KindPaceStats     DataKind = "pace_stats"
)

// SensorStatus is the platform's per-sample accuracy report for the
// built-in heart-rate sensor.
type SensorStatus string

const (
	SensorStatusUnknown        SensorStatus = "UNKNOWN"
	SensorStatusNoContact      SensorStatus = "NO_CONTACT"
	SensorStatusUnreliable     SensorStatus = "UNRELIABLE"
	SensorStatusAccuracyLow    SensorStatus = "ACCURACY_LOW"
	SensorStatusAccuracyMedium SensorStatus = "ACCURACY_MEDIUM"
	SensorStatusAccuracyHigh   SensorStatus = "ACCURACY_HIGH"
)

// SamplePoint is one instantaneous reading stamped with a boot-relative
// offset instead of a wall-clock instant.
type SamplePoint struct {
	Kind         DataKind
	Value        float64
	BootOffset   time.Duration
	SensorStatus SensorStatus
}

// IntervalPoint covers a boot-relative window, e.g. distance gained
// between two offsets.
type IntervalPoint struct {
	Kind            DataKind
	Value           float64
	StartBootOffset time.Duration
	EndBootOffset   time.Duration
}

// CumulativePoint is a running total since session start.
type CumulativePoint struct {
	Kind    DataKind
	Total   float64
	Instant time.Time
}

// StatisticalPoint is a platform-aggregated value such as average speed.
type StatisticalPoint struct {
	Kind    DataKind
	Average float64
	Instant time.Time
}

// Checkpoint is the platform's (last transition time, accumulated active
// duration) pair used to compute elapsed time without polling.
type Checkpoint struct {
	Time           time.Time
	ActiveDuration time.Duration
}

// Update is one platform exercise-update callback event.
type Update struct {
	State          PlatformState
	EndReason      EndReason
	UpdateDuration time.Duration // boot-relative time of the callback
	StartTime      *time.Time
	Checkpoint     *Checkpoint

	HeartRateSamples  []SamplePoint
	SpeedSamples      []SamplePoint
	PaceSamples       []SamplePoint
	DistanceIntervals []IntervalPoint
	TotalDistance     *CumulativePoint
	TotalCalories     *CumulativePoint
	SpeedStats        *StatisticalPoint
	PaceStats         *StatisticalPoint
}

// EndedInError reports whether the platform ended the session for a
// reason other than an explicit user end.
func (u Update) EndedInError() bool {
	return u.State == PlatformEnded && u.EndReason != EndReasonNone && u.EndReason != EndReasonUserEnd
}

// TrackedStatus classifies who, if anyone, owns the platform session at
// orchestrator bootstrap.
type TrackedStatus string

const (
	TrackedNone     TrackedStatus = "NO_EXERCISE"
	TrackedOwned    TrackedStatus = "OWNED_EXERCISE_IN_PROGRESS"
	TrackedOtherApp TrackedStatus = "OTHER_APP_IN_PROGRESS"
)

// Info is the platform's answer to "is an exercise currently tracked".
type Info struct {
	Tracked TrackedStatus
}

// TrackingConfig is what the platform client is asked to start.
type TrackingConfig struct {
	Exercise           Kind
	GPSEnabled         bool
	AutoPauseAndResume bool
	DataKinds          []DataKind
}

// TrackingConfigFor builds the per-type session configuration: treadmill
// runs track without GPS, outdoor runs with it; auto-pause stays off in
// both. Distance is always requested, heart rate only when asked, and the
// native pace/speed channels only when the derived-pace fallback is not
// in use.
func TrackingConfigFor(kind Kind, includeHeartRate, nativePace bool) TrackingConfig {
	cfg := TrackingConfig{
		Exercise:           kind,
		GPSEnabled:         kind == KindOutdoorRun,
		AutoPauseAndResume: false,
		DataKinds:          []DataKind{KindDistanceTotal, KindCaloriesTotal},
	}
	if includeHeartRate {
		cfg.DataKinds = append(cfg.DataKinds, KindHeartRateBPM)
	}
	if nativePace {
		cfg.DataKinds = append(cfg.DataKinds, KindSpeed, KindSpeedStats, KindPace, KindPaceStats)
	} else {
		cfg.DataKinds = append(cfg.DataKinds, KindDistance)
	}
	return cfg
}
