package domain

import (
	"math"
	"time"

	"stride/internal/platform/clock"
)

// Accuracy is the tier reported for a heart-rate sample. External straps
// never report one, so their samples stay Unknown.
type Accuracy string

const (
	AccuracyUnknown Accuracy = "unknown"
	AccuracyLow     Accuracy = "low"
	AccuracyMedium  Accuracy = "medium"
	AccuracyHigh    Accuracy = "high"
)

type HeartRate struct {
	BPM              int
	Accuracy         Accuracy
	Source           Source
	Instant          time.Time
	ExerciseDuration time.Duration
}

type Distance struct {
	Total            float64
	Instant          time.Time
	ExerciseDuration time.Duration
}

type Speed struct {
	MetersPerSecond  float64
	Instant          time.Time
	ExerciseDuration time.Duration
}

type Calories struct {
	Total            int
	Instant          time.Time
	ExerciseDuration time.Duration
}

// CurrentPace and AveragePace are durations per kilometre. Derived marks
// values computed from distance over time rather than a native pace or
// speed channel.
type CurrentPace struct {
	PerKM            time.Duration
	Instant          time.Time
	ExerciseDuration time.Duration
	Derived          bool
}

type AveragePace struct {
	PerKM            time.Duration
	Instant          time.Time
	ExerciseDuration time.Duration
	Derived          bool
}

// ExternalHRSample is one reading from a BLE heart-rate device. Such
// samples carry no boot-relative timestamp; the fusion layer stamps them
// with its own clock.
type ExternalHRSample struct {
	BPM              int
	ContactSupported bool
	ContactDetected  bool
}

func roundMillis(v float64) time.Duration {
	return time.Duration(math.Round(v)) * time.Millisecond
}

// paceFromSpeed converts m/s into ms/km, clamping non-positive speeds to
// zero instead of dividing by them.
func paceFromSpeed(speed float64) time.Duration {
	if speed <= 0 {
		return 0
	}
	return roundMillis(1_000_000.0 / speed)
}

// paceFromDistance divides an elapsed window by kilometres covered.
func paceFromDistance(elapsed time.Duration, meters float64) time.Duration {
	if meters <= 0 {
		return 0
	}
	return roundMillis(float64(elapsed.Milliseconds()) / meters * 1000.0)
}

// HeartRateFromSample converts a built-in sensor sample, rejecting
// no-contact and unreliable readings outright.
func HeartRateFromSample(sample *SamplePoint, exerciseDuration time.Duration, boot time.Time) (HeartRate, bool) {
	if sample == nil || sample.Kind != KindHeartRateBPM {
		return HeartRate{}, false
	}
	if sample.SensorStatus == SensorStatusNoContact || sample.SensorStatus == SensorStatusUnreliable {
		return HeartRate{}, false
	}
	var accuracy Accuracy
	switch sample.SensorStatus {
	case SensorStatusAccuracyLow:
		accuracy = AccuracyLow
	case SensorStatusAccuracyMedium:
		accuracy = AccuracyMedium
	case SensorStatusAccuracyHigh:
		accuracy = AccuracyHigh
	default:
		accuracy = AccuracyUnknown
	}
	return HeartRate{
		BPM:              int(math.Round(sample.Value)),
		Accuracy:         accuracy,
		Source:           InternalSource(),
		Instant:          boot.Add(sample.BootOffset),
		ExerciseDuration: exerciseDuration,
	}, true
}

// HeartRateFromDevice converts a BLE strap sample. A device that supports
// contact detection and reports no contact produces nothing. The exercise
// duration stays zero here; the persistence writer resolves it from the
// durable pointer.
func HeartRateFromDevice(deviceID string, sample ExternalHRSample, clk clock.Clock) (HeartRate, bool) {
	if sample.ContactSupported && !sample.ContactDetected {
		return HeartRate{}, false
	}
	return HeartRate{
		BPM:      sample.BPM,
		Accuracy: AccuracyUnknown,
		Source:   ExternalSource(deviceID),
		Instant:  clk.Now(),
	}, true
}

func SpeedFromSample(sample *SamplePoint, exerciseDuration time.Duration, boot time.Time) (Speed, bool) {
	if sample == nil || sample.Kind != KindSpeed {
		return Speed{}, false
	}
	return Speed{
		MetersPerSecond:  sample.Value,
		Instant:          boot.Add(sample.BootOffset),
		ExerciseDuration: exerciseDuration,
	}, true
}

func DistanceFromCumulative(point *CumulativePoint, exerciseDuration time.Duration) (Distance, bool) {
	if point == nil || point.Kind != KindDistanceTotal {
		return Distance{}, false
	}
	return Distance{
		Total:            point.Total,
		Instant:          point.Instant,
		ExerciseDuration: exerciseDuration,
	}, true
}

func CaloriesFromCumulative(point *CumulativePoint, exerciseDuration time.Duration) (Calories, bool) {
	if point == nil || point.Kind != KindCaloriesTotal {
		return Calories{}, false
	}
	return Calories{
		Total:            int(math.Round(point.Total)),
		Instant:          point.Instant,
		ExerciseDuration: exerciseDuration,
	}, true
}

func CurrentPaceFromSpeed(sample *SamplePoint, exerciseDuration time.Duration, boot time.Time) (CurrentPace, bool) {
	if sample == nil || sample.Kind != KindSpeed {
		return CurrentPace{}, false
	}
	return CurrentPace{
		PerKM:            paceFromSpeed(sample.Value),
		Instant:          boot.Add(sample.BootOffset),
		ExerciseDuration: exerciseDuration,
	}, true
}

func CurrentPaceFromPace(sample *SamplePoint, exerciseDuration time.Duration, boot time.Time) (CurrentPace, bool) {
	if sample == nil || sample.Kind != KindPace {
		return CurrentPace{}, false
	}
	return CurrentPace{
		PerKM:            roundMillis(sample.Value),
		Instant:          boot.Add(sample.BootOffset),
		ExerciseDuration: exerciseDuration,
	}, true
}

// CurrentPaceFromDistanceInterval derives pace for the interval's own
// window; it backs the configuration where no native pace channel is
// enabled.
func CurrentPaceFromDistanceInterval(point *IntervalPoint, exerciseDuration time.Duration, boot time.Time) (CurrentPace, bool) {
	if point == nil || point.Kind != KindDistance {
		return CurrentPace{}, false
	}
	window := point.EndBootOffset - point.StartBootOffset
	return CurrentPace{
		PerKM:            paceFromDistance(window, point.Value),
		Instant:          boot.Add(point.EndBootOffset),
		ExerciseDuration: exerciseDuration,
		Derived:          true,
	}, true
}

// CurrentPaceBetweenDistances derives pace from two cumulative distance
// snapshots of the same session.
func CurrentPaceBetweenDistances(first, second Distance) CurrentPace {
	return CurrentPace{
		PerKM:            paceFromDistance(second.ExerciseDuration-first.ExerciseDuration, second.Total-first.Total),
		Instant:          second.Instant,
		ExerciseDuration: second.ExerciseDuration,
		Derived:          true,
	}
}

func AveragePaceFromSpeedStats(point *StatisticalPoint, exerciseDuration time.Duration) (AveragePace, bool) {
	if point == nil || point.Kind != KindSpeedStats {
		return AveragePace{}, false
	}
	return AveragePace{
		PerKM:            paceFromSpeed(point.Average),
		Instant:          point.Instant,
		ExerciseDuration: exerciseDuration,
	}, true
}

func AveragePaceFromPaceStats(point *StatisticalPoint, exerciseDuration time.Duration) (AveragePace, bool) {
	if point == nil || point.Kind != KindPaceStats {
		return AveragePace{}, false
	}
	return AveragePace{
		PerKM:            roundMillis(point.Average),
		Instant:          point.Instant,
		ExerciseDuration: exerciseDuration,
	}, true
}

// AveragePaceFromDistance averages over the whole session so far.
func AveragePaceFromDistance(distance Distance) AveragePace {
	return AveragePace{
		PerKM:            paceFromDistance(distance.ExerciseDuration, distance.Total),
		Instant:          distance.Instant,
		ExerciseDuration: distance.ExerciseDuration,
		Derived:          true,
	}
}
