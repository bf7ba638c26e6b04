package domain_test

import (
	"testing"
	"time"

	"stride/internal/modules/exercise/domain"
)

var boot = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func TestHeartRateFromSampleRejectsBadContact(t *testing.T) {
	t.Parallel()
	for _, status := range []domain.SensorStatus{domain.SensorStatusNoContact, domain.SensorStatusUnreliable} {
		sample := &domain.SamplePoint{Kind: domain.KindHeartRateBPM, Value: 140, SensorStatus: status}
		if _, ok := domain.HeartRateFromSample(sample, time.Minute, boot); ok {
			t.Fatalf("%s must be rejected", status)
		}
	}
}

func TestHeartRateFromSampleAccuracyMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		status domain.SensorStatus
		want   domain.Accuracy
	}{
		{domain.SensorStatusAccuracyLow, domain.AccuracyLow},
		{domain.SensorStatusAccuracyMedium, domain.AccuracyMedium},
		{domain.SensorStatusAccuracyHigh, domain.AccuracyHigh},
		{domain.SensorStatusUnknown, domain.AccuracyUnknown},
		{domain.SensorStatus(""), domain.AccuracyUnknown},
	}
	for _, tc := range cases {
		sample := &domain.SamplePoint{
			Kind:         domain.KindHeartRateBPM,
			Value:        151.6,
			BootOffset:   10 * time.Second,
			SensorStatus: tc.status,
		}
		hr, ok := domain.HeartRateFromSample(sample, time.Minute, boot)
		if !ok {
			t.Fatalf("%s must be accepted", tc.status)
		}
		if hr.Accuracy != tc.want {
			t.Fatalf("%s: expected accuracy %s, got %s", tc.status, tc.want, hr.Accuracy)
		}
		if hr.BPM != 152 {
			t.Fatalf("expected rounded bpm 152, got %d", hr.BPM)
		}
		if hr.Source.Kind != domain.SourceInternal {
			t.Fatalf("expected internal provenance, got %v", hr.Source)
		}
		if !hr.Instant.Equal(boot.Add(10 * time.Second)) {
			t.Fatalf("unexpected instant %s", hr.Instant)
		}
	}
}

func TestHeartRateFromSampleRejectsWrongKind(t *testing.T) {
	t.Parallel()
	sample := &domain.SamplePoint{Kind: domain.KindSpeed, Value: 140}
	if _, ok := domain.HeartRateFromSample(sample, time.Minute, boot); ok {
		t.Fatal("wrong data kind must be rejected")
	}
	if _, ok := domain.HeartRateFromSample(nil, time.Minute, boot); ok {
		t.Fatal("nil sample must be rejected")
	}
}

func TestHeartRateFromDevice(t *testing.T) {
	t.Parallel()
	clk := fakeClock{now: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)}

	if _, ok := domain.HeartRateFromDevice("dev-1", domain.ExternalHRSample{BPM: 120, ContactSupported: true}, clk); ok {
		t.Fatal("no contact with contact support must be rejected")
	}

	hr, ok := domain.HeartRateFromDevice("dev-1", domain.ExternalHRSample{BPM: 120}, clk)
	if !ok {
		t.Fatal("sample without contact support must be accepted")
	}
	if hr.Accuracy != domain.AccuracyUnknown {
		t.Fatalf("strap accuracy is always unknown, got %s", hr.Accuracy)
	}
	if hr.Source != domain.ExternalSource("dev-1") {
		t.Fatalf("expected external provenance, got %v", hr.Source)
	}
	if !hr.Instant.Equal(clk.now) {
		t.Fatalf("strap samples are stamped with the fusion clock, got %s", hr.Instant)
	}
	if hr.ExerciseDuration != 0 {
		t.Fatalf("strap samples carry no duration yet, got %s", hr.ExerciseDuration)
	}
}

func TestCurrentPaceFromSpeed(t *testing.T) {
	t.Parallel()
	sample := &domain.SamplePoint{Kind: domain.KindSpeed, Value: 2.5, BootOffset: time.Second}
	pace, ok := domain.CurrentPaceFromSpeed(sample, time.Minute, boot)
	if !ok {
		t.Fatal("speed sample must derive a pace")
	}
	// 1,000,000 / 2.5 = 400,000 ms = 6m40s per km.
	if pace.PerKM != 400*time.Second {
		t.Fatalf("expected 6:40/km, got %s", pace.PerKM)
	}
	if pace.Derived {
		t.Fatal("speed-channel pace is not derived")
	}
}

func TestCurrentPaceFromSpeedClampsNonPositive(t *testing.T) {
	t.Parallel()
	for _, v := range []float64{0, -1.5} {
		sample := &domain.SamplePoint{Kind: domain.KindSpeed, Value: v}
		pace, ok := domain.CurrentPaceFromSpeed(sample, time.Minute, boot)
		if !ok {
			t.Fatal("clamped sample is still a value")
		}
		if pace.PerKM != 0 {
			t.Fatalf("speed %f must clamp pace to zero, got %s", v, pace.PerKM)
		}
	}
}

func TestCurrentPaceFromDistanceInterval(t *testing.T) {
	t.Parallel()
	point := &domain.IntervalPoint{
		Kind:            domain.KindDistance,
		Value:           100, // metres
		StartBootOffset: 10 * time.Second,
		EndBootOffset:   40 * time.Second,
	}
	pace, ok := domain.CurrentPaceFromDistanceInterval(point, time.Minute, boot)
	if !ok {
		t.Fatal("distance interval must derive a pace")
	}
	// 30s over 100m is 300s per km.
	if pace.PerKM != 300*time.Second {
		t.Fatalf("expected 5:00/km, got %s", pace.PerKM)
	}
	if !pace.Derived {
		t.Fatal("distance-derived pace must be tagged derived")
	}

	zero := &domain.IntervalPoint{Kind: domain.KindDistance, Value: 0, EndBootOffset: time.Second}
	pace, ok = domain.CurrentPaceFromDistanceInterval(zero, time.Minute, boot)
	if !ok || pace.PerKM != 0 || !pace.Derived {
		t.Fatalf("zero distance must yield zero derived pace, got %+v ok=%v", pace, ok)
	}
}

func TestCurrentPaceBetweenDistances(t *testing.T) {
	t.Parallel()
	first := domain.Distance{Total: 1000, ExerciseDuration: 5 * time.Minute}
	second := domain.Distance{Total: 1500, ExerciseDuration: 7 * time.Minute, Instant: boot}
	pace := domain.CurrentPaceBetweenDistances(first, second)
	// 2 minutes over 500m is 4 min per km.
	if pace.PerKM != 4*time.Minute {
		t.Fatalf("expected 4:00/km, got %s", pace.PerKM)
	}
	if !pace.Derived || !pace.Instant.Equal(boot) || pace.ExerciseDuration != 7*time.Minute {
		t.Fatalf("snapshot metadata not carried: %+v", pace)
	}

	same := domain.CurrentPaceBetweenDistances(second, second)
	if same.PerKM != 0 {
		t.Fatalf("zero delta must clamp to zero, got %s", same.PerKM)
	}
}

func TestAveragePaceFromStatsAndDistance(t *testing.T) {
	t.Parallel()
	speedStats := &domain.StatisticalPoint{Kind: domain.KindSpeedStats, Average: 4.0, Instant: boot}
	avg, ok := domain.AveragePaceFromSpeedStats(speedStats, time.Minute)
	if !ok || avg.PerKM != 250*time.Second || avg.Derived {
		t.Fatalf("expected native 4:10/km, got %+v ok=%v", avg, ok)
	}

	paceStats := &domain.StatisticalPoint{Kind: domain.KindPaceStats, Average: 301_500.4, Instant: boot}
	avg, ok = domain.AveragePaceFromPaceStats(paceStats, time.Minute)
	if !ok || avg.PerKM != 301_500*time.Millisecond {
		t.Fatalf("native pace must just round, got %+v ok=%v", avg, ok)
	}

	dist := domain.Distance{Total: 2000, ExerciseDuration: 10 * time.Minute, Instant: boot}
	avg = domain.AveragePaceFromDistance(dist)
	if avg.PerKM != 5*time.Minute || !avg.Derived {
		t.Fatalf("expected derived 5:00/km, got %+v", avg)
	}

	empty := domain.AveragePaceFromDistance(domain.Distance{})
	if empty.PerKM != 0 {
		t.Fatalf("zero distance must be zero pace, got %s", empty.PerKM)
	}
}

func TestCumulativePassThrough(t *testing.T) {
	t.Parallel()
	d, ok := domain.DistanceFromCumulative(&domain.CumulativePoint{Kind: domain.KindDistanceTotal, Total: 1234.5, Instant: boot}, time.Minute)
	if !ok || d.Total != 1234.5 {
		t.Fatalf("distance must pass through, got %+v ok=%v", d, ok)
	}
	if _, ok := domain.DistanceFromCumulative(&domain.CumulativePoint{Kind: domain.KindCaloriesTotal, Total: 1}, time.Minute); ok {
		t.Fatal("calories point must not become a distance")
	}

	c, ok := domain.CaloriesFromCumulative(&domain.CumulativePoint{Kind: domain.KindCaloriesTotal, Total: 99.6, Instant: boot}, time.Minute)
	if !ok || c.Total != 100 {
		t.Fatalf("calories must round to nearest, got %+v ok=%v", c, ok)
	}
	if _, ok := domain.CaloriesFromCumulative(nil, time.Minute); ok {
		t.Fatal("nil point must be rejected")
	}
}

func TestSpeedFromSample(t *testing.T) {
	t.Parallel()
	sample := &domain.SamplePoint{Kind: domain.KindSpeed, Value: 3.2, BootOffset: 2 * time.Second}
	s, ok := domain.SpeedFromSample(sample, time.Minute, boot)
	if !ok || s.MetersPerSecond != 3.2 || !s.Instant.Equal(boot.Add(2*time.Second)) {
		t.Fatalf("unexpected speed %+v ok=%v", s, ok)
	}
	if _, ok := domain.SpeedFromSample(&domain.SamplePoint{Kind: domain.KindPace}, time.Minute, boot); ok {
		t.Fatal("pace sample must not become a speed")
	}
}
