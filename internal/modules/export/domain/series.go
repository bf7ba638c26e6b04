package domain

import (
	"sort"
	"time"
)

// Session is the export module's view of a stored exercise row.
type Session struct {
	ID        string
	Title     string
	Kind      string
	StartTime *time.Time
	EndTime   *time.Time
	Duration  *time.Duration
}

// Raw metric rows as read back from storage, each stamped with the
// exercise-duration offset it was recorded at.
type DistancePoint struct {
	Offset time.Duration
	Meters float64
}

type SpeedPoint struct {
	Offset          time.Duration
	MetersPerSecond float64
}

type HeartRatePoint struct {
	Offset time.Duration
	BPM    int
	Source string
}

// Point is one row of the fused time series: every offset any metric
// was recorded at, with whichever values were present there. Distance
// is cumulative so it carries forward; HR and speed are instantaneous
// and stay nil between their own samples.
type Point struct {
	Offset          time.Duration
	HRBPM           *int
	HRSource        string
	MetersPerSecond *float64
	DistanceMeters  *float64
}

// Fuse merges the three metric streams into one series ordered by
// offset. Inputs need not be sorted.
func Fuse(distances []DistancePoint, speeds []SpeedPoint, heartRates []HeartRatePoint) []Point {
	index := make(map[time.Duration]*Point)
	at := func(offset time.Duration) *Point {
		p, ok := index[offset]
		if !ok {
			p = &Point{Offset: offset}
			index[offset] = p
		}
		return p
	}
	for _, d := range distances {
		meters := d.Meters
		at(d.Offset).DistanceMeters = &meters
	}
	for _, s := range speeds {
		mps := s.MetersPerSecond
		at(s.Offset).MetersPerSecond = &mps
	}
	for _, hr := range heartRates {
		bpm := hr.BPM
		p := at(hr.Offset)
		p.HRBPM = &bpm
		p.HRSource = hr.Source
	}

	points := make([]Point, 0, len(index))
	for _, p := range index {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Offset < points[j].Offset })

	// Carry the cumulative distance forward over offsets where only
	// instantaneous metrics were recorded.
	var last *float64
	for i := range points {
		if points[i].DistanceMeters != nil {
			last = points[i].DistanceMeters
		} else if last != nil {
			carried := *last
			points[i].DistanceMeters = &carried
		}
	}
	return points
}

// Summary aggregates a session for history display and export headers.
type Summary struct {
	AvgHRBPM       int
	MaxHRBPM       int
	TotalDistanceM float64
	AvgPacePerKm   time.Duration
	Duration       time.Duration
}

// Summarize computes totals and averages from stored rows. Average pace
// comes from total distance over session duration; zero distance or
// missing duration leaves it zero.
func Summarize(session Session, points []Point) Summary {
	var s Summary
	if session.Duration != nil {
		s.Duration = *session.Duration
	}

	var hrSum, hrCount int
	for _, p := range points {
		if p.HRBPM == nil {
			continue
		}
		hrSum += *p.HRBPM
		hrCount++
		if *p.HRBPM > s.MaxHRBPM {
			s.MaxHRBPM = *p.HRBPM
		}
	}
	if hrCount > 0 {
		s.AvgHRBPM = hrSum / hrCount
	}

	for _, p := range points {
		if p.DistanceMeters != nil && *p.DistanceMeters > s.TotalDistanceM {
			s.TotalDistanceM = *p.DistanceMeters
		}
	}
	if s.TotalDistanceM > 0 && s.Duration > 0 {
		perMeter := float64(s.Duration) / s.TotalDistanceM
		s.AvgPacePerKm = time.Duration(perMeter * 1000)
	}
	return s
}
