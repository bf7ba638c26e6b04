package out

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/tormoder/fit"

	"stride/internal/modules/export/domain"
)

// FITActivityReader decodes a FIT activity file into the normalized
// activity shape the importer persists.
type FITActivityReader struct{}

func NewFITActivityReader() FITActivityReader {
	return FITActivityReader{}
}

func (FITActivityReader) Read(path string) (domain.Activity, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("open fit file: %w", err)
	}
	defer f.Close()

	decoded, err := fit.Decode(f)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("decode fit file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return domain.Activity{}, fmt.Errorf("not an activity file: %w", err)
	}
	if len(activity.Sessions) == 0 || len(activity.Records) == 0 {
		return domain.Activity{}, fmt.Errorf("activity file has no session data")
	}
	session := activity.Sessions[0]
	start := session.StartTime

	out := domain.Activity{
		Sport:     strings.ToLower(session.Sport.String()),
		StartTime: start,
	}
	for _, rec := range activity.Records {
		offset := rec.Timestamp.Sub(start)
		if offset < 0 {
			continue
		}
		r := domain.ActivityRecord{Offset: offset, Instant: rec.Timestamp}
		if rec.HeartRate != 0 && rec.HeartRate != math.MaxUint8 {
			bpm := int(rec.HeartRate)
			r.HRBPM = &bpm
		}
		if speed := rec.GetSpeedScaled(); !math.IsNaN(speed) && speed > 0 {
			mps := speed
			r.MetersPerSecond = &mps
		}
		if dist := rec.GetDistanceScaled(); !math.IsNaN(dist) && dist > 0 {
			meters := dist
			r.DistanceMeters = &meters
		}
		out.Records = append(out.Records, r)
	}
	if len(out.Records) == 0 {
		return domain.Activity{}, fmt.Errorf("activity file has no usable records")
	}

	last := out.Records[len(out.Records)-1]
	end := last.Instant
	out.EndTime = &end
	if timer := session.GetTotalTimerTimeScaled(); !math.IsNaN(timer) && timer > 0 {
		out.Duration = time.Duration(timer * float64(time.Second))
	} else {
		out.Duration = last.Offset
	}
	return out, nil
}
