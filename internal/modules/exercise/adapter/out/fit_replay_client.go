package out

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/tormoder/fit"

	"stride/internal/modules/exercise/domain"
	exerciseout "stride/internal/modules/exercise/port/out"
	"stride/internal/platform/clock"
	apperrors "stride/internal/platform/errors"
)

// FITReplayClient replays a recorded activity file as if a watch
// platform were emitting live tracking updates. It drives the whole
// session loop without hardware, which is what `stride run --replay`
// uses.
type FITReplayClient struct {
	mu       sync.Mutex
	clk      clock.Clock
	interval time.Duration
	records  []replayRecord
	calories float64

	active    bool
	paused    bool
	startTime time.Time
	activeDur time.Duration
	lastTick  time.Time
	stop      chan struct{}
	handle    *replayHandle
}

type replayRecord struct {
	offset   time.Duration
	hr       int
	speed    float64
	distance float64
	hasHR    bool
	hasSpeed bool
	hasDist  bool
}

type replayHandle struct {
	updates chan domain.Update
	once    sync.Once
}

func (h *replayHandle) Updates() <-chan domain.Update { return h.updates }

func (h *replayHandle) Close() error {
	h.once.Do(func() { close(h.updates) })
	return nil
}

// NewFITReplayClient decodes the activity file up front so a malformed
// file fails at construction, not mid-session.
func NewFITReplayClient(path string, clk clock.Clock, interval time.Duration) (*FITReplayClient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fit file: %w", err)
	}
	defer f.Close()

	decoded, err := fit.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode fit file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("not an activity file: %w", err)
	}
	if len(activity.Sessions) == 0 || len(activity.Records) == 0 {
		return nil, fmt.Errorf("activity file has no session data")
	}
	session := activity.Sessions[0]
	start := session.StartTime

	records := make([]replayRecord, 0, len(activity.Records))
	for _, rec := range activity.Records {
		r := replayRecord{offset: rec.Timestamp.Sub(start)}
		if r.offset < 0 {
			continue
		}
		if rec.HeartRate != 0 && rec.HeartRate != math.MaxUint8 {
			r.hr = int(rec.HeartRate)
			r.hasHR = true
		}
		if speed := rec.GetSpeedScaled(); !math.IsNaN(speed) && speed > 0 {
			r.speed = speed
			r.hasSpeed = true
		}
		if dist := rec.GetDistanceScaled(); !math.IsNaN(dist) && dist > 0 {
			r.distance = dist
			r.hasDist = true
		}
		records = append(records, r)
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &FITReplayClient{
		clk:      clk,
		interval: interval,
		records:  records,
		calories: float64(session.TotalCalories),
	}, nil
}

func (c *FITReplayClient) StartExercise(_ context.Context, _ domain.TrackingConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return fmt.Errorf("replay already running")
	}
	if c.handle == nil {
		return apperrors.ErrClientUnavailable
	}
	c.active = true
	c.paused = false
	c.startTime = c.clk.Now()
	c.activeDur = 0
	c.lastTick = c.startTime
	c.stop = make(chan struct{})
	c.emitLocked(domain.PlatformUserStarting, domain.EndReasonNone, nil)
	go c.replay(c.stop)
	return nil
}

func (c *FITReplayClient) PauseExercise(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.paused {
		return fmt.Errorf("no running exercise to pause")
	}
	c.accrueLocked()
	c.paused = true
	c.emitLocked(domain.PlatformUserPausing, domain.EndReasonNone, nil)
	c.emitLocked(domain.PlatformUserPaused, domain.EndReasonNone, nil)
	return nil
}

func (c *FITReplayClient) ResumeExercise(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || !c.paused {
		return fmt.Errorf("no paused exercise to resume")
	}
	c.paused = false
	c.lastTick = c.clk.Now()
	c.emitLocked(domain.PlatformUserResuming, domain.EndReasonNone, nil)
	c.emitLocked(domain.PlatformActive, domain.EndReasonNone, nil)
	return nil
}

func (c *FITReplayClient) EndExercise(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return fmt.Errorf("no running exercise to end")
	}
	c.endLocked(domain.EndReasonUserEnd)
	return nil
}

func (c *FITReplayClient) CurrentExerciseInfo(context.Context) (domain.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return domain.Info{Tracked: domain.TrackedOwned}, nil
	}
	return domain.Info{Tracked: domain.TrackedNone}, nil
}

func (c *FITReplayClient) RegisterCallback(context.Context) (exerciseout.CallbackHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	handle := &replayHandle{updates: make(chan domain.Update, 64)}
	c.handle = handle
	return handle, nil
}

// replay walks the recorded samples on a ticker, advancing one record
// per interval. Pausing freezes the record cursor along with the
// accumulated duration.
func (c *FITReplayClient) replay(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	cursor := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		c.mu.Lock()
		if !c.active {
			c.mu.Unlock()
			return
		}
		if c.paused {
			c.mu.Unlock()
			continue
		}
		c.accrueLocked()
		if cursor >= len(c.records) {
			c.endLocked(domain.EndReasonAutoEnd)
			c.mu.Unlock()
			return
		}
		rec := c.records[cursor]
		cursor++
		c.emitLocked(domain.PlatformActive, domain.EndReasonNone, &rec)
		c.mu.Unlock()
	}
}

func (c *FITReplayClient) accrueLocked() {
	now := c.clk.Now()
	if !c.paused {
		c.activeDur += now.Sub(c.lastTick)
	}
	c.lastTick = now
}

func (c *FITReplayClient) endLocked(reason domain.EndReason) {
	c.accrueLocked()
	c.active = false
	c.emitLocked(domain.PlatformEnding, domain.EndReasonNone, nil)
	c.emitLocked(domain.PlatformEnded, reason, nil)
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *FITReplayClient) emitLocked(state domain.PlatformState, reason domain.EndReason, rec *replayRecord) {
	if c.handle == nil {
		return
	}
	now := c.clk.Now()
	elapsed := c.clk.Elapsed()
	start := c.startTime
	update := domain.Update{
		State:          state,
		EndReason:      reason,
		UpdateDuration: elapsed,
		StartTime:      &start,
		Checkpoint:     &domain.Checkpoint{Time: now, ActiveDuration: c.activeDur},
	}
	if rec != nil {
		if rec.hasHR {
			update.HeartRateSamples = []domain.SamplePoint{{
				Kind:         domain.KindHeartRateBPM,
				Value:        float64(rec.hr),
				BootOffset:   elapsed,
				SensorStatus: domain.SensorStatusAccuracyMedium,
			}}
		}
		if rec.hasSpeed {
			update.SpeedSamples = []domain.SamplePoint{{
				Kind:       domain.KindSpeed,
				Value:      rec.speed,
				BootOffset: elapsed,
			}}
		}
		if rec.hasDist {
			update.TotalDistance = &domain.CumulativePoint{
				Kind:    domain.KindDistanceTotal,
				Total:   rec.distance,
				Instant: now,
			}
			if total := c.totalDistance(); total > 0 && c.calories > 0 {
				update.TotalCalories = &domain.CumulativePoint{
					Kind:    domain.KindCaloriesTotal,
					Total:   c.calories * rec.distance / total,
					Instant: now,
				}
			}
		}
	}
	select {
	case c.handle.updates <- update:
	default:
		// Consumer stalled; replay data is synthetic, dropping is fine.
	}
}

func (c *FITReplayClient) totalDistance() float64 {
	for i := len(c.records) - 1; i >= 0; i-- {
		if c.records[i].hasDist {
			return c.records[i].distance
		}
	}
	return 0
}
