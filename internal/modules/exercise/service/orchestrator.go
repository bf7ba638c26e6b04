package service

import (
	"context"
	"log"
	"time"

	"stride/internal/modules/exercise/domain"
	exerciseout "stride/internal/modules/exercise/port/out"
	"stride/internal/platform/clock"
	apperrors "stride/internal/platform/errors"
	"stride/internal/platform/stream"
)

const errorBuffer = 1

// Options tunes stream behavior and the metric derivation paths.
type Options struct {
	// MetricBuffer is the per-subscriber capacity of metric channels.
	MetricBuffer int
	// NativePace enables the platform's pace/speed channels; otherwise
	// pace is derived from distance over time.
	NativePace bool
	// OnlyHighHRAccuracy drops internal samples below the High tier from
	// the published stream.
	OnlyHighHRAccuracy bool
}

// Orchestrator is the single authority for what the exercise is doing.
// It bridges platform push callbacks onto replayable streams and exposes
// the imperative session commands.
type Orchestrator struct {
	client     exerciseout.Client
	writer     *Writer
	foreground exerciseout.ForegroundController
	clk        clock.Clock
	opts       Options

	states       *stream.Broadcaster[domain.State]
	heartRates   *stream.Broadcaster[domain.HeartRate]
	distances    *stream.Broadcaster[domain.Distance]
	speeds       *stream.Broadcaster[domain.Speed]
	calories     *stream.Broadcaster[domain.Calories]
	currentPaces *stream.Broadcaster[domain.CurrentPace]
	averagePaces *stream.Broadcaster[domain.AveragePace]
	errs         *stream.Broadcaster[apperrors.ServiceError]
}

func NewOrchestrator(
	client exerciseout.Client,
	writer *Writer,
	foreground exerciseout.ForegroundController,
	clk clock.Clock,
	opts Options,
) *Orchestrator {
	if opts.MetricBuffer <= 0 {
		opts.MetricBuffer = 64
	}
	metric := stream.Options{Buffer: opts.MetricBuffer}
	return &Orchestrator{
		client:       client,
		writer:       writer,
		foreground:   foreground,
		clk:          clk,
		opts:         opts,
		states:       stream.New[domain.State](stream.Options{Replay: 1, Buffer: opts.MetricBuffer}),
		heartRates:   stream.New[domain.HeartRate](metric),
		distances:    stream.New[domain.Distance](metric),
		speeds:       stream.New[domain.Speed](metric),
		calories:     stream.New[domain.Calories](metric),
		currentPaces: stream.New[domain.CurrentPace](metric),
		averagePaces: stream.New[domain.AveragePace](metric),
		errs:         stream.New[apperrors.ServiceError](stream.Options{Buffer: errorBuffer, Policy: stream.DropOldest}),
	}
}

func (o *Orchestrator) States(ctx context.Context) <-chan domain.State {
	return o.states.Subscribe(ctx)
}

func (o *Orchestrator) HeartRates(ctx context.Context) <-chan domain.HeartRate {
	return o.heartRates.Subscribe(ctx)
}

func (o *Orchestrator) Distances(ctx context.Context) <-chan domain.Distance {
	return o.distances.Subscribe(ctx)
}

func (o *Orchestrator) Speeds(ctx context.Context) <-chan domain.Speed {
	return o.speeds.Subscribe(ctx)
}

func (o *Orchestrator) Calories(ctx context.Context) <-chan domain.Calories {
	return o.calories.Subscribe(ctx)
}

func (o *Orchestrator) CurrentPaces(ctx context.Context) <-chan domain.CurrentPace {
	return o.currentPaces.Subscribe(ctx)
}

func (o *Orchestrator) AveragePaces(ctx context.Context) <-chan domain.AveragePace {
	return o.averagePaces.Subscribe(ctx)
}

func (o *Orchestrator) Errors(ctx context.Context) <-chan apperrors.ServiceError {
	return o.errs.Subscribe(ctx)
}

// CurrentState returns the latest published state, if any update has
// arrived since the last session reset.
func (o *Orchestrator) CurrentState() (domain.State, bool) {
	return o.states.Last()
}

// PublishExternalHeartRate feeds strap samples from the device module
// into the same heart-rate stream the UI consumes, and records them
// against the current session like any on-body sample.
func (o *Orchestrator) PublishExternalHeartRate(ctx context.Context, hr domain.HeartRate) {
	publish(o.heartRates, hr)
	o.persistMetric(o.writer.WriteHeartRate(ctx, hr))
}

// PublishError lets sibling services surface failures on the shared
// error stream.
func (o *Orchestrator) PublishError(err apperrors.ServiceError) {
	o.errs.Publish(err)
}

// Run bootstraps against the platform and processes updates until ctx
// is cancelled. The callback is always deregistered on the way out,
// even when ctx is already done.
func (o *Orchestrator) Run(ctx context.Context) error {
	handle, err := o.client.RegisterCallback(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			log.Printf("exercise: clear update callback: %v", err)
		}
	}()

	// Registered before the bootstrap state goes out: anyone who has
	// seen a state can issue commands against a live callback.
	info, err := o.client.CurrentExerciseInfo(ctx)
	if err != nil {
		return err
	}
	o.emitState(ctx, domain.StateFromInfo(info, o.clk))

	go o.watchForeground(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-handle.Updates():
			if !ok {
				return nil
			}
			o.handleUpdate(ctx, update)
		}
	}
}

// StartExercise clears the replay caches so a new session's first
// subscribers cannot observe the previous one, creates the session row
// and durable pointer, then asks the platform to start tracking.
func (o *Orchestrator) StartExercise(ctx context.Context, kind domain.Kind, includeHeartRate bool) (string, error) {
	if !kind.Valid() {
		return "", apperrors.ErrInvalidInput
	}
	o.resetReplayCaches()
	exerciseID, err := o.writer.Create(ctx, kind)
	if err != nil {
		return "", err
	}
	cfg := domain.TrackingConfigFor(kind, includeHeartRate, o.opts.NativePace)
	o.tryInvoke(ctx, func() error { return o.client.StartExercise(ctx, cfg) })
	return exerciseID, nil
}

func (o *Orchestrator) PauseExercise(ctx context.Context) {
	o.tryInvoke(ctx, func() error { return o.client.PauseExercise(ctx) })
}

func (o *Orchestrator) ResumeExercise(ctx context.Context) {
	o.tryInvoke(ctx, func() error { return o.client.ResumeExercise(ctx) })
}

func (o *Orchestrator) EndExercise(ctx context.Context) {
	o.tryInvoke(ctx, func() error { return o.client.EndExercise(ctx) })
}

// ResetExercise synthesizes a fresh NotStarted state without touching
// the platform.
func (o *Orchestrator) ResetExercise(ctx context.Context) {
	o.emitState(ctx, domain.NewStateWithStatus(domain.StatusNotStarted, o.clk))
}

// tryInvoke surfaces a platform command failure on the error stream and,
// when the platform confirms no session of ours is actually active,
// forces a reset so the UI never sticks in Loading.
func (o *Orchestrator) tryInvoke(ctx context.Context, fn func() error) {
	err := fn()
	if err == nil {
		return
	}
	o.errs.Publish(apperrors.WithError(err))
	info, infoErr := o.client.CurrentExerciseInfo(ctx)
	if infoErr != nil || info.Tracked != domain.TrackedOwned {
		o.ResetExercise(ctx)
	}
}

func (o *Orchestrator) handleUpdate(ctx context.Context, update domain.Update) {
	state := domain.StateFromUpdate(update)
	o.emitState(ctx, state)

	duration, ok := state.Duration(o.clk.Now())
	if !ok {
		log.Print("exercise: received update with no duration")
	} else {
		o.extractMetrics(ctx, update, duration)
	}
	if update.EndedInError() {
		o.errs.Publish(apperrors.WithMessage("Exercise prematurely ended"))
	}
}

// extractMetrics publishes each derived value for subscribers and
// records the stored kinds through the writer in the same step. Running
// on the update loop keeps row writes ordered with the pointer clear an
// ended state performs, so a sample from one update cannot be orphaned
// by the end that follows it.
func (o *Orchestrator) extractMetrics(ctx context.Context, update domain.Update, duration time.Duration) {
	boot := clock.BootInstant(o.clk)

	for i := range update.HeartRateSamples {
		hr, ok := domain.HeartRateFromSample(&update.HeartRateSamples[i], duration, boot)
		if !ok {
			continue
		}
		if o.opts.OnlyHighHRAccuracy && hr.Accuracy != domain.AccuracyHigh {
			continue
		}
		publish(o.heartRates, hr)
		o.persistMetric(o.writer.WriteHeartRate(ctx, hr))
	}

	for i := range update.SpeedSamples {
		if speed, ok := domain.SpeedFromSample(&update.SpeedSamples[i], duration, boot); ok {
			publish(o.speeds, speed)
			o.persistMetric(o.writer.WriteSpeed(ctx, speed))
		}
		if pace, ok := domain.CurrentPaceFromSpeed(&update.SpeedSamples[i], duration, boot); ok {
			publish(o.currentPaces, pace)
		}
	}
	for i := range update.PaceSamples {
		if pace, ok := domain.CurrentPaceFromPace(&update.PaceSamples[i], duration, boot); ok {
			publish(o.currentPaces, pace)
		}
	}
	if !o.opts.NativePace {
		for i := range update.DistanceIntervals {
			if pace, ok := domain.CurrentPaceFromDistanceInterval(&update.DistanceIntervals[i], duration, boot); ok {
				publish(o.currentPaces, pace)
			}
		}
	}

	if distance, ok := domain.DistanceFromCumulative(update.TotalDistance, duration); ok {
		publish(o.distances, distance)
		o.persistMetric(o.writer.WriteDistance(ctx, distance))
		if !o.opts.NativePace {
			publish(o.averagePaces, domain.AveragePaceFromDistance(distance))
		}
	}
	if cal, ok := domain.CaloriesFromCumulative(update.TotalCalories, duration); ok {
		publish(o.calories, cal)
	}
	if o.opts.NativePace {
		if avg, ok := domain.AveragePaceFromSpeedStats(update.SpeedStats, duration); ok {
			publish(o.averagePaces, avg)
		}
		if avg, ok := domain.AveragePaceFromPaceStats(update.PaceStats, duration); ok {
			publish(o.averagePaces, avg)
		}
	}
}

// watchForeground toggles elevated execution exactly on the two
// InProgress edges.
func (o *Orchestrator) watchForeground(ctx context.Context) {
	inProgress := false
	for state := range o.states.Subscribe(ctx) {
		now := state.Status == domain.StatusInProgress
		if now == inProgress {
			continue
		}
		inProgress = now
		if now {
			o.foreground.MoveToForeground()
		} else {
			o.foreground.RemoveFromForeground()
		}
	}
}

// persistMetric surfaces a failed metric insert on the error stream
// without interrupting the update loop.
func (o *Orchestrator) persistMetric(err error) {
	if err != nil {
		o.errs.Publish(apperrors.WithError(err))
		log.Printf("exercise: persist metric: %v", err)
	}
}

// emitState publishes for subscribers and persists the transition in
// the same step, so pointer clears and creates stay ordered with the
// commands that race against them.
func (o *Orchestrator) emitState(ctx context.Context, state domain.State) {
	publish(o.states, state)
	if err := o.writer.HandleState(ctx, state); err != nil {
		o.errs.Publish(apperrors.WithError(err))
		log.Printf("exercise: persist state: %v", err)
	}
}

func (o *Orchestrator) resetReplayCaches() {
	o.states.ResetReplay()
	o.heartRates.ResetReplay()
	o.distances.ResetReplay()
	o.speeds.ResetReplay()
	o.calories.ResetReplay()
	o.currentPaces.ResetReplay()
	o.averagePaces.ResetReplay()
}

// publish drops are expected under backpressure; log so a stalled
// subscriber is at least visible.
func publish[T any](b *stream.Broadcaster[T], v T) {
	if !b.Publish(v) {
		log.Printf("exercise: dropped %T for slow subscriber", v)
	}
}
