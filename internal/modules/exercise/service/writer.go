package service

import (
	"context"
	"fmt"
	"time"

	"stride/internal/modules/exercise/domain"
	exerciseout "stride/internal/modules/exercise/port/out"
	"stride/internal/platform/clock"
	"stride/internal/platform/id"
)

// Writer persists exercise state transitions and metric values. Metric
// rows are attributed to whichever exercise the durable pointer names at
// the moment the value arrives, so samples that trickle in after an end
// are dropped rather than misfiled. The orchestrator calls it inline
// from the publish path, which keeps row writes ordered with the pointer
// clears that decide their attribution.
type Writer struct {
	exercises  exerciseout.ExerciseStore
	distances  exerciseout.DistanceStore
	speeds     exerciseout.SpeedStore
	heartRates exerciseout.HeartRateStore
	current    exerciseout.CurrentExerciseStore
	clk        clock.Clock
	ids        id.Generator
}

func NewWriter(
	exercises exerciseout.ExerciseStore,
	distances exerciseout.DistanceStore,
	speeds exerciseout.SpeedStore,
	heartRates exerciseout.HeartRateStore,
	current exerciseout.CurrentExerciseStore,
	clk clock.Clock,
	ids id.Generator,
) *Writer {
	return &Writer{
		exercises:  exercises,
		distances:  distances,
		speeds:     speeds,
		heartRates: heartRates,
		current:    current,
		clk:        clk,
		ids:        ids,
	}
}

// Create inserts the session row and points the durable pointer at it
// before the platform is asked to start, so a crash between the two
// still leaves a resumable record.
func (w *Writer) Create(ctx context.Context, kind domain.Kind) (string, error) {
	exerciseID := w.ids.New()
	if err := w.exercises.Create(ctx, exerciseID, kind); err != nil {
		return "", fmt.Errorf("create exercise: %w", err)
	}
	err := w.current.Update(ctx, func(domain.CurrentExercise) domain.CurrentExercise {
		return domain.CurrentExercise{ExerciseID: exerciseID}
	})
	if err != nil {
		return "", fmt.Errorf("set current exercise: %w", err)
	}
	return exerciseID, nil
}

// HandleState persists one state transition. It resolves the exercise
// id first, clears the pointer when the session is no longer active,
// skips row writes for partial states, and otherwise refreshes the
// pointer's progress fields before touching the session row. Called
// synchronously from the update loop so clears and creates cannot
// reorder around each other.
func (w *Writer) HandleState(ctx context.Context, state domain.State) error {
	exerciseID, err := w.resolveCurrent(ctx)
	if err != nil {
		return err
	}
	if !state.Status.Active() {
		err := w.current.Update(ctx, func(domain.CurrentExercise) domain.CurrentExercise {
			return domain.CurrentExercise{}
		})
		if err != nil {
			return fmt.Errorf("clear current exercise: %w", err)
		}
	}
	if state.Partial() || exerciseID == "" {
		return nil
	}
	err = w.current.Update(ctx, func(cur domain.CurrentExercise) domain.CurrentExercise {
		cur.InProgress = state.Status == domain.StatusInProgress
		cur.LastTransition = state.LastTransition
		cur.ActiveDuration = state.ActiveDuration
		return cur
	})
	if err != nil {
		return fmt.Errorf("update current exercise: %w", err)
	}
	return w.writeStateRow(ctx, exerciseID, state)
}

func (w *Writer) writeStateRow(ctx context.Context, exerciseID string, state domain.State) error {
	switch state.Status {
	case domain.StatusInProgress:
		if err := w.exercises.UpdateStart(ctx, exerciseID, state.StartTime, state.ActiveDuration); err != nil {
			return fmt.Errorf("record exercise start: %w", err)
		}
	case domain.StatusEnded:
		var duration *time.Duration
		if d, ok := state.Duration(w.clk.Now()); ok {
			duration = &d
		}
		// The session ended at its last transition, not at whatever
		// moment the update reached us.
		if err := w.exercises.UpdateEnd(ctx, exerciseID, state.LastTransition, duration); err != nil {
			return fmt.Errorf("record exercise end: %w", err)
		}
	}
	return nil
}

// WriteDistance records one distance value against the current
// exercise. Values arriving without a resolvable session are dropped.
func (w *Writer) WriteDistance(ctx context.Context, distance domain.Distance) error {
	exerciseID, err := w.resolveCurrent(ctx)
	if err != nil {
		return err
	}
	if exerciseID == "" {
		return nil
	}
	if err := w.distances.Insert(ctx, exerciseID, distance); err != nil {
		return fmt.Errorf("insert distance: %w", err)
	}
	return nil
}

// WriteSpeed records one speed value against the current exercise.
func (w *Writer) WriteSpeed(ctx context.Context, speed domain.Speed) error {
	exerciseID, err := w.resolveCurrent(ctx)
	if err != nil {
		return err
	}
	if exerciseID == "" {
		return nil
	}
	if err := w.speeds.Insert(ctx, exerciseID, speed); err != nil {
		return fmt.Errorf("insert speed: %w", err)
	}
	return nil
}

// WriteHeartRate records one heart-rate value. Strap samples arrive
// with a zero exercise duration; those get stamped with the session
// duration at the sample's own instant so external and on-body rows
// stay on the same axis.
func (w *Writer) WriteHeartRate(ctx context.Context, hr domain.HeartRate) error {
	cur, err := w.current.Load(ctx)
	if err != nil {
		return fmt.Errorf("load current exercise: %w", err)
	}
	if cur.ExerciseID == "" {
		return nil
	}
	if hr.ExerciseDuration == 0 {
		duration, ok := cur.DurationAt(hr.Instant)
		if !ok {
			return nil
		}
		hr.ExerciseDuration = duration
	}
	if err := w.heartRates.Insert(ctx, cur.ExerciseID, hr); err != nil {
		return fmt.Errorf("insert heart rate: %w", err)
	}
	return nil
}

func (w *Writer) resolveCurrent(ctx context.Context) (string, error) {
	cur, err := w.current.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load current exercise: %w", err)
	}
	return cur.ExerciseID, nil
}
