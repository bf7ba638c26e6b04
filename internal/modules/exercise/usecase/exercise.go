package usecase

import (
	"context"

	"stride/internal/modules/exercise/domain"
	"stride/internal/modules/exercise/dto"
	exercisein "stride/internal/modules/exercise/port/in"
	exerciseout "stride/internal/modules/exercise/port/out"
	"stride/internal/modules/exercise/service"
	"stride/internal/platform/clock"
	apperrors "stride/internal/platform/errors"
)

type Interactor struct {
	orch      *service.Orchestrator
	exercises exerciseout.ExerciseStore
	current   exerciseout.CurrentExerciseStore
	clk       clock.Clock
}

func NewInteractor(
	orch *service.Orchestrator,
	exercises exerciseout.ExerciseStore,
	current exerciseout.CurrentExerciseStore,
	clk clock.Clock,
) exercisein.Usecase {
	return &Interactor{orch: orch, exercises: exercises, current: current, clk: clk}
}

func (i *Interactor) Start(ctx context.Context, input dto.StartInput) (dto.StartOutput, error) {
	kind := domain.Kind(input.Kind)
	if !kind.Valid() {
		return dto.StartOutput{}, apperrors.ErrInvalidInput
	}
	exerciseID, err := i.orch.StartExercise(ctx, kind, input.IncludeHeartRate)
	if err != nil {
		return dto.StartOutput{}, err
	}
	return dto.StartOutput{ExerciseID: exerciseID}, nil
}

func (i *Interactor) Pause(ctx context.Context) error {
	i.orch.PauseExercise(ctx)
	return nil
}

func (i *Interactor) Resume(ctx context.Context) error {
	i.orch.ResumeExercise(ctx)
	return nil
}

func (i *Interactor) End(ctx context.Context) error {
	i.orch.EndExercise(ctx)
	return nil
}

func (i *Interactor) Reset(ctx context.Context) error {
	i.orch.ResetExercise(ctx)
	return nil
}

func (i *Interactor) Status(ctx context.Context) (dto.StatusOutput, error) {
	cur, err := i.current.Load(ctx)
	if err != nil {
		return dto.StatusOutput{}, err
	}
	out := dto.StatusOutput{
		ExerciseID: cur.ExerciseID,
		InProgress: cur.InProgress,
		HasSession: cur.ExerciseID != "",
		Status:     string(domain.StatusNotStarted),
	}
	if state, ok := i.orch.CurrentState(); ok {
		out.Status = string(state.Status)
		if d, ok := state.Duration(i.clk.Now()); ok {
			out.Duration = d
		}
	} else if d, ok := cur.DurationAt(i.clk.Now()); ok {
		out.Duration = d
	}
	return out, nil
}

func (i *Interactor) History(ctx context.Context) ([]dto.ExerciseOutput, error) {
	exercises, err := i.exercises.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ExerciseOutput, 0, len(exercises))
	for _, e := range exercises {
		out = append(out, toExerciseOutput(e))
	}
	return out, nil
}

func (i *Interactor) Get(ctx context.Context, exerciseID string) (dto.ExerciseOutput, error) {
	if exerciseID == "" {
		cur, err := i.current.Load(ctx)
		if err != nil {
			return dto.ExerciseOutput{}, err
		}
		if cur.ExerciseID == "" {
			return dto.ExerciseOutput{}, apperrors.ErrNoCurrentExercise
		}
		exerciseID = cur.ExerciseID
	}
	exercise, err := i.exercises.Get(ctx, exerciseID)
	if err != nil {
		return dto.ExerciseOutput{}, err
	}
	return toExerciseOutput(exercise), nil
}

// Watch fuses the live streams into display snapshots. External heart
// rate wins over the built-in sensor while a strap is delivering;
// everything else keeps its latest value.
func (i *Interactor) Watch(ctx context.Context) (<-chan dto.Snapshot, error) {
	states := i.orch.States(ctx)
	heartRates := i.orch.HeartRates(ctx)
	distances := i.orch.Distances(ctx)
	calories := i.orch.Calories(ctx)
	currentPaces := i.orch.CurrentPaces(ctx)
	averagePaces := i.orch.AveragePaces(ctx)
	errs := i.orch.Errors(ctx)

	out := make(chan dto.Snapshot, 1)
	go func() {
		defer close(out)
		var snap dto.Snapshot
		snap.Status = string(domain.StatusNotStarted)
		var lastState *domain.State
		lastHRKind := domain.SourceUnknown
		for {
			changed := true
			select {
			case <-ctx.Done():
				return
			case state, ok := <-states:
				if !ok {
					return
				}
				lastState = &state
				snap.Status = string(state.Status)
				if !state.Status.Active() {
					lastHRKind = domain.SourceUnknown
				}
			case hr, ok := <-heartRates:
				if !ok {
					return
				}
				if hr.Source.Kind != domain.SourceExternal && lastHRKind == domain.SourceExternal {
					// Keep showing the strap while it is alive.
					changed = false
					break
				}
				lastHRKind = hr.Source.Kind
				snap.HeartRateBPM = hr.BPM
				snap.HeartRateSource = hr.Source.String()
			case d, ok := <-distances:
				if !ok {
					return
				}
				snap.DistanceMeters = d.Total
			case c, ok := <-calories:
				if !ok {
					return
				}
				snap.Calories = c.Total
			case p, ok := <-currentPaces:
				if !ok {
					return
				}
				snap.CurrentPacePerKM = p.PerKM
				snap.PaceDerived = p.Derived
			case p, ok := <-averagePaces:
				if !ok {
					return
				}
				snap.AveragePacePerKM = p.PerKM
			case e, ok := <-errs:
				if !ok {
					return
				}
				snap.Error = e.String()
			}
			if !changed {
				continue
			}
			if lastState != nil {
				if d, ok := lastState.Duration(i.clk.Now()); ok {
					snap.Duration = d
				}
			}
			select {
			case out <- snap:
			default:
				// Viewer lagging; drain the stale snapshot and replace it.
				select {
				case <-out:
				default:
				}
				select {
				case out <- snap:
				default:
				}
			}
		}
	}()
	return out, nil
}

func toExerciseOutput(e domain.Exercise) dto.ExerciseOutput {
	return dto.ExerciseOutput{
		ExerciseID: e.ID,
		Title:      e.Title,
		Kind:       string(e.Kind),
		StartTime:  e.StartTime,
		EndTime:    e.EndTime,
		Duration:   e.Duration,
	}
}
