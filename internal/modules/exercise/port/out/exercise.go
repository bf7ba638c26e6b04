package out

import (
	"context"
	"time"

	"stride/internal/modules/exercise/domain"
)

// Client is the platform exercise-tracking service. Commands block until
// the platform acknowledges or fails; failures are plain errors.
type Client interface {
	StartExercise(ctx context.Context, cfg domain.TrackingConfig) error
	PauseExercise(ctx context.Context) error
	ResumeExercise(ctx context.Context) error
	EndExercise(ctx context.Context) error
	CurrentExerciseInfo(ctx context.Context) (domain.Info, error)

	// RegisterCallback registers the update callback and blocks until the
	// platform acknowledges the registration, then hands back a live
	// handle. Close must always be called, even during teardown.
	RegisterCallback(ctx context.Context) (CallbackHandle, error)
}

// CallbackHandle is a registered update stream. Updates closes after
// Close returns.
type CallbackHandle interface {
	Updates() <-chan domain.Update
	Close() error
}

// ExerciseStore persists session rows. UpdateStart and UpdateEnd are
// idempotent update-if-exists operations keyed by exercise id.
type ExerciseStore interface {
	Create(ctx context.Context, exerciseID string, kind domain.Kind) error
	UpdateStart(ctx context.Context, exerciseID string, startTime *time.Time, duration *time.Duration) error
	UpdateEnd(ctx context.Context, exerciseID string, endTime *time.Time, duration *time.Duration) error
	Get(ctx context.Context, exerciseID string) (domain.Exercise, error)
	List(ctx context.Context) ([]domain.Exercise, error)
}

// Metric stores are append-only history; rows are never overwritten.
type DistanceStore interface {
	Insert(ctx context.Context, exerciseID string, d domain.Distance) error
	ListForExercise(ctx context.Context, exerciseID string) ([]domain.Distance, error)
}

type SpeedStore interface {
	Insert(ctx context.Context, exerciseID string, s domain.Speed) error
	ListForExercise(ctx context.Context, exerciseID string) ([]domain.Speed, error)
}

type HeartRateStore interface {
	Insert(ctx context.Context, exerciseID string, hr domain.HeartRate) error
	ListForExercise(ctx context.Context, exerciseID string) ([]domain.HeartRate, error)
}

// CurrentExerciseStore is the durable pointer. Update is the atomic
// read-modify-write primitive; callers never read-then-separately-write.
type CurrentExerciseStore interface {
	Load(ctx context.Context) (domain.CurrentExercise, error)
	Update(ctx context.Context, fn func(domain.CurrentExercise) domain.CurrentExercise) error
}

// ForegroundController requests elevated execution from the host while a
// session is in progress. Called exactly on the two InProgress edges.
type ForegroundController interface {
	MoveToForeground()
	RemoveFromForeground()
}
