package in

import (
	"context"

	"stride/internal/modules/exercise/dto"
)

type Usecase interface {
	Start(ctx context.Context, input dto.StartInput) (dto.StartOutput, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	End(ctx context.Context) error
	Reset(ctx context.Context) error

	Status(ctx context.Context) (dto.StatusOutput, error)
	History(ctx context.Context) ([]dto.ExerciseOutput, error)
	Get(ctx context.Context, exerciseID string) (dto.ExerciseOutput, error)

	// Watch delivers fused live snapshots until ctx is cancelled.
	Watch(ctx context.Context) (<-chan dto.Snapshot, error)
}
