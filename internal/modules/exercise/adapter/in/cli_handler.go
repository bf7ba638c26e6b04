package in

import (
	"context"

	"stride/internal/modules/exercise/dto"
	exercisein "stride/internal/modules/exercise/port/in"
)

type CLIHandler struct {
	usecase exercisein.Usecase
}

func NewCLIHandler(usecase exercisein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Start(ctx context.Context, kind string, includeHeartRate bool) (dto.StartOutput, error) {
	return h.usecase.Start(ctx, dto.StartInput{Kind: kind, IncludeHeartRate: includeHeartRate})
}

func (h CLIHandler) Pause(ctx context.Context) error {
	return h.usecase.Pause(ctx)
}

func (h CLIHandler) Resume(ctx context.Context) error {
	return h.usecase.Resume(ctx)
}

func (h CLIHandler) End(ctx context.Context) error {
	return h.usecase.End(ctx)
}

func (h CLIHandler) Reset(ctx context.Context) error {
	return h.usecase.Reset(ctx)
}

func (h CLIHandler) Status(ctx context.Context) (dto.StatusOutput, error) {
	return h.usecase.Status(ctx)
}

func (h CLIHandler) History(ctx context.Context) ([]dto.ExerciseOutput, error) {
	return h.usecase.History(ctx)
}

func (h CLIHandler) Get(ctx context.Context, exerciseID string) (dto.ExerciseOutput, error) {
	return h.usecase.Get(ctx, exerciseID)
}

func (h CLIHandler) Watch(ctx context.Context) (<-chan dto.Snapshot, error) {
	return h.usecase.Watch(ctx)
}
