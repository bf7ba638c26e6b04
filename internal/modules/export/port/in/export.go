package in

import (
	"context"

	"stride/internal/modules/export/dto"
)

type Usecase interface {
	Export(ctx context.Context, input dto.ExportInput) (dto.ExportOutput, error)
	Import(ctx context.Context, input dto.ImportInput) (dto.ImportOutput, error)
	Summary(ctx context.Context, exerciseID string) (dto.SummaryOutput, error)
}
