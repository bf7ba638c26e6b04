package in

import (
	"context"

	"stride/internal/modules/export/dto"
	exportin "stride/internal/modules/export/port/in"
)

// CLIHandler adapts the export usecase for the command layer.
type CLIHandler struct {
	usecase exportin.Usecase
}

func NewCLIHandler(usecase exportin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Export(ctx context.Context, input dto.ExportInput) (dto.ExportOutput, error) {
	return h.usecase.Export(ctx, input)
}

func (h CLIHandler) Import(ctx context.Context, input dto.ImportInput) (dto.ImportOutput, error) {
	return h.usecase.Import(ctx, input)
}

func (h CLIHandler) Summary(ctx context.Context, exerciseID string) (dto.SummaryOutput, error) {
	return h.usecase.Summary(ctx, exerciseID)
}
