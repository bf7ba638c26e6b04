package usecase

import (
	"context"
	"fmt"

	"stride/internal/modules/export/dto"
	exportin "stride/internal/modules/export/port/in"
	"stride/internal/modules/export/service"
	apperrors "stride/internal/platform/errors"
)

type Interactor struct {
	exporter *service.Exporter
	importer *service.Importer
}

func NewInteractor(exporter *service.Exporter, importer *service.Importer) exportin.Usecase {
	return &Interactor{exporter: exporter, importer: importer}
}

func (i *Interactor) Export(ctx context.Context, input dto.ExportInput) (dto.ExportOutput, error) {
	if input.ExerciseID == "" {
		return dto.ExportOutput{}, fmt.Errorf("%w: exercise id is required", apperrors.ErrInvalidInput)
	}
	if input.Path == "" {
		return dto.ExportOutput{}, fmt.Errorf("%w: output path is required", apperrors.ErrInvalidInput)
	}
	rows, err := i.exporter.Export(ctx, input.ExerciseID, input.Format, input.Path)
	if err != nil {
		return dto.ExportOutput{}, err
	}
	return dto.ExportOutput{
		ExerciseID: input.ExerciseID,
		Format:     input.Format,
		Path:       input.Path,
		Rows:       rows,
	}, nil
}

func (i *Interactor) Import(ctx context.Context, input dto.ImportInput) (dto.ImportOutput, error) {
	if input.Path == "" {
		return dto.ImportOutput{}, fmt.Errorf("%w: input path is required", apperrors.ErrInvalidInput)
	}
	session, records, err := i.importer.Import(ctx, input.Path)
	if err != nil {
		return dto.ImportOutput{}, err
	}
	out := dto.ImportOutput{
		ExerciseID: session.ID,
		Title:      session.Title,
		Records:    records,
	}
	if session.Duration != nil {
		out.Duration = *session.Duration
	}
	return out, nil
}

func (i *Interactor) Summary(ctx context.Context, exerciseID string) (dto.SummaryOutput, error) {
	if exerciseID == "" {
		return dto.SummaryOutput{}, fmt.Errorf("%w: exercise id is required", apperrors.ErrInvalidInput)
	}
	session, summary, err := i.exporter.Summary(ctx, exerciseID)
	if err != nil {
		return dto.SummaryOutput{}, err
	}
	return dto.SummaryOutput{
		ExerciseID:     session.ID,
		Title:          session.Title,
		Kind:           session.Kind,
		StartTime:      session.StartTime,
		Duration:       summary.Duration,
		TotalDistanceM: summary.TotalDistanceM,
		AvgHRBPM:       summary.AvgHRBPM,
		MaxHRBPM:       summary.MaxHRBPM,
		AvgPacePerKM:   summary.AvgPacePerKm,
	}, nil
}
