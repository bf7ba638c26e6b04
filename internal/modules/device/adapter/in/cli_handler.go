package in

import (
	"context"

	"stride/internal/modules/device/dto"
	devicein "stride/internal/modules/device/port/in"
)

type CLIHandler struct {
	usecase devicein.Usecase
}

func NewCLIHandler(usecase devicein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) StartSearch(ctx context.Context) error {
	return h.usecase.StartSearch(ctx)
}

func (h CLIHandler) StopSearch(ctx context.Context) error {
	return h.usecase.StopSearch(ctx)
}

func (h CLIHandler) SearchState(ctx context.Context) (dto.SearchOutput, error) {
	return h.usecase.SearchState(ctx)
}

func (h CLIHandler) WatchSearch(ctx context.Context) (<-chan dto.SearchOutput, error) {
	return h.usecase.WatchSearch(ctx)
}

func (h CLIHandler) Connect(ctx context.Context, deviceID string) error {
	return h.usecase.Connect(ctx, deviceID)
}

func (h CLIHandler) Disconnect(ctx context.Context, deviceID string) error {
	return h.usecase.Disconnect(ctx, deviceID)
}

func (h CLIHandler) Known(ctx context.Context) ([]dto.DeviceOutput, error) {
	return h.usecase.Known(ctx)
}

func (h CLIHandler) LastConnected(ctx context.Context) (dto.DeviceOutput, error) {
	return h.usecase.LastConnected(ctx)
}

func (h CLIHandler) ConnectionState(ctx context.Context) (dto.ConnectionOutput, error) {
	return h.usecase.ConnectionState(ctx)
}
