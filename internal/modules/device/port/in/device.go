package in

import (
	"context"

	"stride/internal/modules/device/dto"
)

type Usecase interface {
	// StartSearch begins or joins a scan; repeated calls are no-ops.
	StartSearch(ctx context.Context) error
	StopSearch(ctx context.Context) error
	SearchState(ctx context.Context) (dto.SearchOutput, error)

	// Connect pairs one device; any other connected device is
	// disconnected first.
	Connect(ctx context.Context, deviceID string) error
	Disconnect(ctx context.Context, deviceID string) error

	Known(ctx context.Context) ([]dto.DeviceOutput, error)
	LastConnected(ctx context.Context) (dto.DeviceOutput, error)
	ConnectionState(ctx context.Context) (dto.ConnectionOutput, error)

	// WatchSearch streams search-state changes until ctx is cancelled.
	WatchSearch(ctx context.Context) (<-chan dto.SearchOutput, error)
}
