package out

import (
	"context"

	"stride/internal/modules/device/domain"
)

// BLEClient is the Bluetooth transport. Connection lifecycle is pushed
// through Events; heart-rate notifications arrive on per-device streams.
type BLEClient interface {
	// StartSearch begins scanning. Starting an already running search is
	// a no-op.
	StartSearch(ctx context.Context) error
	StopSearch(ctx context.Context) error

	Connect(ctx context.Context, deviceID string) error
	Disconnect(ctx context.Context, deviceID string) error

	// Events returns the transport's push stream. The channel closes
	// when ctx is cancelled.
	Events(ctx context.Context) (<-chan domain.Event, error)

	// StreamHeartRate subscribes to HR measurement notifications of one
	// connected device. The channel closes on disconnect or cancel.
	StreamHeartRate(ctx context.Context, deviceID string) (<-chan domain.HRSample, error)
}

// DeviceStore persists known devices keyed by device id.
type DeviceStore interface {
	Save(ctx context.Context, info domain.Info) error
	Get(ctx context.Context, deviceID string) (domain.Info, error)
	List(ctx context.Context) ([]domain.Info, error)
	LastConnected(ctx context.Context) (domain.Info, error)
}

// HeartRateSink receives external strap samples; the exercise module
// provides the implementation.
type HeartRateSink interface {
	PublishExternalSample(ctx context.Context, sample domain.HRSample)
}
