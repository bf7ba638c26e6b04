package usecase

import (
	"context"
	"sort"

	"stride/internal/modules/device/domain"
	"stride/internal/modules/device/dto"
	devicein "stride/internal/modules/device/port/in"
	"stride/internal/modules/device/service"
	apperrors "stride/internal/platform/errors"
)

type Interactor struct {
	mgr *service.Manager
}

func NewInteractor(mgr *service.Manager) devicein.Usecase {
	return &Interactor{mgr: mgr}
}

func (i *Interactor) StartSearch(ctx context.Context) error {
	return i.mgr.StartSearch(ctx)
}

func (i *Interactor) StopSearch(ctx context.Context) error {
	return i.mgr.StopSearch(ctx)
}

func (i *Interactor) SearchState(context.Context) (dto.SearchOutput, error) {
	return toSearchOutput(i.mgr.SearchState()), nil
}

func (i *Interactor) Connect(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return apperrors.ErrInvalidInput
	}
	return i.mgr.Connect(ctx, deviceID)
}

func (i *Interactor) Disconnect(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return apperrors.ErrInvalidInput
	}
	return i.mgr.Disconnect(ctx, deviceID)
}

func (i *Interactor) Known(ctx context.Context) ([]dto.DeviceOutput, error) {
	known, err := i.mgr.Known(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DeviceOutput, 0, len(known))
	for _, info := range known {
		out = append(out, toDeviceOutput(info))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].DeviceID < out[b].DeviceID })
	return out, nil
}

func (i *Interactor) LastConnected(ctx context.Context) (dto.DeviceOutput, error) {
	info, err := i.mgr.LastConnected(ctx)
	if err != nil {
		return dto.DeviceOutput{}, err
	}
	return toDeviceOutput(info), nil
}

func (i *Interactor) ConnectionState(context.Context) (dto.ConnectionOutput, error) {
	state := i.mgr.ConnectionState()
	out := dto.ConnectionOutput{Status: string(state.Status())}
	for _, info := range state.ConnectedDevices {
		out.Connected = append(out.Connected, toDeviceOutput(info))
	}
	return out, nil
}

func (i *Interactor) WatchSearch(ctx context.Context) (<-chan dto.SearchOutput, error) {
	states := i.mgr.WatchSearch(ctx)
	out := make(chan dto.SearchOutput, 1)
	go func() {
		defer close(out)
		for state := range states {
			select {
			case out <- toSearchOutput(state):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func toSearchOutput(state domain.SearchState) dto.SearchOutput {
	out := dto.SearchOutput{Status: string(state.Status)}
	for _, info := range state.Found {
		out.Found = append(out.Found, toDeviceOutput(info))
	}
	sort.Slice(out.Found, func(a, b int) bool { return out.Found[a].DeviceID < out.Found[b].DeviceID })
	return out
}

func toDeviceOutput(info domain.Info) dto.DeviceOutput {
	out := dto.DeviceOutput{
		DeviceID:      info.DeviceID,
		Name:          info.Name,
		Address:       info.Address,
		State:         string(info.State),
		RSSI:          info.RSSI,
		BatteryLevel:  info.BatteryLevel,
		LastConnected: info.LastConnected,
	}
	for feature := range info.Features {
		out.Features = append(out.Features, string(feature))
	}
	sort.Strings(out.Features)
	if len(info.DIS) > 0 {
		out.DIS = make(map[string]string, len(info.DIS))
		for k, v := range info.DIS {
			out.DIS[k] = v
		}
	}
	return out
}
