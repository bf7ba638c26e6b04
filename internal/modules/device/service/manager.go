package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"stride/internal/modules/device/domain"
	deviceout "stride/internal/modules/device/port/out"
	"stride/internal/platform/clock"
	"stride/internal/platform/stream"
)

// Options tunes discovery and reconnection behavior.
type Options struct {
	// OnlyPolar restricts discovery results to Polar straps.
	OnlyPolar bool
	// AutoReconnect re-establishes the last connected device on startup.
	AutoReconnect bool
}

// Manager tracks the connected-device set from BLE push events, runs
// the search state machine, and fans connected devices' heart-rate
// streams into one sink. At most one device is connected at a time;
// connecting another disconnects the rest first.
type Manager struct {
	ble   deviceout.BLEClient
	store deviceout.DeviceStore
	sink  deviceout.HeartRateSink
	clk   clock.Clock
	opts  Options

	mu        sync.Mutex
	searching bool
	search    domain.SearchState
	tracked   map[string]domain.Info
	hrCancels map[string]context.CancelFunc

	searches *stream.Broadcaster[domain.SearchState]
}

func NewManager(
	ble deviceout.BLEClient,
	store deviceout.DeviceStore,
	sink deviceout.HeartRateSink,
	clk clock.Clock,
	opts Options,
) *Manager {
	return &Manager{
		ble:       ble,
		store:     store,
		sink:      sink,
		clk:       clk,
		opts:      opts,
		search:    domain.NoSearch(),
		tracked:   make(map[string]domain.Info),
		hrCancels: make(map[string]context.CancelFunc),
		searches:  stream.New[domain.SearchState](stream.Options{Replay: 1, Buffer: 16}),
	}
}

// Run consumes transport events until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	events, err := m.ble.Events(ctx)
	if err != nil {
		return fmt.Errorf("subscribe ble events: %w", err)
	}
	if m.opts.AutoReconnect {
		if last, err := m.store.LastConnected(ctx); err == nil {
			if err := m.ble.Connect(ctx, last.DeviceID); err != nil {
				log.Printf("device: auto reconnect %s: %v", last.DeviceID, err)
			}
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			m.handleEvent(ctx, event)
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, event domain.Event) {
	switch event.Kind {
	case domain.EventAdvertisement:
		m.handleAdvertisement(event.Advertisement)
	case domain.EventConnecting:
		m.updateTracked(ctx, event.DeviceID, func(info domain.Info) domain.Info {
			return info.WithConnecting(event.Advertisement)
		})
	case domain.EventConnected:
		m.updateTracked(ctx, event.DeviceID, func(info domain.Info) domain.Info {
			return info.WithConnected(event.Advertisement, m.clk.Now())
		})
	case domain.EventFeatureReady:
		m.updateTracked(ctx, event.DeviceID, func(info domain.Info) domain.Info {
			return info.WithFeature(event.Feature)
		})
		if event.Feature == domain.FeatureHR {
			m.startHeartRate(ctx, event.DeviceID)
		}
	case domain.EventDISRead:
		m.updateTracked(ctx, event.DeviceID, func(info domain.Info) domain.Info {
			return info.WithDIS(event.DISKey, event.DISValue)
		})
	case domain.EventBattery:
		m.updateTracked(ctx, event.DeviceID, func(info domain.Info) domain.Info {
			return info.WithBattery(event.BatteryLevel)
		})
	case domain.EventDisconnected:
		m.handleDisconnected(ctx, event.DeviceID)
	default:
		log.Printf("device: unknown event kind %q", event.Kind)
	}
}

func (m *Manager) handleAdvertisement(adv domain.Advertisement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.searching {
		return
	}
	if m.search.Status == domain.SearchOnlyPolar && !isPolar(adv.Name) {
		return
	}
	found := domain.FromScan(adv)
	if known, ok := m.search.Found[adv.DeviceID]; ok {
		found = known.Merge(found)
	}
	m.search = m.search.WithDevice(found)
	m.searches.Publish(m.search)
}

func isPolar(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "polar")
}

// updateTracked applies fn to the device's tracked view, seeding it from
// the store for devices seen the first time, and persists the merge.
func (m *Manager) updateTracked(ctx context.Context, deviceID string, fn func(domain.Info) domain.Info) {
	m.mu.Lock()
	info, ok := m.tracked[deviceID]
	m.mu.Unlock()
	if !ok {
		stored, err := m.store.Get(ctx, deviceID)
		if err == nil {
			info = stored
		} else {
			info = domain.Empty()
		}
	}
	updated := fn(info)
	m.mu.Lock()
	m.tracked[deviceID] = updated
	m.mu.Unlock()
	if err := m.store.Save(ctx, updated); err != nil {
		log.Printf("device: persist %s: %v", deviceID, err)
	}
}

// startHeartRate streams one device's measurements into the sink. A
// failing stream only takes down its own device.
func (m *Manager) startHeartRate(ctx context.Context, deviceID string) {
	m.mu.Lock()
	if _, running := m.hrCancels[deviceID]; running {
		m.mu.Unlock()
		return
	}
	streamCtx, cancel := context.WithCancel(ctx)
	m.hrCancels[deviceID] = cancel
	m.mu.Unlock()

	samples, err := m.ble.StreamHeartRate(streamCtx, deviceID)
	if err != nil {
		log.Printf("device: heart rate stream %s: %v", deviceID, err)
		m.stopHeartRate(deviceID)
		return
	}
	go func() {
		defer m.stopHeartRate(deviceID)
		for sample := range samples {
			m.sink.PublishExternalSample(streamCtx, sample)
		}
	}()
}

func (m *Manager) stopHeartRate(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cancel, ok := m.hrCancels[deviceID]; ok {
		cancel()
		delete(m.hrCancels, deviceID)
	}
}

func (m *Manager) handleDisconnected(ctx context.Context, deviceID string) {
	m.stopHeartRate(deviceID)
	m.mu.Lock()
	info, ok := m.tracked[deviceID]
	if ok {
		info.State = domain.StateNotConnected
		m.tracked[deviceID] = info
	}
	m.mu.Unlock()
	if ok {
		if err := m.store.Save(ctx, info); err != nil {
			log.Printf("device: persist %s: %v", deviceID, err)
		}
	}
}

// StartSearch is idempotent; a new search clears the previous found set.
func (m *Manager) StartSearch(ctx context.Context) error {
	m.mu.Lock()
	if m.searching {
		m.mu.Unlock()
		return nil
	}
	m.searching = true
	status := domain.SearchAllDevices
	if m.opts.OnlyPolar {
		status = domain.SearchOnlyPolar
	}
	m.search = domain.SearchState{Status: status}
	m.searches.ResetReplay()
	m.searches.Publish(m.search)
	m.mu.Unlock()

	if err := m.ble.StartSearch(ctx); err != nil {
		m.mu.Lock()
		m.searching = false
		m.search = m.search.Stopped()
		m.mu.Unlock()
		return fmt.Errorf("start search: %w", err)
	}
	return nil
}

// StopSearch keeps the found set for display.
func (m *Manager) StopSearch(ctx context.Context) error {
	m.mu.Lock()
	if !m.searching {
		m.mu.Unlock()
		return nil
	}
	m.searching = false
	m.search = m.search.Stopped()
	m.searches.Publish(m.search)
	m.mu.Unlock()

	if err := m.ble.StopSearch(ctx); err != nil {
		return fmt.Errorf("stop search: %w", err)
	}
	return nil
}

func (m *Manager) SearchState() domain.SearchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.search
}

func (m *Manager) WatchSearch(ctx context.Context) <-chan domain.SearchState {
	return m.searches.Subscribe(ctx)
}

// Connect enforces the single-device policy before dialing.
func (m *Manager) Connect(ctx context.Context, deviceID string) error {
	for _, other := range m.connectedIDs() {
		if other == deviceID {
			continue
		}
		if err := m.ble.Disconnect(ctx, other); err != nil {
			return fmt.Errorf("disconnect %s: %w", other, err)
		}
	}
	if err := m.ble.Connect(ctx, deviceID); err != nil {
		return fmt.Errorf("connect %s: %w", deviceID, err)
	}
	return nil
}

func (m *Manager) Disconnect(ctx context.Context, deviceID string) error {
	if err := m.ble.Disconnect(ctx, deviceID); err != nil {
		return fmt.Errorf("disconnect %s: %w", deviceID, err)
	}
	return nil
}

func (m *Manager) connectedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, info := range m.tracked {
		if info.State == domain.StateConnected || info.State == domain.StateConnecting {
			ids = append(ids, id)
		}
	}
	return ids
}

// ConnectionState summarises the live connected set.
func (m *Manager) ConnectionState() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	var connected []domain.Info
	for _, info := range m.tracked {
		if info.State == domain.StateConnected || info.State == domain.StateConnecting {
			connected = append(connected, info)
		}
	}
	return domain.ConnectionState{ConnectedDevices: connected}
}

// Known is the union of saved and currently tracked devices, merged per
// device id.
func (m *Manager) Known(ctx context.Context) ([]domain.Info, error) {
	saved, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	byID := make(map[string]domain.Info, len(saved))
	order := make([]string, 0, len(saved))
	for _, info := range saved {
		byID[info.DeviceID] = info
		order = append(order, info.DeviceID)
	}
	m.mu.Lock()
	for id, info := range m.tracked {
		if existing, ok := byID[id]; ok {
			byID[id] = existing.Merge(info)
		} else {
			byID[id] = info
			order = append(order, id)
		}
	}
	m.mu.Unlock()

	known := make([]domain.Info, 0, len(order))
	for _, id := range order {
		known = append(known, byID[id])
	}
	return known, nil
}

func (m *Manager) LastConnected(ctx context.Context) (domain.Info, error) {
	return m.store.LastConnected(ctx)
}
