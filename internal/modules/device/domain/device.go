package domain

import "time"

// State is one BLE device's connection state as last reported.
type State string

const (
	StateUnknown      State = "unknown"
	StateNotConnected State = "not_connected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Feature is a BLE capability negotiated after connect. Heart-rate
// streaming only becomes possible once FeatureHR is ready.
type Feature string

const (
	FeatureHR         Feature = "hr"
	FeatureBattery    Feature = "battery_info"
	FeatureDeviceInfo Feature = "device_info"
	FeatureSDKMode    Feature = "sdk_mode"
)

// Advertisement is what a scan or connection event reports about a device.
type Advertisement struct {
	DeviceID string
	Address  string
	Name     string
	RSSI     int
}

// Info is everything known about one heart-rate-capable device, built up
// incrementally from scan results, connection events and persisted rows.
type Info struct {
	State         State
	DeviceID      string
	Address       string
	Name          string
	RSSI          *int
	Features      map[Feature]struct{}
	DIS           map[string]string
	BatteryLevel  *int
	LastConnected *time.Time
}

func Empty() Info {
	return Info{State: StateUnknown}
}

func (i Info) CanStreamHR() bool {
	if i.State != StateConnected {
		return false
	}
	_, ok := i.Features[FeatureHR]
	return ok
}

func (i Info) Preparing() bool {
	return i.State != StateNotConnected && !i.CanStreamHR()
}

// Merge reconciles two views of the same device: the right side wins for
// state and identity, feature sets and info maps are unioned, RSSI and
// battery fall back to the left when the right has none, and the later
// LastConnected survives with nil treated as earliest. Repeated
// application converges to the union of all observed facts.
func (i Info) Merge(other Info) Info {
	merged := Info{
		State:        other.State,
		DeviceID:     other.DeviceID,
		Address:      other.Address,
		Name:         other.Name,
		RSSI:         other.RSSI,
		BatteryLevel: other.BatteryLevel,
	}
	if merged.RSSI == nil {
		merged.RSSI = i.RSSI
	}
	if merged.BatteryLevel == nil {
		merged.BatteryLevel = i.BatteryLevel
	}
	merged.Features = unionFeatures(i.Features, other.Features)
	merged.DIS = unionDIS(i.DIS, other.DIS)
	switch {
	case i.LastConnected == nil:
		merged.LastConnected = other.LastConnected
	case other.LastConnected == nil:
		merged.LastConnected = i.LastConnected
	case other.LastConnected.After(*i.LastConnected):
		merged.LastConnected = other.LastConnected
	default:
		merged.LastConnected = i.LastConnected
	}
	return merged
}

func unionFeatures(a, b map[Feature]struct{}) map[Feature]struct{} {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[Feature]struct{}, len(a)+len(b))
	for f := range a {
		out[f] = struct{}{}
	}
	for f := range b {
		out[f] = struct{}{}
	}
	return out
}

func unionDIS(a, b map[string]string) map[string]string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// FromScan builds device info for a freshly discovered, not yet
// connected device.
func FromScan(adv Advertisement) Info {
	rssi := adv.RSSI
	return Info{
		State:    StateNotConnected,
		DeviceID: adv.DeviceID,
		Address:  adv.Address,
		Name:     adv.Name,
		RSSI:     &rssi,
	}
}

// FromStored rebuilds device info from a persisted row.
func FromStored(deviceID, name, address string, lastConnected *time.Time) Info {
	return Info{
		State:         StateNotConnected,
		DeviceID:      deviceID,
		Name:          name,
		Address:       address,
		LastConnected: lastConnected,
	}
}

func (i Info) WithConnecting(adv Advertisement) Info {
	rssi := adv.RSSI
	i.State = StateConnecting
	i.DeviceID = adv.DeviceID
	i.Address = adv.Address
	i.Name = adv.Name
	i.RSSI = &rssi
	return i
}

func (i Info) WithConnected(adv Advertisement, now time.Time) Info {
	i = i.WithConnecting(adv)
	i.State = StateConnected
	i.LastConnected = &now
	return i
}

func (i Info) WithFeature(feature Feature) Info {
	features := make(map[Feature]struct{}, len(i.Features)+1)
	for f := range i.Features {
		features[f] = struct{}{}
	}
	features[feature] = struct{}{}
	i.Features = features
	return i
}

func (i Info) WithDIS(key, value string) Info {
	dis := make(map[string]string, len(i.DIS)+1)
	for k, v := range i.DIS {
		dis[k] = v
	}
	dis[key] = value
	i.DIS = dis
	return i
}

func (i Info) WithBattery(level int) Info {
	i.BatteryLevel = &level
	return i
}
