package domain

// EventKind tags a push notification from the BLE transport.
type EventKind string

const (
	EventAdvertisement EventKind = "advertisement"
	EventConnecting    EventKind = "connecting"
	EventConnected     EventKind = "connected"
	EventDisconnected  EventKind = "disconnected"
	EventFeatureReady  EventKind = "feature_ready"
	EventDISRead       EventKind = "dis_read"
	EventBattery       EventKind = "battery"
)

// Event is one BLE transport notification. Only the fields relevant to
// its Kind are set.
type Event struct {
	Kind          EventKind
	DeviceID      string
	Advertisement Advertisement
	Feature       Feature
	DISKey        string
	DISValue      string
	BatteryLevel  int
}

// HRSample is one heart-rate measurement notification from a connected
// strap.
type HRSample struct {
	DeviceID         string
	BPM              int
	ContactSupported bool
	ContactDetected  bool
}
