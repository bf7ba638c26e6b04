package domain

// ConnectionStatus summarises the connected-device set for consumers
// that only care whether heart rate can flow.
type ConnectionStatus string

const (
	ConnectionInactive  ConnectionStatus = "inactive"
	ConnectionPreparing ConnectionStatus = "preparing"
	ConnectionReady     ConnectionStatus = "ready"
)

// ConnectionState is recomputed on every change to the connected set.
type ConnectionState struct {
	ConnectedDevices []Info
}

func (c ConnectionState) CanStreamHR() bool {
	for _, d := range c.ConnectedDevices {
		if d.CanStreamHR() {
			return true
		}
	}
	return false
}

func (c ConnectionState) Preparing() bool {
	return len(c.ConnectedDevices) > 0 && !c.CanStreamHR()
}

func (c ConnectionState) Status() ConnectionStatus {
	switch {
	case c.CanStreamHR():
		return ConnectionReady
	case c.Preparing():
		return ConnectionPreparing
	default:
		return ConnectionInactive
	}
}
