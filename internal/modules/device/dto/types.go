package dto

import "time"

type DeviceOutput struct {
	DeviceID      string
	Name          string
	Address       string
	State         string
	RSSI          *int
	BatteryLevel  *int
	Features      []string
	DIS           map[string]string
	LastConnected *time.Time
}

type SearchOutput struct {
	Status string
	Found  []DeviceOutput
}

type ConnectionOutput struct {
	Status    string
	Connected []DeviceOutput
}
