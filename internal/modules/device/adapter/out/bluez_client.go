package out

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"stride/internal/modules/device/domain"
)

const (
	bluezService     = "org.bluez"
	adapterInterface = "org.bluez.Adapter1"
	deviceInterface  = "org.bluez.Device1"
	gattInterface    = "org.bluez.GattCharacteristic1"
	batteryInterface = "org.bluez.Battery1"
	propsInterface   = "org.freedesktop.DBus.Properties"

	hrMeasurementUUID  = "00002a37-0000-1000-8000-00805f9b34fb"
	manufacturerUUID   = "00002a29-0000-1000-8000-00805f9b34fb"
	modelNumberUUID    = "00002a24-0000-1000-8000-00805f9b34fb"
	firmwareRevUUID    = "00002a26-0000-1000-8000-00805f9b34fb"
	hrServiceUUIDShort = "180d"
)

// BlueZClient talks to the host's BlueZ daemon over the system bus and
// translates its object-manager signals into transport events. Device
// ids are Bluetooth addresses.
type BlueZClient struct {
	conn    *dbus.Conn
	adapter dbus.ObjectPath

	mu     sync.Mutex
	events chan domain.Event
}

func NewBlueZClient(adapterName string) (*BlueZClient, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	if adapterName == "" {
		adapterName = "hci0"
	}
	return &BlueZClient{
		conn:    conn,
		adapter: dbus.ObjectPath("/org/bluez/" + adapterName),
	}, nil
}

func (c *BlueZClient) Close() error {
	return c.conn.Close()
}

func (c *BlueZClient) StartSearch(ctx context.Context) error {
	call := c.conn.Object(bluezService, c.adapter).CallWithContext(ctx, adapterInterface+".StartDiscovery", 0)
	if call.Err != nil && !strings.Contains(call.Err.Error(), "InProgress") {
		return fmt.Errorf("start discovery: %w", call.Err)
	}
	return nil
}

func (c *BlueZClient) StopSearch(ctx context.Context) error {
	call := c.conn.Object(bluezService, c.adapter).CallWithContext(ctx, adapterInterface+".StopDiscovery", 0)
	if call.Err != nil {
		return fmt.Errorf("stop discovery: %w", call.Err)
	}
	return nil
}

func (c *BlueZClient) Connect(ctx context.Context, deviceID string) error {
	path := c.devicePath(deviceID)
	c.emit(domain.Event{Kind: domain.EventConnecting, DeviceID: deviceID})
	call := c.conn.Object(bluezService, path).CallWithContext(ctx, deviceInterface+".Connect", 0)
	if call.Err != nil {
		return fmt.Errorf("connect %s: %w", deviceID, call.Err)
	}
	return nil
}

func (c *BlueZClient) Disconnect(ctx context.Context, deviceID string) error {
	path := c.devicePath(deviceID)
	call := c.conn.Object(bluezService, path).CallWithContext(ctx, deviceInterface+".Disconnect", 0)
	if call.Err != nil {
		return fmt.Errorf("disconnect %s: %w", deviceID, call.Err)
	}
	return nil
}

// Events subscribes to BlueZ's InterfacesAdded and PropertiesChanged
// signals and translates them. Only one consumer is supported.
func (c *BlueZClient) Events(ctx context.Context) (<-chan domain.Event, error) {
	if err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchInterface("org.freedesktop.DBus.ObjectManager"),
		dbus.WithMatchMember("InterfacesAdded"),
	); err != nil {
		return nil, fmt.Errorf("match InterfacesAdded: %w", err)
	}
	if err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchInterface(propsInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return nil, fmt.Errorf("match PropertiesChanged: %w", err)
	}

	signals := make(chan *dbus.Signal, 64)
	c.conn.Signal(signals)

	c.mu.Lock()
	c.events = make(chan domain.Event, 64)
	events := c.events
	c.mu.Unlock()

	go func() {
		defer close(events)
		defer c.conn.RemoveSignal(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case signal, ok := <-signals:
				if !ok {
					return
				}
				c.handleSignal(signal)
			}
		}
	}()
	return events, nil
}

func (c *BlueZClient) handleSignal(signal *dbus.Signal) {
	switch signal.Name {
	case "org.freedesktop.DBus.ObjectManager.InterfacesAdded":
		c.handleInterfacesAdded(signal)
	case propsInterface + ".PropertiesChanged":
		c.handlePropertiesChanged(signal)
	}
}

func (c *BlueZClient) handleInterfacesAdded(signal *dbus.Signal) {
	if len(signal.Body) < 2 {
		return
	}
	if _, ok := signal.Body[0].(dbus.ObjectPath); !ok {
		return
	}
	ifaces, ok := signal.Body[1].(map[string]map[string]dbus.Variant)
	if !ok {
		return
	}
	if props, ok := ifaces[deviceInterface]; ok {
		c.emitAdvertisement(props)
	}
}

func (c *BlueZClient) handlePropertiesChanged(signal *dbus.Signal) {
	if len(signal.Body) < 2 {
		return
	}
	iface, ok := signal.Body[0].(string)
	if !ok {
		return
	}
	changed, ok := signal.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	deviceID := c.deviceIDFromPath(signal.Path)
	if deviceID == "" {
		return
	}
	switch iface {
	case deviceInterface:
		c.handleDeviceChanged(signal.Path, deviceID, changed)
	case batteryInterface:
		if v, ok := changed["Percentage"]; ok {
			if level, ok := v.Value().(byte); ok {
				c.emit(domain.Event{Kind: domain.EventBattery, DeviceID: deviceID, BatteryLevel: int(level)})
			}
		}
	}
}

func (c *BlueZClient) handleDeviceChanged(path dbus.ObjectPath, deviceID string, changed map[string]dbus.Variant) {
	if v, ok := changed["RSSI"]; ok {
		if rssi, ok := v.Value().(int16); ok {
			c.emit(domain.Event{
				Kind:          domain.EventAdvertisement,
				DeviceID:      deviceID,
				Advertisement: c.advertisement(path, deviceID, int(rssi)),
			})
		}
	}
	if v, ok := changed["Connected"]; ok {
		connected, _ := v.Value().(bool)
		if connected {
			c.emit(domain.Event{
				Kind:          domain.EventConnected,
				DeviceID:      deviceID,
				Advertisement: c.advertisement(path, deviceID, 0),
			})
		} else {
			c.emit(domain.Event{Kind: domain.EventDisconnected, DeviceID: deviceID})
		}
	}
	if v, ok := changed["ServicesResolved"]; ok {
		if resolved, _ := v.Value().(bool); resolved {
			c.emitResolvedFeatures(path, deviceID)
		}
	}
}

// emitResolvedFeatures inspects the device's GATT tree once services
// are resolved and reports what it can stream.
func (c *BlueZClient) emitResolvedFeatures(devicePath dbus.ObjectPath, deviceID string) {
	objects, err := c.managedObjects()
	if err != nil {
		log.Printf("bluez: managed objects: %v", err)
		return
	}
	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), string(devicePath)+"/") {
			continue
		}
		props, ok := ifaces[gattInterface]
		if !ok {
			continue
		}
		uuid, _ := props["UUID"].Value().(string)
		switch uuid {
		case hrMeasurementUUID:
			c.emit(domain.Event{Kind: domain.EventFeatureReady, DeviceID: deviceID, Feature: domain.FeatureHR})
		case manufacturerUUID, modelNumberUUID, firmwareRevUUID:
			c.emit(domain.Event{Kind: domain.EventFeatureReady, DeviceID: deviceID, Feature: domain.FeatureDeviceInfo})
			c.readDIS(path, deviceID, uuid)
		}
	}
	if _, ok := objects[devicePath][batteryInterface]; ok {
		c.emit(domain.Event{Kind: domain.EventFeatureReady, DeviceID: deviceID, Feature: domain.FeatureBattery})
	}
}

func (c *BlueZClient) readDIS(charPath dbus.ObjectPath, deviceID, uuid string) {
	var value []byte
	call := c.conn.Object(bluezService, charPath).Call(gattInterface+".ReadValue", 0, map[string]dbus.Variant{})
	if call.Err != nil {
		log.Printf("bluez: read %s: %v", uuid, call.Err)
		return
	}
	if err := call.Store(&value); err != nil {
		return
	}
	key := map[string]string{
		manufacturerUUID: "manufacturer",
		modelNumberUUID:  "model",
		firmwareRevUUID:  "firmware",
	}[uuid]
	c.emit(domain.Event{Kind: domain.EventDISRead, DeviceID: deviceID, DISKey: key, DISValue: string(value)})
}

// StreamHeartRate starts notifications on the HR measurement
// characteristic and decodes each value per the HR profile.
func (c *BlueZClient) StreamHeartRate(ctx context.Context, deviceID string) (<-chan domain.HRSample, error) {
	charPath, err := c.findCharacteristic(c.devicePath(deviceID), hrMeasurementUUID)
	if err != nil {
		return nil, err
	}
	call := c.conn.Object(bluezService, charPath).CallWithContext(ctx, gattInterface+".StartNotify", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("start hr notify: %w", call.Err)
	}
	if err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchInterface(propsInterface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(charPath),
	); err != nil {
		return nil, fmt.Errorf("match hr notifications: %w", err)
	}

	signals := make(chan *dbus.Signal, 64)
	c.conn.Signal(signals)
	samples := make(chan domain.HRSample, 16)
	go func() {
		defer close(samples)
		defer c.conn.RemoveSignal(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case signal, ok := <-signals:
				if !ok {
					return
				}
				if signal.Path != charPath || len(signal.Body) < 2 {
					continue
				}
				changed, ok := signal.Body[1].(map[string]dbus.Variant)
				if !ok {
					continue
				}
				raw, ok := changed["Value"]
				if !ok {
					continue
				}
				value, ok := raw.Value().([]byte)
				if !ok {
					continue
				}
				if sample, ok := decodeHRMeasurement(deviceID, value); ok {
					select {
					case samples <- sample:
					default:
					}
				}
			}
		}
	}()
	return samples, nil
}

// decodeHRMeasurement parses a Heart Rate Measurement value: flag bit 0
// selects 8 or 16 bit BPM, bits 1..2 carry the sensor contact status.
func decodeHRMeasurement(deviceID string, value []byte) (domain.HRSample, bool) {
	if len(value) < 2 {
		return domain.HRSample{}, false
	}
	flags := value[0]
	sample := domain.HRSample{
		DeviceID:         deviceID,
		ContactSupported: flags&0x04 != 0,
		ContactDetected:  flags&0x02 != 0,
	}
	if flags&0x01 != 0 {
		if len(value) < 3 {
			return domain.HRSample{}, false
		}
		sample.BPM = int(binary.LittleEndian.Uint16(value[1:3]))
	} else {
		sample.BPM = int(value[1])
	}
	return sample, true
}

func (c *BlueZClient) findCharacteristic(devicePath dbus.ObjectPath, uuid string) (dbus.ObjectPath, error) {
	objects, err := c.managedObjects()
	if err != nil {
		return "", err
	}
	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), string(devicePath)+"/") {
			continue
		}
		props, ok := ifaces[gattInterface]
		if !ok {
			continue
		}
		if got, _ := props["UUID"].Value().(string); got == uuid {
			return path, nil
		}
	}
	return "", fmt.Errorf("characteristic %s not found under %s", uuid, devicePath)
}

func (c *BlueZClient) managedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := c.conn.Object(bluezService, "/").Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("get managed objects: %w", call.Err)
	}
	if err := call.Store(&objects); err != nil {
		return nil, fmt.Errorf("decode managed objects: %w", err)
	}
	return objects, nil
}

func (c *BlueZClient) emitAdvertisement(props map[string]dbus.Variant) {
	address, _ := props["Address"].Value().(string)
	if address == "" {
		return
	}
	name, _ := props["Name"].Value().(string)
	rssi := 0
	if v, ok := props["RSSI"]; ok {
		if r, ok := v.Value().(int16); ok {
			rssi = int(r)
		}
	}
	c.emit(domain.Event{
		Kind:     domain.EventAdvertisement,
		DeviceID: address,
		Advertisement: domain.Advertisement{
			DeviceID: address,
			Address:  address,
			Name:     name,
			RSSI:     rssi,
		},
	})
}

func (c *BlueZClient) advertisement(path dbus.ObjectPath, deviceID string, rssi int) domain.Advertisement {
	name := deviceID
	if v, err := c.conn.Object(bluezService, path).GetProperty(deviceInterface + ".Name"); err == nil {
		if n, ok := v.Value().(string); ok {
			name = n
		}
	}
	return domain.Advertisement{DeviceID: deviceID, Address: deviceID, Name: name, RSSI: rssi}
}

// devicePath maps an address like AA:BB:CC:DD:EE:FF onto BlueZ's
// /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF convention.
func (c *BlueZClient) devicePath(deviceID string) dbus.ObjectPath {
	return dbus.ObjectPath(string(c.adapter) + "/dev_" + strings.ReplaceAll(deviceID, ":", "_"))
}

func (c *BlueZClient) deviceIDFromPath(path dbus.ObjectPath) string {
	raw := string(path)
	idx := strings.Index(raw, "/dev_")
	if idx < 0 {
		return ""
	}
	rest := raw[idx+len("/dev_"):]
	if cut := strings.Index(rest, "/"); cut >= 0 {
		rest = rest[:cut]
	}
	return strings.ReplaceAll(rest, "_", ":")
}

func (c *BlueZClient) emit(event domain.Event) {
	c.mu.Lock()
	events := c.events
	c.mu.Unlock()
	if events == nil {
		return
	}
	select {
	case events <- event:
	default:
		log.Printf("bluez: dropped %s event for %s", event.Kind, event.DeviceID)
	}
}
