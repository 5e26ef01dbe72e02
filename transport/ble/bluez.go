package ble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/muka/go-bluetooth/bluez"
	"github.com/muka/go-bluetooth/bluez/profile/gatt"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

const (
	bluezService  = "org.bluez"
	deviceIface   = "org.bluez.Device1"
	serviceIface  = "org.bluez.GattService1"
	charIface     = "org.bluez.GattCharacteristic1"
	propsChanged  = "org.freedesktop.DBus.Properties.PropertiesChanged"
	managedObject = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
)

var errNotDiscovered = errors.New("characteristic not discovered")

type notification struct {
	char *gatt.GattCharacteristic1
	ch   chan *bluez.PropertyChanged
}

// BlueZ is a GATT client for one peripheral on a Linux host. tinygo
// bluetooth brings the link up; the attribute table is read straight from
// BlueZ over D-Bus and characteristics are driven through go-bluetooth.
type BlueZ struct {
	adapter   *bluetooth.Adapter
	adapterID string
	address   bluetooth.Address
	log       logrus.FieldLogger

	mu           sync.Mutex
	device       *bluetooth.Device
	managed      map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	services     map[string]string
	chars        map[string]*gatt.GattCharacteristic1
	notes        []notification
	onDisconnect func()
	stopWatch    func()
}

// NewBlueZ returns a client for the peripheral at address. adapterID is the
// BlueZ adapter name, usually "hci0".
func NewBlueZ(adapter *bluetooth.Adapter, adapterID string, address bluetooth.Address, log logrus.FieldLogger) *BlueZ {
	if adapterID == "" {
		adapterID = "hci0"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BlueZ{
		adapter:   adapter,
		adapterID: adapterID,
		address:   address,
		log:       log.WithFields(logrus.Fields{"component": "BlueZ", "address": address.String()}),
	}
}

// devicePath derives the BlueZ object path from the MAC address, e.g.
// "D4:E9:F4:E2:B5:8A" becomes "/org/bluez/hci0/dev_D4_E9_F4_E2_B5_8A".
func (b *BlueZ) devicePath() dbus.ObjectPath {
	mac := strings.ToUpper(b.address.String())
	return dbus.ObjectPath("/org/bluez/" + b.adapterID + "/dev_" + strings.ReplaceAll(mac, ":", "_"))
}

// OnDisconnect implements GATT.
func (b *BlueZ) OnDisconnect(fn func()) {
	b.mu.Lock()
	b.onDisconnect = fn
	b.mu.Unlock()
}

// Connect implements GATT.
func (b *BlueZ) Connect(ctx context.Context) error {
	b.log.Info("connecting")
	device, err := b.adapter.Connect(b.address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	b.mu.Lock()
	b.device = device
	b.mu.Unlock()

	b.log.Debug("connected, waiting for GATT profile")
	stop, err := b.watchDevice(ctx)
	if err != nil {
		_ = device.Disconnect()
		return fmt.Errorf("GATT not resolved: %w", err)
	}

	b.mu.Lock()
	b.stopWatch = stop
	b.mu.Unlock()
	return nil
}

// watchDevice blocks until BlueZ reports ServicesResolved for the device,
// then keeps watching Device1 properties in the background to report link
// loss. BlueZ resolves the GATT profile asynchronously after the ACL link
// comes up, so discovery before ServicesResolved sees an empty table.
func (b *BlueZ) watchDevice(ctx context.Context) (stop func(), err error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("dbus: %w", err)
	}

	path := b.devicePath()
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchObjectPath(path),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("dbus match: %w", err)
	}
	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	resolved := false
	if v, err := conn.Object(bluezService, path).GetProperty(deviceIface + ".ServicesResolved"); err == nil {
		resolved, _ = v.Value().(bool)
	}

	for !resolved {
		select {
		case sig, ok := <-signals:
			if !ok {
				conn.Close()
				return nil, errors.New("dbus signal channel closed")
			}
			if v, ok := deviceProperty(sig, "ServicesResolved"); ok {
				resolved, _ = v.Value().(bool)
			}
		case <-ctx.Done():
			conn.Close()
			return nil, ctx.Err()
		}
	}

	done := make(chan struct{})
	go func() {
		defer conn.Close()
		for {
			select {
			case sig, ok := <-signals:
				if !ok {
					return
				}
				v, ok := deviceProperty(sig, "Connected")
				if !ok {
					continue
				}
				if connected, _ := v.Value().(bool); !connected {
					b.mu.Lock()
					fn := b.onDisconnect
					b.mu.Unlock()
					if fn != nil {
						fn()
					}
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

func deviceProperty(sig *dbus.Signal, name string) (dbus.Variant, bool) {
	if sig == nil || sig.Name != propsChanged || len(sig.Body) < 2 {
		return dbus.Variant{}, false
	}
	if iface, ok := sig.Body[0].(string); !ok || iface != deviceIface {
		return dbus.Variant{}, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return dbus.Variant{}, false
	}
	v, ok := changed[name]
	return v, ok
}

// DiscoverServices implements GATT. It opens a fresh D-Bus connection and
// calls GetManagedObjects on org.bluez directly; the go-bluetooth object
// manager singleton can hand back a stale tree.
func (b *BlueZ) DiscoverServices(ctx context.Context, uuids []string) ([]string, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("dbus connect: %w", err)
	}
	defer conn.Close()

	var managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := conn.Object(bluezService, "/").CallWithContext(ctx, managedObject, 0)
	if err := call.Store(&managed); err != nil {
		return nil, fmt.Errorf("GetManagedObjects: %w", err)
	}
	b.log.Debugf("GetManagedObjects returned %d objects", len(managed))

	services := make(map[string]string)
	for path, uuid := range children(managed, string(b.devicePath()), "service", serviceIface) {
		if contains(uuids, uuid) {
			services[uuid] = path
		}
	}

	b.mu.Lock()
	b.managed = managed
	b.services = services
	b.chars = make(map[string]*gatt.GattCharacteristic1)
	b.mu.Unlock()

	found := make([]string, 0, len(services))
	for _, uuid := range uuids {
		if _, ok := services[uuid]; ok {
			found = append(found, uuid)
		}
	}
	return found, nil
}

// DiscoverCharacteristics implements GATT.
func (b *BlueZ) DiscoverCharacteristics(ctx context.Context, service string, uuids []string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	servicePath, ok := b.services[service]
	if !ok {
		return nil, fmt.Errorf("service %s not discovered", service)
	}

	var found []string
	for path, uuid := range children(b.managed, servicePath, "char", charIface) {
		if !contains(uuids, uuid) {
			continue
		}
		char, err := gatt.NewGattCharacteristic1(dbus.ObjectPath(path))
		if err != nil {
			return nil, fmt.Errorf("NewGattCharacteristic1(%s): %w", path, err)
		}
		b.chars[uuid] = char
		found = append(found, uuid)
	}
	return found, ctx.Err()
}

// children returns path → UUID for objects exactly one level below parent
// whose last path element starts with prefix and that implement iface.
func children(managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant, parent, prefix, iface string) map[string]string {
	out := make(map[string]string)
	for path, ifaces := range managed {
		p := string(path)
		if !strings.HasPrefix(p, parent+"/"+prefix) || strings.Contains(p[len(parent)+1:], "/") {
			continue
		}
		props, ok := ifaces[iface]
		if !ok {
			continue
		}
		uuid, ok := props["UUID"].Value().(string)
		if !ok {
			continue
		}
		out[p] = strings.ToLower(uuid)
	}
	return out
}

func (b *BlueZ) char(uuid string) (*gatt.GattCharacteristic1, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.chars[uuid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNotDiscovered, uuid)
	}
	return c, nil
}

// Subscribe implements GATT.
func (b *BlueZ) Subscribe(uuid string, fn func([]byte)) error {
	c, err := b.char(uuid)
	if err != nil {
		return err
	}

	ch, err := c.WatchProperties()
	if err != nil {
		return fmt.Errorf("WatchProperties failed: %w", err)
	}
	if err := c.StartNotify(); err != nil {
		_ = c.UnwatchProperties(ch)
		return fmt.Errorf("StartNotify failed: %w", err)
	}

	b.mu.Lock()
	b.notes = append(b.notes, notification{char: c, ch: ch})
	b.mu.Unlock()

	go func() {
		for update := range ch {
			if update == nil || update.Interface != charIface || update.Name != "Value" {
				continue
			}
			if value, ok := update.Value.([]byte); ok {
				fn(value)
			}
		}
	}()
	return nil
}

// Read implements GATT.
func (b *BlueZ) Read(ctx context.Context, uuid string) ([]byte, error) {
	c, err := b.char(uuid)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.ReadValue(map[string]interface{}{})
}

// Write implements GATT.
func (b *BlueZ) Write(ctx context.Context, uuid string, value []byte) error {
	c, err := b.char(uuid)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.WriteValue(value, map[string]interface{}{})
}

// RSSI implements GATT by reading the Device1 RSSI property.
func (b *BlueZ) RSSI(ctx context.Context) (int16, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return 0, fmt.Errorf("dbus: %w", err)
	}
	defer conn.Close()

	var v dbus.Variant
	err = conn.Object(bluezService, b.devicePath()).
		CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, deviceIface, "RSSI").
		Store(&v)
	if err != nil {
		return 0, fmt.Errorf("RSSI property: %w", err)
	}
	rssi, ok := v.Value().(int16)
	if !ok {
		return 0, fmt.Errorf("RSSI property has type %s", v.Signature())
	}
	return rssi, nil
}

// Disconnect implements GATT.
func (b *BlueZ) Disconnect() error {
	b.mu.Lock()
	notes := b.notes
	b.notes = nil
	device := b.device
	b.device = nil
	stop := b.stopWatch
	b.stopWatch = nil
	b.chars = nil
	b.mu.Unlock()

	if stop != nil {
		stop()
	}
	for _, n := range notes {
		_ = n.char.StopNotify()
		_ = n.char.UnwatchProperties(n.ch)
	}
	if device == nil {
		return nil
	}
	if err := device.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	b.log.Info("disconnected")
	return nil
}
