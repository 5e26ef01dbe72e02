package ble

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"missionlink/codec"
	"missionlink/transport"
)

// GATT is a GATT client for one peripheral. UUIDs are lower-case 128-bit
// strings.
type GATT interface {
	// Connect establishes the link and returns once the peripheral's
	// attribute table can be discovered.
	Connect(ctx context.Context) error
	// DiscoverServices returns the subset of uuids the peripheral offers.
	DiscoverServices(ctx context.Context, uuids []string) ([]string, error)
	// DiscoverCharacteristics returns the subset of uuids found in service.
	DiscoverCharacteristics(ctx context.Context, service string, uuids []string) ([]string, error)
	Subscribe(uuid string, fn func([]byte)) error
	Read(ctx context.Context, uuid string) ([]byte, error)
	Write(ctx context.Context, uuid string, value []byte) error
	RSSI(ctx context.Context) (int16, error)
	Disconnect() error
	// OnDisconnect registers a callback for link loss.
	OnDisconnect(fn func())
}

var allowList = transport.NewAllowList(transport.Ping)

// Manager is a transport.Manager over GATT.
type Manager struct {
	transport.Notifier

	gatt GATT
	log  logrus.FieldLogger

	sendMu sync.Mutex

	mu    sync.Mutex
	found map[string]bool
	// gen changes on every disconnect so notifications from an old link
	// are dropped.
	gen uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a Manager using g.
func NewManager(g GATT, opts ...Option) *Manager {
	m := &Manager{
		gatt: g,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithField("component", "BLE")
	g.OnDisconnect(m.linkLost)
	return m
}

// Kind implements transport.Manager.
func (m *Manager) Kind() transport.Kind { return transport.BLE }

// Supports implements transport.Manager.
func (m *Manager) Supports(t transport.MessageType) bool { return allowList.Contains(t) }

// Connect connects, discovers the mission and battery services, and
// subscribes to every notify-capable characteristic found.
func (m *Manager) Connect(ctx context.Context) error {
	if m.Status() == transport.Connected {
		return nil
	}
	m.SetStatus(transport.Connecting)

	if err := m.connect(ctx); err != nil {
		_ = m.gatt.Disconnect()
		m.reset()
		m.SetStatus(transport.NotConnected)
		return err
	}

	m.SetStatus(transport.Connected)
	return nil
}

func (m *Manager) connect(ctx context.Context) error {
	if err := m.gatt.Connect(ctx); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	m.log.Debug("link up, discovering services")

	services, err := m.gatt.DiscoverServices(ctx, serviceUUIDs())
	if err != nil {
		return fmt.Errorf("discovering services: %w", err)
	}
	if !contains(services, ServiceUUID) {
		return fmt.Errorf("%w: mission service %s not found", transport.ErrTransportUnavailable, ServiceUUID)
	}

	found := make(map[string]bool)
	for _, service := range services {
		chars, err := m.gatt.DiscoverCharacteristics(ctx, service, characteristicUUIDs(service))
		if err != nil {
			return fmt.Errorf("discovering characteristics of %s: %w", service, err)
		}
		for _, uuid := range chars {
			found[uuid] = true
		}
	}
	m.log.Debugf("found %d characteristics", len(found))

	m.mu.Lock()
	m.found = found
	gen := m.gen
	m.mu.Unlock()

	for _, c := range characteristics {
		if !c.notify || !found[c.uuid] {
			continue
		}
		c := c
		err := m.gatt.Subscribe(c.uuid, func(b []byte) {
			if !m.current(gen) {
				return
			}
			m.Deliver(c.read, b)
		})
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", c.read, err)
		}
	}
	return nil
}

// Disconnect implements transport.Manager.
func (m *Manager) Disconnect() error {
	if m.Status() == transport.NotConnected {
		return nil
	}
	m.SetStatus(transport.Disconnecting)
	m.reset()
	err := m.gatt.Disconnect()
	m.SetStatus(transport.NotConnected)
	if err != nil {
		return fmt.Errorf("disconnecting: %w", err)
	}
	return nil
}

func (m *Manager) linkLost() {
	switch m.Status() {
	case transport.Connected, transport.Connecting:
		m.log.Warn("link lost")
		m.reset()
		m.SetStatus(transport.NotConnected)
	}
}

func (m *Manager) reset() {
	m.mu.Lock()
	m.found = nil
	m.gen++
	m.mu.Unlock()
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

func (m *Manager) has(uuid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.found[uuid]
}

// Send writes Set messages and reads Get messages. A read result, and the
// read-back after writing a characteristic that does not notify, is
// delivered to the message handler before Send returns.
func (m *Manager) Send(ctx context.Context, t transport.MessageType, payload []byte) error {
	if err := m.Check(&allowList, t); err != nil {
		return err
	}

	if t == transport.RSSI {
		rssi, err := m.ReadRSSI(ctx)
		if err != nil {
			return err
		}
		w := codec.NewWriter(2)
		w.Int16(rssi)
		m.Deliver(t, w.Bytes())
		return nil
	}

	c, ok := byMessageType[t]
	if !ok {
		return fmt.Errorf("%w: %s has no characteristic", transport.ErrMessageTypeNotSupported, t)
	}
	if !m.has(c.uuid) {
		return fmt.Errorf("%w: characteristic for %s not discovered", transport.ErrTransportUnavailable, t)
	}

	deliver, value, err := m.exchange(ctx, c, t, payload)
	if err != nil {
		return err
	}
	if deliver {
		m.Deliver(c.read, value)
	}
	return nil
}

func (m *Manager) exchange(ctx context.Context, c *characteristic, t transport.MessageType, payload []byte) (bool, []byte, error) {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	if t == c.write {
		if err := m.gatt.Write(ctx, c.uuid, payload); err != nil {
			return false, nil, fmt.Errorf("writing %s: %w", t, err)
		}
		if c.notify || c.read == none {
			return false, nil, nil
		}
	}

	value, err := m.gatt.Read(ctx, c.uuid)
	if err != nil {
		return false, nil, fmt.Errorf("reading %s: %w", c.read, err)
	}
	return true, value, nil
}

// ReadRSSI implements transport.RSSIReader.
func (m *Manager) ReadRSSI(ctx context.Context) (int16, error) {
	if m.Status() != transport.Connected {
		return 0, fmt.Errorf("%w: reading rssi", transport.ErrNotConnected)
	}
	rssi, err := m.gatt.RSSI(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading rssi: %w", err)
	}
	return rssi, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
