// Package mission is the session with one motion module or insole. It owns
// the decoders, dispatches transport messages to them and keeps the sensor
// configuration in sync with the device.
package mission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"missionlink/calibration"
	"missionlink/motion"
	"missionlink/observe"
	"missionlink/pressure"
	"missionlink/sensor"
	"missionlink/transport"
)

const (
	defaultWatchdogInterval = time.Second
	defaultSilence          = time.Second
	defaultRSSIInterval     = time.Second
	defaultTypeInterval     = time.Second
	// RSSI ticks closer than this to the previous read are skipped.
	rssiJitter = 200 * time.Millisecond
)

// Mission is one device session. Transport callbacks, timers and user
// operations are serialized on one lock, so observers see updates in the
// order the messages arrived.
type Mission struct {
	log logrus.FieldLogger
	now func() time.Time

	watchdogInterval time.Duration
	silence          time.Duration
	rssiInterval     time.Duration
	typeInterval     time.Duration

	mu              sync.Mutex
	manager         transport.Manager
	gen             uint64
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	transportStatus transport.Status

	deviceType      sensor.DeviceType
	deviceTypeKnown bool
	batteryReceived bool
	clock           sensor.Clock
	config          sensor.Configuration
	lastSensorData  time.Time
	lastRSSI        time.Time

	Motion      *motion.Decoder
	Pressure    *pressure.Decoder
	Calibration calibration.Tracker

	Name                    observe.Value[string]
	DeviceType              observe.Value[sensor.DeviceType]
	BatteryLevel            observe.Value[uint8]
	RSSI                    observe.Value[int16]
	Status                  observe.Value[transport.Status]
	SensorDataConfiguration observe.Value[sensor.Configuration]
	WifiSSID                observe.Value[string]
	WifiPassword            observe.Value[string]
	WifiShouldConnect       observe.Value[bool]
	WifiIsConnected         observe.Value[bool]
	IPAddress               observe.Value[string]
	// SensorData fires after every sensor data message with its timestamp.
	SensorData observe.Event[uint64]
	// Vibrated fires when the device acknowledges a vibration.
	Vibrated observe.Event[[]byte]
}

// Option configures a Mission.
type Option func(*Mission)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Mission) { m.log = l }
}

// WithWatchdog sets how often the watchdog runs and how long sensor data
// may be silent before the configuration is resent.
func WithWatchdog(interval, silence time.Duration) Option {
	return func(m *Mission) {
		m.watchdogInterval = interval
		m.silence = silence
	}
}

// WithRSSIInterval sets the RSSI polling period.
func WithRSSIInterval(d time.Duration) Option {
	return func(m *Mission) { m.rssiInterval = d }
}

// New returns a disconnected mission that will talk through manager.
func New(manager transport.Manager, opts ...Option) *Mission {
	m := &Mission{
		log:              logrus.StandardLogger(),
		now:              time.Now,
		watchdogInterval: defaultWatchdogInterval,
		silence:          defaultSilence,
		rssiInterval:     defaultRSSIInterval,
		typeInterval:     defaultTypeInterval,
		manager:          manager,
		Motion:           motion.NewDecoder(sensor.MotionModule),
		Pressure:         pressure.NewDecoder(sensor.MotionModule),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithField("component", "Mission")
	return m
}

// Transport returns the current connection manager.
func (m *Mission) Transport() transport.Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manager
}

// Connect connects the transport, starts the watchdog and RSSI timers and
// requests the device's state. A session whose link was lost is replaced.
func (m *Mission) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		if m.transportStatus != transport.NotConnected {
			m.mu.Unlock()
			return nil
		}
		gen := m.gen
		m.mu.Unlock()
		m.stop(gen)
		m.mu.Lock()
	}
	m.gen++
	gen := m.gen
	manager := m.manager
	m.resetSession()

	timers, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	manager.OnMessage(func(t transport.MessageType, payload []byte) { m.handle(gen, t, payload) })
	manager.OnStatus(func(s transport.Status) { m.handleStatus(gen, s) })

	if err := manager.Connect(ctx); err != nil {
		m.stop(gen)
		return fmt.Errorf("connecting over %s: %w", manager.Kind(), err)
	}
	m.log.Infof("transport %s up", manager.Kind())

	m.wg.Add(1)
	go m.watchdog(timers, gen)
	if reader, ok := manager.(transport.RSSIReader); ok && manager.Supports(transport.RSSI) {
		m.wg.Add(1)
		go m.pollRSSI(timers, gen, reader)
	}

	m.requestState(ctx, manager)
	return nil
}

func (m *Mission) resetSession() {
	m.deviceTypeKnown = false
	m.batteryReceived = false
	m.clock.Reset()
	m.lastSensorData = m.now()
	m.transportStatus = transport.NotConnected
}

// requestState asks the device for everything the mission tracks. Failures
// are logged; the device pushes most of these again on change.
func (m *Mission) requestState(ctx context.Context, manager transport.Manager) {
	requests := []transport.MessageType{
		transport.GetType,
		transport.GetName,
		transport.GetSensorDataConfigurations,
		transport.MotionCalibration,
		transport.BatteryLevel,
	}
	if manager.Kind() == transport.BLE {
		requests = append(requests,
			transport.GetWifiSSID,
			transport.GetWifiPassword,
			transport.GetWifiShouldConnect,
			transport.WifiIsConnected,
			transport.IPAddress,
		)
	}
	for _, t := range requests {
		if !manager.Supports(t) {
			continue
		}
		if err := manager.Send(ctx, t, nil); err != nil {
			m.log.Warnf("requesting %s: %v", t, err)
		}
	}
}

// Disconnect stops the timers and disconnects the transport. Callbacks
// still in flight from the old connection are dropped.
func (m *Mission) Disconnect() error {
	m.mu.Lock()
	gen := m.gen
	manager := m.manager
	m.mu.Unlock()

	m.stop(gen)
	err := manager.Disconnect()

	m.mu.Lock()
	m.transportStatus = transport.NotConnected
	m.setStatus(transport.NotConnected)
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("disconnecting %s: %w", manager.Kind(), err)
	}
	return nil
}

// stop invalidates generation gen and joins the timers.
func (m *Mission) stop(gen uint64) {
	m.mu.Lock()
	if m.gen == gen {
		m.gen++
	}
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// SwapTransport disconnects the current transport and connects next in its
// place. The mission's decoded state is kept.
func (m *Mission) SwapTransport(ctx context.Context, next transport.Manager) error {
	if next == nil {
		return errors.New("nil transport")
	}
	if err := m.Disconnect(); err != nil {
		m.log.Warnf("swapping transport: %v", err)
	}

	m.mu.Lock()
	m.manager = next
	m.mu.Unlock()

	return m.Connect(ctx)
}

func (m *Mission) handleStatus(gen uint64, s transport.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.transportStatus = s
	m.evaluateStatus()
}

// evaluateStatus derives the mission status from the transport status. BLE
// links count as connected once the first battery reading arrives; UDP
// links once the first frame arrives.
func (m *Mission) evaluateStatus() {
	s := m.transportStatus
	if s == transport.Connected && m.manager.Kind() == transport.BLE && !m.batteryReceived {
		s = transport.Connecting
	}
	m.setStatus(s)
}

func (m *Mission) setStatus(s transport.Status) {
	if m.Status.Get() == s && m.Status.Version() > 0 {
		return
	}
	m.log.Debugf("status %s", s)
	m.Status.Set(s)
}

// send hands a message to the transport outside the mission lock; BLE
// reads deliver their result synchronously.
func (m *Mission) send(ctx context.Context, t transport.MessageType, payload []byte) error {
	manager := m.Transport()
	if err := manager.Send(ctx, t, payload); err != nil {
		return fmt.Errorf("sending %s: %w", t, err)
	}
	return nil
}
