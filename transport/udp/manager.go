package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"missionlink/codec"
	"missionlink/transport"
)

// DefaultPort is the mission's UDP port.
const DefaultPort = 9999

const (
	defaultPingInterval = time.Second
	// A connected mission that misses this many pings in a row is gone.
	missedPings = 5
	readTimeout         = 200 * time.Millisecond
	maxDatagram         = 1500
)

var allowList = transport.NewAllowList(
	transport.RSSI,
	transport.SetWifiSSID,
	transport.SetWifiPassword,
	transport.SetWifiShouldConnect,
)

// Manager is a transport.Manager over a datagram socket.
type Manager struct {
	transport.Notifier

	host         string
	port         int
	pingInterval time.Duration
	log          logrus.FieldLogger

	sendMu sync.Mutex
	// unix nanoseconds of the last valid inbound frame
	lastSeen atomic.Int64

	mu     sync.Mutex
	conn   *net.UDPConn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithPort overrides DefaultPort.
func WithPort(port int) Option {
	return func(m *Manager) { m.port = port }
}

// WithPingInterval overrides the one second keepalive.
func WithPingInterval(d time.Duration) Option {
	return func(m *Manager) { m.pingInterval = d }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a Manager for the mission at host, which is the IP
// address the mission reported over WiFi.
func NewManager(host string, opts ...Option) *Manager {
	m := &Manager{
		host:         host,
		port:         DefaultPort,
		pingInterval: defaultPingInterval,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithFields(logrus.Fields{"component": "UDP", "host": host})
	return m
}

// Kind implements transport.Manager.
func (m *Manager) Kind() transport.Kind { return transport.UDP }

// Supports implements transport.Manager.
func (m *Manager) Supports(t transport.MessageType) bool { return allowList.Contains(t) }

// Connect opens the socket and starts the receive and keepalive loops. The
// status is Connecting until the first frame arrives.
func (m *Manager) Connect(ctx context.Context) error {
	if m.host == "" {
		return transport.ErrWifiUnavailable
	}

	m.mu.Lock()
	if m.conn != nil {
		m.mu.Unlock()
		return nil
	}

	var d net.Dialer
	c, err := d.DialContext(ctx, "udp", net.JoinHostPort(m.host, strconv.Itoa(m.port)))
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", transport.ErrWifiUnavailable, err)
	}
	conn := c.(*net.UDPConn)

	loopCtx, cancel := context.WithCancel(context.Background())
	m.conn = conn
	m.cancel = cancel
	m.mu.Unlock()
	m.lastSeen.Store(time.Now().UnixNano())

	m.SetStatus(transport.Connecting)
	m.log.Info("socket open, waiting for the mission")

	m.wg.Add(2)
	go m.receive(loopCtx, conn)
	go m.keepalive(loopCtx, conn)
	return nil
}

// Disconnect stops both loops and closes the socket. It must not be called
// from a message handler.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	conn, cancel := m.conn, m.cancel
	m.conn, m.cancel = nil, nil
	m.mu.Unlock()

	if conn == nil {
		return nil
	}

	m.SetStatus(transport.Disconnecting)
	cancel()
	err := conn.Close()
	m.wg.Wait()
	m.SetStatus(transport.NotConnected)
	m.log.Info("disconnected")

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("closing socket: %w", err)
	}
	return nil
}

// Send implements transport.Manager.
func (m *Manager) Send(ctx context.Context, t transport.MessageType, payload []byte) error {
	if err := m.Check(&allowList, t); err != nil {
		return err
	}
	frame, err := AppendFrame(make([]byte, 0, 2+len(payload)), t, payload)
	if err != nil {
		return err
	}
	return m.write(ctx, frame)
}

func (m *Manager) write(ctx context.Context, frame []byte) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return transport.ErrNotConnected
	}

	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(time.Second)
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", transport.ErrNotConnected, err)
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", transport.ErrTransportUnavailable, err)
	}
	return nil
}

// keepalive pings the mission and drops the link once a connected mission
// has stopped answering.
func (m *Manager) keepalive(ctx context.Context, conn *net.UDPConn) {
	defer m.wg.Done()

	ping, _ := AppendFrame(nil, transport.Ping, nil)
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()

	timeout := missedPings * m.pingInterval
	for {
		if err := m.write(ctx, ping); err != nil && ctx.Err() == nil {
			m.log.Debugf("ping failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		silent := time.Since(time.Unix(0, m.lastSeen.Load()))
		if m.Status() == transport.Connected && silent > timeout {
			m.linkLost(conn, silent)
			return
		}
	}
}

// linkLost closes conn if it is still the current socket. It runs on the
// keepalive loop, so unlike Disconnect it does not wait for the loops.
func (m *Manager) linkLost(conn *net.UDPConn, silent time.Duration) {
	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.conn, m.cancel = nil, nil
	m.mu.Unlock()

	m.log.Warnf("no reply for %s, link lost", silent.Round(time.Millisecond))
	cancel()
	_ = conn.Close()
	m.SetStatus(transport.NotConnected)
}

func (m *Manager) receive(ctx context.Context, conn *net.UDPConn) {
	defer m.wg.Done()

	buf := make([]byte, maxDatagram)
	for ctx.Err() == nil {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}
		n, err := conn.Read(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			// ICMP port unreachable surfaces here while the mission boots.
			m.log.Debugf("read failed: %v", err)
			continue
		}
		m.dispatch(ctx, buf[:n])
	}
}

// dispatch delivers every frame in one datagram. A malformed frame drops
// the rest of the datagram.
func (m *Manager) dispatch(ctx context.Context, datagram []byte) {
	r := codec.NewReader(datagram)
	for r.Len() > 0 {
		t, payload, err := ReadFrame(r)
		if err != nil {
			m.log.Warnf("dropping datagram at offset %d: %v", r.Offset(), err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		m.lastSeen.Store(time.Now().UnixNano())
		if m.Status() == transport.Connecting {
			m.SetStatus(transport.Connected)
		}
		m.Deliver(t, payload)
	}
}
