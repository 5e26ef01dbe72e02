// Package transport defines the message-level contract shared by the BLE and
// UDP connections to a mission.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"missionlink/codec"
)

var (
	// ErrNotConnected is returned when sending without a live connection.
	ErrNotConnected = errors.New("not connected")

	// ErrTransportUnavailable is returned when the link exists but cannot
	// carry the request, e.g. a characteristic missing from the GATT table.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrMessageTypeNotSupported is returned for message types outside the
	// transport's allow-list.
	ErrMessageTypeNotSupported = errors.New("message type not supported")

	// ErrWifiUnavailable is returned when a UDP connection is requested for a
	// mission that has not reported an IP address.
	ErrWifiUnavailable = errors.New("wifi unavailable")
)

// Kind identifies a transport implementation.
type Kind uint8

const (
	BLE Kind = iota
	UDP
)

func (k Kind) String() string {
	switch k {
	case BLE:
		return "ble"
	case UDP:
		return "udp"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Status is the connection state of a Manager.
type Status uint8

const (
	NotConnected Status = iota
	Connecting
	Connected
	Disconnecting
)

var statusNames = [...]string{"notConnected", "connecting", "connected", "disconnecting"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MessageType is a logical mission message. The value doubles as the UDP
// frame tag.
type MessageType uint8

const (
	Ping MessageType = iota
	BatteryLevel
	GetType
	SetType
	GetName
	SetName
	MotionCalibration
	GetSensorDataConfigurations
	SetSensorDataConfigurations
	SensorData
	TriggerVibration
	GetWifiSSID
	SetWifiSSID
	GetWifiPassword
	SetWifiPassword
	GetWifiShouldConnect
	SetWifiShouldConnect
	WifiIsConnected
	IPAddress
	RSSI

	numMessageTypes
)

var messageTypeNames = [numMessageTypes]string{
	"ping",
	"batteryLevel",
	"getType",
	"setType",
	"getName",
	"setName",
	"motionCalibration",
	"getSensorDataConfigurations",
	"setSensorDataConfigurations",
	"sensorData",
	"triggerVibration",
	"getWifiSSID",
	"setWifiSSID",
	"getWifiPassword",
	"setWifiPassword",
	"getWifiShouldConnect",
	"setWifiShouldConnect",
	"wifiIsConnected",
	"ipAddress",
	"rssi",
}

// ParseMessageType maps a wire tag to a MessageType.
func ParseMessageType(v uint8) (MessageType, error) {
	if MessageType(v) >= numMessageTypes {
		return 0, codec.UnknownValue("message type", v)
	}
	return MessageType(v), nil
}

func (t MessageType) String() string {
	if t < numMessageTypes {
		return messageTypeNames[t]
	}
	return fmt.Sprintf("MessageType(%d)", uint8(t))
}

// MessageTypes lists every message type in wire order.
func MessageTypes() []MessageType {
	all := make([]MessageType, numMessageTypes)
	for i := range all {
		all[i] = MessageType(i)
	}
	return all
}

// AllowList is a set of message types a transport can carry.
type AllowList [numMessageTypes]bool

// NewAllowList returns a list containing every message type except the
// excluded ones.
func NewAllowList(excluded ...MessageType) AllowList {
	var l AllowList
	for i := range l {
		l[i] = true
	}
	for _, t := range excluded {
		l[t] = false
	}
	return l
}

// Contains reports whether t is allowed.
func (l *AllowList) Contains(t MessageType) bool {
	return t < numMessageTypes && l[t]
}

// MessageHandler receives one inbound message. The payload is only valid
// for the duration of the call.
type MessageHandler func(t MessageType, payload []byte)

// StatusHandler receives status transitions.
type StatusHandler func(Status)

// Manager is a connection to one mission.
type Manager interface {
	Kind() Kind
	Connect(ctx context.Context) error
	Disconnect() error
	Status() Status
	// Send fails with ErrMessageTypeNotSupported for types outside the
	// allow-list and ErrNotConnected without a live connection.
	Send(ctx context.Context, t MessageType, payload []byte) error
	Supports(t MessageType) bool
	OnMessage(MessageHandler)
	OnStatus(StatusHandler)
}

// RSSIReader is implemented by managers that can measure signal strength.
type RSSIReader interface {
	ReadRSSI(ctx context.Context) (int16, error)
}

// Notifier holds the status and callbacks every Manager needs. The zero
// value is NotConnected with no handlers.
type Notifier struct {
	mu        sync.RWMutex
	status    Status
	onMessage MessageHandler
	onStatus  StatusHandler
}

// OnMessage sets the inbound message handler.
func (n *Notifier) OnMessage(fn MessageHandler) {
	n.mu.Lock()
	n.onMessage = fn
	n.mu.Unlock()
}

// OnStatus sets the status handler.
func (n *Notifier) OnStatus(fn StatusHandler) {
	n.mu.Lock()
	n.onStatus = fn
	n.mu.Unlock()
}

// Status returns the current status.
func (n *Notifier) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// SetStatus stores s and calls the status handler when it changed.
func (n *Notifier) SetStatus(s Status) {
	n.mu.Lock()
	if n.status == s {
		n.mu.Unlock()
		return
	}
	n.status = s
	fn := n.onStatus
	n.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

// Deliver passes an inbound message to the message handler.
func (n *Notifier) Deliver(t MessageType, payload []byte) {
	n.mu.RLock()
	fn := n.onMessage
	n.mu.RUnlock()

	if fn != nil {
		fn(t, payload)
	}
}

// Check validates a send against the allow-list and the current status.
func (n *Notifier) Check(l *AllowList, t MessageType) error {
	if !l.Contains(t) {
		return fmt.Errorf("%w: %s", ErrMessageTypeNotSupported, t)
	}
	if n.Status() != Connected && n.Status() != Connecting {
		return fmt.Errorf("%w: sending %s", ErrNotConnected, t)
	}
	return nil
}
