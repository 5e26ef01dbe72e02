package transport

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"missionlink/codec"
)

func TestMessageTypes(t *testing.T) {
	is := is.New(t)

	is.Equal(len(MessageTypes()), 20)
	is.Equal(uint8(RSSI), uint8(19))
	is.Equal(SetSensorDataConfigurations.String(), "setSensorDataConfigurations")

	mt, err := ParseMessageType(9)
	is.NoErr(err)
	is.Equal(mt, SensorData)

	_, err = ParseMessageType(20)
	is.True(errors.Is(err, codec.ErrUnknownEnumValue))
}

func TestAllowList(t *testing.T) {
	is := is.New(t)

	l := NewAllowList(Ping, RSSI)
	is.True(!l.Contains(Ping))
	is.True(!l.Contains(RSSI))
	is.True(l.Contains(SensorData))
	is.True(!l.Contains(MessageType(200)))
}

func TestNotifier(t *testing.T) {
	is := is.New(t)

	var n Notifier
	var seen []Status
	n.OnStatus(func(s Status) { seen = append(seen, s) })

	n.SetStatus(Connecting)
	n.SetStatus(Connecting)
	n.SetStatus(Connected)
	is.Equal(seen, []Status{Connecting, Connected})

	l := NewAllowList(RSSI)
	is.True(errors.Is(n.Check(&l, RSSI), ErrMessageTypeNotSupported))
	is.NoErr(n.Check(&l, GetName))

	n.SetStatus(NotConnected)
	is.True(errors.Is(n.Check(&l, GetName), ErrNotConnected))

	var got []MessageType
	n.OnMessage(func(t MessageType, _ []byte) { got = append(got, t) })
	n.Deliver(BatteryLevel, []byte{90})
	is.Equal(got, []MessageType{BatteryLevel})
}
