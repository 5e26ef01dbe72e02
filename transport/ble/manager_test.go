package ble

import (
	"context"
	"errors"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"missionlink/transport"
)

type fakeGATT struct {
	mu sync.Mutex

	services map[string][]string
	values   map[string][]byte
	subs     map[string]func([]byte)
	writes   []string
	calls    []string
	rssi     int16
	lost     func()
}

func newFakeGATT() *fakeGATT {
	f := &fakeGATT{
		services: map[string][]string{},
		values:   map[string][]byte{},
		subs:     map[string]func([]byte){},
		rssi:     -60,
	}
	for _, c := range characteristics {
		f.services[c.service] = append(f.services[c.service], c.uuid)
	}
	return f
}

func (f *fakeGATT) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeGATT) Connect(context.Context) error {
	f.record("connect")
	return nil
}

func (f *fakeGATT) DiscoverServices(_ context.Context, uuids []string) ([]string, error) {
	f.record("services")
	var out []string
	for _, u := range uuids {
		if _, ok := f.services[u]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeGATT) DiscoverCharacteristics(_ context.Context, service string, uuids []string) ([]string, error) {
	f.record("characteristics")
	var out []string
	for _, u := range uuids {
		if contains(f.services[service], u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeGATT) Subscribe(uuid string, fn func([]byte)) error {
	f.record("subscribe")
	f.mu.Lock()
	f.subs[uuid] = fn
	f.mu.Unlock()
	return nil
}

func (f *fakeGATT) Read(_ context.Context, uuid string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[uuid], nil
}

func (f *fakeGATT) Write(_ context.Context, uuid string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[uuid] = value
	f.writes = append(f.writes, uuid)
	return nil
}

func (f *fakeGATT) RSSI(context.Context) (int16, error) { return f.rssi, nil }

func (f *fakeGATT) Disconnect() error {
	f.record("disconnect")
	return nil
}

func (f *fakeGATT) OnDisconnect(fn func()) { f.lost = fn }

func (f *fakeGATT) notify(uuid string, b []byte) {
	f.mu.Lock()
	fn := f.subs[uuid]
	f.mu.Unlock()
	if fn != nil {
		fn(b)
	}
}

type message struct {
	t       transport.MessageType
	payload string
}

func TestCharacteristicTable(t *testing.T) {
	Convey("every message but ping maps to a characteristic", t, func() {
		for _, mt := range transport.MessageTypes() {
			_, ok := CharacteristicUUID(mt)
			switch mt {
			case transport.Ping, transport.RSSI:
				So(ok, ShouldBeFalse)
			default:
				So(ok, ShouldBeTrue)
			}
		}
	})

	Convey("get and set pairs share a characteristic", t, func() {
		get, _ := CharacteristicUUID(transport.GetName)
		set, _ := CharacteristicUUID(transport.SetName)
		So(get, ShouldEqual, set)
		So(get, ShouldEqual, "5691eddf-4001-4420-b7a5-bb8751ab5181")

		battery, _ := CharacteristicUUID(transport.BatteryLevel)
		So(battery, ShouldEqual, "00002a19-0000-1000-8000-00805f9b34fb")
	})
}

func TestManager(t *testing.T) {
	Convey("Given a manager over a fake peripheral", t, func() {
		ctx := context.Background()
		g := newFakeGATT()
		m := NewManager(g)

		var got []message
		m.OnMessage(func(mt transport.MessageType, b []byte) {
			got = append(got, message{mt, string(b)})
		})
		var statuses []transport.Status
		m.OnStatus(func(s transport.Status) { statuses = append(statuses, s) })

		Convey("sending before connecting fails", func() {
			err := m.Send(ctx, transport.GetName, nil)
			So(errors.Is(err, transport.ErrNotConnected), ShouldBeTrue)
		})

		Convey("connecting sequences discovery before subscriptions", func() {
			So(m.Connect(ctx), ShouldBeNil)
			So(m.Status(), ShouldEqual, transport.Connected)
			So(statuses, ShouldResemble, []transport.Status{transport.Connecting, transport.Connected})

			So(g.calls[:4], ShouldResemble, []string{"connect", "services", "characteristics", "characteristics"})
			subscribed := 0
			for _, c := range characteristics {
				if c.notify {
					subscribed++
				}
			}
			So(len(g.subs), ShouldEqual, subscribed)

			Convey("notifications arrive as the characteristic's read message", func() {
				g.notify(BatteryLevelUUID, []byte{87})
				g.notify(MissionUUID(0x6002), []byte{1, 2})
				So(got, ShouldResemble, []message{
					{transport.BatteryLevel, "W"},
					{transport.SensorData, "\x01\x02"},
				})
			})

			Convey("a get is a read delivered to the handler", func() {
				g.values[MissionUUID(0x4001)] = []byte("My Ukaton Mission")
				So(m.Send(ctx, transport.GetName, nil), ShouldBeNil)
				So(got, ShouldResemble, []message{{transport.GetName, "My Ukaton Mission"}})
			})

			Convey("a set writes and reads back", func() {
				So(m.Send(ctx, transport.SetName, []byte("Left")), ShouldBeNil)
				So(g.writes, ShouldResemble, []string{MissionUUID(0x4001)})
				So(got, ShouldResemble, []message{{transport.GetName, "Left"}})
			})

			Convey("a vibration is write only", func() {
				So(m.Send(ctx, transport.TriggerVibration, []byte{1, 45, 10}), ShouldBeNil)
				So(got, ShouldBeEmpty)
			})

			Convey("ping is not carried over BLE", func() {
				So(m.Supports(transport.Ping), ShouldBeFalse)
				err := m.Send(ctx, transport.Ping, nil)
				So(errors.Is(err, transport.ErrMessageTypeNotSupported), ShouldBeTrue)
			})

			Convey("rssi is read from the link", func() {
				rssi, err := m.ReadRSSI(ctx)
				So(err, ShouldBeNil)
				So(rssi, ShouldEqual, -60)
			})

			Convey("after disconnecting, late notifications are dropped", func() {
				So(m.Disconnect(), ShouldBeNil)
				So(m.Status(), ShouldEqual, transport.NotConnected)
				g.notify(BatteryLevelUUID, []byte{50})
				So(got, ShouldBeEmpty)
			})

			Convey("link loss drops to not connected", func() {
				g.lost()
				So(m.Status(), ShouldEqual, transport.NotConnected)
				err := m.Send(ctx, transport.GetName, nil)
				So(errors.Is(err, transport.ErrNotConnected), ShouldBeTrue)
			})
		})

		Convey("a peripheral without the mission service is rejected", func() {
			delete(g.services, ServiceUUID)
			err := m.Connect(ctx)
			So(errors.Is(err, transport.ErrTransportUnavailable), ShouldBeTrue)
			So(m.Status(), ShouldEqual, transport.NotConnected)
		})

		Convey("missing characteristics are unavailable", func() {
			g.services[ServiceUUID] = []string{MissionUUID(0x6002)}
			So(m.Connect(ctx), ShouldBeNil)
			err := m.Send(ctx, transport.GetName, nil)
			So(errors.Is(err, transport.ErrTransportUnavailable), ShouldBeTrue)
		})
	})
}

func TestMatch(t *testing.T) {
	Convey("address beats name beats service", t, func() {
		So(Match{Address: "aa:bb"}.accepts("x", "AA:BB", false), ShouldBeTrue)
		So(Match{Address: "aa:bb", Name: "x"}.accepts("x", "cc", true), ShouldBeFalse)
		So(Match{Name: "Left"}.accepts("Left", "cc", false), ShouldBeTrue)
		So(Match{}.accepts("", "cc", true), ShouldBeTrue)
		So(Match{}.accepts("", "cc", false), ShouldBeFalse)
	})
}
