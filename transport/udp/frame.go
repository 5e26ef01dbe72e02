// Package udp carries mission messages over the mission's WiFi datagram
// port.
package udp

import (
	"fmt"

	"missionlink/codec"
	"missionlink/sensor"
	"missionlink/transport"
)

// Frames are [u8 type][u8 length, variable types only][payload].

const variable = -1

// variableLength marks the types whose outbound frames carry a length byte.
var variableLength = func() (v [256]bool) {
	for _, t := range []transport.MessageType{
		transport.GetName,
		transport.SetName,
		transport.SetSensorDataConfigurations,
		transport.SensorData,
		transport.TriggerVibration,
		transport.GetWifiSSID,
		transport.GetWifiPassword,
		transport.IPAddress,
	} {
		v[t] = true
	}
	return
}()

// inboundLength is the payload size of each inbound frame type, or
// variable. Configuration replies are full snapshots.
var inboundLength = map[transport.MessageType]int{
	transport.Ping:                        0,
	transport.BatteryLevel:                1,
	transport.GetType:                     1,
	transport.SetType:                     1,
	transport.GetName:                     variable,
	transport.SetName:                     variable,
	transport.MotionCalibration:           4,
	transport.GetSensorDataConfigurations: sensor.SnapshotSize,
	transport.SetSensorDataConfigurations: sensor.SnapshotSize,
	transport.SensorData:                  variable,
	transport.TriggerVibration:            variable,
	transport.GetWifiSSID:                 variable,
	transport.SetWifiSSID:                 variable,
	transport.GetWifiPassword:             variable,
	transport.SetWifiPassword:             variable,
	transport.GetWifiShouldConnect:        1,
	transport.SetWifiShouldConnect:        1,
	transport.WifiIsConnected:             1,
	transport.IPAddress:                   variable,
}

// AppendFrame appends the outbound frame for t to dst.
func AppendFrame(dst []byte, t transport.MessageType, payload []byte) ([]byte, error) {
	dst = append(dst, uint8(t))
	if variableLength[t] {
		if len(payload) > 0xff {
			return nil, fmt.Errorf("%s payload of %d bytes exceeds 255", t, len(payload))
		}
		dst = append(dst, uint8(len(payload)))
	}
	return append(dst, payload...), nil
}

// ReadFrame consumes one inbound frame from r.
func ReadFrame(r *codec.Reader) (transport.MessageType, []byte, error) {
	raw, err := r.Uint8()
	if err != nil {
		return 0, nil, err
	}
	t, err := transport.ParseMessageType(raw)
	if err != nil {
		return 0, nil, err
	}
	n, ok := inboundLength[t]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s is never sent by a mission", codec.ErrUnknownEnumValue, t)
	}
	if n == variable {
		l, err := r.Uint8()
		if err != nil {
			return 0, nil, fmt.Errorf("reading %s length: %w", t, err)
		}
		n = int(l)
	}
	payload, err := r.Bytes(n)
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s: %w", t, err)
	}
	return t, payload, nil
}
