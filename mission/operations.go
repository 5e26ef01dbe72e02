package mission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"missionlink/haptics"
	"missionlink/sensor"
	"missionlink/transport"
)

// MaxNameLength is the longest name the device stores.
const MaxNameLength = 30

var (
	// ErrInvalidName is returned for empty or over-long names.
	ErrInvalidName = errors.New("invalid name")
	// ErrDeviceTypeUnknown is returned for configuration changes made before
	// the device reported its type, which decides the streams it has.
	ErrDeviceTypeUnknown = errors.New("device type not reported yet")
)

// SetName renames the device. The new name is published when the device
// acknowledges it.
func (m *Mission) SetName(ctx context.Context, name string) error {
	if name == "" || len(name) > MaxNameLength {
		return fmt.Errorf("%w: %q must be 1 to %d bytes", ErrInvalidName, name, MaxNameLength)
	}
	return m.send(ctx, transport.SetName, []byte(name))
}

// SetDeviceType changes what the device reports itself as.
func (m *Mission) SetDeviceType(ctx context.Context, dt sensor.DeviceType) error {
	if _, err := sensor.ParseDeviceType(uint8(dt)); err != nil {
		return err
	}
	return m.send(ctx, transport.SetType, []byte{uint8(dt)})
}

// WaitDeviceType blocks until the device has reported its type, asking
// for it again every second.
func (m *Mission) WaitDeviceType(ctx context.Context) (sensor.DeviceType, error) {
	reported := make(chan struct{}, 1)
	unsub := m.DeviceType.Subscribe(func(sensor.DeviceType) {
		select {
		case reported <- struct{}{}:
		default:
		}
	})
	defer unsub()

	ticker := time.NewTicker(m.typeInterval)
	defer ticker.Stop()

	for {
		m.mu.Lock()
		dt, known := m.deviceType, m.deviceTypeKnown
		m.mu.Unlock()
		if known {
			return dt, nil
		}

		select {
		case <-ctx.Done():
			return dt, fmt.Errorf("%w: %v", ErrDeviceTypeUnknown, ctx.Err())
		case <-reported:
		case <-ticker.C:
			if err := m.Request(ctx, transport.GetType); err != nil {
				m.log.Debugf("requesting device type: %v", err)
			}
		}
	}
}

// SetSensorDataConfiguration sends the rates in c that differ from the
// acknowledged configuration. Nothing is sent when they match.
func (m *Mission) SetSensorDataConfiguration(ctx context.Context, c sensor.Configuration) error {
	m.mu.Lock()
	if !m.deviceTypeKnown {
		m.mu.Unlock()
		return ErrDeviceTypeUnknown
	}
	payload := c.SerializeDelta(&m.config, m.deviceType)
	m.mu.Unlock()

	if len(payload) == 0 {
		return nil
	}
	return m.send(ctx, transport.SetSensorDataConfigurations, payload)
}

// SetSensorRate changes one stream's rate, keeping the others.
func (m *Mission) SetSensorRate(ctx context.Context, t sensor.Type, s sensor.SubType, ms uint16) error {
	c := m.Configuration()
	c.Set(t, s, ms)
	return m.SetSensorDataConfiguration(ctx, c)
}

// ClearSensorDataConfiguration disables every stream.
func (m *Mission) ClearSensorDataConfiguration(ctx context.Context) error {
	return m.SetSensorDataConfiguration(ctx, sensor.Configuration{})
}

// Configuration returns a copy of the acknowledged sensor configuration.
func (m *Mission) Configuration() sensor.Configuration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.Clone()
}

// Vibrate plays DRV2605 library effects in order.
func (m *Mission) Vibrate(ctx context.Context, effects ...haptics.Effect) error {
	payload, err := haptics.EncodeEffects(effects...)
	if err != nil {
		return err
	}
	return m.send(ctx, transport.TriggerVibration, payload)
}

// VibrateWaveform plays a free-form amplitude sequence.
func (m *Mission) VibrateWaveform(ctx context.Context, segments ...haptics.Segment) error {
	return m.send(ctx, transport.TriggerVibration, haptics.EncodeWaveform(segments...))
}

// RecalibrateCenterOfMass empties the pressure calibration window.
func (m *Mission) RecalibrateCenterOfMass() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pressure.RecalibrateCenterOfMass()
}

// SetWifiSSID sets the network the device joins. BLE only.
func (m *Mission) SetWifiSSID(ctx context.Context, ssid string) error {
	return m.send(ctx, transport.SetWifiSSID, []byte(ssid))
}

// SetWifiPassword sets the network password. BLE only.
func (m *Mission) SetWifiPassword(ctx context.Context, password string) error {
	return m.send(ctx, transport.SetWifiPassword, []byte(password))
}

// SetWifiShouldConnect tells the device whether to join the network. BLE
// only.
func (m *Mission) SetWifiShouldConnect(ctx context.Context, connect bool) error {
	var b byte
	if connect {
		b = 1
	}
	return m.send(ctx, transport.SetWifiShouldConnect, []byte{b})
}

// Request asks the device for the current value behind t.
func (m *Mission) Request(ctx context.Context, t transport.MessageType) error {
	return m.send(ctx, t, nil)
}
