package mission

import (
	"fmt"

	"missionlink/codec"
	"missionlink/sensor"
	"missionlink/transport"
)

func (m *Mission) handle(gen uint64, t transport.MessageType, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}

	if err := m.dispatch(t, payload); err != nil {
		m.log.WithField("message", t.String()).Warnf("dropping message: %v", err)
	}
	m.evaluateStatus()
}

func (m *Mission) dispatch(t transport.MessageType, payload []byte) error {
	r := codec.NewReader(payload)

	switch t {
	case transport.Ping:
		return nil

	case transport.BatteryLevel:
		level, err := r.Uint8()
		if err != nil {
			return err
		}
		m.batteryReceived = true
		m.BatteryLevel.Set(level)

	case transport.GetType, transport.SetType:
		raw, err := r.Uint8()
		if err != nil {
			return err
		}
		dt, err := sensor.ParseDeviceType(raw)
		if err != nil {
			return err
		}
		// the type reported at session start sticks until the user changes it
		if t == transport.GetType && m.deviceTypeKnown && dt != m.deviceType {
			m.log.Warnf("ignoring device type %s, session is %s", dt, m.deviceType)
			return nil
		}
		m.applyDeviceType(dt)

	case transport.GetName, transport.SetName:
		m.Name.Set(string(payload))

	case transport.MotionCalibration:
		return m.Calibration.Parse(payload)

	case transport.GetSensorDataConfigurations, transport.SetSensorDataConfigurations:
		c, err := sensor.ReadConfiguration(r)
		if err != nil {
			return err
		}
		m.config = c
		m.SensorDataConfiguration.Set(c.Clone())

	case transport.SensorData:
		return m.parseSensorData(r)

	case transport.TriggerVibration:
		m.Vibrated.Emit(payload)

	case transport.GetWifiSSID, transport.SetWifiSSID:
		m.WifiSSID.Set(string(payload))

	case transport.GetWifiPassword, transport.SetWifiPassword:
		m.WifiPassword.Set(string(payload))

	case transport.GetWifiShouldConnect, transport.SetWifiShouldConnect:
		v, err := r.Uint8()
		if err != nil {
			return err
		}
		m.WifiShouldConnect.Set(v != 0)

	case transport.WifiIsConnected:
		v, err := r.Uint8()
		if err != nil {
			return err
		}
		m.WifiIsConnected.Set(v != 0)

	case transport.IPAddress:
		m.IPAddress.Set(string(payload))

	case transport.RSSI:
		v, err := r.Int16()
		if err != nil {
			return err
		}
		m.RSSI.Set(v)

	default:
		return codec.UnknownValue("message type", uint8(t))
	}
	return nil
}

func (m *Mission) applyDeviceType(dt sensor.DeviceType) {
	m.deviceType = dt
	m.deviceTypeKnown = true
	m.Motion.SetDeviceType(dt)
	m.Pressure.SetDeviceType(dt)
	if m.DeviceType.Get() != dt || m.DeviceType.Version() == 0 {
		m.DeviceType.Set(dt)
	}
}

// parseSensorData decodes [u16 timestamp][(u8 sensor type, u8 length,
// block)...]. Blocks decoded before a malformed one stay published.
func (m *Mission) parseSensorData(r *codec.Reader) error {
	raw, err := r.Uint16()
	if err != nil {
		return fmt.Errorf("reading timestamp: %w", err)
	}
	timestamp := m.clock.Update(raw)
	m.lastSensorData = m.now()

	for r.Len() > 0 {
		rawType, err := r.Uint8()
		if err != nil {
			return err
		}
		t, err := sensor.ParseType(rawType)
		if err != nil {
			return err
		}
		size, err := r.Uint8()
		if err != nil {
			return fmt.Errorf("reading %s block length: %w", t, err)
		}
		block, err := r.Sub(int(size))
		if err != nil {
			return fmt.Errorf("reading %s block: %w", t, err)
		}

		switch t {
		case sensor.Motion:
			err = m.Motion.Parse(block, timestamp)
		case sensor.Pressure:
			if !m.deviceType.IsInsole() {
				m.log.Debugf("pressure data from a %s", m.deviceType)
			}
			err = m.Pressure.Parse(block, timestamp)
		}
		if err != nil {
			return fmt.Errorf("decoding %s block: %w", t, err)
		}
	}

	m.SensorData.Emit(timestamp)
	return nil
}
