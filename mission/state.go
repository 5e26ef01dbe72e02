package mission

import (
	"missionlink/calibration"
	"missionlink/motion"
	"missionlink/pressure"
	"missionlink/sensor"
	"missionlink/transport"
)

// Wifi is the device's WiFi settings and link state.
type Wifi struct {
	SSID          string `json:"ssid"`
	ShouldConnect bool   `json:"shouldConnect"`
	IsConnected   bool   `json:"isConnected"`
	IPAddress     string `json:"ipAddress,omitempty"`
}

// State is a point-in-time copy of everything a mission knows.
type State struct {
	Name            string               `json:"name"`
	DeviceType      sensor.DeviceType    `json:"-"`
	Type            string               `json:"deviceType"`
	Transport       string               `json:"transport"`
	Status          transport.Status     `json:"status"`
	BatteryLevel    uint8                `json:"batteryLevel"`
	RSSI            int16                `json:"rssi"`
	Calibration     calibration.Statuses `json:"calibration"`
	FullyCalibrated bool                 `json:"fullyCalibrated"`
	Configuration   sensor.Configuration `json:"sensorDataConfiguration"`
	Wifi            Wifi                 `json:"wifi"`
	Motion          motion.Frame         `json:"motion"`
	Pressure        *pressure.Frame      `json:"pressure,omitempty"`
}

// State returns a snapshot of the mission.
func (m *Mission) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	dt := m.DeviceType.Get()
	s := State{
		Name:            m.Name.Get(),
		DeviceType:      dt,
		Type:            dt.String(),
		Transport:       m.manager.Kind().String(),
		Status:          m.Status.Get(),
		BatteryLevel:    m.BatteryLevel.Get(),
		RSSI:            m.RSSI.Get(),
		Calibration:     m.Calibration.Statuses.Get(),
		FullyCalibrated: m.Calibration.FullyCalibrated.Get(),
		Configuration:   m.config.Clone(),
		Wifi: Wifi{
			SSID:          m.WifiSSID.Get(),
			ShouldConnect: m.WifiShouldConnect.Get(),
			IsConnected:   m.WifiIsConnected.Get(),
			IPAddress:     m.IPAddress.Get(),
		},
		Motion: m.Motion.Frame(),
	}
	if dt.IsInsole() {
		p := m.Pressure.Frame()
		s.Pressure = &p
	}
	return s
}
