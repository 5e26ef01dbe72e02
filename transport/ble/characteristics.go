// Package ble carries mission messages over GATT characteristics.
package ble

import (
	"fmt"

	"missionlink/transport"
)

// MissionUUID expands a 16-bit code into the mission's vendor UUID space.
func MissionUUID(code uint16) string {
	return fmt.Sprintf("5691eddf-%04x-4420-b7a5-bb8751ab5181", code)
}

// standardUUID expands a Bluetooth SIG assigned number. BlueZ reports UUIDs
// in this lower-case form.
func standardUUID(code uint16) string {
	return fmt.Sprintf("%08x-0000-1000-8000-00805f9b34fb", code)
}

var (
	ServiceUUID        = MissionUUID(0x0000)
	BatteryServiceUUID = standardUUID(0x180f)
	BatteryLevelUUID   = standardUUID(0x2a19)
)

const none = transport.MessageType(0xff)

// characteristic binds one GATT characteristic to the messages it carries.
// Reading or notifying delivers read; writing sends write.
type characteristic struct {
	uuid    string
	service string
	notify  bool
	read    transport.MessageType
	write   transport.MessageType
}

var characteristics = []characteristic{
	{BatteryLevelUUID, BatteryServiceUUID, true, transport.BatteryLevel, none},
	{MissionUUID(0x3001), ServiceUUID, false, transport.GetType, transport.SetType},
	{MissionUUID(0x4001), ServiceUUID, false, transport.GetName, transport.SetName},
	{MissionUUID(0x5001), ServiceUUID, true, transport.MotionCalibration, none},
	{MissionUUID(0x6001), ServiceUUID, true, transport.GetSensorDataConfigurations, transport.SetSensorDataConfigurations},
	{MissionUUID(0x6002), ServiceUUID, true, transport.SensorData, none},
	{MissionUUID(0xd000), ServiceUUID, false, none, transport.TriggerVibration},
	{MissionUUID(0x7001), ServiceUUID, false, transport.GetWifiSSID, transport.SetWifiSSID},
	{MissionUUID(0x7002), ServiceUUID, false, transport.GetWifiPassword, transport.SetWifiPassword},
	{MissionUUID(0x7003), ServiceUUID, false, transport.GetWifiShouldConnect, transport.SetWifiShouldConnect},
	{MissionUUID(0x7004), ServiceUUID, true, transport.WifiIsConnected, none},
	{MissionUUID(0x7005), ServiceUUID, true, transport.IPAddress, none},
}

var byMessageType = func() map[transport.MessageType]*characteristic {
	m := make(map[transport.MessageType]*characteristic)
	for i := range characteristics {
		c := &characteristics[i]
		if c.read != none {
			m[c.read] = c
		}
		if c.write != none {
			m[c.write] = c
		}
	}
	return m
}()

// CharacteristicUUID returns the characteristic carrying t.
func CharacteristicUUID(t transport.MessageType) (string, bool) {
	c, ok := byMessageType[t]
	if !ok {
		return "", false
	}
	return c.uuid, true
}

func serviceUUIDs() []string {
	return []string{ServiceUUID, BatteryServiceUUID}
}

func characteristicUUIDs(service string) []string {
	var uuids []string
	for _, c := range characteristics {
		if c.service == service {
			uuids = append(uuids, c.uuid)
		}
	}
	return uuids
}
