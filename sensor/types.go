// Package sensor defines the mission sensor taxonomy and the sensor data
// configuration exchanged with the device.
package sensor

import "missionlink/codec"

// DeviceType identifies the physical mission.
type DeviceType uint8

const (
	MotionModule DeviceType = 0
	LeftInsole   DeviceType = 1
	RightInsole  DeviceType = 2
)

var deviceTypeNames = [...]string{"motionModule", "leftInsole", "rightInsole"}

// ParseDeviceType maps a wire byte to a DeviceType.
func ParseDeviceType(v uint8) (DeviceType, error) {
	if int(v) >= len(deviceTypeNames) {
		return 0, codec.UnknownValue("device type", v)
	}
	return DeviceType(v), nil
}

func (d DeviceType) String() string {
	if int(d) < len(deviceTypeNames) {
		return deviceTypeNames[d]
	}
	return "unknown"
}

// IsInsole returns true for the left and right insoles.
func (d DeviceType) IsInsole() bool {
	return d == LeftInsole || d == RightInsole
}

// SensorTypes returns the sensor types available on the device, in
// canonical order.
func (d DeviceType) SensorTypes() []Type {
	if d.IsInsole() {
		return []Type{Motion, Pressure}
	}
	return []Type{Motion}
}

// Supports reports whether the device carries sensors of type t.
func (d DeviceType) Supports(t Type) bool {
	return t == Motion || (t == Pressure && d.IsInsole())
}

// Type is a sensor type.
type Type uint8

const (
	Motion   Type = 0
	Pressure Type = 1
)

// Types lists every sensor type in canonical wire order.
var Types = [...]Type{Motion, Pressure}

// ParseType maps a wire byte to a sensor Type.
func ParseType(v uint8) (Type, error) {
	if int(v) >= len(Types) {
		return 0, codec.UnknownValue("sensor type", v)
	}
	return Type(v), nil
}

func (t Type) String() string {
	switch t {
	case Motion:
		return "motion"
	case Pressure:
		return "pressure"
	}
	return "unknown"
}

// SubTypes returns the number of data sub-types declared for t.
func (t Type) SubTypes() int {
	switch t {
	case Motion:
		return len(motionNames)
	case Pressure:
		return len(pressureNames)
	}
	return 0
}

// SubTypeName returns the name of sub-type s within t.
func (t Type) SubTypeName(s SubType) string {
	var names []string
	switch t {
	case Motion:
		names = motionNames[:]
	case Pressure:
		names = pressureNames[:]
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// ParseSubType validates a sub-type id for sensor type t.
func (t Type) ParseSubType(v uint8) (SubType, error) {
	if int(v) >= t.SubTypes() {
		return 0, codec.UnknownValue(t.String()+" data type", v)
	}
	return SubType(v), nil
}

// LookupSubType finds a sub-type by name.
func (t Type) LookupSubType(name string) (SubType, bool) {
	for i := 0; i < t.SubTypes(); i++ {
		if t.SubTypeName(SubType(i)) == name {
			return SubType(i), true
		}
	}
	return 0, false
}

// LookupType finds a sensor type by name.
func LookupType(name string) (Type, bool) {
	for _, t := range Types {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// SubType is a data channel within a sensor type. Values are the wire ids.
type SubType uint8

// Motion data types.
const (
	Acceleration       SubType = 0
	Gravity            SubType = 1
	LinearAcceleration SubType = 2
	RotationRate       SubType = 3
	Magnetometer       SubType = 4
	Quaternion         SubType = 5
)

// Pressure data types.
const (
	PressureSingleByte SubType = 0
	PressureDoubleByte SubType = 1
	CenterOfMass       SubType = 2
	Mass               SubType = 3
	HeelToToe          SubType = 4
)

var motionNames = [...]string{
	"acceleration", "gravity", "linearAcceleration", "rotationRate", "magnetometer", "quaternion",
}

var pressureNames = [...]string{
	"pressureSingleByte", "pressureDoubleByte", "centerOfMass", "mass", "heelToToe",
}
