// Package motion decodes the motion sensor block of a mission sensor data
// message.
package motion

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"missionlink/codec"
	"missionlink/observe"
	"missionlink/sensor"
)

// Fixed-point scalars per data type.
const (
	accelerationScalar = 1.0 / (1 << 8)
	rotationRateScalar = 1.0 / (1 << 9)
	magnetometerScalar = 1.0 / (1 << 4)
	quaternionScalar   = 1.0 / (1 << 14)
)

// Frame is a snapshot of the latest value of every motion field. Fields
// update independently, so a Frame may mix timestamps.
type Frame struct {
	Acceleration       observe.Sample[mgl64.Vec3] `json:"acceleration"`
	Gravity            observe.Sample[mgl64.Vec3] `json:"gravity"`
	LinearAcceleration observe.Sample[mgl64.Vec3] `json:"linearAcceleration"`
	RotationRate       observe.Sample[mgl64.Vec3] `json:"rotationRate"`
	Magnetometer       observe.Sample[mgl64.Vec3] `json:"magnetometer"`
	Quaternion         observe.Sample[mgl64.Quat] `json:"quaternion"`
	Rotation           observe.Sample[mgl64.Vec3] `json:"rotation"`
}

// Decoder turns motion blocks into body-frame vectors and rotations for
// one device type.
type Decoder struct {
	orientation orientation

	Acceleration       observe.Value[observe.Sample[mgl64.Vec3]]
	Gravity            observe.Value[observe.Sample[mgl64.Vec3]]
	LinearAcceleration observe.Value[observe.Sample[mgl64.Vec3]]
	// RotationRate is in radians per second.
	RotationRate observe.Value[observe.Sample[mgl64.Vec3]]
	Magnetometer observe.Value[observe.Sample[mgl64.Vec3]]
	Quaternion   observe.Value[observe.Sample[mgl64.Quat]]
	// Rotation is derived from Quaternion.
	Rotation observe.Value[observe.Sample[mgl64.Vec3]]
}

// NewDecoder returns a Decoder for deviceType.
func NewDecoder(deviceType sensor.DeviceType) *Decoder {
	return &Decoder{orientation: orientationFor(deviceType)}
}

// SetDeviceType switches the axis remapping.
func (d *Decoder) SetDeviceType(deviceType sensor.DeviceType) {
	d.orientation = orientationFor(deviceType)
}

type update struct {
	subType sensor.SubType
	vector  mgl64.Vec3
	quat    mgl64.Quat
}

// Parse decodes every (data type, sample) entry in r. Nothing is published
// unless the whole block decodes.
func (d *Decoder) Parse(r *codec.Reader, timestamp uint64) error {
	var updates []update
	for r.Len() > 0 {
		raw, err := r.Uint8()
		if err != nil {
			return err
		}
		subType, err := sensor.Motion.ParseSubType(raw)
		if err != nil {
			return err
		}

		u := update{subType: subType}
		switch subType {
		case sensor.Quaternion:
			vals, err := r.Int16s(4)
			if err != nil {
				return fmt.Errorf("reading quaternion: %w", err)
			}
			q := mgl64.Quat{
				W: float64(vals[0]) * quaternionScalar,
				V: mgl64.Vec3{float64(vals[1]), float64(vals[2]), float64(vals[3])}.Mul(quaternionScalar),
			}
			u.quat = d.orientation.quaternion(q)

		default:
			vals, err := r.Int16s(3)
			if err != nil {
				return fmt.Errorf("reading %s: %w", sensor.Motion.SubTypeName(subType), err)
			}
			v := d.orientation.vector(mgl64.Vec3{float64(vals[0]), float64(vals[1]), float64(vals[2])})
			switch subType {
			case sensor.RotationRate:
				v = v.Mul(mgl64.DegToRad(rotationRateScalar))
			case sensor.Magnetometer:
				v = v.Mul(magnetometerScalar)
			default:
				v = v.Mul(accelerationScalar)
			}
			u.vector = v
		}
		updates = append(updates, u)
	}

	for _, u := range updates {
		d.publish(u, timestamp)
	}
	return nil
}

func (d *Decoder) publish(u update, timestamp uint64) {
	vector := observe.Sample[mgl64.Vec3]{Timestamp: timestamp, Value: u.vector}
	switch u.subType {
	case sensor.Acceleration:
		d.Acceleration.Set(vector)
	case sensor.Gravity:
		d.Gravity.Set(vector)
	case sensor.LinearAcceleration:
		d.LinearAcceleration.Set(vector)
	case sensor.RotationRate:
		d.RotationRate.Set(vector)
	case sensor.Magnetometer:
		d.Magnetometer.Set(vector)
	case sensor.Quaternion:
		d.Quaternion.Set(observe.Sample[mgl64.Quat]{Timestamp: timestamp, Value: u.quat})
		d.Rotation.Set(observe.Sample[mgl64.Vec3]{Timestamp: timestamp, Value: EulerAngles(u.quat)})
	}
}

// Frame returns the latest value of every field.
func (d *Decoder) Frame() Frame {
	return Frame{
		Acceleration:       d.Acceleration.Get(),
		Gravity:            d.Gravity.Get(),
		LinearAcceleration: d.LinearAcceleration.Get(),
		RotationRate:       d.RotationRate.Get(),
		Magnetometer:       d.Magnetometer.Get(),
		Quaternion:         d.Quaternion.Get(),
		Rotation:           d.Rotation.Get(),
	}
}
