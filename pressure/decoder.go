// Package pressure decodes the insole pressure block of a mission sensor
// data message and keeps a running calibration of the derived center of
// mass and mass.
package pressure

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"missionlink/codec"
	"missionlink/observe"
	"missionlink/sensor"
)

const (
	singleByteScalar = 1.0 / (1 << 8)
	doubleByteScalar = 1.0 / (1 << 12)
	massScalar       = 1.0 / (1 << 16)
)

// Value is one pressure cell.
type Value struct {
	Raw uint16 `json:"raw"`
	// Weighted is the cell's share of the total raw pressure.
	Weighted   float64    `json:"weighted"`
	Normalized float64    `json:"normalized"`
	Position   mgl64.Vec2 `json:"position"`
}

// Reading is the uncalibrated result of one cell array.
type Reading struct {
	Values       [Cells]Value
	Sum          uint32
	CenterOfMass mgl64.Vec2
	Mass         float64
	HeelToToe    float64
}

// Compute derives per-cell values, center of mass and mass from raw cell
// readings. width is PressureSingleByte or PressureDoubleByte and selects
// the physical scalar.
func Compute(raw [Cells]uint16, width sensor.SubType, deviceType sensor.DeviceType) Reading {
	scalar := singleByteScalar
	if width == sensor.PressureDoubleByte {
		scalar = doubleByteScalar
	}
	positions := Positions(deviceType)

	var rd Reading
	for i, v := range raw {
		rd.Sum += uint32(v)
		rd.Values[i] = Value{
			Raw:        v,
			Normalized: float64(v) * scalar,
			Position:   positions[i],
		}
	}

	if rd.Sum > 0 {
		var com mgl64.Vec2
		for i := range rd.Values {
			v := &rd.Values[i]
			v.Weighted = float64(v.Raw) / float64(rd.Sum)
			com = com.Add(v.Position.Mul(v.Weighted))
		}
		com[1] = 1 - com[1]
		rd.CenterOfMass = com
	}
	rd.HeelToToe = rd.CenterOfMass.Y()
	rd.Mass = float64(rd.Sum) * scalar / Cells
	return rd
}

// Frame is the latest value of every pressure field.
type Frame struct {
	Values       observe.Sample[[Cells]Value] `json:"values"`
	CenterOfMass observe.Sample[mgl64.Vec2]   `json:"centerOfMass"`
	Mass         observe.Sample[float64]      `json:"mass"`
	HeelToToe    observe.Sample[float64]      `json:"heelToToe"`
}

// Decoder parses pressure blocks for one insole. It is not safe for
// concurrent use; the owning mission serializes calls.
type Decoder struct {
	deviceType sensor.DeviceType

	comX, comY, mass Range

	Values observe.Value[observe.Sample[[Cells]Value]]
	// CenterOfMass and Mass are remapped into [0,1] against the running
	// calibration window.
	CenterOfMass observe.Value[observe.Sample[mgl64.Vec2]]
	Mass         observe.Value[observe.Sample[float64]]
	HeelToToe    observe.Value[observe.Sample[float64]]
}

// NewDecoder returns a Decoder with an empty calibration window.
func NewDecoder(deviceType sensor.DeviceType) *Decoder {
	d := &Decoder{deviceType: deviceType}
	d.RecalibrateCenterOfMass()
	return d
}

// SetDeviceType switches the anchor table.
func (d *Decoder) SetDeviceType(deviceType sensor.DeviceType) {
	d.deviceType = deviceType
}

// RecalibrateCenterOfMass empties the center of mass and mass windows.
func (d *Decoder) RecalibrateCenterOfMass() {
	d.comX.Reset()
	d.comY.Reset()
	d.mass.Reset()
}

// ErrNotFinite is returned for NaN or infinite floats pushed by the device.
var ErrNotFinite = errors.New("non-finite value")

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type entry struct {
	subType sensor.SubType
	reading Reading
	com     mgl64.Vec2
	scalar  float64
}

// Parse decodes every (data type, data) entry in r. Nothing is published
// unless the whole block decodes.
func (d *Decoder) Parse(r *codec.Reader, timestamp uint64) error {
	var entries []entry
	for r.Len() > 0 {
		raw, err := r.Uint8()
		if err != nil {
			return err
		}
		subType, err := sensor.Pressure.ParseSubType(raw)
		if err != nil {
			return err
		}

		e := entry{subType: subType}
		switch subType {
		case sensor.PressureSingleByte, sensor.PressureDoubleByte:
			var cells [Cells]uint16
			for i := range cells {
				if subType == sensor.PressureSingleByte {
					v, err := r.Uint8()
					if err != nil {
						return fmt.Errorf("reading pressure cell %d: %w", i, err)
					}
					cells[i] = uint16(v)
				} else {
					v, err := r.Uint16()
					if err != nil {
						return fmt.Errorf("reading pressure cell %d: %w", i, err)
					}
					cells[i] = v
				}
			}
			e.reading = Compute(cells, subType, d.deviceType)

		case sensor.CenterOfMass:
			x, err := r.Float32()
			if err != nil {
				return fmt.Errorf("reading center of mass: %w", err)
			}
			y, err := r.Float32()
			if err != nil {
				return fmt.Errorf("reading center of mass: %w", err)
			}
			e.com = mgl64.Vec2{float64(x), float64(y)}
			if !finite(e.com.X()) || !finite(e.com.Y()) {
				return fmt.Errorf("%w: center of mass %v", ErrNotFinite, e.com)
			}

		case sensor.Mass:
			v, err := r.Uint32()
			if err != nil {
				return fmt.Errorf("reading mass: %w", err)
			}
			e.scalar = float64(v) * massScalar

		case sensor.HeelToToe:
			v, err := r.Float64()
			if err != nil {
				return fmt.Errorf("reading heel to toe: %w", err)
			}
			if !finite(v) {
				return fmt.Errorf("%w: heel to toe %v", ErrNotFinite, v)
			}
			e.scalar = v
		}
		entries = append(entries, e)
	}

	for _, e := range entries {
		d.publish(e, timestamp)
	}
	return nil
}

func (d *Decoder) publish(e entry, timestamp uint64) {
	switch e.subType {
	case sensor.PressureSingleByte, sensor.PressureDoubleByte:
		d.Values.Set(observe.Sample[[Cells]Value]{Timestamp: timestamp, Value: e.reading.Values})
		d.publishCenterOfMass(e.reading.CenterOfMass, timestamp)
		d.publishMass(e.reading.Mass, timestamp)
		d.HeelToToe.Set(observe.Sample[float64]{Timestamp: timestamp, Value: e.reading.HeelToToe})
	case sensor.CenterOfMass:
		d.publishCenterOfMass(e.com, timestamp)
	case sensor.Mass:
		d.publishMass(e.scalar, timestamp)
	case sensor.HeelToToe:
		d.HeelToToe.Set(observe.Sample[float64]{Timestamp: timestamp, Value: e.scalar})
	}
}

func (d *Decoder) publishCenterOfMass(com mgl64.Vec2, timestamp uint64) {
	calibrated := mgl64.Vec2{
		d.comX.UpdateAndNormalize(com.X()),
		d.comY.UpdateAndNormalize(com.Y()),
	}
	d.CenterOfMass.Set(observe.Sample[mgl64.Vec2]{Timestamp: timestamp, Value: calibrated})
}

func (d *Decoder) publishMass(mass float64, timestamp uint64) {
	d.Mass.Set(observe.Sample[float64]{Timestamp: timestamp, Value: d.mass.UpdateAndNormalize(mass)})
}

// Frame returns the latest value of every field.
func (d *Decoder) Frame() Frame {
	return Frame{
		Values:       d.Values.Get(),
		CenterOfMass: d.CenterOfMass.Get(),
		Mass:         d.Mass.Get(),
		HeelToToe:    d.HeelToToe.Get(),
	}
}
