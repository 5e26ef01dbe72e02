package pressure

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/smartystreets/goconvey/convey"

	"missionlink/codec"
	"missionlink/sensor"
)

const epsilon = 1e-9

func TestCompute(t *testing.T) {
	Convey("Given raw cell readings", t, func() {
		var raw [Cells]uint16

		Convey("all-zero input has no center of mass and no mass", func() {
			rd := Compute(raw, sensor.PressureSingleByte, sensor.LeftInsole)
			So(rd.CenterOfMass, ShouldResemble, mgl64.Vec2{})
			So(rd.Mass, ShouldEqual, 0)
			for _, v := range rd.Values {
				So(v.Weighted, ShouldEqual, 0)
			}
		})

		Convey("a single loaded cell is the center of mass", func() {
			raw[3] = 255
			rd := Compute(raw, sensor.PressureSingleByte, sensor.LeftInsole)

			anchor := Positions(sensor.LeftInsole)[3]
			So(rd.Values[3].Weighted, ShouldEqual, 1.0)
			So(rd.CenterOfMass.X(), ShouldAlmostEqual, anchor.X(), epsilon)
			So(rd.CenterOfMass.Y(), ShouldAlmostEqual, 1-anchor.Y(), epsilon)
			So(rd.HeelToToe, ShouldAlmostEqual, rd.CenterOfMass.Y(), epsilon)
			So(rd.Values[3].Normalized, ShouldAlmostEqual, 255.0/256, epsilon)
		})

		Convey("weights sum to one", func() {
			for i := range raw {
				raw[i] = uint16(i * 3)
			}
			rd := Compute(raw, sensor.PressureSingleByte, sensor.RightInsole)
			total := 0.0
			for _, v := range rd.Values {
				total += v.Weighted
			}
			So(total, ShouldAlmostEqual, 1, epsilon)
		})

		Convey("double byte mass uses 2^-12", func() {
			for i := range raw {
				raw[i] = 4096
			}
			rd := Compute(raw, sensor.PressureDoubleByte, sensor.LeftInsole)
			So(rd.Mass, ShouldAlmostEqual, 1, epsilon)
		})
	})

	Convey("the right insole mirrors the left in X", t, func() {
		left, right := Positions(sensor.LeftInsole), Positions(sensor.RightInsole)
		for i := range left {
			So(right[i].X(), ShouldAlmostEqual, 1-left[i].X(), epsilon)
			So(right[i].Y(), ShouldEqual, left[i].Y())
			So(left[i].X(), ShouldBeBetweenOrEqual, 0, 1)
			So(left[i].Y(), ShouldBeBetweenOrEqual, 0, 1)
		}
	})
}

func massEntry(raw uint32) []byte {
	w := codec.NewWriter(5)
	w.Uint8(uint8(sensor.Mass))
	w.Uint32(raw)
	return w.Bytes()
}

func TestDecoder(t *testing.T) {
	Convey("Given a left insole decoder", t, func() {
		d := NewDecoder(sensor.LeftInsole)

		Convey("a single byte cell array publishes every field", func() {
			w := codec.NewWriter(17)
			w.Uint8(uint8(sensor.PressureSingleByte))
			for i := 0; i < Cells; i++ {
				w.Uint8(0)
			}
			So(d.Parse(codec.NewReader(w.Bytes()), 10), ShouldBeNil)

			f := d.Frame()
			So(f.Values.Timestamp, ShouldEqual, 10)
			So(f.CenterOfMass.Timestamp, ShouldEqual, 10)
			So(f.Mass.Value, ShouldEqual, 0)
			So(d.HeelToToe.Version(), ShouldEqual, 1)
		})

		Convey("mass is remapped against the running window", func() {
			So(d.Parse(codec.NewReader(massEntry(1<<16)), 1), ShouldBeNil)
			So(d.Mass.Get().Value, ShouldEqual, 0)

			So(d.Parse(codec.NewReader(massEntry(3<<16)), 2), ShouldBeNil)
			So(d.Mass.Get().Value, ShouldEqual, 1)

			So(d.Parse(codec.NewReader(massEntry(2<<16)), 3), ShouldBeNil)
			So(d.Mass.Get().Value, ShouldAlmostEqual, 0.5, epsilon)

			Convey("and recalibration empties the window", func() {
				d.RecalibrateCenterOfMass()
				So(d.Parse(codec.NewReader(massEntry(2<<16)), 4), ShouldBeNil)
				So(d.Mass.Get().Value, ShouldEqual, 0)
			})
		})

		push := func(x, y float32) []byte {
			w := codec.NewWriter(9)
			w.Uint8(uint8(sensor.CenterOfMass))
			w.Float32(x)
			w.Float32(y)
			return w.Bytes()
		}

		Convey("pushed center of mass is remapped per axis", func() {
			So(d.Parse(codec.NewReader(push(0.2, 0.4)), 1), ShouldBeNil)
			So(d.Parse(codec.NewReader(push(0.6, 0.8)), 2), ShouldBeNil)
			So(d.Parse(codec.NewReader(push(0.4, 0.4)), 3), ShouldBeNil)

			com := d.CenterOfMass.Get().Value
			So(com.X(), ShouldAlmostEqual, 0.5, 1e-6)
			So(com.Y(), ShouldAlmostEqual, 0, 1e-6)
		})

		Convey("a NaN center of mass is dropped and calibration carries on", func() {
			nan := float32(math.NaN())
			So(d.Parse(codec.NewReader(push(0.2, 0.2)), 1), ShouldBeNil)

			err := d.Parse(codec.NewReader(push(nan, 0.5)), 2)
			So(errors.Is(err, ErrNotFinite), ShouldBeTrue)
			So(d.CenterOfMass.Get().Timestamp, ShouldEqual, 1)

			So(d.Parse(codec.NewReader(push(0.8, 0.8)), 3), ShouldBeNil)
			So(d.Parse(codec.NewReader(push(0.5, 0.5)), 4), ShouldBeNil)
			So(d.CenterOfMass.Get().Value.X(), ShouldAlmostEqual, 0.5, 1e-6)
			So(d.CenterOfMass.Get().Value.Y(), ShouldAlmostEqual, 0.5, 1e-6)
		})

		Convey("an infinite heel to toe is dropped", func() {
			w := codec.NewWriter(9)
			w.Uint8(uint8(sensor.HeelToToe))
			w.Float64(math.Inf(1))
			err := d.Parse(codec.NewReader(w.Bytes()), 5)
			So(errors.Is(err, ErrNotFinite), ShouldBeTrue)
			So(d.HeelToToe.Version(), ShouldEqual, 0)
		})

		Convey("pushed heel to toe is published as is", func() {
			w := codec.NewWriter(9)
			w.Uint8(uint8(sensor.HeelToToe))
			w.Float64(0.75)
			So(d.Parse(codec.NewReader(w.Bytes()), 5), ShouldBeNil)
			So(d.HeelToToe.Get().Value, ShouldEqual, 0.75)
		})

		Convey("a truncated cell array publishes nothing", func() {
			b := append(massEntry(1<<16), uint8(sensor.PressureDoubleByte), 1, 0, 2)
			err := d.Parse(codec.NewReader(b), 1)
			So(errors.Is(err, codec.ErrTruncatedData), ShouldBeTrue)
			So(d.Mass.Version(), ShouldEqual, 0)
		})

		Convey("an unknown data type is rejected", func() {
			err := d.Parse(codec.NewReader([]byte{7}), 1)
			So(errors.Is(err, codec.ErrUnknownEnumValue), ShouldBeTrue)
		})
	})
}

func TestRange(t *testing.T) {
	Convey("an empty range maps to zero", t, func() {
		r := NewRange()
		So(r.Normalize(3), ShouldEqual, 0)
		So(r.UpdateAndNormalize(3), ShouldEqual, 0)
		So(r.UpdateAndNormalize(5), ShouldEqual, 1)
		So(r.Normalize(4), ShouldEqual, 0.5)
	})

	Convey("non-finite values leave the window alone", t, func() {
		r := NewRange()
		r.Update(0.2)
		r.Update(math.NaN())
		r.Update(math.Inf(-1))
		r.Update(0.8)
		So(r.Min, ShouldEqual, 0.2)
		So(r.Max, ShouldEqual, 0.8)
		So(r.Normalize(0.5), ShouldAlmostEqual, 0.5, epsilon)
	})
}
