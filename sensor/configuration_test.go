package sensor

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"missionlink/codec"
)

func TestRoundRate(t *testing.T) {
	Convey("rounding to a multiple of 10 is idempotent for every u16", t, func() {
		failures := 0
		for v := 0; v <= math.MaxUint16; v++ {
			once := RoundRate(uint16(v))
			if RoundRate(once) != once || once%10 != 0 || once > uint16(v) {
				failures++
			}
		}
		So(failures, ShouldEqual, 0)
		So(RoundRate(59), ShouldEqual, 50)
		So(RoundRate(math.MaxUint16), ShouldEqual, 65530)
	})
}

func TestConfigurationSet(t *testing.T) {
	Convey("Given an empty configuration", t, func() {
		var c Configuration
		So(c.IsZero(), ShouldBeTrue)

		Convey("setting a rate rounds down and marks it dirty", func() {
			So(c.Set(Motion, Quaternion, 25), ShouldBeTrue)
			So(c.Rate(Motion, Quaternion), ShouldEqual, 20)
			So(c.Dirty(), ShouldBeTrue)
			So(c.IsZero(), ShouldBeFalse)

			Convey("setting the same rounded value is a no-op", func() {
				c.ClearDirty()
				So(c.Set(Motion, Quaternion, 29), ShouldBeFalse)
				So(c.Dirty(), ShouldBeFalse)
			})
		})

		Convey("the two raw pressure widths are mutually exclusive", func() {
			c.Set(Pressure, PressureSingleByte, 50)
			c.Set(Pressure, PressureDoubleByte, 50)
			So(c.Rate(Pressure, PressureSingleByte), ShouldEqual, 0)
			So(c.Rate(Pressure, PressureDoubleByte), ShouldEqual, 50)

			c.Set(Pressure, PressureSingleByte, 40)
			So(c.Rate(Pressure, PressureDoubleByte), ShouldEqual, 0)

			Convey("disabling one width leaves the other alone", func() {
				c.Set(Pressure, PressureDoubleByte, 0)
				So(c.Rate(Pressure, PressureSingleByte), ShouldEqual, 40)
			})
		})

		Convey("out of range sub-types are ignored", func() {
			So(c.Set(Pressure, SubType(5), 100), ShouldBeFalse)
			So(c.Rate(Pressure, SubType(5)), ShouldEqual, 0)
		})
	})
}

func TestConfigurationDelta(t *testing.T) {
	Convey("Given a reference and an updated configuration", t, func() {
		var ref, cfg Configuration
		ref.Set(Motion, Acceleration, 20)
		ref.Set(Motion, Quaternion, 20)

		cfg = ref.Clone()
		cfg.Set(Motion, Quaternion, 40)
		cfg.Set(Pressure, CenterOfMass, 100)

		Convey("the insole delta carries only changed sub-types", func() {
			delta := cfg.SerializeDelta(&ref, LeftInsole)
			So(delta, ShouldResemble, []byte{
				0, 3, 5, 40, 0,
				1, 3, 2, 100, 0,
			})

			Convey("and applying it to the reference reproduces the configuration", func() {
				merged := ref.Clone()
				So(merged.ApplyDelta(delta), ShouldBeNil)
				So(merged.Equal(&cfg), ShouldBeTrue)
			})
		})

		Convey("pressure is omitted for the motion module", func() {
			delta := cfg.SerializeDelta(&ref, MotionModule)
			So(delta, ShouldResemble, []byte{0, 3, 5, 40, 0})
		})

		Convey("an unchanged configuration has an empty delta", func() {
			So(ref.SerializeDelta(&ref, RightInsole), ShouldBeEmpty)
		})

		Convey("a delta against zero carries every enabled stream", func() {
			var zero Configuration
			merged := Configuration{}
			So(merged.ApplyDelta(cfg.SerializeDelta(&zero, RightInsole)), ShouldBeNil)
			So(merged.Equal(&cfg), ShouldBeTrue)
		})

		Convey("a malformed delta is rejected", func() {
			var c Configuration
			err := c.ApplyDelta([]byte{7, 0})
			So(errors.Is(err, codec.ErrUnknownEnumValue), ShouldBeTrue)

			err = c.ApplyDelta([]byte{0, 6, 5, 40})
			So(errors.Is(err, codec.ErrTruncatedData), ShouldBeTrue)
		})
	})
}

func TestParseConfiguration(t *testing.T) {
	Convey("the full snapshot holds one u16 per declared sub-type", t, func() {
		So(SnapshotSize, ShouldEqual, 22)

		var c Configuration
		c.Set(Motion, Gravity, 100)
		c.Set(Pressure, Mass, 30)
		raw := c.Snapshot()
		So(len(raw), ShouldEqual, SnapshotSize)
		So(raw[2:4], ShouldResemble, []byte{100, 0})
		So(raw[18:20], ShouldResemble, []byte{30, 0})

		parsed, err := ParseConfiguration(raw)
		So(err, ShouldBeNil)
		So(parsed.Equal(&c), ShouldBeTrue)
		So(parsed.Dirty(), ShouldBeFalse)

		Convey("a short snapshot is truncated data", func() {
			_, err := ParseConfiguration(raw[:21])
			So(errors.Is(err, codec.ErrTruncatedData), ShouldBeTrue)
		})
	})
}

func TestClock(t *testing.T) {
	Convey("timestamps keep increasing across counter wraparound", t, func() {
		var c Clock
		var got []uint64
		for _, raw := range []uint16{65000, 65530, 100, 200} {
			got = append(got, c.Update(raw))
		}
		So(got, ShouldResemble, []uint64{65000, 65530, 65536 + 100, 65536 + 200})

		Convey("a reset drops the offset", func() {
			c.Reset()
			So(c.Update(5), ShouldEqual, 5)
		})
	})
}

func TestTaxonomy(t *testing.T) {
	Convey("device types decide which sensors exist", t, func() {
		dt, err := ParseDeviceType(1)
		So(err, ShouldBeNil)
		So(dt, ShouldEqual, LeftInsole)
		So(dt.SensorTypes(), ShouldResemble, []Type{Motion, Pressure})
		So(MotionModule.Supports(Pressure), ShouldBeFalse)

		_, err = ParseDeviceType(3)
		So(errors.Is(err, codec.ErrUnknownEnumValue), ShouldBeTrue)
	})

	Convey("sub-types resolve by name", t, func() {
		s, ok := Pressure.LookupSubType("heelToToe")
		So(ok, ShouldBeTrue)
		So(s, ShouldEqual, HeelToToe)
		_, ok = Motion.LookupSubType("heelToToe")
		So(ok, ShouldBeFalse)
	})
}
