package motion

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/smartystreets/goconvey/convey"

	"missionlink/codec"
	"missionlink/observe"
	"missionlink/sensor"
)

const epsilon = 1e-9

func block(entries ...func(w *codec.Writer)) *codec.Reader {
	w := codec.NewWriter(64)
	for _, e := range entries {
		e(w)
	}
	return codec.NewReader(w.Bytes())
}

func vector(sub sensor.SubType, x, y, z int16) func(w *codec.Writer) {
	return func(w *codec.Writer) {
		w.Uint8(uint8(sub))
		w.Int16(x)
		w.Int16(y)
		w.Int16(z)
	}
}

func quaternion(qw, qx, qy, qz int16) func(w *codec.Writer) {
	return func(w *codec.Writer) {
		w.Uint8(uint8(sensor.Quaternion))
		w.Int16(qw)
		w.Int16(qx)
		w.Int16(qy)
		w.Int16(qz)
	}
}

func TestMotionDecoder(t *testing.T) {
	Convey("Given a motion module decoder", t, func() {
		d := NewDecoder(sensor.MotionModule)

		Convey("acceleration is scaled by 2^-8 and remapped", func() {
			err := d.Parse(block(vector(sensor.Acceleration, 256, 512, 0)), 42)
			So(err, ShouldBeNil)

			got := d.Acceleration.Get()
			So(got.Timestamp, ShouldEqual, 42)
			So(got.Value.ApproxEqualThreshold(mgl64.Vec3{1, 0, -2}, epsilon), ShouldBeTrue)
		})

		Convey("magnetometer uses 2^-4", func() {
			So(d.Parse(block(vector(sensor.Magnetometer, 16, 0, 0)), 0), ShouldBeNil)
			So(d.Magnetometer.Get().Value.ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, epsilon), ShouldBeTrue)
		})

		Convey("an identity quaternion stays identity", func() {
			So(d.Parse(block(quaternion(1<<14, 0, 0, 0)), 7), ShouldBeNil)
			q := d.Quaternion.Get().Value
			So(q.ApproxEqualThreshold(mgl64.QuatIdent(), epsilon), ShouldBeTrue)
			So(d.Rotation.Get().Value.ApproxEqualThreshold(mgl64.Vec3{}, epsilon), ShouldBeTrue)
		})

		Convey("several entries publish independently with one timestamp", func() {
			var order []string
			d.Gravity.Subscribe(func(observe.Sample[mgl64.Vec3]) { order = append(order, "gravity") })
			d.Quaternion.Subscribe(func(observe.Sample[mgl64.Quat]) { order = append(order, "quaternion") })

			err := d.Parse(block(
				vector(sensor.Gravity, 0, 0, 256),
				quaternion(1<<14, 0, 0, 0),
			), 99)
			So(err, ShouldBeNil)
			So(order, ShouldResemble, []string{"gravity", "quaternion"})

			frame := d.Frame()
			So(frame.Gravity.Timestamp, ShouldEqual, 99)
			So(frame.Quaternion.Timestamp, ShouldEqual, 99)
		})

		Convey("an unknown data type drops the whole block", func() {
			err := d.Parse(block(
				vector(sensor.Acceleration, 1, 2, 3),
				func(w *codec.Writer) { w.Uint8(9) },
			), 1)
			So(errors.Is(err, codec.ErrUnknownEnumValue), ShouldBeTrue)
			So(d.Acceleration.Version(), ShouldEqual, 0)
		})

		Convey("a short sample is truncated data", func() {
			r := codec.NewReader([]byte{uint8(sensor.Acceleration), 1, 0, 2})
			err := d.Parse(r, 1)
			So(errors.Is(err, codec.ErrTruncatedData), ShouldBeTrue)
			So(d.Acceleration.Version(), ShouldEqual, 0)
		})
	})

	Convey("Given a left insole decoder", t, func() {
		d := NewDecoder(sensor.LeftInsole)

		Convey("rotation rate is remapped then converted to radians", func() {
			So(d.Parse(block(vector(sensor.RotationRate, 0, 0, 512)), 0), ShouldBeNil)
			want := mgl64.Vec3{mgl64.DegToRad(1), 0, 0}
			So(d.RotationRate.Get().Value.ApproxEqualThreshold(want, epsilon), ShouldBeTrue)
		})

		Convey("quaternions get the insole mounting correction", func() {
			So(d.Parse(block(quaternion(1<<14, 0, 0, 0)), 0), ShouldBeNil)
			want := mgl64.AnglesToQuat(0, 0, mgl64.DegToRad(90), mgl64.XYZ)
			So(d.Quaternion.Get().Value.ApproxEqualThreshold(want, epsilon), ShouldBeTrue)
		})

		Convey("non-unit quaternions are normalized", func() {
			So(d.Parse(block(quaternion(1<<13, 1<<13, 0, 0)), 0), ShouldBeNil)
			So(d.Quaternion.Get().Value.Len(), ShouldAlmostEqual, 1, epsilon)
		})
	})

	Convey("switching device type changes the axis table", t, func() {
		d := NewDecoder(sensor.LeftInsole)
		d.SetDeviceType(sensor.RightInsole)
		So(d.Parse(block(vector(sensor.Acceleration, 256, 0, 0)), 0), ShouldBeNil)
		So(d.Acceleration.Get().Value.ApproxEqualThreshold(mgl64.Vec3{0, 0, -1}, epsilon), ShouldBeTrue)
	})
}

func TestOrientationTable(t *testing.T) {
	Convey("every remap keeps quaternions proper rotations", t, func() {
		raw := mgl64.QuatRotate(0.3, mgl64.Vec3{1, 2, 3}.Normalize())
		for _, dt := range []sensor.DeviceType{sensor.MotionModule, sensor.LeftInsole, sensor.RightInsole} {
			o := orientationFor(dt)
			So(math.Abs(o.det), ShouldEqual, 1)
			q := o.quaternion(raw)
			So(q.Len(), ShouldAlmostEqual, 1, epsilon)
		}
	})

	Convey("yaw-only rotations decode to yaw", t, func() {
		q := mgl64.QuatRotate(0.5, mgl64.Vec3{0, 0, 1})
		e := EulerAngles(q)
		So(e.X(), ShouldAlmostEqual, 0, epsilon)
		So(e.Y(), ShouldAlmostEqual, 0, epsilon)
		So(e.Z(), ShouldAlmostEqual, 0.5, epsilon)
	})

	Convey("angles come back in ZYX order", t, func() {
		roll, pitch, yaw := 0.2, -0.4, 1.1
		q := mgl64.QuatRotate(yaw, mgl64.Vec3{0, 0, 1}).
			Mul(mgl64.QuatRotate(pitch, mgl64.Vec3{0, 1, 0})).
			Mul(mgl64.QuatRotate(roll, mgl64.Vec3{1, 0, 0}))
		e := EulerAngles(q)
		So(e.X(), ShouldAlmostEqual, roll, 1e-9)
		So(e.Y(), ShouldAlmostEqual, pitch, 1e-9)
		So(e.Z(), ShouldAlmostEqual, yaw, 1e-9)
	})
}
