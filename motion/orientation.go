package motion

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"missionlink/sensor"
)

// orientation maps the IMU's mounting frame on a device to the body frame.
type orientation struct {
	axes mgl64.Mat3
	// handedness of axes; quaternion vector parts flip with it
	det        float64
	correction mgl64.Quat
	correct    bool
}

var orientations = func() [3]orientation {
	var o [3]orientation

	o[sensor.MotionModule] = newOrientation(mgl64.Mat3FromRows(
		mgl64.Vec3{1, 0, 0},
		mgl64.Vec3{0, 0, -1},
		mgl64.Vec3{0, -1, 0},
	), nil)

	left := mgl64.AnglesToQuat(0, 0, mgl64.DegToRad(90), mgl64.XYZ)
	o[sensor.LeftInsole] = newOrientation(mgl64.Mat3FromRows(
		mgl64.Vec3{0, 0, 1},
		mgl64.Vec3{0, 1, 0},
		mgl64.Vec3{1, 0, 0},
	), &left)

	right := mgl64.AnglesToQuat(0, 0, mgl64.DegToRad(-90), mgl64.XYZ)
	o[sensor.RightInsole] = newOrientation(mgl64.Mat3FromRows(
		mgl64.Vec3{0, 0, -1},
		mgl64.Vec3{0, 1, 0},
		mgl64.Vec3{-1, 0, 0},
	), &right)

	return o
}()

func newOrientation(axes mgl64.Mat3, correction *mgl64.Quat) orientation {
	o := orientation{axes: axes, det: axes.Det(), correction: mgl64.QuatIdent()}
	if correction != nil {
		o.correction = correction.Normalize()
		o.correct = true
	}
	return o
}

func orientationFor(d sensor.DeviceType) orientation {
	if int(d) < len(orientations) {
		return orientations[d]
	}
	return orientations[sensor.MotionModule]
}

func (o orientation) vector(v mgl64.Vec3) mgl64.Vec3 {
	return o.axes.Mul3x1(v)
}

// quaternion remaps q into the body frame and applies the mounting
// correction. The result is normalized.
func (o orientation) quaternion(q mgl64.Quat) mgl64.Quat {
	q = mgl64.Quat{W: q.W, V: o.axes.Mul3x1(q.V).Mul(o.det)}
	if q.Len() == 0 {
		return mgl64.QuatIdent()
	}
	q = q.Normalize()
	if o.correct {
		q = q.Mul(o.correction).Normalize()
	}
	return q
}

// EulerAngles returns the roll (X), pitch (Y) and yaw (Z) of q in radians,
// using the ZYX (yaw, then pitch, then roll) convention.
func EulerAngles(q mgl64.Quat) mgl64.Vec3 {
	w, x, y, z := q.W, q.V[0], q.V[1], q.V[2]

	roll := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	sinp := 2 * (w*y - z*x)
	var pitch float64
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}

	yaw := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return mgl64.Vec3{roll, pitch, yaw}
}
